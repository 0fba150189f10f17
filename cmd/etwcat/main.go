package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	trace "github.com/microsoftarchive/semantic-logging-sub002"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var (
	stdinNotice sync.Once
	eventCount  int64
)

func readerFromStdin() io.Reader {
	stdinNotice.Do(func() {
		go func() {
			<-time.After(time.Second / 2)
			if atomic.LoadInt64(&eventCount) == 0 {
				fmt.Fprintln(os.Stderr, `etwcat info: waiting for stdin...`)
			}
		}()
	})
	return os.Stdin
}

func readerFromArg(arg string) (io.ReadCloser, error) {
	if arg == `-` {
		return io.NopCloser(readerFromStdin()), nil
	}
	return os.Open(arg)
}

func loadConfig(c *cli.Context) (trace.Config, error) {
	cfg := trace.DefaultConfig()
	if path := c.String("config"); path != `` {
		var err error
		if cfg, err = trace.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if c.IsSet("schema-dir") {
		cfg.SchemaDir = c.String("schema-dir")
	}
	if c.IsSet("bounds") {
		cfg.Bounds = c.String("bounds")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, cfg.Validate()
}

func cat(ctx context.Context, w *bufio.Writer, r io.Reader, cfg trace.Config, log zerolog.Logger, summary bool) error {
	src, err := trace.NewSource(r, cfg, trace.WithLogger(log))
	if err != nil {
		return err
	}
	if !summary {
		src.Table().RegisterAll(event.VisitorFunc(func(p event.Payload) error {
			atomic.AddInt64(&eventCount, 1)
			if err := event.WriteXML(w, p); err != nil {
				return err
			}
			return w.WriteByte('\n')
		}))
	}
	if err := src.Process(ctx); err != nil {
		return err
	}
	if summary {
		st := src.Stats()
		atomic.AddInt64(&eventCount, int64(st.Capture.Records))
		fmt.Fprintf(w, "version:    %v\n", st.Capture.Version)
		fmt.Fprintf(w, "records:    %d (%d bytes, %d unordered)\n",
			st.Capture.Records, st.Capture.Bytes, st.Capture.Unordered)
		fmt.Fprintf(w, "dispatched: %d\n", st.Dispatch.Dispatched)
		fmt.Fprintf(w, "resolved:   %d\n", st.Dispatch.Resolved)
		fmt.Fprintf(w, "unknown:    %d\n", st.Dispatch.Unknown)
		fmt.Fprintf(w, "invalid:    %d\n", st.Dispatch.Invalid)
		fmt.Fprintf(w, "allocated:  %d\n", st.Allocated)
	}
	return w.Flush()
}

func main() {
	myApp := cli.NewApp()
	myApp.Name = "etwcat"
	myApp.Usage = "decode event captures and print one XML element per record"
	myApp.UsageText = usage
	myApp.Version = "1.0.0"
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "",
			Usage: "YAML config file, flags below override its values",
		},
		cli.StringFlag{
			Name:  "schema-dir, d",
			Value: "",
			Usage: "directory of provider manifests named by provider GUID",
		},
		cli.StringFlag{
			Name:  "bounds, b",
			Value: event.Strict.String(),
			Usage: "bounds policy for reads past a payload, strict or lenient",
		},
		cli.StringFlag{
			Name:  "log-level, l",
			Value: zerolog.InfoLevel.String(),
			Usage: "diagnostic log level written to stderr",
		},
		cli.BoolFlag{
			Name:  "summary, s",
			Usage: "print capture statistics instead of records",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		log, err := cfg.NewLogger(zerolog.ConsoleWriter{Out: os.Stderr})
		if err != nil {
			return err
		}

		args := []string(c.Args())
		if len(args) == 0 {
			args = []string{`-`}
		}
		w := bufio.NewWriter(os.Stdout)
		for _, arg := range args {
			log.Debug().Str(`capture`, arg).Msg(`decoding`)
			r, err := readerFromArg(arg)
			if err != nil {
				return err
			}
			err = cat(context.Background(), w, r, cfg, log, c.Bool("summary"))
			r.Close()
			if err != nil {
				w.Flush()
				return errors.Wrap(err, arg)
			}
		}
		return nil
	}
	if err := myApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, `etwcat err:`, err)
		os.Exit(1)
	}
}

const usage = `etwcat [flags...] [capture files...]

Example:

   # Generate a capture to test with
   capgen -n gc.capture > gc.etl

   # If no capture files given, read stdin
   cat gc.etl | etwcat

   # If capture files are given, read each capture file
   etwcat gc.etl app.etl

   # Or stdin & capture files with "-" in place of stdin
   etwcat - app.etl

   # Decode records of unknown providers from manifests
   etwcat -d ./manifests app.etl`
