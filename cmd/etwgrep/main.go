package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	trace "github.com/microsoftarchive/semantic-logging-sub002"
	"github.com/microsoftarchive/semantic-logging-sub002/encoding"
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
				fmt.Fprintln(os.Stderr, `etwgrep info: waiting for stdin...`)
			}
		}()
	})
	return os.Stdin
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
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, cfg.Validate()
}

// filter copies the records of r whose event name matches re, or does not
// match it when invert is set, to w as a new capture.
func filter(ctx context.Context, w io.Writer, r io.Reader, re *regexp.Regexp, invert bool, cfg trace.Config, log zerolog.Logger) error {
	src, err := trace.NewSource(r, cfg, trace.WithLogger(log))
	if err != nil {
		return err
	}

	var kept int
	enc := encoding.NewEncoder(w)
	src.Table().RegisterAll(event.VisitorFunc(func(p event.Payload) error {
		atomic.AddInt64(&eventCount, 1)
		name := p.Descriptor().EventName()
		if re.MatchString(name) == invert {
			log.Debug().Str(`event`, name).Msg(`filtered`)
			return nil
		}
		kept++
		return enc.Emit(p.Raw())
	}))
	if err := src.Process(ctx); err != nil {
		return err
	}

	st := src.Stats()
	log.Info().
		Int(`records`, st.Capture.Records).
		Int(`kept`, kept).
		Msg(`capture filtered`)
	return nil
}

func main() {
	myApp := cli.NewApp()
	myApp.Name = "etwgrep"
	myApp.Usage = "filter an event capture by event name"
	myApp.UsageText = usage
	myApp.Version = "1.0.0"
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "regexp, r",
			Value: "",
			Usage: "regexp to match against the event name, e.g. GC/Start",
		},
		cli.BoolFlag{
			Name:  "invert, v",
			Usage: "invert matching, like grep -v",
		},
		cli.BoolFlag{
			Name:  "quiet, q",
			Usage: "do not write information to stderr",
		},
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
			Name:  "log-level, l",
			Value: zerolog.InfoLevel.String(),
			Usage: "diagnostic log level written to stderr",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		re, err := regexp.Compile(c.String("regexp"))
		if err != nil {
			return errors.Wrap(err, `regexp`)
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if c.Bool("quiet") {
			cfg.LogLevel = zerolog.Disabled.String()
		}
		log, err := cfg.NewLogger(zerolog.ConsoleWriter{Out: os.Stderr})
		if err != nil {
			return err
		}

		w := bufio.NewWriter(os.Stdout)
		if err := filter(context.Background(), w, readerFromStdin(), re, c.Bool("invert"), cfg, log); err != nil {
			w.Flush()
			return err
		}
		return w.Flush()
	}
	if err := myApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, `etwgrep err:`, err)
		os.Exit(1)
	}
}

const usage = `etwgrep [flags...] < capture > filtered

Example:

   # Keep only the garbage collections
   cat gc.etl | etwgrep -r '^GC/' > collections.etl

   # Filter out unwanted events with -v
   cat gc.etl | etwgrep -vr 'AllocationTick|ThreadPool' > filtered.etl`
