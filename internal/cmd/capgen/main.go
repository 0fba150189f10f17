package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/microsoftarchive/semantic-logging-sub002/encoding"
	"github.com/microsoftarchive/semantic-logging-sub002/internal/tracefile"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	myApp := cli.NewApp()
	myApp.Name = "capgen"
	myApp.Usage = "write a fixture capture to stdout"
	myApp.UsageText = usage
	myApp.Version = "1.0.0"
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "name, n",
			Value: tracefile.Names[0],
			Usage: "fixture to generate",
		},
		cli.IntFlag{
			Name:  "ptr, p",
			Value: 8,
			Usage: "pointer size of the producer, 4 or 8",
		},
		cli.IntFlag{
			Name:  "format, f",
			Value: int(encoding.Latest),
			Usage: "capture format version, 1 or 2",
		},
		cli.BoolFlag{
			Name:  "list, l",
			Usage: "list the fixture names and exit",
		},
		cli.BoolFlag{
			Name:  "manifest, m",
			Usage: "write the provider manifest of app.capture instead",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		switch {
		case c.Bool("list"):
			for _, name := range tracefile.Names {
				fmt.Println(name)
			}
			return nil
		case c.Bool("manifest"):
			log.Info().Str(`file`, tracefile.AppProvider.String()+`.yaml`).Msg(`manifest`)
			_, err := os.Stdout.WriteString(tracefile.AppManifest)
			return err
		}

		name, ptr := c.String("name"), c.Int("ptr")
		format := c.Int("format")
		ver := encoding.Version(format)
		if int(ver) != format || !ver.Valid() {
			return errors.Errorf(`unsupported format %d`, format)
		}
		if ptr != 4 && ptr != 8 {
			return errors.Errorf(`unsupported pointer size %d`, ptr)
		}

		capture, err := tracefile.NewCapture(name, ptr, ver)
		if err != nil {
			return err
		}
		if capture.Records == 0 {
			return errors.Errorf(`unknown fixture %q`, name)
		}
		if _, err := os.Stdout.Write(capture.Data); err != nil {
			return err
		}
		log.Info().
			Str(`name`, name).
			Int(`ptr`, ptr).
			Stringer(`format`, ver).
			Int(`records`, capture.Records).
			Int(`bytes`, len(capture.Data)).
			Msg(`capture written`)
		return nil
	}
	if err := myApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, `capgen err:`, err)
		os.Exit(1)
	}
}

const usage = `capgen [flags...] > capture

Example:

   # Generate the garbage collection fixture of a 32 bit producer
   capgen -n gc.capture -p 4 > gc.etl

   # Generate a version 1 capture
   capgen -n process.capture -f 1 > process.etl

   # Write the manifest decoding app.capture
   mkdir manifests && capgen -m > manifests/7dd42a49-5329-4832-8dfd-43d979153a88.yaml`
