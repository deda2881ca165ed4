// Command ppar runs the parallel event-analysis pipeline over one
// input file, matching original_source/ppodd-tbb.cxx's flag surface.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/hallaphys/ppar/detect"
	"github.com/hallaphys/ppar/engine"
	"github.com/hallaphys/ppar/ppargen"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func main() {
	app := cli.NewApp()
	app.Name = "ppar"
	app.Usage = "parallel prototype physics event analyzer"
	app.UsageText = "ppar [options] input_file.dat"
	app.ArgsUsage = "input_file.dat"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "c", Usage: "read output definitions from `FILE` (default input_file.odef)"},
		cli.StringFlag{Name: "o", Usage: "write output to `FILE` (default input_file.out)"},
		cli.StringFlag{Name: "b", Usage: "use parameter database `FILE` (default input_file.db)"},
		cli.IntFlag{Name: "d", Usage: "set debug level"},
		cli.IntFlag{Name: "n", Usage: "set max number of events (default unlimited)"},
		cli.IntFlag{Name: "j", Usage: "create at most N worker threads (default n_cpus)"},
		cli.IntFlag{Name: "y", Usage: "add us microseconds average random delay per event"},
		cli.StringFlag{Name: "e", Usage: "preserve event order: sync or strict"},
		cli.IntFlag{Name: "m", Usage: "mark progress at given event intervals"},
		cli.BoolFlag{Name: "z", Usage: "compress output with gzip"},
	}
	app.Action = run
	app.Commands = []cli.Command{
		{
			Name:      "generate",
			Usage:     "generate a synthetic event file for self-test",
			ArgsUsage: "output_file.dat",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "c", Value: 1, Usage: "number of detector modules to simulate"},
				cli.IntFlag{Name: "n", Value: 10000, Usage: "number of events"},
				cli.IntFlag{Name: "m", Usage: "mark every Nth event as a sync event (0 disables)"},
			},
			Action: runGenerate,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ppar:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("ppar: input file name missing", 2)
	}

	cfg := engine.Config{
		InputFile:    c.Args().Get(0),
		OdefFile:     c.String("c"),
		OutputFile:   c.String("o"),
		DBFile:       c.String("b"),
		DebugLevel:   c.Int("d"),
		NumEventsMax: c.Int("n"),
		NumThreads:   c.Int("j"),
		JitterMicros: c.Int("y"),
		MarkStride:   c.Int("m"),
		Gzip:         c.Bool("z"),
	}
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = runtime.NumCPU()
	}

	switch c.String("e") {
	case "":
		cfg.OrderMode = engine.OrderNone
	case "strict":
		cfg.OrderMode = engine.OrderStrict
	case "sync":
		cfg.OrderMode = engine.OrderSync
	default:
		return cli.NewExitError("ppar: -e must be \"strict\" or \"sync\"", 2)
	}

	logger, err := buildLogger(cfg.DebugLevel)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("ppar: building logger: %v", err), 1)
	}
	defer logger.Sync() //nolint:errcheck
	sugar := logger.Sugar()

	report, err := engine.Run(cfg, defaultDetectors(), sugar)
	if err != nil {
		var openErr *engine.OpenInputError
		if errors.As(err, &openErr) {
			return cli.NewExitError(fmt.Sprintf("ppar: %v", err), 2)
		}
		return cli.NewExitError(fmt.Sprintf("ppar: %v", err), 1)
	}

	sugar.Infof("read %d events, wrote %d, failed %d", report.EventsRead, report.EventsWritten, report.EventsFailed)
	return nil
}

func runGenerate(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("ppar generate: output file name missing", 2)
	}

	f, err := os.Create(c.Args().Get(0))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("ppar generate: %v", err), 1)
	}
	defer f.Close()

	n, err := ppargen.Generate(f, ppargen.Config{
		NumEvents:  c.Int("n"),
		NumDets:    c.Int("c"),
		MarkStride: c.Int("m"),
		Seed:       87934,
	})
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("ppar generate: %v", err), 1)
	}
	fmt.Printf("Successfully generated %d events for %d detectors\n", n, c.Int("c"))
	return nil
}

func buildLogger(debugLevel int) (*zap.Logger, error) {
	if debugLevel > 0 {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// defaultDetectors is the prototype's fixed module layout: one stats
// detector, one linear-fit detector and one pi-digits detector,
// matching the three module slots original_source/generate.cxx
// fabricates test data for.
func defaultDetectors() []detect.Config {
	return []detect.Config{
		{Name: "fit", Kind: detect.KindLinearFit, ModuleID: 1},
		{Name: "pidigits", Kind: detect.KindPiDigits, ModuleID: 2, DigitScale: 1.0},
		{Name: "stats", Kind: detect.KindStats, ModuleID: 3},
	}
}
