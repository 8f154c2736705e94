//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"ringos/app"
	"ringos/hal"
	"ringos/hal/window"
	"ringos/internal/config"
)

func main() {
	var (
		path        string
		headless    bool
		hz          int
		ticks       uint64
		buttonEvery uint64
		level       string
	)
	flag.StringVar(&path, "config", "", "YAML config file (defaults when empty).")
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&hz, "hz", 60, "Tick rate in headless mode.")
	flag.Uint64Var(&ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.Uint64Var(&buttonEvery, "button-every", 0, "Press the button every N ticks in headless mode.")
	flag.StringVar(&level, "log-level", "info", "Log level: trace, debug, info, warn, error, off.")
	flag.Parse()

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "headless":
			cfg.Host.Headless = headless
		case "hz":
			cfg.Host.Hz = hz
		case "ticks":
			cfg.Host.Ticks = ticks
		case "button-every":
			cfg.Host.ButtonEvery = buttonEvery
		case "log-level":
			cfg.Logging.Level = level
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	newApp := func(h hal.HAL) (func() error, error) { return app.New(h, cfg) }
	opts := hal.HostOptions{EEPROMPath: cfg.Host.EEPROMPath}

	if cfg.Host.Headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = hal.RunHeadless(ctx, newApp, hal.HeadlessConfig{
			Hz:          cfg.Host.Hz,
			Ticks:       cfg.Host.Ticks,
			StepBudget:  cfg.Host.StepBudget,
			ButtonEvery: cfg.Host.ButtonEvery,
			Host:        opts,
		})
		if errors.Is(err, context.Canceled) {
			return
		}
	} else {
		err = window.Run(newApp, window.Config{
			Scale:      cfg.Host.Scale,
			TPS:        cfg.Host.Hz,
			StepBudget: cfg.Host.StepBudget,
			Host:       opts,
		})
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
