// Command spinebox opens the sandbox window: drop an atlas, a skeleton and
// a texture onto it to add an asset, then stress the renderer with bulk
// spawns while watching the draw-call counter.
//
// Keys:
//
//	Up/Down     previous/next asset
//	Left/Right  previous/next animation
//	S           next skin
//	A           add a bulk batch
//	M           toggle bulk movement
//	R           reset the view
//	Delete      remove the selected cached asset
//	C           clear the cache
//	F12         screenshot
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/phanxgames/spinebox"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.msg != "" {
				fmt.Fprintln(os.Stderr, ee.msg)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError carries a specific exit code out of run.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// options are the command-line overrides applied after the config file.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	cachePath  string
	noCache    bool
	assetsDir  string
	script     string
}

func parseFlags(args []string, out io.Writer) (options, bool, error) {
	var o options
	fs := flag.NewFlagSet("spinebox", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, `
spinebox - a sandbox for loading and stress-rendering Spine skeletons.

Usage:
  spinebox [options]

Options:
`)
		fs.PrintDefaults()
	}
	fs.StringVar(&o.configPath, "config", "", "Path to an HCL config file.")
	fs.StringVar(&o.logLevel, "log-level", "", "Logging level: debug, info, warn or error.")
	fs.StringVar(&o.logFormat, "log-format", "", "Log output format: text or json.")
	fs.StringVar(&o.cachePath, "cache", "", "Path to the bbolt cache file.")
	fs.BoolVar(&o.noCache, "no-cache", false, "Disable the persistent cache.")
	fs.StringVar(&o.assetsDir, "assets", "", "Directory sample locators are resolved against.")
	fs.StringVar(&o.script, "script", "", "Path to a JSON test script to run.")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return o, true, nil
		}
		return o, false, &exitError{code: 2, msg: err.Error()}
	}
	if fs.NArg() > 0 {
		return o, false, &exitError{code: 2, msg: fmt.Sprintf("unexpected arguments: %v", fs.Args())}
	}
	return o, false, nil
}

func loadConfig(o options) (spinebox.Config, error) {
	cfg := spinebox.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = spinebox.LoadConfig(o.configPath); err != nil {
			return cfg, err
		}
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if o.cachePath != "" {
		cfg.CachePath = o.cachePath
	}
	if o.noCache {
		cfg.CachePath = ""
	}
	if o.assetsDir != "" {
		cfg.AssetsDir = o.assetsDir
	}
	return cfg, cfg.Validate()
}

func run(args []string, stderr io.Writer) error {
	o, exit, err := parseFlags(args, stderr)
	if err != nil || exit {
		return err
	}
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	logger := spinebox.NewLogger(cfg.LogLevel, cfg.LogFormat, stderr)
	slog.SetDefault(logger)

	var cache spinebox.Cache
	if cfg.CachePath != "" {
		cache = spinebox.NewBoltCache(cfg.CachePath)
	}

	ctx := context.Background()
	sb := spinebox.NewSandbox(cfg, cache, logger, nil)
	if err := sb.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := sb.Close(); err != nil {
			logger.Error("closing sandbox", "error", err)
		}
	}()

	game := spinebox.NewGame(ctx, sb)
	if o.script != "" {
		data, err := os.ReadFile(o.script)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		runner, err := spinebox.LoadTestScript(data)
		if err != nil {
			return err
		}
		game.SetTestRunner(runner)
		game.ExitWhenScriptDone = true
	}

	logger.Info("starting", "title", cfg.Title, "assets", len(sb.Assets()), "cache", cfg.CachePath)
	return spinebox.Run(game)
}
