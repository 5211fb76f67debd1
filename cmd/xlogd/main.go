package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"xlogd/pkg/config"
	"xlogd/pkg/daemon"
	"xlogd/pkg/logging"
)

func main() {
	var (
		cfgPath  = pflag.StringP("config", "c", "", "YAML config file")
		host     = pflag.String("host", "", "listen host (overrides config)")
		port     = pflag.Int("port", 0, "listen port (overrides config)")
		ippfx    = pflag.String("ippfx", "", "IP prefix stripped from diagnostic output")
		logPath  = pflag.String("log-path", "", "flat-file path template (overrides config)")
		verbose  = pflag.BoolP("verbose", "v", false, "render each record to the console")
		diagFile = pflag.String("diag-log", "", "file for the daemon's own diagnostics")
		debug    = pflag.Bool("debug", false, "debug-level diagnostics")
	)
	pflag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *ippfx != "" {
		cfg.Server.IPPfx = *ippfx
	}
	if pflag.CommandLine.Changed("log-path") {
		// Explicit empty value turns persistence off (verbose-only mode).
		cfg.Log.Path = *logPath
	}
	if *verbose {
		cfg.Log.Verbose = true
	}
	if *diagFile != "" {
		cfg.Diag.File = *diagFile
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New(cfg.Diag.File, *debug)
	me := filepath.Base(os.Args[0])

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := daemon.New(cfg, me, log).Run(ctx); err != nil {
		log.Error().Err(err).Msg("daemon failed")
		os.Exit(1)
	}
}
