// zcheck runs the compression and checksum smoke tests.
//
// Usage:
//
//	zcheck [--extended] [--verbose] [--strict] [--codec zlib] [--gzip-dir DIR]
//	zcheck bench [--codec zlib] [--size 65536] [--iterations 100]
//
// Every flag can also be set through a ZCHECK_* environment variable or a YAML
// file passed with --config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/aalhour/zcheck/internal/config"
	"github.com/aalhour/zcheck/internal/logging"
	"github.com/aalhour/zcheck/internal/suite"
)

// errChecksFailed is returned in strict mode when at least one check failed.
var errChecksFailed = errors.New("checks failed")

type app struct {
	out     io.Writer
	errOut  io.Writer
	fs      afero.Fs
	cfgFile string
	// fatal is set by the logger's fatal handler; commands return it.
	fatal error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout, errOut: os.Stderr, fs: afero.NewOsFs()}
	if code := a.run(ctx, os.Args[1:]); code != 0 {
		stop()
		os.Exit(code)
	}
}

// run executes the command line and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintf(a.errOut, "zcheck: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "zcheck",
		Short:         "Compression and checksum smoke tests",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runSuite,
	}
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML config file")
	pf.String(config.KeyLogLevel, "warn", "log level (error, warn, info, debug)")
	pf.BoolP(config.KeyVerbose, "v", false, "print extra diagnostics")

	f := cmd.Flags()
	f.String(config.KeyCodec, "zlib", "codec used by the round-trip and levels checks")
	f.Bool(config.KeyExtended, false, "also run the extended checks")
	f.Bool(config.KeyStrict, false, "exit non-zero when a check fails")
	f.String(config.KeyGzipDir, "", "write the gzip file check to this directory instead of memory")
	f.Int(config.KeyTruncateCompressed, 0, "drop N bytes from the compressed buffer before decompressing")
	_ = f.MarkHidden(config.KeyTruncateCompressed)
	f.StringSlice(config.KeyChecksums, config.ChecksumNames(), "checksum types printed by the extended checksum matrix")

	cmd.AddCommand(a.benchCmd())
	return cmd
}

func (a *app) loadConfig(cmd *cobra.Command, prefix string) (*config.Config, logging.Logger, error) {
	loader := config.NewLoader(a.fs, logging.NewLogger(a.errOut, logging.LevelWarn))
	if err := loader.BindFlags(cmd.Root().PersistentFlags(), ""); err != nil {
		return nil, nil, err
	}
	if err := loader.BindFlags(cmd.LocalNonPersistentFlags(), prefix); err != nil {
		return nil, nil, err
	}
	cfg, err := loader.Load(a.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger := a.newLogger(cfg.Level())
	if a.cfgFile != "" {
		logger.Infof("%sloaded %s", logging.NSConfig, a.cfgFile)
	}
	return cfg, logger, nil
}

// newLogger returns a logger whose Fatalf records an ErrFatal for the running command.
func (a *app) newLogger(level logging.Level) logging.Logger {
	logger := logging.NewLogger(a.errOut, level)
	logger.SetFatalHandler(func(msg string) {
		a.fatal = fmt.Errorf("%w: %s", logging.ErrFatal, msg)
	})
	return logger
}

func (a *app) runSuite(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := a.loadConfig(cmd, "")
	if err != nil {
		return err
	}

	sc := suite.DefaultConfig()
	sc.Codec = cfg.CodecType()
	sc.Extended = cfg.Extended
	sc.Checksums = cfg.ChecksumTypes()
	if cfg.TruncateCompressed > 0 {
		logger.Warnf("%struncating compressed buffer by %d bytes", logging.NSSuite, cfg.TruncateCompressed)
		sc.Tamper = suite.TruncateTamper(cfg.TruncateCompressed)
	}
	if cfg.GzipDir != "" {
		sc.Fs = a.fs
		sc.Dir = cfg.GzipDir
	}

	runner := suite.NewRunner(suite.Options{
		Out:     a.out,
		Logger:  logger,
		Verbose: cfg.Verbose,
	})
	summary := runner.Run(cmd.Context(), suite.Checks(sc))

	if !summary.OK() {
		logger.Warnf("%sfailed: %v", logging.NSSuite, summary.Failed())
		if cfg.Strict {
			return fmt.Errorf("%w: %s", errChecksFailed, summary)
		}
	}
	return nil
}
