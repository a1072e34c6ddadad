package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aalhour/zcheck/internal/bench"
	"github.com/aalhour/zcheck/internal/logging"
)

func (a *app) benchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure compression and checksum throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.loadConfig(cmd, "bench.")
			if err != nil {
				return err
			}
			opts := cfg.BenchOptions()
			opts.Logger = logger

			report, err := bench.Run(cmd.Context(), opts)
			if errors.Is(err, bench.ErrIntegrity) {
				bench.Print(a.out, report)
				logger.Fatalf("%s%v", logging.NSBench, err)
				return a.fatal
			}
			if err != nil {
				return err
			}
			bench.Print(a.out, report)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("codec", "zlib", "codec to benchmark")
	f.Int("size", bench.DefaultSize, "payload size in bytes")
	f.Int("iterations", bench.DefaultIterations, "compress and decompress iterations")
	return cmd
}
