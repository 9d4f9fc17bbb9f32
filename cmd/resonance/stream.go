package main

import (
	"context"
	"errors"
	stdio "io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/resonance-hq/resonance/pkg/detectors"
	resio "github.com/resonance-hq/resonance/pkg/io"
)

func newStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Classify the metric stream and print one CSV line per tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// stdout carries the CSV stream; logs go to stderr.
			log, err := newLogger("stderr")
			if err != nil {
				return err
			}
			defer log.Sync()

			detector, err := buildDetector(cfg, log)
			if err != nil {
				return err
			}
			baseline, err := acquireBaseline(cfg)
			if err != nil {
				return err
			}
			log.Info("establishing baseline",
				zap.String("mode", cfg.Detector.Mode),
				zap.Int("samples", len(baseline)))
			if err := detector.Fit(baseline); err != nil {
				return err
			}

			source, columns, closeSource, err := buildSource(cfg)
			if err != nil {
				return err
			}
			defer closeSource()

			interval, err := cfg.IntervalDuration()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			writer := resio.NewCSVWriter(os.Stdout, columns)
			defer writer.Close()

			for {
				obs, err := source.Next(ctx)
				if errors.Is(err, stdio.EOF) || errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return err
				}

				score, ready, err := detector.ScoreOne(obs)
				if err != nil {
					return err
				}
				if ready {
					result := detectors.Result{
						Time:     time.Now(),
						Score:    score,
						Verdict:  detector.Verdict(score),
						Features: obs,
					}
					if err := writer.Write(result); err != nil {
						return err
					}
				}

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(interval):
				}
			}
		},
	}
	return cmd
}
