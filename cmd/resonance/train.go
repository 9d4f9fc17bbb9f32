package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTrainCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a baseline model and persist it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger("stdout")
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

			log.Info("fitting baseline",
				zap.String("mode", cfg.Detector.Mode),
				zap.Int("samples", len(baseline)))
			if err := detector.Fit(baseline); err != nil {
				return err
			}

			if err := detector.Save(output); err != nil {
				return err
			}
			log.Info("model saved",
				zap.String("path", output),
				zap.Int("arity", detector.Arity()),
				zap.Float64("threshold", detector.Threshold()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "model.bin", "model output path")
	return cmd
}
