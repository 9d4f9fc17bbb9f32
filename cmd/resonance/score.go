package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/resonance-hq/resonance/internal/config"
	"github.com/resonance-hq/resonance/pkg/detectors"
	resio "github.com/resonance-hq/resonance/pkg/io"
	"github.com/resonance-hq/resonance/pkg/io/csv"
	"github.com/resonance-hq/resonance/pkg/spectral"
)

func newScoreCmd() *cobra.Command {
	var modelPath, inputPath string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a CSV dataset against a saved model",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger("stdout")
			if err != nil {
				return err
			}
			defer log.Sync()

			detector, err := spectral.New(spectral.Mode(config.DefaultMode),
				spectral.WithLogger(log))
			if err != nil {
				return err
			}
			if err := detector.Load(modelPath); err != nil {
				return err
			}

			reader, err := csv.NewReader(inputPath)
			if err != nil {
				return err
			}
			defer reader.Close()

			data, err := reader.Read()
			if err != nil {
				return err
			}

			scores, err := detector.Score(data)
			if err != nil {
				return err
			}

			writer := resio.NewCSVWriter(os.Stdout, reader.Headers())
			defer writer.Close()

			now := time.Now()
			anomalies := 0
			for i, score := range scores {
				verdict := detector.Verdict(score)
				if verdict == detectors.Anomalous {
					anomalies++
				}
				result := detectors.Result{
					Time:    now,
					Score:   score,
					Verdict: verdict,
				}
				// Temporal output is per window: attribute each score to
				// the last observation of its window.
				if detector.Mode() == spectral.ModeTemporal {
					result.Features = data[i+detector.WindowSize()-1]
				} else {
					result.Features = data[i]
				}
				if err := writer.Write(result); err != nil {
					return err
				}
			}

			log.Info("scoring complete",
				zap.Int("observations", len(data)),
				zap.Int("scores", len(scores)),
				zap.Int("anomalies", anomalies))
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "model.bin", "saved model path")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "CSV dataset to score")
	cmd.MarkFlagRequired("input")
	return cmd
}
