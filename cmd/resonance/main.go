// Command resonance trains an anomaly detector on a metric baseline and
// watches a metric stream for deviations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/resonance-hq/resonance/internal/config"
	"github.com/resonance-hq/resonance/pkg/io"
	"github.com/resonance-hq/resonance/pkg/io/csv"
	"github.com/resonance-hq/resonance/pkg/io/pcap"
	"github.com/resonance-hq/resonance/pkg/io/simulate"
	"github.com/resonance-hq/resonance/pkg/spectral"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "resonance",
		Short:        "Spectral anomaly detection for metric streams",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")

	root.AddCommand(newTrainCmd(), newScoreCmd(), newStreamCmd(), newWatchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// newLogger builds a production JSON logger writing to the given stream
// ("stdout" or "stderr").
func newLogger(output string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{output}
	return cfg.Build()
}

func buildDetector(cfg *config.Config, log *zap.Logger) (*spectral.Detector, error) {
	contamination, err := cfg.ContaminationValue()
	if err != nil {
		return nil, err
	}
	return spectral.New(
		spectral.Mode(cfg.Detector.Mode),
		spectral.WithWindowSize(cfg.Detector.WindowSize),
		spectral.WithContamination(contamination),
		spectral.WithSeed(cfg.Training.Seed),
		spectral.WithLogger(log),
	)
}

// buildSource returns the configured observation source, the feature column
// names it produces, and a close func.
func buildSource(cfg *config.Config) (io.Source, []string, func() error, error) {
	switch cfg.Source.Kind {
	case "simulate":
		gen := simulate.NewGenerator(
			simulate.WithSeed(cfg.Training.Seed),
			simulate.WithTrigger(simulate.FileTrigger(cfg.Source.TriggerFile)),
		)
		return gen, simulate.FeatureNames(), func() error { return nil }, nil

	case "csv":
		r, err := csv.NewReader(cfg.Source.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, r.Headers(), r.Close, nil

	case "pcap":
		r, err := pcap.NewFileReader(cfg.Source.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, pcap.NewFeatureExtractor().FeatureNames(), r.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// acquireBaseline collects the training sample set for the configured
// source.
func acquireBaseline(cfg *config.Config) ([][]float64, error) {
	switch cfg.Source.Kind {
	case "simulate":
		gen := simulate.NewGenerator(simulate.WithSeed(cfg.Training.Seed))
		return gen.Sample(cfg.Training.Samples), nil

	case "csv":
		r, err := csv.NewReader(cfg.Source.Path)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.Read()

	case "pcap":
		r, err := pcap.NewFileReader(cfg.Source.Path)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.Read()

	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
