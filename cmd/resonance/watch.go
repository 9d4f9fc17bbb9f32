package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/resonance-hq/resonance/pkg/alarm"
)

func newWatchCmd() *cobra.Command {
	var halt bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Quiet watchdog: log only alert and recovery events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if halt {
				cfg.Monitor.HaltOnAlert = true
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
			log.Info("establishing baseline",
				zap.String("mode", cfg.Detector.Mode),
				zap.Int("samples", len(baseline)))
			if err := detector.Fit(baseline); err != nil {
				return err
			}
			log.Info("baseline established, watching",
				zap.Int("arity", detector.Arity()),
				zap.Bool("halt_on_alert", cfg.Monitor.HaltOnAlert))

			source, columns, closeSource, err := buildSource(cfg)
			if err != nil {
				return err
			}
			defer closeSource()

			interval, err := cfg.IntervalDuration()
			if err != nil {
				return err
			}

			var machineOpts []alarm.Option
			if cfg.Monitor.HaltOnAlert {
				machineOpts = append(machineOpts, alarm.WithHaltOnAlert())
			}

			monitor := alarm.NewMonitor(
				source,
				detector,
				alarm.NewMachine(machineOpts...),
				alarm.WithInterval(interval),
				alarm.WithObserver(zapObserver(log, columns)),
			)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = monitor.Run(ctx)
			switch {
			case errors.Is(err, alarm.ErrHalted):
				return err
			case errors.Is(err, context.Canceled):
				return nil
			default:
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&halt, "halt", false, "exit immediately on the first alert")
	return cmd
}

// zapObserver renders alarm events as structured log lines, pairing metric
// values with their column names.
func zapObserver(log *zap.Logger, columns []string) alarm.Observer {
	return alarm.ObserverFunc(func(e alarm.Event) {
		fields := []zap.Field{zap.Time("at", e.Time)}
		for i, v := range e.Metrics {
			name := "feature"
			if i < len(columns) {
				name = columns[i]
			}
			fields = append(fields, zap.Float64(name, v))
		}

		switch e.Type {
		case alarm.EventAlert:
			log.Error("anomaly detected", fields...)
		case alarm.EventRecover:
			log.Info("anomaly resolved, system normal", fields...)
		case alarm.EventFatal:
			// The monitor returns ErrHalted right after this event; the
			// process exits nonzero from there.
			log.Error("halt on alert configured, exiting",
				zap.Time("at", e.Time), zap.String("reason", e.Reason))
		}
	})
}
