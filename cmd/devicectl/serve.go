package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Stream shadow deltas and next-job notifications",
		Long: `Serve keeps one connection open, prints every classic shadow delta and
next-job notification as it arrives, and exposes metrics when enabled.
It runs until interrupted or until a stream subscription halts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, true, func(ctx context.Context, a *app, thing string) error {
				if err := healthCheck(ctx, a); err != nil {
					return fmt.Errorf("health check failed: %w", err)
				}
				a.log.Info("all health checks passed", "thing", thing)

				out := &lockedWriter{w: cmd.OutOrStdout()}
				return runWatchers(ctx,
					func(ctx context.Context) error { return watchShadowDeltas(ctx, a, out, thing, "") },
					func(ctx context.Context) error { return watchNextJob(ctx, a, out, thing) },
				)
			})
		},
	}
}

// runWatchers runs every watcher until ctx is done. The first watcher to
// fail stops the others and its error is returned.
func runWatchers(ctx context.Context, watchers ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, watch := range watchers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watch(ctx); err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// healthCheck verifies every open connection.
func healthCheck(ctx context.Context, a *app) error {
	if a.db != nil {
		if err := a.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}

	if err := a.mqtt.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if a.influx != nil {
		if err := a.influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
