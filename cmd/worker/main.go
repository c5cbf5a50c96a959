package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tagwatch/tagwatch/internal/monitor"
	"github.com/tagwatch/tagwatch/internal/pool"
	"github.com/tagwatch/tagwatch/internal/setup"
	"github.com/tagwatch/tagwatch/internal/status"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// MonitorWorkerType names the worker in status heartbeats.
const MonitorWorkerType = "monitor"

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Start the tagwatch monitor worker",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Value:   1,
				Usage:   "Number of workers to start",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runWorkers(ctx, c.Int("workers"))
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runWorkers starts the requested number of monitor workers and blocks until
// they all stop.
func runWorkers(ctx context.Context, count int64) error {
	if count < 1 {
		count = 1
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, true)
	if err != nil {
		return err
	}
	defer app.Cleanup(context.WithoutCancel(ctx))

	authenticator, err := app.Authenticator()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	for i := range count {
		wg.Add(1)

		go func(workerID int64) {
			defer wg.Done()

			logger := app.Logger.With(zap.Int64("workerIndex", workerID))

			reporter := status.NewReporter(app.StatusClient, MonitorWorkerType, logger)
			reporter.Start(ctx)
			defer reporter.Stop()

			repo := app.DB.Model()

			// Each worker owns a disjoint slice of the accounts and
			// campaigns so concurrent workers never share a session or
			// double-process a flagging window.
			poolConfig := app.PoolConfig()
			poolConfig.PartitionIndex = int(workerID)
			poolConfig.PartitionCount = int(count)

			poolManager := pool.NewManager(
				repo.Account(), authenticator, app.Metrics,
				poolConfig, logger, app.ClientOptions()...,
			)

			monitorConfig := app.MonitorConfig()
			monitorConfig.WorkerIndex = int(workerID)
			monitorConfig.WorkerCount = int(count)

			worker := monitor.NewWorker(
				monitor.Stores{
					Campaigns: repo.Campaign(),
					Posts:     repo.Post(),
					Flags:     repo.Flag(),
					Activity:  repo.Activity(),
					Accounts:  repo.Account(),
				},
				monitor.ManagerPool{Manager: poolManager},
				reporter, app.Metrics, monitorConfig, logger,
			)

			worker.Start(ctx)
		}(i)
	}

	app.Logger.Info("Started monitor workers", zap.Int64("count", count))
	wg.Wait()
	app.Logger.Info("All workers have finished")

	return nil
}
