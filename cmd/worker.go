package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/queue"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run research jobs from the Temporal task queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "worker", true)
		if err != nil {
			return err
		}
		defer env.Close()

		tc, err := queue.Dial(cfg.Temporal)
		if err != nil {
			return err
		}
		defer tc.Close()

		concurrency := workerConcurrency
		if concurrency == 0 {
			concurrency = cfg.Queue.Concurrency
		}

		w := queue.NewWorker(tc, cfg.Temporal.TaskQueue, concurrency, &queue.Activities{
			Runner:  env.Researcher,
			Reports: env.Store,
		})

		zap.L().Info("starting worker",
			zap.String("task_queue", cfg.Temporal.TaskQueue),
			zap.Int("concurrency", concurrency),
		)
		if err := w.Run(worker.InterruptCh()); err != nil {
			return eris.Wrap(err, "worker run")
		}
		return nil
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "concurrent research jobs (default from config)")
	rootCmd.AddCommand(workerCmd)
}
