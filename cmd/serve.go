package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/api"
	"github.com/aaryan23/cold-email-os/internal/queue"
	"github.com/aaryan23/cold-email-os/internal/research"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve", false)
		if err != nil {
			return err
		}
		defer env.Close()

		tc, err := queue.Dial(cfg.Temporal)
		if err != nil {
			return err
		}
		defer tc.Close()

		q := queue.NewClient(tc, cfg.Temporal.TaskQueue, queue.PolicyFromConfig(cfg.Queue))

		srv := api.NewServer(api.Deps{
			Store:          env.Store,
			Research:       research.NewService(env.Store, q),
			KB:             env.Ingester,
			Retriever:      env.Retriever,
			Generator:      env.Generator,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
