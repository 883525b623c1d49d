package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quizpin/clients/internal/logging"
	"github.com/quizpin/clients/internal/simbackend"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string
	var logLevel string
	var seed bool

	cmd := &cobra.Command{
		Use:   "simserver",
		Short: "In-memory quiz backend simulator for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			log, err := logging.New(logLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := simbackend.New(ctx, log)
			defer srv.Shutdown()

			if seed {
				quiz := srv.SeedDemo()
				log.Info("seeded demo quiz", zap.String("quiz_id", quiz.ID))
			}

			httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("listening", zap.String("addr", addr))
				if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "address to listen on")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	cmd.Flags().BoolVar(&seed, "seed", true, "seed a demo quiz on startup")
	return cmd
}
