package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/studyforge-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.Run)
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down", "grace", a.Cfg.ShutdownGrace)
		sctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownGrace)
		defer cancel()
		return a.Shutdown(sctx)
	})

	err = g.Wait()
	a.Close(context.Background())
	if err != nil {
		fmt.Printf("server exited: %v\n", err)
		os.Exit(1)
	}
}
