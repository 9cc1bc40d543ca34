package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"swapstats/internal/config"
)

// Run We assemble the container, start it, wait for the signal and stop
func Run(cfg *config.Config) error {
	ctxBuild, cancelBuild := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBuild()

	container, err := Build(ctxBuild, cfg)
	if err != nil {
		return err
	}
	defer container.Cleanup()

	if err = container.Start(); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-sigCtx.Done():
	case runErr = <-container.app.Errors():
		runErr = fmt.Errorf("subsystem stopped, error=%w", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err = container.Stop(shutdownCtx); err != nil {
		return err
	}
	return runErr
}
