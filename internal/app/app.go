package app

import (
	"context"
	"errors"
	"net/http"

	"gitlab.com/nevasik7/alerting/logger"
)

type HTTPServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

type Scheduler interface {
	Start()
	Shutdown() error
}

// App runs whichever of the HTTP and processing subsystems the node type enables; both may be nil
type App struct {
	log     logger.Logger
	httpSrv HTTPServer
	sched   Scheduler
	errCh   chan error
}

func NewApp(log logger.Logger, httpSrv HTTPServer, sched Scheduler) *App {
	return &App{log: log, httpSrv: httpSrv, sched: sched, errCh: make(chan error, 1)}
}

func (a *App) Start() error {
	a.log.Debug("App started begin...")

	if a.httpSrv == nil && a.sched == nil {
		return errors.New("nothing to run, neither http nor processing is enabled")
	}

	if a.sched != nil {
		a.sched.Start()
	}

	if a.httpSrv != nil {
		go func() {
			if err := a.httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Errorf("Start HTTP server is error=%v", err)
				a.errCh <- err
			}
		}()
	}

	a.log.Info("App started")
	return nil
}

// Errors reports a subsystem that stopped on its own
func (a *App) Errors() <-chan error {
	return a.errCh
}

func (a *App) Shutdown(ctx context.Context) error {
	a.log.Debug("App stopped begin...")

	var errs []error
	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.sched != nil {
		if err := a.sched.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	a.log.Info("App stopped")
	return nil
}
