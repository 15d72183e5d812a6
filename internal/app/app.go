package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/monorkin/iot-inventory/internal/ledger"
)

// App is the long-running inventory service. It owns the D-Bus endpoint and
// keeps it alive until it is told to quit.
type App struct {
	ledger   *ledger.Ledger
	queries  *ledger.Queries
	interval time.Duration
	logger   *slog.Logger

	quit     chan struct{}
	quitOnce sync.Once
}

// NewApp builds the service. A non-positive interval disables the periodic
// CheckOutsChanged signal; changes made over the bus are still announced.
func NewApp(l *ledger.Ledger, q *ledger.Queries, interval time.Duration, logger *slog.Logger) *App {
	return &App{
		ledger:   l,
		queries:  q,
		interval: interval,
		logger:   logger,
		quit:     make(chan struct{}),
	}
}

func (app *App) log(level slog.Level, msg string, args ...any) {
	if app.logger != nil {
		app.logger.Log(context.Background(), level, msg, args...)
	}
}

// Run serves the D-Bus interface until ctx is done or Quit is called.
func (app *App) Run(ctx context.Context) error {
	service, err := NewDBusService(app)
	if err != nil {
		return err
	}
	defer service.Close()

	app.log(slog.LevelInfo, "DBUS service started", "name", dbusName, "interval", app.interval)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if app.interval > 0 {
		service.StartPeriodicUpdates(ctx, app.interval)
	}

	select {
	case <-ctx.Done():
	case <-app.quit:
	}

	app.log(slog.LevelInfo, "DBUS service stopping")
	return nil
}

func (app *App) Quit() {
	app.quitOnce.Do(func() {
		close(app.quit)
	})
}

// Done is closed once Quit has been called.
func (app *App) Done() <-chan struct{} {
	return app.quit
}
