package globals

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/monorkin/iot-inventory/internal/config"
	"github.com/monorkin/iot-inventory/internal/database"
	"github.com/monorkin/iot-inventory/internal/ledger"
	"github.com/monorkin/iot-inventory/internal/store"
)

var (
	Settings *config.Settings
	Logger   *slog.Logger
	Store    store.Store
	Ledger   *ledger.Ledger
	Queries  *ledger.Queries

	initOnce sync.Once
	initErr  error
)

// Initialize sets up the process-wide logger, settings and ledger exactly
// once. Later calls return the outcome of the first one.
func Initialize(verbose bool) error {
	initOnce.Do(func() {
		setupLogger(os.Stderr, verbose)

		Logger.Debug("Initializing global instances")

		newSettings, settingsLoaded := config.LoadOrInitializeSettingsFromDefaultLocation()
		Settings = settingsLoaded
		if newSettings {
			Logger.Debug("Created new settings file")
			if err := Settings.Save(); err != nil {
				Logger.Error("Failed to save new settings", "error", err)
			}
		} else {
			Logger.Debug("Loaded existing settings")
		}

		Store, initErr = openStore(Settings)
		if initErr != nil {
			return
		}

		Ledger = ledger.NewWithLogger(Store, Logger)
		Queries = ledger.NewQueries(Store)

		Logger.Debug("Global initialization completed", "verbose", verbose, "storage", Settings.Storage)
	})

	return initErr
}

func openStore(settings *config.Settings) (store.Store, error) {
	if settings.Storage == config.StorageMemory {
		Logger.Debug("Using in-memory storage")
		return store.NewMemoryStore(), nil
	}

	if err := database.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	Logger.Debug("Database initialized", "path", config.DBPath())

	return store.NewSQLStore(database.DB), nil
}

// setupLogger writes to w so that structured command output on stdout stays
// machine readable.
func setupLogger(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))

	slog.SetDefault(Logger)
}

// Shutdown releases the store opened by Initialize. Calling it again is a
// no-op.
func Shutdown() error {
	if Store == nil {
		return nil
	}

	s := Store
	Store = nil
	return s.Close()
}
