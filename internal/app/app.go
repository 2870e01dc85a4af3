package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/khrees2412/rosterctl/internal/api"
	"github.com/khrees2412/rosterctl/internal/config"
	"github.com/khrees2412/rosterctl/internal/database"
	"github.com/khrees2412/rosterctl/internal/logging"
	"github.com/khrees2412/rosterctl/internal/roster"
	"github.com/khrees2412/rosterctl/pkg/models"
	"go.uber.org/zap"
)

// App is the dependency container for the CLI application
type App struct {
	DB         *sql.DB
	Config     *config.Config
	HTTPClient *http.Client
	Logger     *zap.Logger
	API        *api.Client
	History    *database.Store
}

// NewApp initializes and returns a new App instance
func NewApp(ctx context.Context) (*App, error) {
	// Initialize config
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg := config.AppConfig

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Open the history database unless it is turned off
	var db *sql.DB
	var history *database.Store
	if cfg.HistoryEnabled {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		db, err = database.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		history = database.NewStore(db)
	}

	// Zero timeout means the client waits as long as the server takes
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
	}

	a := &App{
		DB:         db,
		Config:     cfg,
		HTTPClient: httpClient,
		Logger:     logger,
		History:    history,
	}
	a.API = a.NewAPIClient(logger)
	return a, nil
}

// NewAPIClient returns a roster API client that logs to logger
func (a *App) NewAPIClient(logger *zap.Logger) *api.Client {
	return api.NewClient(a.Config.APIURL,
		api.WithToken(a.Config.APIToken),
		api.WithHTTPClient(a.HTTPClient),
		api.WithLogger(logger),
	)
}

// NewView returns a roster view wired to the API and, when enabled, the
// import history. A nil logger uses the App logger.
func (a *App) NewView(logger *zap.Logger) *roster.View {
	client := a.API
	if logger == nil {
		logger = a.Logger
	} else {
		client = a.NewAPIClient(logger)
	}

	opts := []roster.Option{roster.WithLogger(logger)}
	if action, err := models.ParseAction(a.Config.DefaultDecision); err == nil {
		opts = append(opts, roster.WithDefaultAction(action))
	}
	if a.History != nil {
		opts = append(opts, roster.WithRecorder(a.History))
	}
	return roster.New(client, opts...)
}

// Close closes all resources
func (a *App) Close() error {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
