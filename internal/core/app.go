package core

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mpannell/strmsync/internal/artifacts"
	"github.com/mpannell/strmsync/internal/config"
	"github.com/mpannell/strmsync/internal/db"
	"github.com/mpannell/strmsync/internal/livetv"
	"github.com/mpannell/strmsync/internal/snapshot"
	"github.com/mpannell/strmsync/internal/store"
	"github.com/mpannell/strmsync/internal/sync"
	"github.com/mpannell/strmsync/internal/websocket"
	"github.com/mpannell/strmsync/internal/xtream"
)

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Store   *store.Store
	Client  *xtream.Client
	Sync    *sync.Service
	Live    *livetv.Service
	WsHub   *websocket.Hub
	Version string
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, running migrations
// and wiring the sync service.
func New(version string) (*App, error) {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	if err := db.RunMigrations(database); err != nil {
		// We can't proceed without a valid database schema.
		// Close the DB connection before failing.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	st := store.New(database)
	client := xtream.New(cfg)
	hub := websocket.NewHub()
	go hub.Run()

	snaps := snapshot.NewStore(cfg.Snapshots.Path, cfg.Snapshots.Retention)
	writer := artifacts.NewWriter(cfg.Library.Path)
	syncSvc := sync.NewService(cfg, client, snaps, writer, st, hub)

	log.Debug().Msg("Core application setup complete")
	return &App{
		Config:  cfg,
		DB:      database,
		Store:   st,
		Client:  client,
		Sync:    syncSvc,
		Live:    livetv.New(client),
		WsHub:   hub,
		Version: version,
	}, nil
}

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
