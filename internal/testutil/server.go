// A NEW file to hold a shared test server setup utility, which simplifies all API tests.

package testutil

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/mpannell/strmsync/internal/api"
	"github.com/mpannell/strmsync/internal/artifacts"
	"github.com/mpannell/strmsync/internal/config"
	"github.com/mpannell/strmsync/internal/core"
	"github.com/mpannell/strmsync/internal/livetv"
	"github.com/mpannell/strmsync/internal/snapshot"
	"github.com/mpannell/strmsync/internal/store"
	"github.com/mpannell/strmsync/internal/sync"
	"github.com/mpannell/strmsync/internal/websocket"
	"github.com/mpannell/strmsync/internal/xtream"
)

// SetupTestApp builds a fully wired core.App backed by an in-memory
// database, an in-memory artifact filesystem and a fake provider panel.
func SetupTestApp(t *testing.T) (*core.App, *FakePanel) {
	t.Helper()
	panel := NewFakePanel(t)

	cfg := &config.Config{}
	cfg.Library.Path = "/library"
	cfg.Provider.BaseURL = panel.URL()
	cfg.Provider.Username = "u"
	cfg.Provider.Password = "p"
	cfg.Provider.RequestDelayMs = 1
	cfg.Provider.RetryCount = 1
	cfg.Provider.RetryDelayMs = 1
	cfg.Sync.Workers = 4
	cfg.Sync.FullSyncIntervalHours = 168
	cfg.Sync.ChangeThresholdPct = 50
	cfg.Sync.DeleteThresholdPct = 20
	cfg.LiveTV.Enabled = true

	db := SetupTestDB(t)
	st := store.New(db)
	client := xtream.New(cfg)
	hub := websocket.NewHub()
	go hub.Run()

	snaps := snapshot.NewStore(t.TempDir(), 3)
	writer := artifacts.NewWriterFs(afero.NewMemMapFs(), cfg.Library.Path)
	syncSvc := sync.NewService(cfg, client, snaps, writer, st, hub)

	return &core.App{
		Config:  cfg,
		DB:      db,
		Store:   st,
		Client:  client,
		Sync:    syncSvc,
		Live:    livetv.New(client),
		WsHub:   hub,
		Version: "test",
	}, panel
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *FakePanel) {
	t.Helper()
	app, panel := SetupTestApp(t)
	return api.NewServer(app), panel
}
