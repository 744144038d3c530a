package livetv_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpannell/strmsync/internal/livetv"
	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/xtream"
)

type fakeLiveCatalog struct {
	categories []models.Category
	streams    []xtream.LiveStream
	listings   map[int64][]xtream.EPGListing
	epgErr     error
}

func (f *fakeLiveCatalog) LiveCategories(ctx context.Context) ([]models.Category, error) {
	return f.categories, nil
}

func (f *fakeLiveCatalog) LiveStreams(ctx context.Context) ([]xtream.LiveStream, error) {
	return f.streams, nil
}

func (f *fakeLiveCatalog) EPG(ctx context.Context, streamID int64) ([]xtream.EPGListing, error) {
	if f.epgErr != nil {
		return nil, f.epgErr
	}
	return f.listings[streamID], nil
}

func (f *fakeLiveCatalog) LiveURL(id int64) string {
	return fmt.Sprintf("http://panel/live/u/p/%d.m3u8", id)
}

func newFakeCatalog() *fakeLiveCatalog {
	return &fakeLiveCatalog{
		categories: []models.Category{{ID: 1, Name: "News"}},
		streams: []xtream.LiveStream{
			{ID: 10, Name: "World News", EPGChannelID: "News.one", Icon: "http://cdn/n.png", CategoryID: 1},
			{ID: 11, Name: "Local", CategoryID: 2},
		},
		listings: map[int64][]xtream.EPGListing{
			10: {
				{Title: "Morning Show", Description: "Daily news", Start: 1700000000, Stop: 1700003600},
				{Title: "Evening Show", Start: 1700003600, Stop: 1700007200},
			},
		},
	}
}

func TestPlaylist(t *testing.T) {
	svc := livetv.New(newFakeCatalog())

	out, err := svc.Playlist(context.Background())
	require.NoError(t, err)
	playlist := string(out)

	assert.Contains(t, playlist, "#EXTM3U\n")
	assert.Contains(t, playlist, `tvg-id="News.one" tvg-name="World News" tvg-logo="http://cdn/n.png" group-title="News",World News`)
	assert.Contains(t, playlist, "http://panel/live/u/p/10.m3u8")
	// Channel without a known category gets no group-title attribute.
	assert.Contains(t, playlist, `tvg-id="" tvg-name="Local",Local`)
	assert.Contains(t, playlist, "http://panel/live/u/p/11.m3u8")
}

func TestEPG(t *testing.T) {
	svc := livetv.New(newFakeCatalog())

	out, err := svc.EPG(context.Background())
	require.NoError(t, err)
	guide := string(out)

	assert.Contains(t, guide, `<tv generator-info-name="strmsync">`)
	assert.Contains(t, guide, `<channel id="news.one">`)
	assert.Contains(t, guide, "<display-name>World News</display-name>")
	// Channels without an EPG id get a synthetic one.
	assert.Contains(t, guide, `<channel id="stream-11">`)
	assert.Contains(t, guide, `channel="news.one"`)
	assert.Contains(t, guide, "<title>Morning Show</title>")
	assert.Contains(t, guide, "<desc>Daily news</desc>")
	assert.Contains(t, guide, `start="20231114221320 +0000"`)
}

func TestEPGChannelFetchFailureIsNotFatal(t *testing.T) {
	cat := newFakeCatalog()
	cat.epgErr = fmt.Errorf("panel timeout")
	svc := livetv.New(cat)

	out, err := svc.EPG(context.Background())
	require.NoError(t, err)
	guide := string(out)

	// Channels are still listed, just without programmes.
	assert.Contains(t, guide, `<channel id="news.one">`)
	assert.NotContains(t, guide, "<programme")
}
