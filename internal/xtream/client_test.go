package xtream_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpannell/strmsync/internal/config"
	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/xtream"
)

func newTestClient(t *testing.T, handler http.Handler) *xtream.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Provider.BaseURL = server.URL
	cfg.Provider.Username = "user"
	cfg.Provider.Password = "pass"
	cfg.Provider.RequestDelayMs = 1
	cfg.Provider.RetryCount = 2
	cfg.Provider.RetryDelayMs = 5
	return xtream.New(cfg)
}

func TestVodCategoriesAndStreams(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user", r.URL.Query().Get("username"))
		switch r.URL.Query().Get("action") {
		case "get_vod_categories":
			fmt.Fprint(w, `[{"category_id":"5","category_name":"Action","parent_id":0}]`)
		case "get_vod_streams":
			assert.Equal(t, "5", r.URL.Query().Get("category_id"))
			// Panels mix string and number ids freely.
			fmt.Fprint(w, `[
				{"name":"Movie A","stream_id":101,"container_extension":"mkv","stream_icon":"http://cdn/a.jpg","added":"1600000000","category_id":"5"},
				{"name":"Movie B","stream_id":"102","container_extension":"mp4","category_id":5}
			]`)
		default:
			http.NotFound(w, r)
		}
	})

	client := newTestClient(t, handler)
	ctx := context.Background()

	cats, err := client.VodCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, int64(5), cats[0].ID)
	assert.Equal(t, "Action", cats[0].Name)

	items, err := client.VodStreams(ctx, 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(101), items[0].ID)
	assert.Equal(t, models.ItemTypeMovie, items[0].Type)
	assert.Equal(t, "mkv", items[0].Extension)
	require.NotNil(t, items[0].AddedAt)
	assert.Equal(t, int64(1600000000), items[0].AddedAt.Unix())
	assert.Equal(t, int64(102), items[1].ID)
}

func TestSeriesInfoEpisodeInventory(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "get_series_info", r.URL.Query().Get("action"))
		assert.Equal(t, "22", r.URL.Query().Get("series_id"))
		fmt.Fprint(w, `{"episodes":{
			"1":[{"id":"2001","episode_num":1,"title":"Pilot","container_extension":"mkv","season":1},
			     {"id":"2002","episode_num":2,"title":"Two","container_extension":"mkv","season":1}],
			"2":[{"id":"2003","episode_num":1,"title":"Three","container_extension":"mkv","season":2}]
		}}`)
	})

	client := newTestClient(t, handler)
	listing, err := client.SeriesInfo(context.Background(), 22)
	require.NoError(t, err)

	assert.Equal(t, 3, listing.EpisodeCount())
	require.Len(t, listing.Seasons[1], 2)
	assert.Equal(t, "Pilot", listing.Seasons[1][0].Title)
	assert.Equal(t, 2, listing.Seasons[2][0].Season)
}

func TestThrottledRequestIsRetried(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[{"category_id":"1","category_name":"OK"}]`)
	})

	client := newTestClient(t, handler)
	cats, err := client.VodCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestThrottledRequestExhaustsRetries(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := newTestClient(t, handler)
	_, err := client.VodCategories(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, xtream.ErrThrottled)
}

func TestServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := newTestClient(t, handler)
	_, err := client.VodCategories(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestContextCancellationStopsRetries(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := newTestClient(t, handler)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.VodCategories(ctx)
	require.Error(t, err)
}

func TestEPGDecodesBase64(t *testing.T) {
	title := base64.StdEncoding.EncodeToString([]byte("News at Ten"))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"epg_listings":[{"id":"1","title":"%s","description":"%s","start_timestamp":"1700000000","stop_timestamp":"1700003600"}]}`,
			title, base64.StdEncoding.EncodeToString([]byte("Daily news")))
	})

	client := newTestClient(t, handler)
	listings, err := client.EPG(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "News at Ten", listings[0].Title)
	assert.Equal(t, "Daily news", listings[0].Description)
	assert.Equal(t, int64(1700000000), listings[0].Start)
}

func TestStreamURLs(t *testing.T) {
	cfg := &config.Config{}
	cfg.Provider.BaseURL = "http://panel.example/"
	cfg.Provider.Username = "u"
	cfg.Provider.Password = "p"
	client := xtream.New(cfg)

	assert.Equal(t, "http://panel.example/movie/u/p/42.mkv", client.MovieURL(42, "mkv"))
	assert.Equal(t, "http://panel.example/series/u/p/7.mp4", client.EpisodeURL(7, ""))
	assert.Equal(t, "http://panel.example/live/u/p/3.m3u8", client.LiveURL(3))
	assert.Equal(t, "http://panel.example", client.Source())
}
