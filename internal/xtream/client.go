// Package xtream is the catalog API client for Xtream-codes style panels
// (player_api.php). All calls go through a shared rate-limited transport.
package xtream

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mpannell/strmsync/internal/config"
	"github.com/mpannell/strmsync/internal/models"
)

// Client talks to one Xtream panel.
type Client struct {
	baseURL   string
	username  string
	password  string
	transport *transport
}

// New creates a Client from the provider section of the configuration.
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.Provider.BaseURL, "/"),
		username:  cfg.Provider.Username,
		password:  cfg.Provider.Password,
		transport: newTransport(cfg.RequestDelay(), cfg.Provider.RetryCount, cfg.RetryDelay()),
	}
}

// Source identifies the upstream this client talks to; recorded in
// snapshots to detect a reconfigured provider.
func (c *Client) Source() string {
	return c.baseURL
}

func (c *Client) apiURL(action string, params map[string]string) string {
	q := url.Values{}
	q.Set("username", c.username)
	q.Set("password", c.password)
	q.Set("action", action)
	for k, v := range params {
		q.Set(k, v)
	}
	return fmt.Sprintf("%s/player_api.php?%s", c.baseURL, q.Encode())
}

// VodCategories lists the movie categories.
func (c *Client) VodCategories(ctx context.Context) ([]models.Category, error) {
	return c.categories(ctx, "get_vod_categories")
}

// SeriesCategories lists the series categories.
func (c *Client) SeriesCategories(ctx context.Context) ([]models.Category, error) {
	return c.categories(ctx, "get_series_categories")
}

func (c *Client) categories(ctx context.Context, action string) ([]models.Category, error) {
	var raw []apiCategory
	if err := c.transport.getJSON(ctx, c.apiURL(action, nil), &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	cats := make([]models.Category, 0, len(raw))
	for _, rc := range raw {
		id, err := rc.CategoryID.Int64()
		if err != nil {
			continue
		}
		cats = append(cats, models.Category{ID: id, Name: rc.CategoryName})
	}
	return cats, nil
}

// VodStreams lists the movies of one category.
func (c *Client) VodStreams(ctx context.Context, categoryID int64) ([]models.CatalogItem, error) {
	var raw []apiVodStream
	u := c.apiURL("get_vod_streams", map[string]string{"category_id": fmt.Sprintf("%d", categoryID)})
	if err := c.transport.getJSON(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("get_vod_streams: %w", err)
	}

	items := make([]models.CatalogItem, 0, len(raw))
	for _, rs := range raw {
		id, err := rs.StreamID.Int64()
		if err != nil {
			continue
		}
		item := models.CatalogItem{
			ID:         id,
			Type:       models.ItemTypeMovie,
			Name:       rs.Name,
			CategoryID: categoryID,
			Extension:  rs.ContainerExtension,
			CoverURL:   rs.StreamIcon,
		}
		if added := unixTime(rs.Added); added != nil {
			item.AddedAt = added
		}
		items = append(items, item)
	}
	return items, nil
}

// Series lists the series of one category.
func (c *Client) Series(ctx context.Context, categoryID int64) ([]models.CatalogItem, error) {
	var raw []apiSeries
	u := c.apiURL("get_series", map[string]string{"category_id": fmt.Sprintf("%d", categoryID)})
	if err := c.transport.getJSON(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("get_series: %w", err)
	}

	items := make([]models.CatalogItem, 0, len(raw))
	for _, rs := range raw {
		id, err := rs.SeriesID.Int64()
		if err != nil {
			continue
		}
		item := models.CatalogItem{
			ID:         id,
			Type:       models.ItemTypeSeries,
			Name:       rs.Name,
			CategoryID: categoryID,
			CoverURL:   rs.Cover,
		}
		if mod := unixTime(rs.LastModified); mod != nil {
			item.LastModified = mod
		}
		items = append(items, item)
	}
	return items, nil
}

// SeriesInfo fetches the full episode inventory of one series.
func (c *Client) SeriesInfo(ctx context.Context, seriesID int64) (*models.SeriesListing, error) {
	var raw apiSeriesInfo
	u := c.apiURL("get_series_info", map[string]string{"series_id": fmt.Sprintf("%d", seriesID)})
	if err := c.transport.getJSON(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("get_series_info: %w", err)
	}

	listing := &models.SeriesListing{
		SeriesID: seriesID,
		Seasons:  make(map[int][]models.Episode, len(raw.Episodes)),
	}
	for seasonKey, eps := range raw.Episodes {
		season := atoiDefault(seasonKey, 0)
		for _, re := range eps {
			id, err := re.ID.Int64()
			if err != nil {
				continue
			}
			num, _ := re.EpisodeNum.Int64()
			listing.Seasons[season] = append(listing.Seasons[season], models.Episode{
				ID:        id,
				SeriesID:  seriesID,
				Season:    season,
				Number:    int(num),
				Title:     re.Title,
				Extension: re.ContainerExtension,
			})
		}
	}
	return listing, nil
}

// LiveCategories lists the live channel categories.
func (c *Client) LiveCategories(ctx context.Context) ([]models.Category, error) {
	return c.categories(ctx, "get_live_categories")
}

// LiveStreams lists every live channel.
func (c *Client) LiveStreams(ctx context.Context) ([]LiveStream, error) {
	var raw []apiLiveStream
	if err := c.transport.getJSON(ctx, c.apiURL("get_live_streams", nil), &raw); err != nil {
		return nil, fmt.Errorf("get_live_streams: %w", err)
	}

	streams := make([]LiveStream, 0, len(raw))
	for _, rs := range raw {
		id, err := rs.StreamID.Int64()
		if err != nil {
			continue
		}
		catID, _ := rs.CategoryID.Int64()
		streams = append(streams, LiveStream{
			ID:           id,
			Name:         rs.Name,
			Icon:         rs.StreamIcon,
			EPGChannelID: rs.EPGChannelID,
			CategoryID:   catID,
		})
	}
	return streams, nil
}

// EPG fetches the programme table of one live channel. Titles and
// descriptions arrive base64 encoded and are decoded here.
func (c *Client) EPG(ctx context.Context, streamID int64) ([]EPGListing, error) {
	var raw apiEPGResponse
	u := c.apiURL("get_simple_data_table", map[string]string{"stream_id": fmt.Sprintf("%d", streamID)})
	if err := c.transport.getJSON(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("get_simple_data_table: %w", err)
	}

	listings := make([]EPGListing, 0, len(raw.EPGListings))
	for _, rl := range raw.EPGListings {
		start, _ := rl.StartTimestamp.Int64()
		stop, _ := rl.StopTimestamp.Int64()
		listings = append(listings, EPGListing{
			Title:       decodeBase64(rl.Title),
			Description: decodeBase64(rl.Description),
			Lang:        rl.Lang,
			Start:       start,
			Stop:        stop,
			ChannelID:   rl.ChannelID,
		})
	}
	return listings, nil
}

// MovieURL builds the playable pointer target for a movie.
func (c *Client) MovieURL(id int64, extension string) string {
	if extension == "" {
		extension = "mp4"
	}
	return fmt.Sprintf("%s/movie/%s/%s/%d.%s", c.baseURL, c.username, c.password, id, extension)
}

// EpisodeURL builds the playable pointer target for an episode.
func (c *Client) EpisodeURL(id int64, extension string) string {
	if extension == "" {
		extension = "mp4"
	}
	return fmt.Sprintf("%s/series/%s/%s/%d.%s", c.baseURL, c.username, c.password, id, extension)
}

// LiveURL builds the playable URL for a live channel.
func (c *Client) LiveURL(id int64) string {
	return fmt.Sprintf("%s/live/%s/%s/%d.m3u8", c.baseURL, c.username, c.password, id)
}

func unixTime(n interface{ Int64() (int64, error) }) *time.Time {
	ts, err := n.Int64()
	if err != nil || ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

func atoiDefault(s string, def int) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return def
	}
	return n
}

func decodeBase64(s string) string {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some panels send plain text despite the API contract.
		return s
	}
	return string(decoded)
}
