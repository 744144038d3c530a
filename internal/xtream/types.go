package xtream

import "encoding/json"

// Raw player_api.php shapes. Xtream panels are notoriously sloppy about
// number-vs-string fields, so every numeric field is json.Number.

type apiCategory struct {
	CategoryID   json.Number `json:"category_id"`
	CategoryName string      `json:"category_name"`
	ParentID     json.Number `json:"parent_id"`
}

type apiVodStream struct {
	Num                json.Number `json:"num"`
	Name               string      `json:"name"`
	StreamType         string      `json:"stream_type"`
	StreamID           json.Number `json:"stream_id"`
	StreamIcon         string      `json:"stream_icon"`
	Added              json.Number `json:"added"`
	CategoryID         json.Number `json:"category_id"`
	ContainerExtension string      `json:"container_extension"`
}

type apiSeries struct {
	Num          json.Number `json:"num"`
	Name         string      `json:"name"`
	SeriesID     json.Number `json:"series_id"`
	Cover        string      `json:"cover"`
	CategoryID   json.Number `json:"category_id"`
	LastModified json.Number `json:"last_modified"`
}

type apiEpisode struct {
	ID                 json.Number `json:"id"`
	EpisodeNum         json.Number `json:"episode_num"`
	Title              string      `json:"title"`
	ContainerExtension string      `json:"container_extension"`
	Season             json.Number `json:"season"`
}

type apiSeriesInfo struct {
	// Episodes is keyed by season number as a string.
	Episodes map[string][]apiEpisode `json:"episodes"`
}

type apiLiveStream struct {
	StreamID     json.Number `json:"stream_id"`
	Name         string      `json:"name"`
	StreamIcon   string      `json:"stream_icon"`
	EPGChannelID string      `json:"epg_channel_id"`
	CategoryID   json.Number `json:"category_id"`
}

type apiEPGListing struct {
	ID    json.Number `json:"id"`
	Title string      `json:"title"`
	// Title and Description are base64 encoded by the panel.
	Description    string      `json:"description"`
	Lang           string      `json:"lang"`
	StartTimestamp json.Number `json:"start_timestamp"`
	StopTimestamp  json.Number `json:"stop_timestamp"`
	ChannelID      string      `json:"channel_id"`
}

type apiEPGResponse struct {
	EPGListings []apiEPGListing `json:"epg_listings"`
}

// LiveStream is a live channel as exposed to the livetv package.
type LiveStream struct {
	ID           int64
	Name         string
	Icon         string
	EPGChannelID string
	CategoryID   int64
}

// EPGListing is one programme entry for a live channel. Title and
// Description are already decoded.
type EPGListing struct {
	Title       string
	Description string
	Lang        string
	Start       int64
	Stop        int64
	ChannelID   string
}
