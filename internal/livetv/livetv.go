// Package livetv renders the provider's live channels as an M3U playlist
// and an XMLTV programme guide for IPTV players.
package livetv

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/xtream"
)

// Fetching a guide entry per channel is slow; a small concurrency cap keeps
// the panel from throttling us while still finishing in reasonable time.
const epgConcurrency = 3

const xmltvTimeLayout = "20060102150405 -0700"

// Catalog is the live-channel surface of the provider client.
type Catalog interface {
	LiveCategories(ctx context.Context) ([]models.Category, error)
	LiveStreams(ctx context.Context) ([]xtream.LiveStream, error)
	EPG(ctx context.Context, streamID int64) ([]xtream.EPGListing, error)
	LiveURL(id int64) string
}

// Service generates the playlist and guide documents.
type Service struct {
	catalog Catalog
}

func New(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

// Playlist renders every live channel as an extended M3U playlist with
// tvg attributes and group-title set to the provider category.
func (s *Service) Playlist(ctx context.Context) ([]byte, error) {
	cats, err := s.catalog.LiveCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list live categories: %w", err)
	}
	catNames := make(map[int64]string, len(cats))
	for _, c := range cats {
		catNames[c.ID] = c.Name
	}

	streams, err := s.catalog.LiveStreams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list live channels: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	for _, st := range streams {
		buf.WriteString(fmt.Sprintf("#EXTINF:-1 tvg-id=%q tvg-name=%q", st.EPGChannelID, st.Name))
		if st.Icon != "" {
			buf.WriteString(fmt.Sprintf(" tvg-logo=%q", st.Icon))
		}
		if group := catNames[st.CategoryID]; group != "" {
			buf.WriteString(fmt.Sprintf(" group-title=%q", group))
		}
		buf.WriteString("," + st.Name + "\n")
		buf.WriteString(s.catalog.LiveURL(st.ID) + "\n")
	}
	return buf.Bytes(), nil
}

type xmltvChannel struct {
	ID          string     `xml:"id,attr"`
	DisplayName string     `xml:"display-name"`
	Icon        *xmltvIcon `xml:"icon,omitempty"`
}

type xmltvIcon struct {
	Src string `xml:"src,attr"`
}

type xmltvProgramme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   string `xml:"title"`
	Desc    string `xml:"desc,omitempty"`
}

type xmltvDoc struct {
	XMLName    xml.Name         `xml:"tv"`
	Generator  string           `xml:"generator-info-name,attr"`
	Channels   []xmltvChannel   `xml:"channel"`
	Programmes []xmltvProgramme `xml:"programme"`
}

// EPG renders the XMLTV guide. Programme tables are fetched per channel
// with bounded concurrency; a channel whose table cannot be fetched is
// listed without programmes rather than failing the whole document.
func (s *Service) EPG(ctx context.Context) ([]byte, error) {
	streams, err := s.catalog.LiveStreams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list live channels: %w", err)
	}

	doc := xmltvDoc{Generator: "strmsync"}
	for _, st := range streams {
		ch := xmltvChannel{ID: channelID(st), DisplayName: st.Name}
		if st.Icon != "" {
			ch.Icon = &xmltvIcon{Src: st.Icon}
		}
		doc.Channels = append(doc.Channels, ch)
	}

	sem := make(chan struct{}, epgConcurrency)
	var mu gosync.Mutex
	var wg gosync.WaitGroup
	for _, st := range streams {
		wg.Add(1)
		go func(st xtream.LiveStream) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			listings, err := s.catalog.EPG(ctx, st.ID)
			if err != nil {
				log.Warn().Err(err).Int64("stream_id", st.ID).Str("name", st.Name).
					Msg("Failed to fetch channel guide")
				return
			}
			id := channelID(st)
			mu.Lock()
			for _, l := range listings {
				doc.Programmes = append(doc.Programmes, xmltvProgramme{
					Start:   time.Unix(l.Start, 0).UTC().Format(xmltvTimeLayout),
					Stop:    time.Unix(l.Stop, 0).UTC().Format(xmltvTimeLayout),
					Channel: id,
					Title:   l.Title,
					Desc:    l.Description,
				})
			}
			mu.Unlock()
		}(st)
	}
	wg.Wait()

	// Concurrent fetches land in arbitrary order; keep the document stable.
	sort.Slice(doc.Programmes, func(i, j int) bool {
		if doc.Programmes[i].Channel != doc.Programmes[j].Channel {
			return doc.Programmes[i].Channel < doc.Programmes[j].Channel
		}
		return doc.Programmes[i].Start < doc.Programmes[j].Start
	})

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode guide: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func channelID(st xtream.LiveStream) string {
	if st.EPGChannelID != "" {
		return strings.ToLower(st.EPGChannelID)
	}
	return fmt.Sprintf("stream-%d", st.ID)
}
