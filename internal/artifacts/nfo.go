package artifacts

import (
	"encoding/xml"
	"fmt"

	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/titles"
)

// Kodi-compatible NFO sidecar documents. Media servers use these to match
// library entries against metadata providers without guessing from folder
// names.

type movieNFO struct {
	XMLName xml.Name `xml:"movie"`
	Title   string   `xml:"title"`
	Year    int      `xml:"year,omitempty"`
	Thumb   string   `xml:"thumb,omitempty"`
}

type tvshowNFO struct {
	XMLName xml.Name `xml:"tvshow"`
	Title   string   `xml:"title"`
	Year    int      `xml:"year,omitempty"`
	Thumb   string   `xml:"thumb,omitempty"`
}

// MovieNFO renders the movie sidecar document.
func MovieNFO(item models.CatalogItem) ([]byte, error) {
	title, year := titles.SplitYear(titles.Clean(item.Name))
	return renderNFO(movieNFO{Title: title, Year: year, Thumb: item.CoverURL})
}

// TVShowNFO renders the series sidecar document.
func TVShowNFO(item models.CatalogItem) ([]byte, error) {
	title, year := titles.SplitYear(titles.Clean(item.Name))
	return renderNFO(tvshowNFO{Title: title, Year: year, Thumb: item.CoverURL})
}

// MovieNFOPath returns the sidecar path for a movie, relative to the root.
func MovieNFOPath(item models.CatalogItem) string {
	folder := titles.FolderName(item.Name)
	return MovieDir(item) + "/" + folder + ".nfo"
}

// TVShowNFOPath returns the sidecar path for a series, relative to the root.
func TVShowNFOPath(item models.CatalogItem) string {
	return SeriesDir(item) + "/tvshow.nfo"
}

func renderNFO(doc interface{}) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode NFO: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
