package snapshot

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/mpannell/strmsync/internal/models"
)

// Checksum fingerprints the content-relevant fields of a catalog item. Cover
// URLs are excluded on purpose: providers rotate CDN hosts constantly and a
// new URL is not a content change. For series, episodeCount participates so
// that a season gaining an episode marks the series as modified; pass 0 for
// movies.
func Checksum(item models.CatalogItem, episodeCount int) string {
	h := md5.New()
	fmt.Fprintf(h, "%d|%s|%d|%s", item.ID, item.Name, item.CategoryID, item.Extension)
	if item.Type == models.ItemTypeSeries {
		fmt.Fprintf(h, "|%d", episodeCount)
	}
	return hex.EncodeToString(h.Sum(nil))
}
