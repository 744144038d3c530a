package artifacts

import (
	"fmt"
	"path"

	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/titles"
)

const (
	moviesDir = "Movies"
	seriesDir = "Series"
	strmExt   = ".strm"
)

// MovieDir returns the directory of a movie artifact, relative to the
// library root: Movies/<Clean Name>.
func MovieDir(item models.CatalogItem) string {
	return path.Join(moviesDir, titles.FolderName(item.Name))
}

// MovieStrmPath returns the pointer file path of a movie, relative to the
// library root.
func MovieStrmPath(item models.CatalogItem) string {
	folder := titles.FolderName(item.Name)
	return path.Join(moviesDir, folder, folder+strmExt)
}

// SeriesDir returns the directory of a series artifact, relative to the
// library root: Series/<Clean Name>.
func SeriesDir(item models.CatalogItem) string {
	return path.Join(seriesDir, titles.FolderName(item.Name))
}

// SeasonDir returns the season directory of a series, relative to the
// library root.
func SeasonDir(item models.CatalogItem, season int) string {
	return path.Join(SeriesDir(item), fmt.Sprintf("Season %02d", season))
}

// EpisodeStrmPath returns the pointer file path of one episode, relative to
// the library root: Series/<Name>/Season 01/<Name> S01E02.strm.
func EpisodeStrmPath(item models.CatalogItem, ep models.Episode) string {
	name := fmt.Sprintf("%s S%02dE%02d%s", titles.FolderName(item.Name), ep.Season, ep.Number, strmExt)
	return path.Join(SeasonDir(item, ep.Season), name)
}
