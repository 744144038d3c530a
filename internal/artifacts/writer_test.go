package artifacts_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpannell/strmsync/internal/artifacts"
	"github.com/mpannell/strmsync/internal/models"
)

func newTestWriter() (*artifacts.Writer, afero.Fs) {
	fs := afero.NewMemMapFs()
	return artifacts.NewWriterFs(fs, "/library"), fs
}

func TestWriteOrUpdateCreatesParents(t *testing.T) {
	w, fs := newTestWriter()

	require.NoError(t, w.WriteOrUpdate("Movies/The Thing (1982)/The Thing (1982).strm", []byte("http://x/movie/1.mkv")))

	content, err := afero.ReadFile(fs, "/library/Movies/The Thing (1982)/The Thing (1982).strm")
	require.NoError(t, err)
	assert.Equal(t, "http://x/movie/1.mkv", string(content))
}

func TestWriteOrUpdateSkipsIdenticalContent(t *testing.T) {
	w, fs := newTestWriter()
	rel := "Movies/A/A.strm"
	require.NoError(t, w.WriteOrUpdate(rel, []byte("url")))

	before, err := fs.Stat("/library/Movies/A/A.strm")
	require.NoError(t, err)

	require.NoError(t, w.WriteOrUpdate(rel, []byte("url")))
	after, err := fs.Stat("/library/Movies/A/A.strm")
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())

	require.NoError(t, w.WriteOrUpdate(rel, []byte("new url")))
	content, _ := afero.ReadFile(fs, "/library/Movies/A/A.strm")
	assert.Equal(t, "new url", string(content))
}

func TestDeleteFileAndDirectory(t *testing.T) {
	w, fs := newTestWriter()
	require.NoError(t, w.WriteOrUpdate("Series/Show/Season 01/Show S01E01.strm", []byte("u1")))
	require.NoError(t, w.WriteOrUpdate("Series/Show/Season 01/Show S01E02.strm", []byte("u2")))

	// Directory artifact: the whole series folder goes.
	require.NoError(t, w.Delete("Series/Show"))
	exists, _ := afero.DirExists(fs, "/library/Series/Show")
	assert.False(t, exists)

	// Deleting a missing path is a no-op.
	require.NoError(t, w.Delete("Series/Show"))
}

func TestListExisting(t *testing.T) {
	w, _ := newTestWriter()
	require.NoError(t, w.WriteOrUpdate("Movies/A/A.strm", []byte("u")))
	require.NoError(t, w.WriteOrUpdate("Movies/A/A.nfo", []byte("<movie/>")))
	require.NoError(t, w.WriteOrUpdate("Series/S/Season 01/S S01E01.strm", []byte("u")))

	found, err := w.ListExisting()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"Movies/A/A.strm",
		"Series/S/Season 01/S S01E01.strm",
	}, found)
}

func TestListExistingMissingRoot(t *testing.T) {
	w := artifacts.NewWriterFs(afero.NewMemMapFs(), "/nowhere")
	found, err := w.ListExisting()
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCountStrm(t *testing.T) {
	w, _ := newTestWriter()
	require.NoError(t, w.WriteOrUpdate("Series/S/Season 01/S S01E01.strm", []byte("u")))
	require.NoError(t, w.WriteOrUpdate("Series/S/Season 01/S S01E02.strm", []byte("u")))
	require.NoError(t, w.WriteOrUpdate("Series/S/tvshow.nfo", []byte("<tvshow/>")))

	assert.Equal(t, 2, w.CountStrm("Series/S"))
	assert.Equal(t, 1, w.CountStrm("Series/S/Season 01/S S01E01.strm"))
	assert.Equal(t, 0, w.CountStrm("Series/Missing"))
}

func TestPruneEmptyDirsStopsAtRoot(t *testing.T) {
	w, fs := newTestWriter()
	require.NoError(t, w.WriteOrUpdate("Movies/A/A.strm", []byte("u")))
	require.NoError(t, w.WriteOrUpdate("Movies/B/B.strm", []byte("u")))

	require.NoError(t, w.Delete("Movies/A"))
	require.NoError(t, w.PruneEmptyDirs("Movies/A"))

	// Movies still holds B, so it stays.
	exists, _ := afero.DirExists(fs, "/library/Movies")
	assert.True(t, exists)

	require.NoError(t, w.Delete("Movies/B"))
	require.NoError(t, w.PruneEmptyDirs("Movies/B"))

	// Now Movies is empty and gets pruned; the root itself must survive.
	exists, _ = afero.DirExists(fs, "/library/Movies")
	assert.False(t, exists)
	exists, _ = afero.DirExists(fs, "/library")
	assert.True(t, exists)
}

func TestPruneNeverRemovesDirWithFiles(t *testing.T) {
	w, fs := newTestWriter()
	require.NoError(t, w.WriteOrUpdate("Series/S/tvshow.nfo", []byte("<tvshow/>")))
	require.NoError(t, w.WriteOrUpdate("Series/S/Season 01/E.strm", []byte("u")))

	require.NoError(t, w.Delete("Series/S/Season 01/E.strm"))
	require.NoError(t, w.PruneEmptyDirs("Series/S/Season 01/E.strm"))

	// Season 01 emptied out, S still holds the sidecar.
	exists, _ := afero.DirExists(fs, "/library/Series/S/Season 01")
	assert.False(t, exists)
	exists, _ = afero.DirExists(fs, "/library/Series/S")
	assert.True(t, exists)
}

func TestNaming(t *testing.T) {
	movie := models.CatalogItem{ID: 1, Type: models.ItemTypeMovie, Name: "EN - The Thing (1982) 4K"}
	assert.Equal(t, "Movies/The Thing (1982)", artifacts.MovieDir(movie))
	assert.Equal(t, "Movies/The Thing (1982)/The Thing (1982).strm", artifacts.MovieStrmPath(movie))
	assert.Equal(t, "Movies/The Thing (1982)/The Thing (1982).nfo", artifacts.MovieNFOPath(movie))

	show := models.CatalogItem{ID: 2, Type: models.ItemTypeSeries, Name: "[EN] Show"}
	ep := models.Episode{ID: 9, SeriesID: 2, Season: 1, Number: 2}
	assert.Equal(t, "Series/Show", artifacts.SeriesDir(show))
	assert.Equal(t, "Series/Show/Season 01/Show S01E02.strm", artifacts.EpisodeStrmPath(show, ep))
	assert.Equal(t, "Series/Show/tvshow.nfo", artifacts.TVShowNFOPath(show))
}

func TestMovieNFO(t *testing.T) {
	item := models.CatalogItem{Name: "The Thing (1982)", CoverURL: "http://cdn/c.jpg"}
	doc, err := artifacts.MovieNFO(item)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<title>The Thing</title>")
	assert.Contains(t, string(doc), "<year>1982</year>")
	assert.Contains(t, string(doc), "<thumb>http://cdn/c.jpg</thumb>")
}
