package delta_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpannell/strmsync/internal/delta"
	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/snapshot"
)

func movie(id int64, name string, categoryID int64) delta.Item {
	return delta.NewItem(models.CatalogItem{
		ID:         id,
		Type:       models.ItemTypeMovie,
		Name:       name,
		CategoryID: categoryID,
		Extension:  "mkv",
	}, 0)
}

func series(id int64, name string, categoryID int64, episodes int) delta.Item {
	return delta.NewItem(models.CatalogItem{
		ID:         id,
		Type:       models.ItemTypeSeries,
		Name:       name,
		CategoryID: categoryID,
	}, episodes)
}

func catalog(n int) []delta.Item {
	items := make([]delta.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, movie(int64(i+1), fmt.Sprintf("Movie %d", i+1), 1))
	}
	return items
}

// snapshotOf records the given items as the previous snapshot entries.
func snapshotOf(items []delta.Item) map[int64]snapshot.Entry {
	prev := make(map[int64]snapshot.Entry, len(items))
	for _, item := range items {
		prev[item.ID] = snapshot.Entry{
			ID:           item.ID,
			Name:         item.Name,
			CategoryID:   item.CategoryID,
			Extension:    item.Extension,
			EpisodeCount: item.EpisodeCount,
			Checksum:     item.Checksum,
		}
	}
	return prev
}

func TestFirstRunEverythingIsNew(t *testing.T) {
	d := delta.Compute(catalog(5), nil)

	assert.Len(t, d.New, 5)
	assert.Empty(t, d.Modified)
	assert.Empty(t, d.Removed)
	assert.Zero(t, d.Stats.UnchangedItems)
	assert.Equal(t, 5, d.Stats.TotalItems)
	assert.InDelta(t, 100, d.Stats.ChangePercentage, 0.001)
}

func TestUnchangedCatalog(t *testing.T) {
	items := catalog(10)
	d := delta.Compute(items, snapshotOf(items))

	assert.Empty(t, d.New)
	assert.Empty(t, d.Modified)
	assert.Empty(t, d.Removed)
	assert.Equal(t, 10, d.Stats.UnchangedItems)
	assert.Zero(t, d.Stats.ChangePercentage)
}

func TestAddedItems(t *testing.T) {
	prev := snapshotOf(catalog(6))
	d := delta.Compute(catalog(9), prev)

	assert.Len(t, d.New, 3)
	assert.Empty(t, d.Removed)
	assert.Equal(t, 6, d.Stats.UnchangedItems)
	assert.Equal(t, 9, d.Stats.TotalItems)
}

func TestRemovedItems(t *testing.T) {
	prev := snapshotOf(catalog(6))
	d := delta.Compute(catalog(4), prev)

	require.Len(t, d.Removed, 2)
	assert.ElementsMatch(t, []int64{5, 6}, d.Removed)
	assert.Equal(t, 4, d.Stats.UnchangedItems)
	assert.Equal(t, 4, d.Stats.TotalItems)
}

func TestSingleFieldChangeMarksOnlyThatItemModified(t *testing.T) {
	mutations := map[string]func(*delta.Item){
		"name":     func(i *delta.Item) { i.Name = "Renamed" },
		"category": func(i *delta.Item) { i.CategoryID = 99 },
		"format":   func(i *delta.Item) { i.Extension = "avi" },
	}

	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			items := catalog(5)
			prev := snapshotOf(items)

			mutate(&items[2])
			items[2] = delta.NewItem(items[2].CatalogItem, items[2].EpisodeCount)

			d := delta.Compute(items, prev)
			require.Len(t, d.Modified, 1)
			assert.Equal(t, items[2].ID, d.Modified[0].ID)
			assert.Equal(t, 4, d.Stats.UnchangedItems)
			assert.Empty(t, d.New)
			assert.Empty(t, d.Removed)
		})
	}
}

func TestSeriesEpisodeCountChange(t *testing.T) {
	old := series(7, "Show", 3, 10)
	prev := snapshotOf([]delta.Item{old})

	grown := series(7, "Show", 3, 11)
	d := delta.Compute([]delta.Item{grown}, prev)

	require.Len(t, d.Modified, 1)
	assert.Equal(t, int64(7), d.Modified[0].ID)
}

func TestSeriesEpisodeCountDriftWithStaleChecksum(t *testing.T) {
	// A snapshot whose checksum predates the episode-count field: the stored
	// checksum happens to match, but the stored count differs.
	current := series(7, "Show", 3, 12)
	prev := map[int64]snapshot.Entry{
		7: {ID: 7, Name: "Show", CategoryID: 3, EpisodeCount: 10, Checksum: current.Checksum},
	}

	d := delta.Compute([]delta.Item{current}, prev)
	require.Len(t, d.Modified, 1)
	assert.Zero(t, d.Stats.UnchangedItems)
}

func TestDuplicateIDsCollapse(t *testing.T) {
	// Same id listed under two categories: the second occurrence wins.
	a := movie(1, "Movie", 10)
	b := movie(1, "Movie", 20)

	d := delta.Compute([]delta.Item{a, b}, nil)
	require.Len(t, d.New, 1)
	assert.Equal(t, int64(20), d.New[0].CategoryID)
	assert.Equal(t, 1, d.Stats.TotalItems)
}

func TestDuplicateIDsNotDoubleCountedAgainstSnapshot(t *testing.T) {
	item := movie(1, "Movie", 10)
	prev := snapshotOf([]delta.Item{item})

	d := delta.Compute([]delta.Item{item, item, item}, prev)
	assert.Empty(t, d.New)
	assert.Empty(t, d.Modified)
	assert.Equal(t, 1, d.Stats.UnchangedItems)
	assert.Equal(t, 1, d.Stats.TotalItems)
}

func TestChangePercentageWorkedExample(t *testing.T) {
	// new=3, modified=2, removed=5, unchanged=13 -> 10/23*100.
	unchanged := catalog(13)
	prevItems := append([]delta.Item{}, unchanged...)
	for i := 0; i < 2; i++ {
		prevItems = append(prevItems, movie(int64(100+i), fmt.Sprintf("Old %d", i), 1))
	}
	for i := 0; i < 5; i++ {
		prevItems = append(prevItems, movie(int64(200+i), fmt.Sprintf("Gone %d", i), 1))
	}
	prev := snapshotOf(prevItems)

	current := append([]delta.Item{}, unchanged...)
	for i := 0; i < 2; i++ {
		current = append(current, movie(int64(100+i), fmt.Sprintf("Old %d renamed", i), 1))
	}
	for i := 0; i < 3; i++ {
		current = append(current, movie(int64(300+i), fmt.Sprintf("New %d", i), 1))
	}

	d := delta.Compute(current, prev)
	assert.Equal(t, 3, d.Stats.NewItems)
	assert.Equal(t, 2, d.Stats.ModifiedItems)
	assert.Equal(t, 5, d.Stats.RemovedItems)
	assert.Equal(t, 13, d.Stats.UnchangedItems)
	assert.Equal(t, 18, d.Stats.TotalItems)
	assert.InDelta(t, 43.478, d.Stats.ChangePercentage, 0.01)
}

func TestMergeIsFieldWiseAdditive(t *testing.T) {
	movies := delta.Statistics{TotalItems: 18, NewItems: 3, ModifiedItems: 2, RemovedItems: 5, UnchangedItems: 13}
	shows := delta.Statistics{TotalItems: 7, NewItems: 1, ModifiedItems: 0, RemovedItems: 2, UnchangedItems: 6}

	merged := delta.Merge(movies, shows)
	assert.Equal(t, 25, merged.TotalItems)
	assert.Equal(t, 4, merged.NewItems)
	assert.Equal(t, 2, merged.ModifiedItems)
	assert.Equal(t, 7, merged.RemovedItems)
	assert.Equal(t, 19, merged.UnchangedItems)
	assert.InDelta(t, float64(13)/float64(32)*100, merged.ChangePercentage, 0.001)
}

func TestMergeWithEmptyStatistics(t *testing.T) {
	merged := delta.Merge(delta.Statistics{}, delta.Statistics{})
	assert.Zero(t, merged.ChangePercentage)
	assert.Zero(t, merged.TotalItems)
}
