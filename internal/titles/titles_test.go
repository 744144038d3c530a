package titles_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpannell/strmsync/internal/titles"
)

func TestClean(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "The Thing", "The Thing"},
		{"bracket tag", "[EN] The Thing", "The Thing"},
		{"pipe tag", "|FHD| The Thing", "The Thing"},
		{"country prefix", "EN - The Thing", "The Thing"},
		{"stacked prefixes", "VOD: EN - The Thing", "The Thing"},
		{"quality suffix", "The Thing 4K", "The Thing"},
		{"codec suffix", "The Thing H.265", "The Thing"},
		{"year preserved", "The Thing (1982)", "The Thing (1982)"},
		{"year before quality", "The Thing (1982) FHD", "The Thing (1982)"},
		{"everything at once", "[Multi-Sub] EN - The Thing (1982) 1080p", "The Thing (1982)"},
		{"internal whitespace collapsed", "The   Thing", "The Thing"},
		{"tags only falls back to raw", "[EN]", "[EN]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, titles.Clean(tc.input))
		})
	}
}

func TestSplitYear(t *testing.T) {
	base, year := titles.SplitYear("The Thing (1982)")
	assert.Equal(t, "The Thing", base)
	assert.Equal(t, 1982, year)

	base, year = titles.SplitYear("The Thing")
	assert.Equal(t, "The Thing", base)
	assert.Zero(t, year)

	// A year-like number mid-name is not a year suffix.
	base, year = titles.SplitYear("2012 (2009)")
	assert.Equal(t, "2012", base)
	assert.Equal(t, 2009, year)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b", titles.SanitizeFilename("a/b"))
	assert.Equal(t, "what-", titles.SanitizeFilename("what?"))
	assert.Equal(t, "hidden", titles.SanitizeFilename("...hidden"))
	assert.Equal(t, "untitled", titles.SanitizeFilename("---"))
}

func TestFolderName(t *testing.T) {
	assert.Equal(t, "Alien- Covenant (2017)", titles.FolderName("EN - Alien: Covenant (2017) 4K"))
}
