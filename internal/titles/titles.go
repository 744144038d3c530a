// Title cleanup heuristics for provider-supplied names. IPTV catalogs prefix
// and suffix names with provider tags, country codes and quality markers that
// must not leak into library folder names.
package titles

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Bracketed provider tags anywhere in the name: [EN], [Multi-Sub], (H265).
	bracketTagRe = regexp.MustCompile(`\[[^\]]*\]`)
	// Pipe-delimited tags: |FHD|, | 4K |.
	pipeTagRe = regexp.MustCompile(`\|[^|]*\|`)
	// Leading country / language prefixes: "EN - ", "DE: ", "VOD:".
	prefixRe = regexp.MustCompile(`^(?:[A-Z]{2,3}\s*[-:|]\s*)+`)
	// Quality and codec suffixes at the end of the name.
	qualityRe = regexp.MustCompile(`(?i)[\s\-]*(?:4k|uhd|fhd|hd|sd|720p|1080p|2160p|h\.?26[45]|hevc|x26[45]|multi-?sub(?:s)?)\s*$`)
	// Trailing year in parentheses, captured separately.
	yearRe = regexp.MustCompile(`\s*\((19|20)\d{2}\)\s*$`)
	// Characters that are unsafe in file and directory names.
	unsafeRe     = regexp.MustCompile(`[\x00\\/:*?"<>|]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Clean strips provider tags, prefixes and quality markers from a raw catalog
// name. The year suffix, when present, is preserved.
func Clean(name string) string {
	cleaned := bracketTagRe.ReplaceAllString(name, " ")
	cleaned = pipeTagRe.ReplaceAllString(cleaned, " ")
	cleaned = prefixRe.ReplaceAllString(strings.TrimSpace(cleaned), "")

	// Pull the year off before stripping quality suffixes so "Movie (2021) 4K"
	// keeps its year.
	base, year := SplitYear(cleaned)
	base = qualityRe.ReplaceAllString(base, "")
	base = whitespaceRe.ReplaceAllString(strings.TrimSpace(base), " ")
	if base == "" {
		base = strings.TrimSpace(whitespaceRe.ReplaceAllString(name, " "))
	}
	if year != 0 {
		return base + " (" + strconv.Itoa(year) + ")"
	}
	return base
}

// SplitYear separates a trailing "(2021)" year from a name. Year is 0 when
// none is present.
func SplitYear(name string) (string, int) {
	loc := yearRe.FindStringIndex(name)
	if loc == nil {
		return strings.TrimSpace(name), 0
	}
	yearStr := strings.Trim(strings.TrimSpace(name[loc[0]:]), "()")
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return strings.TrimSpace(name), 0
	}
	return strings.TrimSpace(name[:loc[0]]), year
}

// SanitizeFilename replaces characters that cannot appear in file names.
func SanitizeFilename(filename string) string {
	safe := unsafeRe.ReplaceAllString(filename, "-")

	for strings.HasPrefix(safe, ".") || strings.HasPrefix(safe, "-") {
		safe = safe[1:]
	}
	safe = strings.TrimSpace(safe)
	if safe == "" {
		safe = "untitled"
	}
	return safe
}

// FolderName produces a library-safe folder name from a raw catalog name.
func FolderName(name string) string {
	return SanitizeFilename(Clean(name))
}
