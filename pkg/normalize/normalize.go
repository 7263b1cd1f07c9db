// Package normalize splits the combined year/genre field of scraped records.
package normalize

import (
	"strings"
	"unicode"

	"github.com/Sriram-PR/top250-scraper/pkg/models"
)

const segmentSep = "/"

// SplitYearGenre splits a combined "YYYY / genre / genre" string.
//
// The year is the first "/"-separated segment with every character that is not a
// Unicode decimal digit removed, so "1994(中国大陆)" becomes "1994" and full-width
// digits are kept as they are. Region codes or other digits in
// that segment end up in the year as well; the heuristic is lossy on purpose.
//
// The genre is every remaining segment, trimmed, with empty segments dropped,
// joined by a single space. A string without "/" yields its digits and "".
func SplitYearGenre(s string) (year, genre string) {
	segments := strings.Split(s, segmentSep)
	year = digitsOnly(segments[0])

	parts := make([]string, 0, len(segments)-1)
	for _, seg := range segments[1:] {
		// TrimSpace covers U+00A0, which the list markup uses around separators
		if seg = strings.TrimSpace(seg); seg != "" {
			parts = append(parts, seg)
		}
	}
	return year, strings.Join(parts, " ")
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// NormalizeRecord drops the combined field and fills Year and Genre.
func NormalizeRecord(r models.MovieRecord) models.SplitRecord {
	year, genre := SplitYearGenre(r.YearGenre)
	return models.SplitRecord{
		PageIndex: r.PageIndex,
		Title:     r.Title,
		Link:      r.Link,
		Rating:    r.Rating,
		Cast:      r.Cast,
		Year:      year,
		Genre:     genre,
	}
}

// NormalizeAll normalizes every row, keeping order and row count.
func NormalizeAll(ds models.MovieDataset) models.SplitDataset {
	out := make(models.SplitDataset, 0, len(ds))
	for _, r := range ds {
		out = append(out, NormalizeRecord(r))
	}
	return out
}
