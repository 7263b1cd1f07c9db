package chart

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/Sriram-PR/top250-scraper/pkg/models"
)

// Count is one category of an aggregation and how many rows fall into it
type Count struct {
	Label string
	Count int
}

// CountByYear counts rows per year, ordered by ascending year.
// Rows without a year are not counted.
func CountByYear(rows models.SplitDataset) []Count {
	counts := countBy(rows, func(r models.SplitRecord) string { return r.Year })
	sort.SliceStable(counts, func(i, j int) bool {
		return yearLess(counts[i].Label, counts[j].Label)
	})
	return counts
}

// CountByRating counts rows per rating, most frequent first.
// Equal counts keep the order in which the ratings first appear.
func CountByRating(rows models.SplitDataset) []Count {
	counts := countBy(rows, func(r models.SplitRecord) string { return r.Rating })
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// countBy groups by key in first-appearance order, skipping blank keys
func countBy(rows models.SplitDataset, key func(models.SplitRecord) string) []Count {
	index := make(map[string]int)
	var counts []Count
	for _, r := range rows {
		k := strings.TrimSpace(key(r))
		if k == "" {
			continue
		}
		if i, ok := index[k]; ok {
			counts[i].Count++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, Count{Label: k, Count: 1})
	}
	return counts
}

func yearLess(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return ai < bi
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// DedupeRatingYear takes the first limit rows and keeps the first row of every
// distinct (rating, year) pair. Pairs are compared as text.
func DedupeRatingYear(rows models.SplitDataset, limit int) models.SplitDataset {
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	type pair struct{ rating, year string }
	seen := make(map[pair]bool, len(rows))
	out := make(models.SplitDataset, 0, len(rows))
	for _, r := range rows {
		p := pair{r.Rating, r.Year}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, r)
	}
	return out
}

// Jitter draws amount*N(0,1) noise for n points from a generator seeded with seed.
// All rating noise is drawn before any year noise, so the same (n, amount, seed)
// always yields identical slices.
func Jitter(n int, amount float64, seed int64) (ratingNoise, yearNoise []float64) {
	rng := rand.New(rand.NewSource(seed))
	ratingNoise = make([]float64, n)
	for i := range ratingNoise {
		ratingNoise[i] = amount * rng.NormFloat64()
	}
	yearNoise = make([]float64, n)
	for i := range yearNoise {
		yearNoise[i] = amount * rng.NormFloat64()
	}
	return ratingNoise, yearNoise
}

// ScatterPoint is one jittered movie on the rating/year plane
type ScatterPoint struct {
	Rating float64
	Year   int
	Title  string
	Genre  string
	Cast   string
	Link   string
}

// ScatterPoints jitters already deduplicated rows. Noise is drawn for every row;
// rows whose rating or year is not numeric are then dropped. Ratings are rounded
// half-to-even to one decimal, years truncated toward zero.
func ScatterPoints(rows models.SplitDataset, amount float64, seed int64) []ScatterPoint {
	ratingNoise, yearNoise := Jitter(len(rows), amount, seed)
	points := make([]ScatterPoint, 0, len(rows))
	for i, r := range rows {
		rating, errR := strconv.ParseFloat(strings.TrimSpace(r.Rating), 64)
		year, errY := strconv.ParseFloat(strings.TrimSpace(r.Year), 64)
		if errR != nil || errY != nil {
			continue
		}
		points = append(points, ScatterPoint{
			Rating: math.RoundToEven((rating+ratingNoise[i])*10) / 10,
			Year:   int(year + yearNoise[i]),
			Title:  r.Title,
			Genre:  r.Genre,
			Cast:   r.Cast,
			Link:   r.Link,
		})
	}
	return points
}

// axisRange is a padded [Min, Max] over the numeric values of one column
type axisRange struct {
	Min, Max float64
	OK       bool // false when no value parsed
}

// ratingYearRanges spans the whole table: ratings padded by 0.1, years by 5.
func ratingYearRanges(rows models.SplitDataset) (rating, year axisRange) {
	for _, r := range rows {
		if v, err := strconv.ParseFloat(strings.TrimSpace(r.Rating), 64); err == nil {
			rating = widen(rating, v)
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(r.Year), 64); err == nil {
			year = widen(year, v)
		}
	}
	if rating.OK {
		rating.Min, rating.Max = round1(rating.Min-0.1), round1(rating.Max+0.1)
	}
	if year.OK {
		year.Min, year.Max = year.Min-5, year.Max+5
	}
	return rating, year
}

func widen(a axisRange, v float64) axisRange {
	if !a.OK {
		return axisRange{Min: v, Max: v, OK: true}
	}
	a.Min = math.Min(a.Min, v)
	a.Max = math.Max(a.Max, v)
	return a
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
