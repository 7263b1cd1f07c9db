package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/top250-scraper/pkg/config"
	"github.com/Sriram-PR/top250-scraper/pkg/models"
	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func row(title, rating, year string) models.SplitRecord {
	return models.SplitRecord{
		PageIndex: 1,
		Title:     title,
		Link:      "https://movie.douban.com/subject/" + title + "/",
		Rating:    rating,
		Year:      year,
		Genre:     "剧情",
		Cast:      "主演: 某某",
	}
}

func TestCountByYear(t *testing.T) {
	rows := models.SplitDataset{
		row("a", "9.0", "1994"),
		row("b", "9.1", "2001"),
		row("c", "9.2", "1994"),
		row("d", "9.3", ""),
		row("e", "9.4", "1957"),
		row("f", "9.5", "2001"),
		row("g", "9.6", "1994"),
	}

	got := CountByYear(rows)

	assert.Equal(t, []Count{{"1957", 1}, {"1994", 3}, {"2001", 2}}, got)
}

func TestCountByYear_NumericOrder(t *testing.T) {
	rows := models.SplitDataset{row("a", "9", "19611961"), row("b", "9", "2001"), row("c", "9", "999")}

	got := CountByYear(rows)

	require.Len(t, got, 3)
	assert.Equal(t, "999", got[0].Label)
	assert.Equal(t, "2001", got[1].Label)
	assert.Equal(t, "19611961", got[2].Label)
}

func TestCountByRating(t *testing.T) {
	rows := models.SplitDataset{
		row("a", "9.0", "1"),
		row("b", "8.8", "1"),
		row("c", "9.0", "1"),
		row("d", "9.2", "1"),
		row("e", "8.8", "1"),
		row("f", "", "1"),
		row("g", "9.2", "1"),
		row("h", "9.0", "1"),
		row("i", "8.5", "1"),
	}

	got := CountByRating(rows)

	// ties (8.8 and 9.2 both twice) keep first-appearance order
	assert.Equal(t, []Count{{"9.0", 3}, {"8.8", 2}, {"9.2", 2}, {"8.5", 1}}, got)
}

func TestDedupeRatingYear(t *testing.T) {
	var rows models.SplitDataset
	distinct := make(map[[2]string]bool)
	for i := 0; i < 150; i++ {
		rating := fmt.Sprintf("%d.%d", 8+i%2, i%5)
		year := fmt.Sprint(1990 + i%7)
		rows = append(rows, row(fmt.Sprint(i), rating, year))
		distinct[[2]string{rating, year}] = true
	}

	got := DedupeRatingYear(rows, 150)

	assert.Len(t, got, len(distinct))
	assert.Equal(t, "0", got[0].Title, "first occurrence is kept")
	seen := make(map[[2]string]bool)
	for _, r := range got {
		k := [2]string{r.Rating, r.Year}
		assert.False(t, seen[k], "pair %v appears twice", k)
		seen[k] = true
	}
}

func TestDedupeRatingYear_Limit(t *testing.T) {
	rows := models.SplitDataset{
		row("a", "9.0", "1994"),
		row("b", "9.0", "1994"),
		row("c", "9.1", "1994"),
		row("d", "9.2", "1994"),
	}

	assert.Len(t, DedupeRatingYear(rows, 3), 2)
	assert.Len(t, DedupeRatingYear(rows, 10), 3)
	assert.Empty(t, DedupeRatingYear(rows, 0))
}

func TestJitter_Reproducible(t *testing.T) {
	r1, y1 := Jitter(150, 4, 42)
	r2, y2 := Jitter(150, 4, 42)

	require.Len(t, r1, 150)
	require.Len(t, y1, 150)
	assert.Equal(t, r1, r2)
	assert.Equal(t, y1, y2)
	assert.NotEqual(t, r1, y1, "year noise continues the stream after rating noise")

	r3, _ := Jitter(150, 4, 7)
	assert.NotEqual(t, r1, r3)
}

func TestJitter_RatingNoiseDrawnFirst(t *testing.T) {
	rAll, yAll := Jitter(3, 1, 42)
	r6, _ := Jitter(6, 1, 42)

	// With n=3 the year noise is the 4th..6th draw of the same stream
	assert.Equal(t, r6[:3], rAll)
	assert.Equal(t, r6[3:], yAll)
}

func TestJitter_Amount(t *testing.T) {
	unit, _ := Jitter(20, 1, 42)
	scaled, _ := Jitter(20, 4, 42)
	for i := range unit {
		assert.InDelta(t, 4*unit[i], scaled[i], 1e-12)
	}
}

func TestScatterPoints(t *testing.T) {
	rows := models.SplitDataset{
		row("a", "9.7", "1994"),
		row("b", "", "1993"),
		row("c", "9.5", "abc"),
		row("d", "8.8", "2001"),
	}

	points := ScatterPoints(rows, 4, 42)

	require.Len(t, points, 2)
	noiseR, noiseY := Jitter(4, 4, 42)
	assert.Equal(t, "a", points[0].Title)
	assert.InDelta(t, 9.7+noiseR[0], points[0].Rating, 0.05+1e-9)
	assert.Equal(t, int(1994+noiseY[0]), points[0].Year)
	assert.Equal(t, "d", points[1].Title, "noise index follows the row, not the kept point")
	assert.Equal(t, int(2001+noiseY[3]), points[1].Year)
	assert.Equal(t, "https://movie.douban.com/subject/d/", points[1].Link)

	for _, p := range points {
		assert.InDelta(t, math.Round(p.Rating*10), p.Rating*10, 1e-9, "rounded to one decimal")
	}
}

func TestScatterPoints_Reproducible(t *testing.T) {
	var rows models.SplitDataset
	for i := 0; i < 150; i++ {
		rows = append(rows, row(fmt.Sprint(i), fmt.Sprintf("%d.%d", 8+i%2, i%10), fmt.Sprint(1940+i%80)))
	}
	unique := DedupeRatingYear(rows, 150)

	assert.Equal(t, ScatterPoints(unique, 4, 42), ScatterPoints(unique, 4, 42))
}

func TestRatingYearRanges(t *testing.T) {
	rows := models.SplitDataset{
		row("a", "9.7", "1994"),
		row("b", "8.3", "1931"),
		row("c", "", "2023"),
		row("d", "9.0", ""),
	}

	rating, year := ratingYearRanges(rows)

	require.True(t, rating.OK)
	require.True(t, year.OK)
	assert.InDelta(t, 8.2, rating.Min, 1e-9)
	assert.InDelta(t, 9.8, rating.Max, 1e-9)
	assert.Equal(t, 1926.0, year.Min)
	assert.Equal(t, 2028.0, year.Max)

	rating, year = ratingYearRanges(nil)
	assert.False(t, rating.OK)
	assert.False(t, year.OK)
}

func newTestBuilder(t *testing.T) (*Builder, *config.AppConfig, *[]string) {
	t.Helper()
	cfg := &config.AppConfig{OutputDir: t.TempDir()}
	_, err := cfg.Validate()
	require.NoError(t, err)

	var opened []string
	b := NewBuilder(cfg, testLogger()).WithOpener(func(path string) error {
		opened = append(opened, path)
		return nil
	})
	return b, cfg, &opened
}

func sampleRows() models.SplitDataset {
	return models.SplitDataset{
		row("肖申克的救赎", "9.7", "1994"),
		row("霸王别姬", "9.6", "1993"),
		row("阿甘正传", "9.5", "1994"),
		row("泰坦尼克号", "9.5", "1997"),
	}
}

func TestBuildBar(t *testing.T) {
	b, cfg, opened := newTestBuilder(t)

	path, err := b.BuildBar(sampleRows())

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, config.DefaultBarFile), path)
	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), barTitle)
	assert.Contains(t, string(html), "电影数量")
	assert.Empty(t, *opened)
}

func TestBuildPie(t *testing.T) {
	b, cfg, _ := newTestBuilder(t)

	path, err := b.BuildPie(sampleRows())

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, config.DefaultPieFile), path)
	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), pieTitle)
}

func TestBuildScatter(t *testing.T) {
	b, cfg, opened := newTestBuilder(t)

	path, err := b.BuildScatter(sampleRows())

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, config.DefaultScatterFile), path)
	html, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, scatterTitle)
	assert.Contains(t, page, scatterChartID)
	assert.Contains(t, page, "肖申克的救赎")
	assert.Contains(t, page, "window.open")
	assert.Less(t, strings.Index(page, "window.open"), strings.LastIndex(page, "</body>"))
	assert.Equal(t, []string{path}, *opened)
}

func TestBuildScatter_OpenDisabled(t *testing.T) {
	b, cfg, opened := newTestBuilder(t)
	off := false
	cfg.Charts.OpenScatter = &off

	_, err := b.BuildScatter(sampleRows())

	require.NoError(t, err)
	assert.Empty(t, *opened)
}

func TestBuildScatter_OpenFailureIsNotFatal(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	b.WithOpener(func(string) error { return errors.New("no display") })

	_, err := b.BuildScatter(sampleRows())

	assert.NoError(t, err)
}

func TestBuild_All(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	paths, err := b.Build(KindAll, sampleRows())

	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	_, err := b.Build("line", sampleRows())

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrConfigValidation))
}

func TestBuild_WriteFailure(t *testing.T) {
	b, cfg, _ := newTestBuilder(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.OutputDir = filepath.Join(blocker, "charts")

	_, err := b.Build(KindBar, sampleRows())

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrFilesystem))
}

func TestInjectBeforeBodyEnd(t *testing.T) {
	assert.Equal(t, "<body>a<s/></body></html>", string(injectBeforeBodyEnd([]byte("<body>a</body></html>"), []byte("<s/>"))))
	assert.Equal(t, "abc<s/>", string(injectBeforeBodyEnd([]byte("abc"), []byte("<s/>"))))
}
