// Package report summarizes the split table as a small HTML page.
package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Sriram-PR/top250-scraper/pkg/chart"
	"github.com/Sriram-PR/top250-scraper/pkg/config"
	"github.com/Sriram-PR/top250-scraper/pkg/models"
	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

const (
	pageTitle    = "豆瓣电影Top 250数据报告"
	topGenres    = 10
	previewRows  = 10
	missingValue = "-"
)

// ChartLink points at one chart file relative to the report
type ChartLink struct {
	Title string
	File  string
}

// Summary is everything the report shows
type Summary struct {
	GeneratedAt time.Time
	Records     int
	Rated       int
	RatingMin   string
	RatingMax   string
	YearMin     string
	YearMax     string
	TopGenres   []chart.Count
	Charts      []ChartLink
	Preview     models.SplitDataset
}

// Build computes the summary of rows.
func Build(rows models.SplitDataset, appCfg *config.AppConfig) Summary {
	s := Summary{
		GeneratedAt: time.Now(),
		Records:     len(rows),
		RatingMin:   missingValue,
		RatingMax:   missingValue,
		YearMin:     missingValue,
		YearMax:     missingValue,
		Charts: []ChartLink{
			{Title: "年份与电影数量柱状图", File: appCfg.Charts.BarFile},
			{Title: "评分分布饼图", File: appCfg.Charts.PieFile},
			{Title: "评分与年份散点图", File: appCfg.Charts.ScatterFile},
		},
	}

	var minR, maxR float64
	for _, r := range rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Rating), 64)
		if err != nil {
			continue
		}
		if s.Rated == 0 || v < minR {
			minR, s.RatingMin = v, r.Rating
		}
		if s.Rated == 0 || v > maxR {
			maxR, s.RatingMax = v, r.Rating
		}
		s.Rated++
	}

	if years := chart.CountByYear(rows); len(years) > 0 {
		s.YearMin, s.YearMax = years[0].Label, years[len(years)-1].Label
	}

	s.TopGenres = genreCounts(rows)
	if len(s.TopGenres) > topGenres {
		s.TopGenres = s.TopGenres[:topGenres]
	}

	n := min(previewRows, len(rows))
	s.Preview = append(models.SplitDataset(nil), rows[:n]...)
	return s
}

// genreCounts tallies every space-separated genre token, most frequent first
func genreCounts(rows models.SplitDataset) []chart.Count {
	index := make(map[string]int)
	var counts []chart.Count
	for _, r := range rows {
		for _, g := range strings.Fields(r.Genre) {
			if i, ok := index[g]; ok {
				counts[i].Count++
				continue
			}
			index[g] = len(counts)
			counts = append(counts, chart.Count{Label: g, Count: 1})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// Render formats the summary as Markdown (GFM tables).
func Render(s Summary) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", pageTitle)
	fmt.Fprintf(&b, "生成时间: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("## 概览\n\n")
	b.WriteString("| 项目 | 值 |\n| --- | --- |\n")
	fmt.Fprintf(&b, "| 电影数量 | %d |\n", s.Records)
	fmt.Fprintf(&b, "| 有评分 | %d |\n", s.Rated)
	fmt.Fprintf(&b, "| 评分范围 | %s ~ %s |\n", cell(s.RatingMin), cell(s.RatingMax))
	fmt.Fprintf(&b, "| 年份范围 | %s ~ %s |\n\n", cell(s.YearMin), cell(s.YearMax))

	b.WriteString("## 图表\n\n")
	for _, c := range s.Charts {
		fmt.Fprintf(&b, "- [%s](<%s>)\n", c.Title, filepath.ToSlash(c.File))
	}
	b.WriteString("\n")

	if len(s.TopGenres) > 0 {
		b.WriteString("## 常见类型\n\n")
		b.WriteString("| 类型 | 数量 |\n| --- | ---: |\n")
		for _, g := range s.TopGenres {
			fmt.Fprintf(&b, "| %s | %d |\n", cell(g.Label), g.Count)
		}
		b.WriteString("\n")
	}

	if len(s.Preview) > 0 {
		fmt.Fprintf(&b, "## 前%d条\n\n", len(s.Preview))
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", models.ColPageIndex, models.ColTitle, models.ColRating, models.ColYear, models.ColGenre)
		b.WriteString("| ---: | --- | ---: | ---: | --- |\n")
		for _, r := range s.Preview {
			title := cell(r.Title)
			if r.Link != "" {
				title = fmt.Sprintf("[%s](<%s>)", title, r.Link)
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", r.PageIndex, title, cell(r.Rating), cell(r.Year), cell(r.Genre))
		}
	}
	return b.Bytes()
}

// cell escapes text for a GFM table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	if strings.TrimSpace(s) == "" {
		return missingValue
	}
	return s
}

// Write converts markdown to a standalone HTML page at path.
func Write(path string, markdown []byte) error {
	body, toc, err := toHTML(markdown)
	if err != nil {
		return fmt.Errorf("%w: render report: %w", utils.ErrParsing, err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"zh-CN\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(pageTitle))
	page.WriteString("<style>body{font-family:sans-serif;max-width:960px;margin:2em auto}table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:4px 8px}</style>\n")
	page.WriteString("</head>\n<body>\n")
	if len(toc) > 1 {
		page.WriteString("<nav>\n<ul>\n")
		for _, h := range toc[1:] {
			fmt.Fprintf(&page, "<li><a href=\"#%s\">%s</a></li>\n", html.EscapeString(h.ID), html.EscapeString(h.Text))
		}
		page.WriteString("</ul>\n</nav>\n")
	}
	page.Write(body)
	page.WriteString("</body>\n</html>\n")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create directory '%s': %w", utils.ErrFilesystem, dir, err)
		}
	}
	if err := os.WriteFile(path, page.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: write report '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}
