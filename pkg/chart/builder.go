// Package chart renders the bar, pie and scatter charts of the split table as
// standalone HTML pages.
package chart

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/top250-scraper/pkg/config"
	"github.com/Sriram-PR/top250-scraper/pkg/models"
	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

const (
	barTitle     = "豆瓣电影Top 250年份与电影数量柱状图"
	pieTitle     = "豆瓣电影Top 250评分分布"
	scatterTitle = "豆瓣电影评分与年份散点图"

	scatterChartID = "top250_scatter"
)

// Kinds accepted by Build
const (
	KindBar     = "bar"
	KindPie     = "pie"
	KindScatter = "scatter"
	KindAll     = "all"
)

// Opener shows a written chart file to the user
type Opener func(path string) error

// renderer is satisfied by every go-echarts chart
type renderer interface {
	Render(w io.Writer) error
}

// Builder writes charts into the configured output directory
type Builder struct {
	appCfg *config.AppConfig
	log    *logrus.Entry
	open   Opener
}

// NewBuilder creates a Builder that opens the scatter chart with the system's default viewer.
func NewBuilder(appCfg *config.AppConfig, log *logrus.Entry) *Builder {
	return &Builder{appCfg: appCfg, log: log, open: browser.OpenFile}
}

// WithOpener replaces the viewer used for the scatter chart
func (b *Builder) WithOpener(open Opener) *Builder {
	b.open = open
	return b
}

// Build renders one chart kind, or all three for KindAll, and returns the written paths.
func (b *Builder) Build(kind string, rows models.SplitDataset) ([]string, error) {
	var builders []func(models.SplitDataset) (string, error)
	switch kind {
	case KindBar:
		builders = append(builders, b.BuildBar)
	case KindPie:
		builders = append(builders, b.BuildPie)
	case KindScatter:
		builders = append(builders, b.BuildScatter)
	case KindAll, "":
		builders = append(builders, b.BuildBar, b.BuildPie, b.BuildScatter)
	default:
		return nil, fmt.Errorf("%w: unknown chart kind '%s' (want bar, pie, scatter or all)", utils.ErrConfigValidation, kind)
	}

	var paths []string
	for _, build := range builders {
		path, err := build(rows)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// BuildBar writes the movies-per-year bar chart.
func (b *Builder) BuildBar(rows models.SplitDataset) (string, error) {
	counts := CountByYear(rows)
	years := make([]string, len(counts))
	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		years[i] = c.Label
		data[i] = opts.BarData{Name: c.Label, Value: c.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: barTitle, Width: "1100px", Height: "560px"}),
		charts.WithTitleOpts(opts.Title{Title: barTitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: "年份: {b}<br>数量: {c}"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "年份", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "电影数量", Type: "value"}),
	)
	bar.SetXAxis(years).AddSeries("数量", data)

	path := b.appCfg.OutputPath(b.appCfg.Charts.BarFile)
	if err := writeChart(path, bar, ""); err != nil {
		return "", err
	}
	b.log.WithField("years", len(counts)).Infof("Bar chart written to %s", path)
	return path, nil
}

// BuildPie writes the rating distribution pie chart.
func (b *Builder) BuildPie(rows models.SplitDataset) (string, error) {
	counts := CountByRating(rows)
	data := make([]opts.PieData, len(counts))
	for i, c := range counts {
		data[i] = opts.PieData{Name: c.Label, Value: c.Count}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pieTitle, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: pieTitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: "评分: {b}<br>数量: {c}"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Orient: "vertical", Right: "2%", Top: "middle"}),
	)
	pie.AddSeries("评分", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"0%", "65%"}}),
	)

	path := b.appCfg.OutputPath(b.appCfg.Charts.PieFile)
	if err := writeChart(path, pie, ""); err != nil {
		return "", err
	}
	b.log.WithField("ratings", len(counts)).Infof("Pie chart written to %s", path)
	return path, nil
}

// scatterTooltip reads the extra dimensions appended to every point's value
const scatterTooltip = `function (p) {
  var v = p.value;
  return '<b>' + v[2] + '</b><br>评分: ' + v[0] + '<br>年份: ' + v[1] +
    '<br>类型: ' + v[3] + '<br>参演人员: ' + v[4];
}`

// scatterClickScript opens a point's detail page in a new tab
const scatterClickScript = `<script type="text/javascript">
(function () {
  var el = document.getElementById('` + scatterChartID + `');
  var chart = el && echarts.getInstanceByDom(el);
  if (!chart) { return; }
  chart.on('click', function (p) {
    var link = p.value && p.value[5];
    if (link) { window.open(link, '_blank'); }
  });
})();
</script>
`

// BuildScatter writes the jittered rating/year scatter plot of the first
// charts.scatter_rows rows and opens it when charts.open_scatter is set.
func (b *Builder) BuildScatter(rows models.SplitDataset) (string, error) {
	chCfg := b.appCfg.Charts
	unique := DedupeRatingYear(rows, chCfg.ScatterRows)
	points := ScatterPoints(unique, chCfg.JitterAmount, chCfg.JitterSeed)
	if skipped := len(unique) - len(points); skipped > 0 {
		b.log.Warnf("Skipped %d scatter row(s) without a numeric rating or year", skipped)
	}

	data := make([]opts.ScatterData, len(points))
	for i, p := range points {
		data[i] = opts.ScatterData{
			Name:       p.Title,
			Value:      []interface{}{p.Rating, p.Year, p.Title, p.Genre, p.Cast, p.Link},
			SymbolSize: 9,
		}
	}

	xAxis := opts.XAxis{Name: "评分", Type: "value", SplitLine: &opts.SplitLine{Show: opts.Bool(true)}}
	yAxis := opts.YAxis{Name: "年份", Type: "value", SplitLine: &opts.SplitLine{Show: opts.Bool(true)}}
	ratingRange, yearRange := ratingYearRanges(rows)
	if ratingRange.OK {
		xAxis.Min, xAxis.Max = ratingRange.Min, ratingRange.Max
	}
	if yearRange.OK {
		yAxis.Min, yAxis.Max = yearRange.Min, yearRange.Max
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: scatterTitle, ChartID: scatterChartID, Width: "1200px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: scatterTitle, TitleStyle: &opts.TextStyle{FontSize: 20}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: opts.FuncOpts(scatterTooltip)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(yAxis),
	)
	scatter.AddSeries("电影", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top", Formatter: "{b}"}),
	)

	path := b.appCfg.OutputPath(chCfg.ScatterFile)
	if err := writeChart(path, scatter, scatterClickScript); err != nil {
		return "", err
	}
	b.log.WithField("points", len(points)).Infof("Scatter chart written to %s", path)

	if b.appCfg.ShouldOpenScatter() && b.open != nil {
		if err := b.open(path); err != nil {
			b.log.Warnf("Could not open %s: %v", path, err)
		}
	}
	return path, nil
}

// writeChart renders c to path, inserting script just before </body>.
func writeChart(path string, c renderer, script string) error {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return fmt.Errorf("%w: render chart '%s': %w", utils.ErrFilesystem, path, err)
	}
	page := buf.Bytes()
	if script != "" {
		page = injectBeforeBodyEnd(page, []byte(script))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create directory '%s': %w", utils.ErrFilesystem, dir, err)
		}
	}
	if err := os.WriteFile(path, page, 0644); err != nil {
		return fmt.Errorf("%w: write chart '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

func injectBeforeBodyEnd(page, script []byte) []byte {
	i := bytes.LastIndex(page, []byte("</body>"))
	if i < 0 {
		return append(page, script...)
	}
	out := make([]byte, 0, len(page)+len(script))
	out = append(out, page[:i]...)
	out = append(out, script...)
	return append(out, page[i:]...)
}
