package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

// Defaults applied by Validate
const (
	DefaultBaseURL       = "https://movie.douban.com"
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.0.0"
	DefaultPageSize      = 25
	DefaultTotalEntries  = 250
	DefaultSheetName     = "豆瓣电影top250数据"
	DefaultRawWorkbook   = "豆瓣电影top250数据.xlsx"
	DefaultSplitWorkbook = "豆瓣电影top250数据_年份类型拆分.xlsx"
	DefaultMetadataFile  = "crawl_metadata.yaml"
	DefaultReportFile    = "report.html"
	DefaultPageLogFile   = "page_log.tsv"
	DefaultBarFile       = "豆瓣电影评分分布柱状图.html"
	DefaultPieFile       = "豆瓣电影评分分布.html"
	DefaultScatterFile   = "interactive_scatterplot_plotly_with_jitter.html"
	DefaultScatterRows   = 150
	DefaultJitterAmount  = 4.0
	DefaultJitterSeed    = 42
)

// AppConfig holds the global application configuration
type AppConfig struct {
	BaseURL            string           `yaml:"base_url"`
	UserAgent          string           `yaml:"user_agent"`
	PageSize           int              `yaml:"page_size"`
	TotalEntries       int              `yaml:"total_entries"`
	RespectRobots      bool             `yaml:"respect_robots,omitempty"`
	OutputDir          string           `yaml:"output_dir"`
	StateDir           string           `yaml:"state_dir,omitempty"` // Empty = in-memory page ledger
	SheetName          string           `yaml:"sheet_name"`
	RawWorkbook        string           `yaml:"raw_workbook"`
	SplitWorkbook      string           `yaml:"split_workbook"`
	MetadataYAMLFile   string           `yaml:"metadata_yaml_filename,omitempty"`
	ReportFile         string           `yaml:"report_filename,omitempty"`
	WritePageLog       bool             `yaml:"write_page_log,omitempty"`
	PageLogFile        string           `yaml:"page_log_filename,omitempty"`
	Selectors          SelectorConfig   `yaml:"selectors"`
	Charts             ChartConfig      `yaml:"charts"`
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// SelectorConfig holds the CSS queries used to pull fields out of a list page
type SelectorConfig struct {
	Item   string `yaml:"item"`   // One ranked entry per match
	Title  string `yaml:"title"`  // Relative to item
	Link   string `yaml:"link"`   // Relative to item; href attribute is read
	Rating string `yaml:"rating"` // Relative to item
	Info   string `yaml:"info"`   // Relative to item; paragraph holding cast + year/genre text nodes
}

// ChartConfig holds output names and scatter parameters for the chart stage
type ChartConfig struct {
	BarFile      string  `yaml:"bar_file"`
	PieFile      string  `yaml:"pie_file"`
	ScatterFile  string  `yaml:"scatter_file"`
	ScatterRows  int     `yaml:"scatter_rows"`
	JitterAmount float64 `yaml:"jitter_amount"`
	JitterSeed   int64   `yaml:"jitter_seed"`
	OpenScatter  *bool   `yaml:"open_scatter,omitempty"` // nil = open
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// DefaultSelectors returns the queries matching the Douban Top 250 list markup
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Item:   "#content div.article ol.grid_view > li",
		Title:  "div.info div.hd a span.title",
		Link:   "div.info div.hd a",
		Rating: "div.info div.bd div.star span.rating_num",
		Info:   "div.info div.bd p",
	}
}

// Load reads and parses a YAML config file.
// A missing file is only an error when required is true; otherwise defaults are returned.
func Load(path string, required bool) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return &AppConfig{}, nil
		}
		return nil, fmt.Errorf("%w: read config '%s': %w", utils.ErrFilesystem, path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: YAML config '%s': %w", utils.ErrParsing, path, err)
	}
	return &cfg, nil
}

// OutputPath joins a file name onto the configured output directory
func (c *AppConfig) OutputPath(name string) string {
	return filepath.Join(c.OutputDir, name)
}

// ShouldOpenScatter determines whether the scatter chart is opened after rendering
func (c *AppConfig) ShouldOpenScatter() bool {
	if c.Charts.OpenScatter != nil {
		return *c.Charts.OpenScatter
	}
	return true
}
