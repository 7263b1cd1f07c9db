package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

// Validate checks AppConfig fields and applies defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// BaseURL
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	u, parseErr := url.Parse(c.BaseURL)
	if parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return warnings, fmt.Errorf("%w: base_url '%s' must be an absolute http(s) URL", utils.ErrConfigValidation, c.BaseURL)
	}

	// UserAgent
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = DefaultUserAgent
	}

	// Pagination
	if c.PageSize < 0 {
		return warnings, fmt.Errorf("%w: page_size cannot be negative", utils.ErrConfigValidation)
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.TotalEntries < 0 {
		return warnings, fmt.Errorf("%w: total_entries cannot be negative", utils.ErrConfigValidation)
	}
	if c.TotalEntries == 0 {
		c.TotalEntries = DefaultTotalEntries
	}
	if c.TotalEntries%c.PageSize != 0 {
		warnings = append(warnings, fmt.Sprintf(
			"total_entries (%d) is not a multiple of page_size (%d); the last page will be short",
			c.TotalEntries, c.PageSize))
	}

	// Output files
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.SheetName == "" {
		c.SheetName = DefaultSheetName
	}
	if len([]rune(c.SheetName)) > 31 {
		return warnings, fmt.Errorf("%w: sheet_name '%s' exceeds 31 characters", utils.ErrConfigValidation, c.SheetName)
	}
	if c.RawWorkbook == "" {
		c.RawWorkbook = DefaultRawWorkbook
	}
	if c.SplitWorkbook == "" {
		c.SplitWorkbook = DefaultSplitWorkbook
	}
	if c.RawWorkbook == c.SplitWorkbook {
		return warnings, fmt.Errorf("%w: raw_workbook and split_workbook must differ", utils.ErrConfigValidation)
	}
	if c.MetadataYAMLFile == "" {
		c.MetadataYAMLFile = DefaultMetadataFile
	}
	if c.ReportFile == "" {
		c.ReportFile = DefaultReportFile
	}
	if c.PageLogFile == "" {
		c.PageLogFile = DefaultPageLogFile
	}

	// Selectors
	def := DefaultSelectors()
	s := &c.Selectors
	if s.Item == "" {
		s.Item = def.Item
	}
	if s.Title == "" {
		s.Title = def.Title
	}
	if s.Link == "" {
		s.Link = def.Link
	}
	if s.Rating == "" {
		s.Rating = def.Rating
	}
	if s.Info == "" {
		s.Info = def.Info
	}

	warnings = append(warnings, c.validateCharts()...)
	c.validateHTTPClientSettings()

	return warnings, nil
}

// validateCharts applies defaults to chart settings.
func (c *AppConfig) validateCharts() (warnings []string) {
	ch := &c.Charts
	if ch.BarFile == "" {
		ch.BarFile = DefaultBarFile
	}
	if ch.PieFile == "" {
		ch.PieFile = DefaultPieFile
	}
	if ch.ScatterFile == "" {
		ch.ScatterFile = DefaultScatterFile
	}
	if ch.ScatterRows <= 0 {
		if ch.ScatterRows < 0 {
			warnings = append(warnings, fmt.Sprintf("charts.scatter_rows cannot be negative, defaulting to %d", DefaultScatterRows))
		}
		ch.ScatterRows = DefaultScatterRows
	}
	if ch.JitterAmount < 0 {
		warnings = append(warnings, "charts.jitter_amount cannot be negative, using its absolute value")
		ch.JitterAmount = -ch.JitterAmount
	}
	if ch.JitterAmount == 0 {
		ch.JitterAmount = DefaultJitterAmount
	}
	if ch.JitterSeed == 0 {
		ch.JitterSeed = DefaultJitterSeed
	}
	return warnings
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 30 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 10
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
