package models

import "time"

// Column headers shared by both workbooks. 序号 holds the page sequence number, not the rank.
const (
	ColPageIndex = "序号"
	ColTitle     = "标题"
	ColLink      = "链接"
	ColRating    = "评分"
	ColYearGenre = "年份和类型"
	ColCast      = "参演人员"
	ColYear      = "年份"
	ColGenre     = "类型"
)

// RawColumns is the fixed column order of the raw scrape workbook
var RawColumns = []string{ColPageIndex, ColTitle, ColLink, ColRating, ColYearGenre, ColCast}

// SplitColumns is the column order after the year/genre split (combined column dropped, derived ones appended)
var SplitColumns = []string{ColPageIndex, ColTitle, ColLink, ColRating, ColCast, ColYear, ColGenre}

// MovieRecord is one ranked entry as extracted from a list page.
// PageIndex is the 1-based sequence number of the page it came from, NOT the entry's rank.
type MovieRecord struct {
	PageIndex int
	Title     string
	Link      string
	Rating    string // Kept as text so precision survives the workbook round-trip
	YearGenre string // Combined "YYYY / genre / genre" text
	Cast      string
}

// SplitRecord is a MovieRecord after the combined year/genre field has been split
type SplitRecord struct {
	PageIndex int
	Title     string
	Link      string
	Rating    string
	Cast      string
	Year      string // Digits only
	Genre     string // Space-joined
}

// MovieDataset is the ordered table of records, indexed by insertion order
type MovieDataset []MovieRecord

// SplitDataset is the ordered table after normalization
type SplitDataset []SplitRecord

// PageDBEntry stores the outcome of one list page in the page ledger
type PageDBEntry struct {
	RunID       string     `json:"run_id"`
	PageIndex   int        `json:"page_index"`
	Offset      int        `json:"offset"`
	Status      PageStatus `json:"status"`
	ErrorType   string     `json:"error_type,omitempty"`   // Error category (on failure/partial)
	Records     int        `json:"records"`                // Records contributed by this page
	ContentHash string     `json:"content_hash,omitempty"` // SHA-256 of the fetched body
	LastAttempt time.Time  `json:"last_attempt"`
}

// CrawlMetadata summarizes one crawl run, written as YAML next to the workbooks.
type CrawlMetadata struct {
	RunID          string         `yaml:"run_id"`
	BaseURL        string         `yaml:"base_url"`
	CrawlStartTime time.Time      `yaml:"crawl_start_time"`
	CrawlEndTime   time.Time      `yaml:"crawl_end_time"`
	TotalRecords   int            `yaml:"total_records"`
	FailedPages    int            `yaml:"failed_pages"`
	RawWorkbook    ArtifactInfo   `yaml:"raw_workbook"`
	Pages          []PageMetadata `yaml:"pages"`
}

// ArtifactInfo describes one written file
type ArtifactInfo struct {
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256,omitempty"`
}

// PageMetadata holds metadata for a single list page of a run.
type PageMetadata struct {
	PageIndex int        `yaml:"page_index"`
	Offset    int        `yaml:"offset"`
	URL       string     `yaml:"url"`
	Status    PageStatus `yaml:"status"`
	ErrorType string     `yaml:"error_type,omitempty"`
	Records   int        `yaml:"records"`
}
