package storage

import (
	"github.com/Sriram-PR/top250-scraper/pkg/models"
)

// PageLedger records what happened to each list page during a run
type PageLedger interface {
	// RecordPage stores the outcome of one page, keyed by its offset.
	// A later call for the same offset overwrites the earlier one.
	RecordPage(entry *models.PageDBEntry) error

	// CheckPageStatus retrieves the recorded outcome for an offset.
	// Returns PageStatusNotFound (and a nil entry) when nothing was recorded,
	// PageStatusDBError together with the error when the lookup failed.
	CheckPageStatus(offset int) (status models.PageStatus, entry *models.PageDBEntry, err error)

	// Pages returns every recorded entry in offset order
	Pages() ([]models.PageDBEntry, error)

	// WritePageLog writes one tab-separated line per recorded page to filePath
	WritePageLog(filePath string) error

	// Close cleanly closes the database connection
	Close() error
}
