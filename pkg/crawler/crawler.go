// Package crawler drives the sequential walk over the ranking list pages and
// assembles the scraped records into the raw and split workbooks.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/top250-scraper/pkg/config"
	"github.com/Sriram-PR/top250-scraper/pkg/dataset"
	"github.com/Sriram-PR/top250-scraper/pkg/extract"
	"github.com/Sriram-PR/top250-scraper/pkg/fetch"
	"github.com/Sriram-PR/top250-scraper/pkg/models"
	"github.com/Sriram-PR/top250-scraper/pkg/normalize"
	"github.com/Sriram-PR/top250-scraper/pkg/storage"
	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

// Crawler walks the list pages one at a time
type Crawler struct {
	log       *logrus.Entry
	appCfg    *config.AppConfig
	runID     string
	fetcher   fetch.PageFetcher
	extractor extract.PageExtractor
	store     storage.PageLedger // nil = no ledger
	output    *OutputManager
}

// Result summarizes a finished Run
type Result struct {
	RunID        string
	Records      models.MovieDataset
	Pages        []models.PageMetadata
	FailedPages  int
	RawWorkbook  string
	MetadataFile string // "" when the metadata could not be written
}

// NewCrawler wires the run's components. appCfg must already be validated.
func NewCrawler(
	appCfg *config.AppConfig,
	fetcher fetch.PageFetcher,
	extractor extract.PageExtractor,
	store storage.PageLedger,
	baseLogger *logrus.Entry,
) *Crawler {
	runID := uuid.NewString()
	logger := baseLogger.WithField("run_id", runID)
	return &Crawler{
		log:       logger,
		appCfg:    appCfg,
		runID:     runID,
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		output:    NewOutputManager(logger.WithField("component", "output"), appCfg, runID),
	}
}

// RunID identifies this crawler's run in logs, the ledger and the metadata file
func (c *Crawler) RunID() string {
	return c.runID
}

// PageOffsets lists the start offsets 0, pageSize, 2*pageSize, ... below total.
func PageOffsets(pageSize, total int) []int {
	if pageSize <= 0 || total <= 0 {
		return nil
	}
	offsets := make([]int, 0, (total+pageSize-1)/pageSize)
	for off := 0; off < total; off += pageSize {
		offsets = append(offsets, off)
	}
	return offsets
}

// PageURL builds the list page address for one offset
func PageURL(baseURL string, offset int) string {
	return fmt.Sprintf("%s/top250?start=%d&filter=", strings.TrimRight(baseURL, "/"), offset)
}

// Run fetches every page in order, appends the extracted records and writes the
// raw workbook. Per-page failures are logged and skipped; a workbook write
// failure or cancellation of ctx ends the run with an error.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	offsets := PageOffsets(c.appCfg.PageSize, c.appCfg.TotalEntries)
	c.log.WithField("base_url", c.appCfg.BaseURL).Infof("Crawl starting over %d page(s)...", len(offsets))
	startTime := time.Now()

	var records models.MovieDataset
	for i, offset := range offsets {
		if err := ctx.Err(); err != nil {
			c.log.Warnf("Crawl cancelled before page %d: %v", i+1, err)
			return nil, err
		}
		records = c.crawlPage(ctx, records, i+1, offset)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rawPath := c.appCfg.OutputPath(c.appCfg.RawWorkbook)
	if err := dataset.WriteRaw(rawPath, c.appCfg.SheetName, records); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       c.runID,
		Records:     records,
		Pages:       c.output.Pages(),
		FailedPages: c.output.FailedPages(),
		RawWorkbook: rawPath,
	}

	metaPath, err := c.output.WriteMetadataYAML(len(records), rawPath)
	if err != nil {
		c.log.Errorf("Failed to write crawl metadata: %v", err)
	}
	res.MetadataFile = metaPath

	if c.store != nil && c.appCfg.WritePageLog {
		if err := c.store.WritePageLog(c.appCfg.OutputPath(c.appCfg.PageLogFile)); err != nil {
			c.log.Errorf("Failed to write page log: %v", err)
		}
	}

	c.log.WithFields(logrus.Fields{
		"records":      len(records),
		"failed_pages": res.FailedPages,
		"duration":     time.Since(startTime).String(),
	}).Infof("Crawl finished, raw workbook written to %s", rawPath)
	return res, nil
}

// crawlPage fetches and extracts one page and returns acc extended with its records.
// A panic while handling the page leaves acc as it was.
func (c *Crawler) crawlPage(ctx context.Context, acc models.MovieDataset, pageIndex, offset int) (out models.MovieDataset) {
	out = acc
	pageURL := PageURL(c.appCfg.BaseURL, offset)
	pageLog := c.log.WithFields(logrus.Fields{"page": pageIndex, "offset": offset})
	startTime := time.Now()

	var (
		status      models.PageStatus
		pageErr     error
		contentHash string
		added       int
	)

	defer func() {
		if r := recover(); r != nil {
			out, added = acc, 0
			pageErr = fmt.Errorf("panic: %v", r)
			status = models.PageStatusFailure
			pageLog.WithField("stack_trace", string(debug.Stack())).Error("PANIC recovered while crawling page")
		}

		errorType := ""
		logFields := logrus.Fields{"duration": time.Since(startTime).String(), "records": added}
		if pageErr != nil {
			errorType = utils.CategorizeError(pageErr)
			logFields["category"] = errorType
		}
		switch status {
		case models.PageStatusSuccess:
			pageLog.WithFields(logFields).Info("Page crawled")
		case models.PageStatusPartial:
			pageLog.WithFields(logFields).Warnf("Page partially extracted: %v", pageErr)
		default:
			pageLog.WithFields(logFields).Warnf("Page skipped: %v", pageErr)
		}

		c.output.RecordPage(models.PageMetadata{
			PageIndex: pageIndex,
			Offset:    offset,
			URL:       pageURL,
			Status:    status,
			ErrorType: errorType,
			Records:   added,
		})
		c.recordLedger(pageLog, &models.PageDBEntry{
			RunID:       c.runID,
			PageIndex:   pageIndex,
			Offset:      offset,
			Status:      status,
			ErrorType:   errorType,
			Records:     added,
			ContentHash: contentHash,
			LastAttempt: time.Now(),
		})
	}()

	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		status, pageErr = models.PageStatusFailure, err
		return acc
	}
	contentHash = utils.CalculateStringSHA256(body)

	pageRecords, err := c.extractor.ExtractPage(strings.NewReader(body), pageIndex)
	for _, r := range pageRecords {
		pageLog.WithFields(logrus.Fields{
			"title":      r.Title,
			"link":       r.Link,
			"rating":     r.Rating,
			"year_genre": r.YearGenre,
			"cast":       r.Cast,
		}).Debug("Extracted entry")
	}
	added = len(pageRecords)

	switch {
	case err != nil && added > 0:
		status, pageErr = models.PageStatusPartial, err
	case err != nil:
		status, pageErr = models.PageStatusFailure, err
	default:
		status = models.PageStatusSuccess
		if added == 0 {
			pageLog.Warn("No entries found on page; the markup may have changed or the request was blocked")
		}
	}
	return append(acc, pageRecords...)
}

// recordLedger stores a page outcome; ledger failures never fail the crawl
func (c *Crawler) recordLedger(pageLog *logrus.Entry, entry *models.PageDBEntry) {
	if c.store == nil {
		return
	}
	if err := c.store.RecordPage(entry); err != nil && !errors.Is(err, context.Canceled) {
		pageLog.Warnf("Could not record page in ledger: %v", err)
	}
}

// Split reloads the raw workbook of this crawler's configuration, normalizes every row
// and writes the split workbook.
func (c *Crawler) Split() (models.SplitDataset, error) {
	return SplitWorkbook(c.appCfg, c.log)
}

// SplitWorkbook reads the raw workbook, splits the combined year/genre column into
// year and genre, drops it and writes the split workbook. Nothing links the two
// files: a failure here leaves the raw workbook in place.
func SplitWorkbook(appCfg *config.AppConfig, log *logrus.Entry) (models.SplitDataset, error) {
	rawPath := appCfg.OutputPath(appCfg.RawWorkbook)
	raw, err := dataset.ReadRaw(rawPath, appCfg.SheetName)
	if err != nil {
		return nil, err
	}

	split := normalize.NormalizeAll(raw)

	splitPath := appCfg.OutputPath(appCfg.SplitWorkbook)
	if err := dataset.WriteSplit(splitPath, appCfg.SheetName, split); err != nil {
		return nil, err
	}
	log.WithField("records", len(split)).Infof("Split workbook written to %s", splitPath)
	return split, nil
}
