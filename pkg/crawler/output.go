package crawler

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/top250-scraper/pkg/config"
	"github.com/Sriram-PR/top250-scraper/pkg/models"
	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

// OutputManager collects per-page metadata during a run and writes the
// crawl metadata YAML at the end.
type OutputManager struct {
	log    *logrus.Entry
	appCfg *config.AppConfig
	runID  string

	collectedPageMetadata []models.PageMetadata
	crawlStartTime        time.Time
}

// NewOutputManager creates an OutputManager for one run.
func NewOutputManager(log *logrus.Entry, appCfg *config.AppConfig, runID string) *OutputManager {
	return &OutputManager{
		log:                   log,
		appCfg:                appCfg,
		runID:                 runID,
		collectedPageMetadata: make([]models.PageMetadata, 0),
		crawlStartTime:        time.Now(),
	}
}

// RecordPage appends one page's outcome
func (om *OutputManager) RecordPage(meta models.PageMetadata) {
	om.collectedPageMetadata = append(om.collectedPageMetadata, meta)
}

// Pages returns a copy of the collected page metadata
func (om *OutputManager) Pages() []models.PageMetadata {
	out := make([]models.PageMetadata, len(om.collectedPageMetadata))
	copy(out, om.collectedPageMetadata)
	return out
}

// FailedPages counts pages that contributed no records because of an error.
func (om *OutputManager) FailedPages() int {
	n := 0
	for _, p := range om.collectedPageMetadata {
		if p.Status == models.PageStatusFailure {
			n++
		}
	}
	return n
}

// WriteMetadataYAML writes the run summary next to the workbooks.
// rawWorkbookPath is hashed when readable; a hashing failure only drops the hash.
func (om *OutputManager) WriteMetadataYAML(totalRecords int, rawWorkbookPath string) (string, error) {
	yamlFilePath := om.appCfg.OutputPath(om.appCfg.MetadataYAMLFile)
	om.log.Debugf("Preparing to write crawl metadata to: %s", yamlFilePath)

	artifact := models.ArtifactInfo{Path: filepath.ToSlash(rawWorkbookPath)}
	if rawWorkbookPath != "" {
		hash, err := utils.CalculateFileSHA256(rawWorkbookPath)
		if err != nil {
			om.log.Warnf("Could not hash raw workbook for metadata: %v", err)
		} else {
			artifact.SHA256 = hash
		}
	}

	metadata := models.CrawlMetadata{
		RunID:          om.runID,
		BaseURL:        om.appCfg.BaseURL,
		CrawlStartTime: om.crawlStartTime,
		CrawlEndTime:   time.Now(),
		TotalRecords:   totalRecords,
		FailedPages:    om.FailedPages(),
		RawWorkbook:    artifact,
		Pages:          om.Pages(),
	}

	yamlData, err := yaml.Marshal(&metadata)
	if err != nil {
		return "", fmt.Errorf("%w: marshal crawl metadata YAML: %w", utils.ErrParsing, err)
	}
	if err := os.WriteFile(yamlFilePath, yamlData, 0644); err != nil {
		return "", fmt.Errorf("%w: write metadata YAML file '%s': %w", utils.ErrFilesystem, yamlFilePath, err)
	}

	om.log.Infof("Wrote crawl metadata (%d pages) to %s", len(metadata.Pages), yamlFilePath)
	return yamlFilePath, nil
}
