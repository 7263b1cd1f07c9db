// Package extract pulls ranked-entry fields out of a Top 250 list page.
package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/Sriram-PR/top250-scraper/pkg/config"
	"github.com/Sriram-PR/top250-scraper/pkg/models"
	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

// Text node positions inside the info paragraph
const (
	castTextNode      = 0
	yearGenreTextNode = 1
)

// PageExtractor is the contract the crawler depends on
type PageExtractor interface {
	ExtractPage(r io.Reader, pageIndex int) ([]models.MovieRecord, error)
}

// Extractor runs the configured structural queries against list pages.
// It holds no state between pages.
type Extractor struct {
	sel  config.SelectorConfig
	item func(item *goquery.Selection, pageIndex int) models.MovieRecord
}

// NewExtractor checks that every selector is set and compiles.
func NewExtractor(sel config.SelectorConfig) (*Extractor, error) {
	for name, s := range map[string]string{
		"item": sel.Item, "title": sel.Title, "link": sel.Link, "rating": sel.Rating, "info": sel.Info,
	} {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: selector '%s' is empty", utils.ErrConfigValidation, name)
		}
		if _, err := cascadia.Compile(s); err != nil {
			return nil, fmt.Errorf("%w: selector '%s' (%q): %w", utils.ErrConfigValidation, name, s, err)
		}
	}
	e := &Extractor{sel: sel}
	e.item = e.extractItem
	return e, nil
}

// ExtractPage parses one page of markup and extracts its entries.
func (e *Extractor) ExtractPage(r io.Reader, pageIndex int) ([]models.MovieRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: HTML document for page %d: %w", utils.ErrParsing, pageIndex, err)
	}
	return e.ExtractDocument(doc, pageIndex)
}

// ExtractDocument extracts one record per ranked-entry node, in document order.
// Missing fields become "". If walking the structure panics, the records gathered
// so far are returned together with an ErrParsing error and the rest of the page is skipped.
func (e *Extractor) ExtractDocument(doc *goquery.Document, pageIndex int) (records []models.MovieRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: HTML structure on page %d after %d entries: %v", utils.ErrParsing, pageIndex, len(records), r)
		}
	}()

	doc.Find(e.sel.Item).Each(func(_ int, item *goquery.Selection) {
		records = append(records, e.item(item, pageIndex))
	})
	return records, nil
}

func (e *Extractor) extractItem(item *goquery.Selection, pageIndex int) models.MovieRecord {
	info := item.Find(e.sel.Info)
	return models.MovieRecord{
		PageIndex: pageIndex,
		Title:     FirstText(item.Find(e.sel.Title)),
		Link:      FirstAttr(item.Find(e.sel.Link), "href"),
		Rating:    FirstText(item.Find(e.sel.Rating)),
		YearGenre: NthTextNode(info, yearGenreTextNode),
		Cast:      NthTextNode(info, castTextNode),
	}
}

// FirstText returns the trimmed text of the first match, or "" when nothing matched.
func FirstText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(s.First().Text())
}

// FirstAttr returns the trimmed attribute of the first match, or "".
func FirstAttr(s *goquery.Selection, attr string) string {
	if s.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(s.First().AttrOr(attr, ""))
}

// NthTextNode returns the trimmed n-th (0-based) direct text child of the first match, or "".
// Element children are skipped when counting, so <br> between two text runs does not shift the index.
func NthTextNode(s *goquery.Selection, n int) string {
	if s.Length() == 0 {
		return ""
	}
	seen := 0
	for c := s.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		if seen == n {
			return strings.TrimSpace(c.Data)
		}
		seen++
	}
	return ""
}
