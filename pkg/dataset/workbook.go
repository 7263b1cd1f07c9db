// Package dataset reads and writes the raw and split workbooks.
//
// Every value except the page index is stored as a text cell, so ratings like
// "9.0" come back exactly as they were scraped.
package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Sriram-PR/top250-scraper/pkg/models"
	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

// defaultSheet is the sheet excelize.NewFile creates
const defaultSheet = "Sheet1"

// WriteRaw writes the scraped table under RawColumns.
func WriteRaw(path, sheet string, ds models.MovieDataset) error {
	rows := make([][]interface{}, 0, len(ds))
	for _, r := range ds {
		rows = append(rows, []interface{}{r.PageIndex, r.Title, r.Link, r.Rating, r.YearGenre, r.Cast})
	}
	return writeTable(path, sheet, models.RawColumns, rows)
}

// WriteSplit writes the normalized table under SplitColumns.
func WriteSplit(path, sheet string, ds models.SplitDataset) error {
	rows := make([][]interface{}, 0, len(ds))
	for _, r := range ds {
		rows = append(rows, []interface{}{r.PageIndex, r.Title, r.Link, r.Rating, r.Cast, r.Year, r.Genre})
	}
	return writeTable(path, sheet, models.SplitColumns, rows)
}

// ReadRaw loads a raw workbook. Columns are located by header, not position.
func ReadRaw(path, sheet string) (models.MovieDataset, error) {
	t, err := readTable(path, sheet, models.RawColumns)
	if err != nil {
		return nil, err
	}
	ds := make(models.MovieDataset, 0, len(t.rows))
	for i, row := range t.rows {
		pageIndex, err := t.pageIndex(row, i)
		if err != nil {
			return nil, err
		}
		ds = append(ds, models.MovieRecord{
			PageIndex: pageIndex,
			Title:     t.cell(row, models.ColTitle),
			Link:      t.cell(row, models.ColLink),
			Rating:    t.cell(row, models.ColRating),
			YearGenre: t.cell(row, models.ColYearGenre),
			Cast:      t.cell(row, models.ColCast),
		})
	}
	return ds, nil
}

// ReadSplit loads a split workbook.
func ReadSplit(path, sheet string) (models.SplitDataset, error) {
	t, err := readTable(path, sheet, models.SplitColumns)
	if err != nil {
		return nil, err
	}
	ds := make(models.SplitDataset, 0, len(t.rows))
	for i, row := range t.rows {
		pageIndex, err := t.pageIndex(row, i)
		if err != nil {
			return nil, err
		}
		ds = append(ds, models.SplitRecord{
			PageIndex: pageIndex,
			Title:     t.cell(row, models.ColTitle),
			Link:      t.cell(row, models.ColLink),
			Rating:    t.cell(row, models.ColRating),
			Cast:      t.cell(row, models.ColCast),
			Year:      t.cell(row, models.ColYear),
			Genre:     t.cell(row, models.ColGenre),
		})
	}
	return ds, nil
}

func writeTable(path, sheet string, header []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("%w: sheet name '%s': %w", utils.ErrFilesystem, sheet, err)
		}
	}

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("%w: workbook header: %w", utils.ErrFilesystem, err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%w: workbook row %d: %w", utils.ErrFilesystem, i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%w: workbook row %d: %w", utils.ErrFilesystem, i+1, err)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create directory '%s': %w", utils.ErrFilesystem, dir, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%w: save workbook '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

// table is a sheet's data rows with a header-name lookup
type table struct {
	path  string
	index map[string]int
	rows  [][]string
}

func readTable(path, sheet string, required []string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: open workbook '%s': %w", utils.ErrFilesystem, path, err)
		}
		return nil, fmt.Errorf("%w: workbook '%s': %w", utils.ErrParsing, path, err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, fmt.Errorf("%w: workbook '%s' has no sheet '%s'", utils.ErrParsing, path, sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: workbook '%s' sheet '%s': %w", utils.ErrParsing, path, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: workbook '%s' sheet '%s' has no header row", utils.ErrMissingColumn, path, sheet)
	}

	t := &table{path: path, index: make(map[string]int, len(rows[0])), rows: rows[1:]}
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, fmt.Errorf("%w: '%s' in workbook '%s'", utils.ErrMissingColumn, col, path)
		}
	}
	return t, nil
}

// cell returns the named column of row; GetRows drops trailing empty cells, so short rows read as "".
func (t *table) cell(row []string, col string) string {
	i := t.index[col]
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func (t *table) pageIndex(row []string, i int) (int, error) {
	v := strings.TrimSpace(t.cell(row, models.ColPageIndex))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Some writers store integers as floats ("3.0")
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0, fmt.Errorf("%w: workbook '%s' row %d: %s '%s' is not a number", utils.ErrParsing, t.path, i+2, models.ColPageIndex, v)
		}
		n = int(f)
	}
	return n, nil
}
