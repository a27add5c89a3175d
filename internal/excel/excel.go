// Package excel parses bulk-listing workbooks into rows the lifecycle can
// persist and dispatch. The sheet contract is fixed: a header row naming the
// five listing columns, one listing per following row.
package excel

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/listing-relay/internal/service"
)

// Expected header cells of the first row. The import sheets come from the
// merchant side of the house, so the column names are the Chinese originals.
const (
	headerProductID   = "商品ID"
	headerProductLink = "商品链接"
	headerTitle       = "标题"
	headerStock       = "库存"
	headerListingCode = "上架编码"
)

var requiredHeaders = []string{
	headerProductID, headerProductLink, headerTitle, headerStock, headerListingCode,
}

// ErrEmptySheet is returned when the workbook has no usable rows.
var ErrEmptySheet = errors.New("workbook has no data rows")

// HeaderError reports which required columns the header row lacks. Callers
// surface the missing names verbatim so the uploader can fix the sheet.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// ParseListings reads the first sheet of an xlsx workbook and returns one
// ListingInput per data row. Header validation happens before any row is
// converted; a sheet with a bad header yields nothing. Rows that are
// entirely empty are skipped, and a stock cell that does not parse as an
// integer leaves Stock unset rather than failing the row.
func ParseListings(r io.Reader) ([]service.ListingInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	cols, err := headerColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var out []service.ListingInput
	for _, row := range rows[1:] {
		in, ok := rowToInput(row, cols)
		if ok {
			out = append(out, in)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptySheet
	}
	return out, nil
}

// headerColumns maps each required header to its column index.
func headerColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(requiredHeaders))
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		if _, dup := cols[name]; !dup && name != "" {
			cols[name] = i
		}
	}
	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := cols[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing}
	}
	return cols, nil
}

func rowToInput(row []string, cols map[string]int) (service.ListingInput, bool) {
	cell := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var in service.ListingInput
	filled := false
	set := func(dst **string, v string) {
		if v != "" {
			*dst = &v
			filled = true
		}
	}
	set(&in.ProductID, cell(headerProductID))
	set(&in.ProductLink, cell(headerProductLink))
	set(&in.Title, cell(headerTitle))
	set(&in.ListingCode, cell(headerListingCode))
	if s := cell(headerStock); s != "" {
		filled = true
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			in.Stock = &n
		}
	}
	return in, filled
}
