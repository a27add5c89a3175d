package excel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseListings(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"商品ID", "商品链接", "标题", "库存", "上架编码"},
		{"1001", "https://shop.example/item?id=1001", "Red Mug", "25", "RM-01"},
		{"1002", "", "Blue Mug", "", ""},
	})

	got, err := ParseListings(buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	require.NotNil(t, first.ProductID)
	assert.Equal(t, "1001", *first.ProductID)
	require.NotNil(t, first.ProductLink)
	assert.Equal(t, "https://shop.example/item?id=1001", *first.ProductLink)
	require.NotNil(t, first.Title)
	assert.Equal(t, "Red Mug", *first.Title)
	require.NotNil(t, first.Stock)
	assert.Equal(t, int64(25), *first.Stock)
	require.NotNil(t, first.ListingCode)
	assert.Equal(t, "RM-01", *first.ListingCode)

	second := got[1]
	assert.Nil(t, second.ProductLink)
	assert.Nil(t, second.Stock)
	assert.Nil(t, second.ListingCode)
}

func TestParseListingsReorderedColumns(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"标题", "库存", "商品ID", "上架编码", "商品链接"},
		{"Mug", "3", "7", "M-7", "https://shop.example/item?id=7"},
	})

	got, err := ParseListings(buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].ProductID)
	assert.Equal(t, "7", *got[0].ProductID)
	require.NotNil(t, got[0].Stock)
	assert.Equal(t, int64(3), *got[0].Stock)
}

func TestParseListingsMissingHeaders(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"商品ID", "标题"},
		{"1001", "Mug"},
	})

	_, err := ParseListings(buf)
	var hdrErr *HeaderError
	require.ErrorAs(t, err, &hdrErr)
	assert.Contains(t, hdrErr.Missing, "商品链接")
	assert.Contains(t, hdrErr.Missing, "库存")
	assert.Contains(t, hdrErr.Missing, "上架编码")
	assert.NotContains(t, hdrErr.Missing, "商品ID")
}

func TestParseListingsUnparseableStock(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"商品ID", "商品链接", "标题", "库存", "上架编码"},
		{"1001", "", "Mug", "plenty", ""},
	})

	got, err := ParseListings(buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Stock)
	require.NotNil(t, got[0].Title)
}

func TestParseListingsSkipsEmptyRows(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"商品ID", "商品链接", "标题", "库存", "上架编码"},
		{"", "", "", "", ""},
		{"1001", "", "Mug", "1", ""},
	})

	got, err := ParseListings(buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestParseListingsHeaderOnly(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"商品ID", "商品链接", "标题", "库存", "上架编码"},
	})

	_, err := ParseListings(buf)
	assert.ErrorIs(t, err, ErrEmptySheet)
}

func TestParseListingsNotAWorkbook(t *testing.T) {
	_, err := ParseListings(bytes.NewReader([]byte("not a zip")))
	assert.Error(t, err)
}
