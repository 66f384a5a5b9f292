// Package csv reads itemised receipts exported as delimited text.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/finn-wa/grocy-trolley-sub000/internal/parsers/charset"
)

// Row is one receipt line.
type Row struct {
	Name     string
	Quantity float64
	// PriceCents is the line total.
	PriceCents int
}

// Header aliases, lower case.
var (
	nameHeaders     = []string{"name", "description", "item", "product"}
	quantityHeaders = []string{"quantity", "qty", "count"}
	priceHeaders    = []string{"price", "total", "amount", "line total"}
)

// ErrNoNameColumn is returned when the header has no product name column.
var ErrNoNameColumn = errors.New("receipt has no name column")

type columns struct {
	name, quantity, price int
}

func findColumn(header []string, aliases []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, a := range aliases {
			if h == a {
				return i
			}
		}
	}
	return -1
}

// ParseReceipt reads a receipt with a header row. The name column is
// required; quantity defaults to 1 and price to 0 when their columns are
// missing. Rows with an empty name are skipped.
func ParseReceipt(r io.Reader) ([]Row, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	content, err := charset.Decode(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = DetectDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columns{
		name:     findColumn(header, nameHeaders),
		quantity: findColumn(header, quantityHeaders),
		price:    findColumn(header, priceHeaders),
	}
	if cols.name < 0 {
		return nil, ErrNoNameColumn
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, ok, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRow(record []string, cols columns) (Row, bool, error) {
	row := Row{Name: field(record, cols.name), Quantity: 1}
	if row.Name == "" {
		return row, false, nil
	}
	if q := field(record, cols.quantity); q != "" {
		v, err := strconv.ParseFloat(q, 64)
		if err != nil {
			return row, false, fmt.Errorf("invalid quantity %q", q)
		}
		if v > 0 {
			row.Quantity = v
		}
	}
	if p := field(record, cols.price); p != "" {
		cents, err := ParsePrice(p)
		if err != nil {
			return row, false, err
		}
		row.PriceCents = cents
	}
	return row, true, nil
}
