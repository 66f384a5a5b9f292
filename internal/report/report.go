// Package report records the outcome of import runs and writes them out as
// a table, JSON or a spreadsheet.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/xuri/excelize/v2"
)

// Status is the outcome of one item.
type Status string

const (
	StatusCreated  Status = "created"
	StatusExisting Status = "existing"
	StatusLinked   Status = "linked"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusExported Status = "exported"
)

// Item is one processed store product or receipt line.
type Item struct {
	StoreProductID string  `json:"storeProductId,omitempty"`
	Name           string  `json:"name"`
	Status         Status  `json:"status"`
	InventoryID    int     `json:"inventoryId,omitempty"`
	Error          string  `json:"error,omitempty"`
	Stocked        bool    `json:"stocked"`
	StockAmount    float64 `json:"stockAmount,omitempty"`
	StockPrice     float64 `json:"stockPrice,omitempty"`
	StockError     string  `json:"stockError,omitempty"`
}

// Run collects the items of one import run. It is safe for concurrent use.
type Run struct {
	ID         string    `json:"id"`
	Store      string    `json:"store"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	Aborted    string    `json:"aborted,omitempty"`

	mu    sync.Mutex
	Items []*Item `json:"items"`
}

// NewRun starts a run.
func NewRun(id, store, source string) *Run {
	return &Run{ID: id, Store: store, Source: source, StartedAt: time.Now()}
}

// Add appends an item and returns it for later updates.
func (r *Run) Add(item Item) *Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := item
	r.Items = append(r.Items, &it)
	return &it
}

// Finish marks the run done. A non-nil err marks it aborted.
func (r *Run) Finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now()
	if err != nil {
		r.Aborted = err.Error()
	}
}

// Count returns how many items have the given status.
func (r *Run) Count(s Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

// Stocked returns how many items had stock posted.
func (r *Run) Stocked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.Items {
		if it.Stocked {
			n++
		}
	}
	return n
}

var columns = []string{"STORE ID", "NAME", "STATUS", "INVENTORY ID", "STOCK", "PRICE", "ERROR"}

func (it *Item) row() []string {
	inv, stock, price := "-", "-", "-"
	if it.InventoryID != 0 {
		inv = strconv.Itoa(it.InventoryID)
	}
	if it.Stocked {
		stock = strconv.FormatFloat(it.StockAmount, 'f', -1, 64)
		price = strconv.FormatFloat(it.StockPrice, 'f', 2, 64)
	}
	errText := it.Error
	if errText == "" {
		errText = it.StockError
	}
	if errText == "" {
		errText = "-"
	}
	id := it.StoreProductID
	if id == "" {
		id = "-"
	}
	return []string{id, it.Name, string(it.Status), inv, stock, price, errText}
}

// WriteTable writes a human readable summary.
func WriteTable(w io.Writer, r *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "Run %s: %s %s\n", r.ID, r.Store, r.Source)
	for i, c := range columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, it := range r.Items {
		for i, cell := range it.row() {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	if r.Aborted != "" {
		fmt.Fprintf(tw, "ABORTED: %s\n", r.Aborted)
	}
	return tw.Flush()
}

// WriteJSON writes the run as indented JSON.
func WriteJSON(w io.Writer, r *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

const sheetName = "Import"

// WriteXLSX writes the run as a spreadsheet with one row per item.
func WriteXLSX(w io.Writer, r *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, it := range r.Items {
		cells := it.row()
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       fmt.Sprintf("%s %s import", r.Store, r.Source),
		Identifier:  r.ID,
		Created:     r.StartedAt.UTC().Format(time.RFC3339),
		Creator:     "grocy-trolley",
		Description: r.Aborted,
	}); err != nil {
		return fmt.Errorf("set properties: %w", err)
	}
	_, err := f.WriteTo(w)
	return err
}
