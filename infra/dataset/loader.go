// Package dataset reads the planning inputs from CSV files.
//
// Every file starts with a header row. Columns are matched by name, so extra
// columns are ignored and the order is free. Errors name the file and the
// 1-based row.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/repairsched/core/model"
)

// Load reads every file named by cfg and returns the indexed dataset. The
// dataset is validated before it is returned.
func Load(cfg Config) (*model.Dataset, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	products, err := loadFile(cfg.path(cfg.Products), readProducts)
	if err != nil {
		return nil, err
	}
	defects, err := loadFile(cfg.path(cfg.Defects), readDefects)
	if err != nil {
		return nil, err
	}
	repairers, err := loadFile(cfg.path(cfg.Repairers), readRepairers)
	if err != nil {
		return nil, err
	}
	costs, err := loadFile(cfg.path(cfg.RepairCosts), readCosts)
	if err != nil {
		return nil, err
	}
	if err := attachCosts(repairers, costs); err != nil {
		return nil, err
	}
	customers, err := loadFile(cfg.path(cfg.Customers), readCustomers)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	requests, err := loadFile(cfg.path(cfg.Requests), readRequests)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	ds := model.NewDataset(products, defects, repairers, customers, requests)
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", cfg.Dir, err)
	}
	return ds, nil
}

func loadFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// table walks the data rows of a CSV document with named column access.
type table struct {
	r    *csv.Reader
	cols map[string]int
	row  []string
	line int
}

func newTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, err
	}
	// relax per-row field count; columns are looked up by name
	cr.FieldsPerRecord = -1
	t := &table{r: cr, cols: make(map[string]int, len(header)), line: 1}
	for i, h := range header {
		t.cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := t.cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing column(s) %s", strings.Join(missing, ", "))
	}
	return t, nil
}

// next advances to the following non-empty row.
func (t *table) next() (bool, error) {
	for {
		row, err := t.r.Read()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		t.line, _ = t.r.FieldPos(0)
		if blank(row) {
			continue
		}
		t.row = row
		return true, nil
	}
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (t *table) str(col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(t.row) {
		return ""
	}
	return strings.TrimSpace(t.row[i])
}

func (t *table) integer(col string) (int, error) {
	v := t.str(col)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, t.fail(col, v)
	}
	return n, nil
}

// optInt parses an optional integer column; empty values yield def.
func (t *table) optInt(col string, def int) (int, error) {
	if t.str(col) == "" {
		return def, nil
	}
	return t.integer(col)
}

// amount parses a decimal column exactly before converting it to float64.
func (t *table) amount(col string) (float64, error) {
	v := t.str(col)
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, t.fail(col, v)
	}
	return d.InexactFloat64(), nil
}

func (t *table) fail(col, v string) error {
	return fmt.Errorf("row %d: invalid %s %q", t.line, col, v)
}

func (t *table) errorf(format string, args ...any) error {
	return fmt.Errorf("row %d: %s", t.line, fmt.Sprintf(format, args...))
}
