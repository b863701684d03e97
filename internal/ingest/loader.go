package ingest

import (
	"bufio"
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ppiankov/clientscore/internal/model"
	"github.com/ppiankov/clientscore/internal/store"
)

// BundledDataset is the path of the dataset embedded in the binary
const BundledDataset = "data/clients.csv"

//go:embed data/clients.csv
var bundled embed.FS

// ErrEmptySource is returned when the table has no header row
var ErrEmptySource = errors.New("CSV source is empty")

// Structured column names, matched exactly against the header
const (
	colID             = "id"
	colDt             = "dt"
	colAge            = "age"
	colGender         = "gender"
	colAdminArea      = "adminarea"
	colIncomeValue    = "incomeValue"
	colIncomeCategory = "incomeValueCategory"
)

// Stats summarizes one ingestion run
type Stats struct {
	Rows                   int // data rows read
	Parsed                 int // records built
	SkippedColumnCount     int // rows whose width differs from the header
	SkippedBlankID         int // rows without an id
	IncomeCoercionFailures int // incomeValue cells that were not decimals
}

// Loader populates a record store from a semicolon-delimited client table
type Loader struct {
	store  store.Store
	logger *zap.Logger
}

// NewLoader creates a loader writing into s. A nil logger discards logs.
func NewLoader(s store.Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		store:  s,
		logger: logger,
	}
}

// Load ingests the bundled dataset
func (l *Loader) Load(ctx context.Context) (int, error) {
	f, err := bundled.Open(BundledDataset)
	if err != nil {
		return 0, fmt.Errorf("open bundled dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	return l.Ingest(ctx, f)
}

// LoadFile ingests the table at path. A missing file is an error.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	return l.Ingest(ctx, f)
}

// Ingest parses src and saves every record in one batch. It does nothing when
// the store already holds records, so a partially loaded store is never repaired.
func (l *Loader) Ingest(ctx context.Context, src io.Reader) (int, error) {
	count, err := l.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	if count > 0 {
		l.logger.Info("Store already populated, skipping ingestion", zap.Int64("records", count))
		return 0, nil
	}

	records, stats, err := Parse(src, l.logger)
	if err != nil {
		return 0, err
	}

	if err := l.store.SaveAll(ctx, records); err != nil {
		return 0, fmt.Errorf("save records: %w", err)
	}

	l.logger.Info("Ingestion complete",
		zap.Int("rows", stats.Rows),
		zap.Int("inserted", len(records)),
		zap.Int("skipped_column_count", stats.SkippedColumnCount),
		zap.Int("skipped_blank_id", stats.SkippedBlankID),
		zap.Int("income_coercion_failures", stats.IncomeCoercionFailures))

	return len(records), nil
}

// columns holds header positions of the structured fields, -1 when absent
type columns struct {
	id, dt, age, gender, adminArea, incomeValue, incomeCategory int
}

func (c columns) isStructured(i int) bool {
	return i == c.id || i == c.dt || i == c.age || i == c.gender ||
		i == c.adminArea || i == c.incomeValue || i == c.incomeCategory
}

// Parse reads the whole table into records without touching a store.
// Rows with a blank id or the wrong width are skipped; a malformed id or age
// aborts the parse.
func Parse(src io.Reader, logger *zap.Logger) ([]model.ClientRecord, Stats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var stats Stats

	reader := csv.NewReader(bufio.NewReader(src))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, ErrEmptySource
	}
	if err != nil {
		return nil, stats, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	cols := columns{
		id:             indexOf(header, colID),
		dt:             indexOf(header, colDt),
		age:            indexOf(header, colAge),
		gender:         indexOf(header, colGender),
		adminArea:      indexOf(header, colAdminArea),
		incomeValue:    indexOf(header, colIncomeValue),
		incomeCategory: indexOf(header, colIncomeCategory),
	}

	var records []model.ClientRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		if len(row) != len(header) {
			stats.SkippedColumnCount++
			continue
		}

		record, ok, err := parseRow(header, row, cols, &stats, logger)
		if err != nil {
			return nil, stats, fmt.Errorf("row %d: %w", stats.Rows, err)
		}
		if !ok {
			stats.SkippedBlankID++
			continue
		}
		records = append(records, record)
	}

	stats.Parsed = len(records)
	return records, stats, nil
}

func parseRow(header, row []string, cols columns, stats *Stats, logger *zap.Logger) (model.ClientRecord, bool, error) {
	var r model.ClientRecord

	idStr, ok := nonBlank(row, cols.id)
	if !ok {
		return r, false, nil
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return r, false, fmt.Errorf("parse id %q: %w", idStr, err)
	}
	r.ID = id

	if v, ok := nonBlank(row, cols.age); ok {
		parsed, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return r, false, fmt.Errorf("client %d: parse age %q: %w", id, v, err)
		}
		age := int(parsed)
		r.Age = &age
	}

	if v, ok := nonBlank(row, cols.incomeValue); ok {
		income, err := decimal.NewFromString(v)
		if err != nil {
			stats.IncomeCoercionFailures++
			logger.Warn("Invalid incomeValue, leaving it unset",
				zap.Int64("id", id), zap.String("value", v), zap.Error(err))
		} else {
			r.IncomeValue = decimal.NewNullDecimal(income)
		}
	}

	r.Dt = optional(row, cols.dt)
	r.Gender = optional(row, cols.gender)
	r.AdminArea = optional(row, cols.adminArea)
	r.IncomeCategory = optional(row, cols.incomeCategory)

	extra := model.NewAttributes(len(header))
	for i, name := range header {
		if cols.isStructured(i) {
			continue
		}
		raw := row[i]
		if strings.TrimSpace(raw) == "" {
			continue
		}
		extra.Set(name, classifyValue(raw))
	}

	blob, err := model.EncodeAttributes(extra)
	if err != nil {
		return r, false, fmt.Errorf("client %d: encode attributes: %w", id, err)
	}
	r.Features = blob

	return r, true, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// nonBlank returns the raw cell at idx when it holds more than whitespace
func nonBlank(row []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(row) {
		return "", false
	}
	v := row[idx]
	if strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func optional(row []string, idx int) *string {
	v, ok := nonBlank(row, idx)
	if !ok {
		return nil
	}
	return &v
}
