// Package csvio reads the input tables and writes exports. Each reader
// enforces the column contract of its table: a missing file, a missing
// required column or an empty file is an error, everything else degrades to
// warnings and null values.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/churnlens/internal/domain/model"
)

// Column names of the input contract.
const (
	ColReason      = "Motivo"
	ColReportedAt  = "fecha_rep"
	ColAgentID     = "id_agente"
	ColWinRate     = "winrate"
	ColCasesWon    = "casos_ganados"
	ColCasesTotal  = "total_casos"
	ColMonth       = "mes"
	ColChurn       = "churn"
	ColAmountTotal = "monto_total"
	ColUserID      = "id_user"
	ColDaysNoTx    = "dias_sin_transacciones"
	ColTxCount     = "tx_count"
	ColRecency     = "recency_days"
	ColAmountSum   = "amount_sum"
	ColTenure      = "tenure_months"
	ColFirstTx     = "first_tx"
	ColLastTx      = "last_tx"
	ColTxType      = "tipo"
	ColTxAmount    = "monto"
	ColTxQuantity  = "cantidad"
)

// Required columns per table.
var (
	CallsColumns        = []string{ColReason}
	AgentsColumns       = []string{ColAgentID, ColWinRate, ColCasesWon, ColCasesTotal}
	ChurnColumns        = []string{ColMonth, ColChurn, ColAmountTotal, ColUserID, ColDaysNoTx}
	BaseColumns         = []string{ColUserID}
	TransactionsColumns = []string{ColUserID, ColTxType, ColTxAmount, ColTxQuantity, ColMonth}
)

// Alternative spellings for optional base-table columns.
var (
	stateColumns  = []string{"estado", "state"}
	genderColumns = []string{"gender", "genero", "género", "sexo"}
)

// DefaultMinRows is the row count below which a table is flagged as small.
const DefaultMinRows = 10

// Reader reads the input CSV tables.
type Reader struct {
	minRows int
	comma   rune
}

// New creates a Reader.
func New(opts ...Option) *Reader {
	r := &Reader{minRows: DefaultMinRows, comma: ','}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadTable reads path into a raw Table and checks that every required
// column is present. Warnings note a table with fewer than the minimum rows.
func (r *Reader) ReadTable(ctx context.Context, path string, required []string) (*model.Table, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := r.decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	var missing []string
	for _, c := range required {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s lacks %s", ErrMissingColumn, path, strings.Join(missing, ", "))
	}
	var warnings []string
	if t.Len() < r.minRows {
		warnings = append(warnings, fmt.Sprintf("%s has only %d rows (minimum recommended %d)", path, t.Len(), r.minRows))
	}
	return t, warnings, nil
}

func (r *Reader) decode(src io.Reader) (*model.Table, error) {
	cr := csv.NewReader(src)
	cr.Comma = r.comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = h
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return model.NewTable(header, rows), nil
}

// ReadCalls reads the contact-center calls table.
func (r *Reader) ReadCalls(ctx context.Context, path string) ([]model.CallRecord, []string, error) {
	t, warnings, err := r.ReadTable(ctx, path, CallsColumns)
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.CallRecord, t.Len())
	hasUser := t.Has(ColUserID)
	bad := 0
	for i := range out {
		out[i].Reason = strings.TrimSpace(t.Cell(i, ColReason))
		if hasUser {
			out[i].UserID = NormalizeID(t.Cell(i, ColUserID))
		}
		raw := t.Cell(i, ColReportedAt)
		out[i].ReportedAt = ParseTime(raw)
		if out[i].ReportedAt == nil && !model.IsNull(raw) {
			bad++
		}
	}
	if bad > 0 {
		warnings = append(warnings, fmt.Sprintf("%d calls have an unparseable %s", bad, ColReportedAt))
	}
	return out, warnings, nil
}

// ReadAgents reads the agents table. Unparseable counts read as 0.
func (r *Reader) ReadAgents(ctx context.Context, path string) ([]model.Agent, []string, error) {
	t, warnings, err := r.ReadTable(ctx, path, AgentsColumns)
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.Agent, 0, t.Len())
	skipped := 0
	for i := 0; i < t.Len(); i++ {
		id := NormalizeID(t.Cell(i, ColAgentID))
		if id == "" {
			skipped++
			continue
		}
		rate, _ := t.Float(i, ColWinRate)
		out = append(out, model.Agent{
			AgentID:    id,
			CasesWon:   count(t, i, ColCasesWon),
			CasesTotal: count(t, i, ColCasesTotal),
			WinRate:    rate,
		})
	}
	if skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d agent rows without %s skipped", skipped, ColAgentID))
	}
	return out, warnings, nil
}

// ReadChurn reads the monthly churn table. Rows without a parseable month
// or user are skipped with a warning.
func (r *Reader) ReadChurn(ctx context.Context, path string) ([]model.ChurnRecord, []string, error) {
	t, warnings, err := r.ReadTable(ctx, path, ChurnColumns)
	if err != nil {
		return nil, nil, err
	}
	hasTx := t.Has(ColTxCount)
	out := make([]model.ChurnRecord, 0, t.Len())
	skipped := 0
	for i := 0; i < t.Len(); i++ {
		month := ParseTime(t.Cell(i, ColMonth))
		user := NormalizeID(t.Cell(i, ColUserID))
		if month == nil || user == "" {
			skipped++
			continue
		}
		churned, _ := model.ParseBool(t.Cell(i, ColChurn))
		amount, _ := t.Float(i, ColAmountTotal)
		days, _ := t.Float(i, ColDaysNoTx)
		rec := model.ChurnRecord{
			Month:        model.MonthStart(*month),
			Churn:        churned,
			Amount:       amount,
			UserID:       user,
			DaysInactive: days,
		}
		if hasTx {
			rec.TxCount, rec.HasTxCount = t.Float(i, ColTxCount)
		}
		out = append(out, rec)
	}
	if skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d churn rows without a valid %s or %s skipped", skipped, ColMonth, ColUserID))
	}
	if len(out) == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no usable rows", ErrEmptyFile, path)
	}
	return out, warnings, nil
}

// ReadBase reads the optional base table. It returns the raw table, used
// as model input, alongside typed records.
func (r *Reader) ReadBase(ctx context.Context, path string) (*model.Table, []model.BaseRecord, []string, error) {
	t, warnings, err := r.ReadTable(ctx, path, BaseColumns)
	if err != nil {
		return nil, nil, nil, err
	}
	stateCol := firstPresent(t, stateColumns)
	genderCol := firstPresent(t, genderColumns)
	out := make([]model.BaseRecord, t.Len())
	for i := range out {
		out[i] = model.BaseRecord{
			UserID:       NormalizeID(t.Cell(i, ColUserID)),
			RecencyDays:  floatPtr(t, i, ColRecency),
			AmountSum:    floatPtr(t, i, ColAmountSum),
			TenureMonths: floatPtr(t, i, ColTenure),
			TxCount:      floatPtr(t, i, ColTxCount),
			FirstTx:      ParseTime(t.Cell(i, ColFirstTx)),
			LastTx:       ParseTime(t.Cell(i, ColLastTx)),
		}
		if stateCol != "" && !model.IsNull(t.Cell(i, stateCol)) {
			out[i].State = strings.TrimSpace(t.Cell(i, stateCol))
		}
		if genderCol != "" && !model.IsNull(t.Cell(i, genderCol)) {
			out[i].Gender = strings.TrimSpace(t.Cell(i, genderCol))
		}
	}
	return t, out, warnings, nil
}

// ReadTransactions reads the optional itemized transactions table.
func (r *Reader) ReadTransactions(ctx context.Context, path string) ([]model.Transaction, []string, error) {
	t, warnings, err := r.ReadTable(ctx, path, TransactionsColumns)
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.Transaction, 0, t.Len())
	skipped := 0
	for i := 0; i < t.Len(); i++ {
		month := ParseTime(t.Cell(i, ColMonth))
		if month == nil {
			skipped++
			continue
		}
		amount, _ := t.Float(i, ColTxAmount)
		out = append(out, model.Transaction{
			UserID: NormalizeID(t.Cell(i, ColUserID)),
			Type:   strings.ToLower(strings.TrimSpace(t.Cell(i, ColTxType))),
			Amount: amount,
			Count:  count(t, i, ColTxQuantity),
			Month:  model.MonthStart(*month),
		})
	}
	if skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d transactions without a valid %s skipped", skipped, ColMonth))
	}
	return out, warnings, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01",
	"01/2006",
	"200601",
}

// ParseTime parses a timestamp in any of the common export layouts, in
// UTC. Null-like or unparseable input yields nil.
func ParseTime(s string) *time.Time {
	if model.IsNull(s) {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// NormalizeID trims an identifier and drops a trailing ".0" left by
// spreadsheet float formatting.
func NormalizeID(s string) string {
	if model.IsNull(s) {
		return ""
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.ParseInt(strings.TrimSuffix(s, ".0"), 10, 64); err == nil {
			return strings.TrimSuffix(s, ".0")
		}
	}
	return s
}

func count(t *model.Table, row int, col string) int {
	v, ok := t.Float(row, col)
	if !ok || v < 0 || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}

func floatPtr(t *model.Table, row int, col string) *float64 {
	v, ok := t.Float(row, col)
	if !ok || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func firstPresent(t *model.Table, names []string) string {
	for _, n := range names {
		if t.Has(n) {
			return n
		}
	}
	return ""
}
