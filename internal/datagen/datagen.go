// Package datagen writes a synthetic, internally consistent set of input
// tables and a matching logistic model, for local runs and integration
// tests.
package datagen

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/okian/churnlens/internal/adapters/modelstore"
	"github.com/okian/churnlens/internal/domain/churn"
	"github.com/okian/churnlens/internal/domain/stats"
)

// File names written into the output directory.
const (
	CallsFile        = "llamadas.csv"
	AgentsFile       = "agentes.csv"
	ChurnFile        = "churn.csv"
	BaseFile         = "base.csv"
	TransactionsFile = "transacciones.csv"
	ModelDir         = "models"
)

// ModelVersion tags the generated artifact triple.
const ModelVersion = "synthetic-1"

// inactivityThreshold matches the business default used to label churn.
const inactivityThreshold = 42

// ModelFeatures is the feature layout of the generated model.
var ModelFeatures = []string{
	"tx_count", "recency_days", "amount_sum", "tenure_months",
	churn.ColHasContact, churn.ColSatisfaction, churn.ColAvgGapDays,
}

var (
	callReasons = []string{
		"01 Aclaración de cargo", "02 Tarjeta bloqueada", "03 Retiro no reconocido",
		"04 Actualización de datos", "05 Consulta de saldo", "06 Cancelación de cuenta",
	}
	txTypes = []string{
		"deposito_efectivo_tienda", "retiro_qr", "retiro_sin_tarjeta", "transferencia_extra",
		"deposito_tarjeta", "deposito_transferencia", "pago_servicios", "envio_dinero",
	}
	genders = []string{"M", "F"}
)

// Options size the generated dataset.
type Options struct {
	Users  int
	Months int
	Agents int
	Calls  int
	// Start is the first month of the series.
	Start time.Time
	// Seed makes the output reproducible; 0 picks a random seed.
	Seed uint64

	WithBase         bool
	WithTransactions bool
	WithModel        bool
}

// DefaultOptions returns a small dataset with every optional table.
func DefaultOptions() Options {
	return Options{
		Users:            200,
		Months:           12,
		Agents:           15,
		Calls:            400,
		Start:            time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Seed:             42,
		WithBase:         true,
		WithTransactions: true,
		WithModel:        true,
	}
}

// Files lists the paths written by Generate. Optional entries are empty
// when not generated.
type Files struct {
	Calls        string
	Agents       string
	Churn        string
	Base         string
	Transactions string
	ModelDir     string
}

// user is the latent profile every table is derived from.
type user struct {
	id        string
	risk      float64
	tenure    int
	txPerMo   float64
	ticket    float64
	gender    string
	state     string
	csat      *float64
	gapDays   *float64
	lastDays  float64
	amountSum float64
	txCount   float64
}

// Generate writes the tables into dir.
func Generate(dir string, opts Options) (Files, error) {
	if opts.Users <= 0 || opts.Months <= 0 {
		return Files{}, fmt.Errorf("datagen: users and months must be positive")
	}
	if opts.Start.IsZero() {
		opts.Start = DefaultOptions().Start
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("datagen: %w", err)
	}
	f := gofakeit.New(opts.Seed)

	users := make([]*user, opts.Users)
	for i := range users {
		u := &user{
			id:      strconv.Itoa(1000 + i),
			risk:    f.Float64Range(0, 1),
			tenure:  f.IntRange(1, 48),
			txPerMo: f.Float64Range(2, 25),
			ticket:  f.Float64Range(50, 3000),
			gender:  f.RandomString(genders),
			state:   f.State(),
		}
		if f.Bool() {
			v := f.Float64Range(1, 5)
			u.csat = &v
		}
		if f.IntRange(0, 9) > 0 {
			v := f.Float64Range(1, 20)
			u.gapDays = &v
		}
		users[i] = u
	}

	out := Files{
		Calls:  filepath.Join(dir, CallsFile),
		Agents: filepath.Join(dir, AgentsFile),
		Churn:  filepath.Join(dir, ChurnFile),
	}
	if err := writeChurn(out.Churn, f, users, opts); err != nil {
		return Files{}, err
	}
	if err := writeCalls(out.Calls, f, users, opts); err != nil {
		return Files{}, err
	}
	if err := writeAgents(out.Agents, f, opts.Agents); err != nil {
		return Files{}, err
	}
	if opts.WithBase {
		out.Base = filepath.Join(dir, BaseFile)
		if err := writeBase(out.Base, users, opts); err != nil {
			return Files{}, err
		}
	}
	if opts.WithTransactions {
		out.Transactions = filepath.Join(dir, TransactionsFile)
		if err := writeTransactions(out.Transactions, f, users, opts); err != nil {
			return Files{}, err
		}
	}
	if opts.WithModel {
		out.ModelDir = filepath.Join(dir, ModelDir)
		if err := modelstore.Save(out.ModelDir, buildModel(users)); err != nil {
			return Files{}, fmt.Errorf("datagen: %w", err)
		}
	}
	return out, nil
}

func month(start time.Time, i int) time.Time {
	return time.Date(start.Year(), start.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
}

// writeChurn emits one row per user and month. Inactivity drifts with the
// user's latent risk, and churn is inactivity at or past the threshold.
func writeChurn(path string, f *gofakeit.Faker, users []*user, opts Options) error {
	rows := [][]string{{"mes", "churn", "monto_total", "id_user", "dias_sin_transacciones", "tx_count"}}
	for m := 0; m < opts.Months; m++ {
		mo := month(opts.Start, m).Format(time.DateOnly)
		for _, u := range users {
			days := math.Round(stats.Clip(u.risk*80+f.Float64Range(-12, 12), 0, 120))
			churned := days >= inactivityThreshold
			amount, tx := 0.0, 0.0
			if !churned {
				tx = math.Round(u.txPerMo * (1 - u.risk/2))
				amount = math.Round(tx*u.ticket*100) / 100
			}
			u.lastDays = days
			u.amountSum += amount
			u.txCount += tx
			rows = append(rows, []string{
				mo, strconv.FormatBool(churned), ff(amount), u.id, ff(days), ff(tx),
			})
		}
	}
	return writeCSV(path, rows)
}

func writeCalls(path string, f *gofakeit.Faker, users []*user, opts Options) error {
	rows := [][]string{{"Motivo", "fecha_rep", "id_user"}}
	end := month(opts.Start, opts.Months)
	for i := 0; i < opts.Calls; i++ {
		u := users[f.IntRange(0, len(users)-1)]
		at := f.DateRange(opts.Start, end)
		rows = append(rows, []string{f.RandomString(callReasons), at.Format(time.DateTime), u.id})
	}
	return writeCSV(path, rows)
}

func writeAgents(path string, f *gofakeit.Faker, n int) error {
	rows := [][]string{{"id_agente", "winrate", "casos_ganados", "total_casos"}}
	for i := 0; i < n; i++ {
		total := f.IntRange(0, 300)
		won := 0
		if total > 0 {
			won = int(math.Round(float64(total) * f.Float64Range(0.2, 0.8)))
		}
		rate := 0.0
		if total > 0 {
			rate = float64(won) / float64(total) * 100
		}
		rows = append(rows, []string{strconv.Itoa(100 + i), ff(rate), strconv.Itoa(won), strconv.Itoa(total)})
	}
	return writeCSV(path, rows)
}

func writeBase(path string, users []*user, opts Options) error {
	rows := [][]string{{
		"id_user", "recency_days", "amount_sum", "tenure_months", "tx_count",
		"first_tx", "last_tx", "estado", "gender", churn.ColSatisfaction, churn.ColAvgGapDays,
	}}
	end := month(opts.Start, opts.Months)
	for _, u := range users {
		last := end.AddDate(0, 0, -int(u.lastDays))
		first := month(end, -u.tenure)
		rows = append(rows, []string{
			u.id, ff(u.lastDays), ff(u.amountSum), strconv.Itoa(u.tenure), ff(u.txCount),
			first.Format(time.DateOnly), last.Format(time.DateOnly), u.state, u.gender,
			optional(u.csat), optional(u.gapDays),
		})
	}
	return writeCSV(path, rows)
}

// writeTransactions itemizes the first half of the months so revenue is
// exact there and estimated afterwards.
func writeTransactions(path string, f *gofakeit.Faker, users []*user, opts Options) error {
	rows := [][]string{{"id_user", "tipo", "monto", "cantidad", "mes"}}
	for m := 0; m < (opts.Months+1)/2; m++ {
		mo := month(opts.Start, m).Format(time.DateOnly)
		for _, u := range users {
			if u.risk > 0.6 {
				continue
			}
			rows = append(rows, []string{
				u.id, f.RandomString(txTypes), ff(math.Round(u.ticket*100) / 100), strconv.Itoa(f.IntRange(1, 5)), mo,
			})
		}
	}
	return writeCSV(path, rows)
}

// buildModel builds a logistic model whose scaler is fitted on the generated
// base table. Inactivity raises the churn odds; activity, tenure and
// satisfaction lower them.
func buildModel(users []*user) *churn.Artifacts {
	cols := make([][]float64, len(ModelFeatures))
	for _, u := range users {
		csat, has := 0.0, 0.0
		if u.csat != nil {
			csat, has = *u.csat, 1
		}
		gap := 0.0
		if u.gapDays != nil {
			gap = *u.gapDays
		}
		row := []float64{u.txCount, u.lastDays, u.amountSum, float64(u.tenure), has, csat, gap}
		for j, v := range row {
			cols[j] = append(cols[j], v)
		}
	}
	mean := make([]float64, len(cols))
	scale := make([]float64, len(cols))
	for j, c := range cols {
		mean[j] = stats.Mean(c)
		scale[j] = stats.StdDev(c)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	return &churn.Artifacts{
		Classifier: &churn.LogisticClassifier{
			Coef:      []float64{-0.6, 1.8, -0.4, -0.3, -0.1, -0.2, 0.3},
			Intercept: -0.5,
			Version:   ModelVersion,
		},
		Scaler: &churn.Scaler{Mean: mean, Scale: scale, Features: ModelFeatures, Version: ModelVersion},
		Schema: &churn.Schema{Features: ModelFeatures, Version: ModelVersion},
		Info: map[string]any{
			"model_type": churn.ModelLogistic,
			"version":    ModelVersion,
			"trained_on": len(users),
		},
	}
}

func writeCSV(path string, rows [][]string) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("datagen: %w", err)
	}
	w := csv.NewWriter(fh)
	if err := w.WriteAll(rows); err != nil {
		_ = fh.Close()
		return fmt.Errorf("datagen: write %s: %w", path, err)
	}
	return fh.Close()
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return ff(*v)
}
