package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/churnlens/internal/adapters/csvio"
	"github.com/okian/churnlens/internal/adapters/modelstore"
	"github.com/okian/churnlens/internal/domain/churn"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/priority"
	"github.com/okian/churnlens/internal/domain/ranking"
	"github.com/okian/churnlens/internal/domain/revenue"
	"github.com/okian/churnlens/internal/domain/segment"
	"github.com/okian/churnlens/internal/domain/stats"
	"github.com/okian/churnlens/pkg/logger"
	"github.com/okian/churnlens/pkg/metrics"
)

// Sources locates the input tables. Base, Transactions and ModelDir are
// optional; an empty path disables them.
type Sources struct {
	Calls        string
	Agents       string
	Churn        string
	Base         string
	Transactions string
	ModelDir     string
}

// LoadOptions parameterize one load.
type LoadOptions struct {
	InactivityThreshold float64
	ActivityBoundary    float64
	MinRecords          int
	Weights             priority.Weights
	Ranking             ranking.Options
	Logger              logger.Logger
}

// DefaultLoadOptions returns the business defaults.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		InactivityThreshold: segment.DefaultInactivityThreshold,
		ActivityBoundary:    segment.DefaultActivityBoundary,
		MinRecords:          csvio.DefaultMinRows,
		Weights:             priority.DefaultWeights(),
		Ranking:             ranking.DefaultOptions(),
	}
}

// loader carries the state of one LoadDataset call.
type loader struct {
	opts     LoadOptions
	log      logger.Logger
	reader   *csvio.Reader
	warnings []string
	// fellBack is set when the model failed at scoring time.
	fellBack bool
}

func (l *loader) warn(ctx context.Context, msg string, fields ...logger.Field) {
	l.warnings = append(l.warnings, msg)
	l.log.Warn(ctx, msg, fields...)
}

func (l *loader) warnAll(ctx context.Context, source string, msgs []string) {
	for _, m := range msgs {
		l.warn(ctx, m, logger.String("source", source))
	}
}

// LoadDataset reads every source and derives the immutable dataset: monthly
// aggregates, the scored customer snapshot of the latest month and the
// ranked agents. Missing required files or columns, malformed model
// artifacts and schema drift fail the load with ErrLoad. Everything else
// degrades with a warning recorded on the dataset.
func LoadDataset(ctx context.Context, src Sources, opts LoadOptions) (ds *model.Dataset, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.RecordDatasetLoad(status)
		metrics.RecordDatasetLoadDuration(float64(time.Since(start).Milliseconds()))
	}()

	if opts.InactivityThreshold <= 0 {
		opts.InactivityThreshold = segment.DefaultInactivityThreshold
	}
	if opts.ActivityBoundary <= 0 {
		opts.ActivityBoundary = segment.DefaultActivityBoundary
	}
	if opts.Weights == (priority.Weights{}) {
		opts.Weights = priority.DefaultWeights()
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	l := &loader{
		opts:   opts,
		log:    opts.Logger,
		reader: csvio.New(csvio.WithMinRows(opts.MinRecords)),
	}
	if l.log == nil {
		l.log = logger.Get()
	}

	ds = &model.Dataset{ID: uuid.New(), LoadedAt: time.Now().UTC()}

	var w []string
	if ds.Calls, w, err = l.reader.ReadCalls(ctx, src.Calls); err != nil {
		return nil, loadError("calls", err)
	}
	l.warnAll(ctx, "calls", w)
	if ds.Agents, w, err = l.reader.ReadAgents(ctx, src.Agents); err != nil {
		return nil, loadError("agents", err)
	}
	l.warnAll(ctx, "agents", w)
	if ds.Churn, w, err = l.reader.ReadChurn(ctx, src.Churn); err != nil {
		return nil, loadError("churn", err)
	}
	l.warnAll(ctx, "churn", w)
	if len(ds.Churn) == 0 {
		return nil, loadError("churn", csvio.ErrEmptyFile)
	}

	base, baseTable := l.readBase(ctx, src.Base)
	ds.Base = base
	ds.Transactions = l.readTransactions(ctx, src.Transactions)

	scorer, err := l.selectScorer(ctx, src.ModelDir)
	if err != nil {
		return nil, err
	}

	ds.Monthly = Aggregate(ds.Churn, AggregateInputs{Base: base, Transactions: ds.Transactions})
	ds.LatestMonth = ds.Monthly[len(ds.Monthly)-1].Month

	ds.Customers, ds.Thresholds, ds.ScorerName = l.buildCustomers(ctx, ds.Churn, ds.LatestMonth, base, baseTable, scorer)
	for _, c := range ds.Customers {
		ds.HasGender = ds.HasGender || c.Gender != ""
		ds.HasState = ds.HasState || c.State != ""
	}

	ds.Agents = ranking.Rank(ds.Agents, opts.Ranking)
	ds.Warnings = l.warnings

	l.log.Info(ctx, "dataset loaded",
		logger.String("id", ds.ID.String()),
		logger.Int("months", len(ds.Monthly)),
		logger.Int("customers", len(ds.Customers)),
		logger.Int("agents", len(ds.Agents)),
		logger.String("scorer", ds.ScorerName),
		logger.Int("warnings", len(ds.Warnings)),
		logger.Duration("took", time.Since(start)),
	)
	return ds, nil
}

func loadError(table string, err error) error {
	remedy := "check the configured path"
	switch {
	case errors.Is(err, csvio.ErrMissingColumn):
		remedy = "re-export the table with the expected header"
	case errors.Is(err, csvio.ErrEmptyFile):
		remedy = "the extract has no data rows"
	case errors.Is(err, csvio.ErrMalformed):
		remedy = "the file is not valid CSV"
	}
	return fmt.Errorf("%w: %s table: %w (%s)", ErrLoad, table, err, remedy)
}

// readBase reads the optional base table. Any failure disables enrichment
// with a warning.
func (l *loader) readBase(ctx context.Context, path string) ([]model.BaseRecord, *model.Table) {
	if path == "" {
		return nil, nil
	}
	t, recs, w, err := l.reader.ReadBase(ctx, path)
	if err != nil {
		l.warn(ctx, fmt.Sprintf("base table unavailable, enrichment disabled: %v", err), logger.Error(err))
		return nil, nil
	}
	l.warnAll(ctx, "base", w)
	return recs, t
}

func (l *loader) readTransactions(ctx context.Context, path string) []model.Transaction {
	if path == "" {
		return nil
	}
	txs, w, err := l.reader.ReadTransactions(ctx, path)
	if err != nil {
		l.warn(ctx, fmt.Sprintf("transactions table unavailable, revenue is estimated: %v", err), logger.Error(err))
		return nil
	}
	l.warnAll(ctx, "transactions", w)
	return txs
}

// selectScorer loads the model artifacts. Absent artifacts degrade to the
// heuristic; malformed or drifted ones fail the load.
func (l *loader) selectScorer(ctx context.Context, dir string) (churn.Scorer, error) {
	a, err := modelstore.Load(dir)
	if err != nil {
		if errors.Is(err, modelstore.ErrArtifactsNotFound) {
			l.warn(ctx, "churn model not available, using the inactivity heuristic", logger.Error(err))
			metrics.RecordScoringFallback("artifacts_missing")
			a = nil
		} else {
			return nil, fmt.Errorf("%w: model artifacts: %w (retrain or restore the model directory)", ErrLoad, err)
		}
	}
	scorer, err := churn.Select(a, func(err error) {
		l.fellBack = true
		l.warn(ctx, fmt.Sprintf("churn model failed, using the inactivity heuristic: %v", err), logger.Error(err))
		metrics.RecordScoringFallback("predict_error")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: model artifacts: %w (retrain the model against the current schema)", ErrLoad, err)
	}
	return scorer, nil
}

// buildCustomers derives the snapshot of the latest month: one customer per
// user, scored, classified, segmented and prioritized.
func (l *loader) buildCustomers(
	ctx context.Context,
	records []model.ChurnRecord,
	latest time.Time,
	base []model.BaseRecord,
	baseTable *model.Table,
	scorer churn.Scorer,
) ([]model.Customer, segment.Thresholds, string) {
	T := l.opts.InactivityThreshold

	rows := make([]model.ChurnRecord, 0)
	seen := make(map[string]bool)
	dupes := 0
	for _, r := range records {
		if !r.Month.Equal(latest) {
			continue
		}
		if seen[r.UserID] {
			dupes++
			continue
		}
		seen[r.UserID] = true
		rows = append(rows, r)
	}
	if dupes > 0 {
		l.warn(ctx, fmt.Sprintf("%d duplicate user rows in the latest month ignored", dupes), logger.Int("duplicates", dupes))
	}

	byUser := make(map[string]model.BaseRecord, len(base))
	for _, b := range base {
		if _, ok := byUser[b.UserID]; !ok && b.UserID != "" {
			byUser[b.UserID] = b
		}
	}

	probs, scorerName := l.score(ctx, seen, baseTable, scorer)

	customers := make([]model.Customer, len(rows))
	amounts := make([]float64, len(rows))
	for i, r := range rows {
		days := stats.NonNegative(r.DaysInactive)
		c := model.Customer{
			UserID:       r.UserID,
			DaysInactive: days,
			Risk:         segment.ClassifyRisk(days, T),
			Activity:     segment.ClassifyActivity(days, l.opts.ActivityBoundary, T),
			IsChurned:    r.Churn,
		}
		if p, ok := probs[r.UserID]; ok {
			c.Probability = p
		} else {
			c.Probability = churn.HeuristicProbability(days)
		}
		amounts[i] = stats.NonNegative(r.Amount)
		if b, ok := byUser[r.UserID]; ok {
			if b.AmountSum != nil {
				amounts[i] = stats.NonNegative(*b.AmountSum)
			}
			c.Gender = b.Gender
			c.State = b.State
			c.LastActivity = b.LastTx
		}
		c.HistoricalAmount = amounts[i]
		customers[i] = c
	}

	segs, th := segment.SegmentAll(amounts)
	for i := range customers {
		customers[i].Segment = segs[i]
	}
	if msg := segment.Distribute(segs).Warning(); msg != "" {
		l.warn(ctx, "uneven value segments: "+msg)
	}

	customers = priority.Score(customers, l.opts.Weights)
	metrics.RecordCustomersScored(scorerName, len(customers))
	return customers, th, scorerName
}

// score runs the model over base rows of users present in the latest month
// that are still below the inactivity threshold. Users it does not cover
// get the heuristic later.
func (l *loader) score(ctx context.Context, users map[string]bool, baseTable *model.Table, scorer churn.Scorer) (map[string]float64, string) {
	probs := make(map[string]float64)
	if scorer.Name() != churn.NameML {
		return probs, churn.NameHeuristic
	}
	if baseTable == nil {
		l.warn(ctx, "base table unavailable, churn model skipped")
		metrics.RecordScoringFallback("no_base")
		return probs, churn.NameHeuristic
	}

	T := l.opts.InactivityThreshold
	var selected []int
	for i := 0; i < baseTable.Len(); i++ {
		id := csvio.NormalizeID(baseTable.Cell(i, csvio.ColUserID))
		if !users[id] {
			continue
		}
		if rec, ok := baseTable.Float(i, csvio.ColRecency); ok && rec < T {
			selected = append(selected, i)
		}
	}
	if len(selected) == 0 {
		l.warn(ctx, fmt.Sprintf("no active users to score (all have recency_days >= %g)", T))
		metrics.RecordScoringFallback("no_active_users")
		return probs, churn.NameHeuristic
	}
	active := baseTable.Select(selected)

	report := churn.ValidateDataQuality(active, churn.QualityOptions{
		CriticalFeatures:    churn.DefaultCriticalFeatures,
		MinRecords:          l.opts.MinRecords,
		InactivityThreshold: T,
	})
	for _, w := range report.Warnings {
		l.warn(ctx, "model input: "+w)
	}
	if !report.IsValid {
		for _, issue := range report.Issues {
			l.warn(ctx, "model input rejected: "+issue)
		}
		metrics.RecordScoringFallback("data_quality")
		return probs, churn.NameHeuristic
	}

	start := time.Now()
	out, err := scorer.PredictProba(ctx, active)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		l.warn(ctx, fmt.Sprintf("scoring failed, using the inactivity heuristic: %v", err), logger.Error(err))
		metrics.RecordScoringFallback("predict_error")
		return probs, churn.NameHeuristic
	}
	if l.fellBack {
		// Fallback output is keyed on recency_days; the snapshot proxy uses
		// the churn table's own inactivity instead.
		return map[string]float64{}, churn.NameHeuristic
	}
	for i := 0; i < active.Len(); i++ {
		probs[csvio.NormalizeID(active.Cell(i, csvio.ColUserID))] = out[i]
	}
	return probs, churn.NameML
}

// AggregateInputs are the optional tables used to enrich monthly aggregates.
type AggregateInputs struct {
	Base         []model.BaseRecord
	Transactions []model.Transaction
}

// Aggregate groups churn records by month. The transaction count comes
// from the tx_count column when present, then from the base table per
// user, and otherwise counts rows. Revenue is exact for months with
// itemized transactions and estimated from the amount elsewhere.
func Aggregate(records []model.ChurnRecord, in AggregateInputs) []model.MonthlyAggregate {
	hasTx := false
	for _, r := range records {
		if r.HasTxCount {
			hasTx = true
			break
		}
	}
	var baseTx map[string]float64
	if !hasTx {
		for _, b := range in.Base {
			if b.TxCount == nil {
				continue
			}
			if baseTx == nil {
				baseTx = make(map[string]float64)
			}
			if _, ok := baseTx[b.UserID]; !ok {
				baseTx[b.UserID] = *b.TxCount
			}
		}
	}
	txByMonth := make(map[time.Time][]model.Transaction)
	for _, t := range in.Transactions {
		txByMonth[t.Month] = append(txByMonth[t.Month], t)
	}

	type acc struct {
		rows, churned int
		amount, tx    float64
		users, active map[string]struct{}
	}
	months := make(map[time.Time]*acc)
	for _, r := range records {
		a, ok := months[r.Month]
		if !ok {
			a = &acc{users: make(map[string]struct{}), active: make(map[string]struct{})}
			months[r.Month] = a
		}
		a.rows++
		if r.Churn {
			a.churned++
		}
		a.amount += r.Amount
		switch {
		case hasTx:
			if r.HasTxCount && r.TxCount > 0 {
				a.tx += r.TxCount
			}
		case baseTx != nil:
			a.tx += baseTx[r.UserID]
		default:
			a.tx++
		}
		a.users[r.UserID] = struct{}{}
		if r.Amount > 0 {
			a.active[r.UserID] = struct{}{}
		}
	}

	out := make([]model.MonthlyAggregate, 0, len(months))
	for m, a := range months {
		agg := model.MonthlyAggregate{
			Month:       m,
			ChurnRate:   float64(a.churned) / float64(a.rows) * 100,
			Amount:      a.amount,
			TxCount:     int(a.tx),
			Users:       len(a.users),
			ActiveUsers: len(a.active),
		}
		if txs, ok := txByMonth[m]; ok {
			agg.Revenue = revenue.ComputeExactRevenue(txs)
		} else {
			agg.Revenue = revenue.EstimateFromTotal(a.amount, agg.Users, 0)
		}
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}
