package api

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	service "github.com/okian/churnlens/internal/app"
	"github.com/okian/churnlens/internal/domain/filter"
	"github.com/okian/churnlens/internal/domain/forecast"
	"github.com/okian/churnlens/internal/domain/ranking"
	"github.com/okian/churnlens/internal/domain/segment"
	"github.com/okian/churnlens/internal/domain/types"
)

// Query parameter defaults.
const (
	defaultReasons  = 10
	defaultPageSize = 100
)

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	return v
}()

// query accumulates parse errors while reading typed values from a URL
// query, so a request reports every bad parameter at once.
type query struct {
	values url.Values
	errs   []string
}

func newQuery(v url.Values) *query { return &query{values: v} }

func (q *query) str(key string) string { return strings.TrimSpace(q.values.Get(key)) }

// list reads a repeated or comma-separated parameter.
func (q *query) list(key string) []string {
	var out []string
	for _, v := range q.values[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (q *query) float(key string) *float64 {
	s := q.str(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		q.errs = append(q.errs, fmt.Sprintf("%s: not a number", key))
		return nil
	}
	return &v
}

func (q *query) int(key string, def int) int {
	s := q.str(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		q.errs = append(q.errs, fmt.Sprintf("%s: not an integer", key))
		return def
	}
	return v
}

func (q *query) bool(key string) bool {
	s := q.str(key)
	if s == "" {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		q.errs = append(q.errs, fmt.Sprintf("%s: not a boolean", key))
	}
	return v
}

// month accepts YYYY-MM or YYYY-MM-DD.
func (q *query) month(key string) *time.Time {
	s := q.str(key)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	q.errs = append(q.errs, fmt.Sprintf("%s: expected YYYY-MM", key))
	return nil
}

func (q *query) err() error {
	if len(q.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(q.errs, "; "))
}

func rangeOf(lo, hi *float64) *types.Range {
	if lo == nil && hi == nil {
		return nil
	}
	return &types.Range{Min: lo, Max: hi}
}

// validateStruct runs the validator and flattens its errors into one
// ErrBadRequest naming each offending parameter.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(msgs, "; "))
}

// historyQuery is the query of /overview and /history.
type historyQuery struct {
	From      *time.Time `query:"from"`
	To        *time.Time `query:"to"`
	Analysis  string     `query:"analysis" validate:"omitempty,oneof=all churned active"`
	AmountMin *float64   `query:"amount_min" validate:"omitempty,gte=0"`
	AmountMax *float64   `query:"amount_max" validate:"omitempty,gte=0"`
}

func parseHistoryFilter(v url.Values) (service.HistoryFilter, error) {
	q := newQuery(v)
	hq := historyQuery{
		From:      q.month("from"),
		To:        q.month("to"),
		Analysis:  strings.ToLower(q.str("analysis")),
		AmountMin: q.float("amount_min"),
		AmountMax: q.float("amount_max"),
	}
	if err := q.err(); err != nil {
		return service.HistoryFilter{}, err
	}
	if err := validateStruct(hq); err != nil {
		return service.HistoryFilter{}, err
	}
	if hq.From != nil && hq.To != nil && hq.To.Before(*hq.From) {
		return service.HistoryFilter{}, fmt.Errorf("%w: to is before from", ErrBadRequest)
	}
	return service.HistoryFilter{
		From:     hq.From,
		To:       hq.To,
		Analysis: service.Analysis(hq.Analysis),
		Amount:   rangeOf(hq.AmountMin, hq.AmountMax),
	}, nil
}

// parseForecastParams starts from the defaults and overrides what the
// request sets. Range checks are left to forecast.Params.Validate.
func parseForecastParams(v url.Values) (forecast.Params, error) {
	q := newQuery(v)
	p := forecast.DefaultParams()
	p.Horizon = q.int("horizon", p.Horizon)
	p.Window = q.int("window", p.Window)
	if w := q.float("recent_weight"); w != nil {
		p.RecentWeight = *w
	}
	if iv := q.float("intervention"); iv != nil {
		p.Intervention = *iv
	}
	if err := q.err(); err != nil {
		return forecast.Params{}, err
	}
	if s := q.str("scenario"); s != "" {
		sc, err := forecast.ParseScenario(s)
		if err != nil {
			return forecast.Params{}, err
		}
		p.Scenario = sc
	}
	return p, p.Validate()
}

// customersQuery is the query of /customers and /customers/export.
type customersQuery struct {
	Preset     string   `query:"preset" validate:"omitempty,oneof=urgente alto_valor vip limpiar"`
	IDs        string   `query:"ids"`
	Risks      []string `query:"risk"`
	Segments   []string `query:"segment"`
	ProbMin    *float64 `query:"prob_min" validate:"omitempty,gte=0,lte=1"`
	ProbMax    *float64 `query:"prob_max" validate:"omitempty,gte=0,lte=1"`
	DaysMin    *float64 `query:"days_min" validate:"omitempty,gte=0"`
	DaysMax    *float64 `query:"days_max" validate:"omitempty,gte=0"`
	AmountMin  *float64 `query:"amount_min" validate:"omitempty,gte=0"`
	AmountMax  *float64 `query:"amount_max" validate:"omitempty,gte=0"`
	Genders    []string `query:"gender"`
	Actionable bool     `query:"actionable"`
	Top        int      `query:"top" validate:"gte=0"`
	Limit      int      `query:"limit" validate:"gte=1,lte=10000"`
	Offset     int      `query:"offset" validate:"gte=0"`
}

// parseCustomerSet builds the filter set. A preset provides the starting
// risks and segments; explicit risk and segment parameters replace them.
func parseCustomerSet(v url.Values) (filter.Set, page, error) {
	q := newQuery(v)
	cq := customersQuery{
		Preset:     strings.ToLower(q.str("preset")),
		IDs:        q.str("ids"),
		Risks:      q.list("risk"),
		Segments:   q.list("segment"),
		ProbMin:    q.float("prob_min"),
		ProbMax:    q.float("prob_max"),
		DaysMin:    q.float("days_min"),
		DaysMax:    q.float("days_max"),
		AmountMin:  q.float("amount_min"),
		AmountMax:  q.float("amount_max"),
		Genders:    q.list("gender"),
		Actionable: q.bool("actionable"),
		Top:        q.int("top", 0),
		Limit:      q.int("limit", defaultPageSize),
		Offset:     q.int("offset", 0),
	}
	if err := q.err(); err != nil {
		return filter.Set{}, page{}, err
	}
	if err := validateStruct(cq); err != nil {
		return filter.Set{}, page{}, err
	}

	set, _ := filter.Preset(cq.Preset)
	if len(cq.Risks) > 0 {
		set.Risks = set.Risks[:0:0]
		for _, s := range cq.Risks {
			r, err := segment.ParseRiskTier(s)
			if err != nil {
				return filter.Set{}, page{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
			}
			set.Risks = append(set.Risks, r)
		}
	}
	if len(cq.Segments) > 0 {
		set.Segments = set.Segments[:0:0]
		for _, s := range cq.Segments {
			seg, err := segment.ParseValueSegment(s)
			if err != nil {
				return filter.Set{}, page{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
			}
			set.Segments = append(set.Segments, seg)
		}
	}
	set.IDText = cq.IDs
	set.Probability = rangeOf(cq.ProbMin, cq.ProbMax)
	set.Days = rangeOf(cq.DaysMin, cq.DaysMax)
	set.Amount = rangeOf(cq.AmountMin, cq.AmountMax)
	set.Genders = cq.Genders
	set.ActionableOnly = cq.Actionable
	set.TopN = cq.Top
	return set, page{Limit: cq.Limit, Offset: cq.Offset}, nil
}

// agentsQuery is the query of /agents and /agents/export.
type agentsQuery struct {
	AgentID    string   `query:"agent_id"`
	MinWinRate *float64 `query:"min_win_rate" validate:"omitempty,gte=0,lte=100"`
	MaxWinRate *float64 `query:"max_win_rate" validate:"omitempty,gte=0,lte=100"`
	Limit      int      `query:"limit" validate:"gte=0,lte=10000"`
}

func parseAgentFilter(v url.Values) (ranking.Filter, error) {
	q := newQuery(v)
	aq := agentsQuery{
		AgentID:    q.str("agent_id"),
		MinWinRate: q.float("min_win_rate"),
		MaxWinRate: q.float("max_win_rate"),
		Limit:      q.int("limit", 0),
	}
	if err := q.err(); err != nil {
		return ranking.Filter{}, err
	}
	if err := validateStruct(aq); err != nil {
		return ranking.Filter{}, err
	}
	return ranking.Filter{
		AgentID:    aq.AgentID,
		MinWinRate: aq.MinWinRate,
		MaxWinRate: aq.MaxWinRate,
		Limit:      aq.Limit,
	}, nil
}

type reasonsQuery struct {
	Limit int `query:"limit" validate:"gte=1,lte=100"`
}

func parseReasonsLimit(v url.Values) (int, error) {
	q := newQuery(v)
	rq := reasonsQuery{Limit: q.int("limit", defaultReasons)}
	if err := q.err(); err != nil {
		return 0, err
	}
	if err := validateStruct(rq); err != nil {
		return 0, err
	}
	return rq.Limit, nil
}

// page is a window over a list response.
type page struct {
	Limit  int
	Offset int
}

func paginate[T any](items []T, p page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}
