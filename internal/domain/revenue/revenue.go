// Package revenue estimates commission revenue from transaction activity.
//
// Two models are provided. The itemized model walks individual transaction
// rows and applies the fixed fee schedule. The estimated model is used for
// monthly aggregates that only carry a total amount and a user or
// transaction count.
package revenue

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/okian/churnlens/internal/domain/model"
)

// FeeKind describes how a transaction type is charged.
type FeeKind int

const (
	// FeeNone means the transaction type is free.
	FeeNone FeeKind = iota
	// FeeFlat charges a fixed amount per transaction.
	FeeFlat
	// FeePercentage charges a rate over the amount plus a flat part, with tax.
	FeePercentage
)

// Fee is one entry of the commission schedule.
type Fee struct {
	Kind FeeKind
	Flat decimal.Decimal
	Rate decimal.Decimal
}

var (
	taxMultiplier = decimal.RequireFromString("1.16")

	cardDepositRate = decimal.RequireFromString("0.022")
	cardDepositFlat = decimal.RequireFromString("1.50")

	// EffectiveRate is the blended commission over transacted amount.
	EffectiveRate = decimal.RequireFromString("0.004")
	// FixedPerUser is the estimated flat-fee revenue per active user per month.
	FixedPerUser = decimal.RequireFromString("5.70")
	// TransactionsPerUser converts a transaction count into an approximate user count.
	TransactionsPerUser = decimal.NewFromInt(8)
)

func flat(s string) Fee { return Fee{Kind: FeeFlat, Flat: decimal.RequireFromString(s)} }

func flatWithTax(s string) Fee {
	return Fee{Kind: FeeFlat, Flat: decimal.RequireFromString(s).Mul(taxMultiplier)}
}

var schedule = map[string]Fee{
	"deposito_efectivo_tienda": flat("13.0"),
	"retiro_qr":                flat("12.0"),
	"retiro_sin_tarjeta":       flat("18.0"),
	"reposicion_tarjeta":       flat("55.0"),
	"aclaracion_improcedente":  flatWithTax("290.0"),
	"transferencia_extra":      flatWithTax("2.20"),
	"tarjeta_fisica":           flat("55.0"),
	"deposito_transferencia":   {Kind: FeeNone},
	"transferencia_danu":       {Kind: FeeNone},
	"pago_servicios":           {Kind: FeeNone},
	"envio_dinero":             {Kind: FeeNone},
	"deposito_tarjeta":         {Kind: FeePercentage, Flat: cardDepositFlat, Rate: cardDepositRate},
}

// FeeFor returns the schedule entry for a transaction type.
func FeeFor(txType string) (Fee, bool) {
	f, ok := schedule[txType]
	return f, ok
}

// Commission returns the fee for a single unit of a transaction of the given amount.
func (f Fee) Commission(amount decimal.Decimal) decimal.Decimal {
	switch f.Kind {
	case FeeFlat:
		return f.Flat
	case FeePercentage:
		return amount.Mul(f.Rate).Add(f.Flat).Mul(taxMultiplier)
	default:
		return decimal.Zero
	}
}

// ComputeExactRevenue sums the commission of every row. Unknown transaction
// types contribute nothing; negative amounts and counts are treated as zero.
func ComputeExactRevenue(rows []model.Transaction) float64 {
	total := decimal.Zero
	for _, r := range rows {
		fee, ok := schedule[r.Type]
		if !ok || r.Count <= 0 {
			continue
		}
		amount := decimal.NewFromFloat(clip(r.Amount))
		total = total.Add(fee.Commission(amount).Mul(decimal.NewFromInt(int64(r.Count))))
	}
	return total.InexactFloat64()
}

// EstimateFromTotal estimates revenue from a transacted amount and a count
// of users. When users is not positive, transactions/8 is used instead.
func EstimateFromTotal(amount float64, users, transactions int) float64 {
	base := decimal.NewFromFloat(clip(amount)).Mul(EffectiveRate)
	switch {
	case users > 0:
		base = base.Add(FixedPerUser.Mul(decimal.NewFromInt(int64(users))))
	case transactions > 0:
		approxUsers := decimal.NewFromInt(int64(transactions)).Div(TransactionsPerUser)
		base = base.Add(FixedPerUser.Mul(approxUsers))
	}
	return base.InexactFloat64()
}

func clip(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
		return 0
	}
	return x
}
