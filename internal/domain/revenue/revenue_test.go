package revenue_test

import (
	"testing"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/revenue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestComputeExactRevenue(t *testing.T) {
	Convey("Given itemized transactions", t, func() {
		Convey("When the input is empty", func() {
			Convey("Then revenue is exactly zero", func() {
				So(revenue.ComputeExactRevenue(nil), ShouldEqual, 0.0)
			})
		})

		Convey("When rows carry flat fees", func() {
			rows := []model.Transaction{
				{Type: "retiro_qr", Amount: 500, Count: 2},
				{Type: "deposito_efectivo_tienda", Amount: 100, Count: 1},
			}

			Convey("Then each unit is charged the flat fee", func() {
				So(revenue.ComputeExactRevenue(rows), ShouldAlmostEqual, 37.0, 1e-9)
			})
		})

		Convey("When rows include taxed flat fees", func() {
			rows := []model.Transaction{{Type: "aclaracion_improcedente", Count: 1}}

			Convey("Then tax is included", func() {
				So(revenue.ComputeExactRevenue(rows), ShouldAlmostEqual, 336.4, 1e-9)
			})
		})

		Convey("When a card deposit is included", func() {
			rows := []model.Transaction{{Type: "deposito_tarjeta", Amount: 1000, Count: 3}}

			Convey("Then the percentage formula applies per unit", func() {
				// (1000*0.022 + 1.50) * 1.16 = 27.26 per deposit
				So(revenue.ComputeExactRevenue(rows), ShouldAlmostEqual, 81.78, 1e-9)
			})
		})

		Convey("When the type is unknown or free", func() {
			rows := []model.Transaction{
				{Type: "crypto_swap", Amount: 1e9, Count: 10},
				{Type: "envio_dinero", Amount: 1e6, Count: 10},
			}

			Convey("Then it contributes nothing", func() {
				So(revenue.ComputeExactRevenue(rows), ShouldEqual, 0.0)
			})
		})

		Convey("When amounts and counts are negative", func() {
			rows := []model.Transaction{
				{Type: "retiro_qr", Count: -4},
				{Type: "deposito_tarjeta", Amount: -1000, Count: 1},
			}

			Convey("Then they are clipped and revenue stays non-negative", func() {
				So(revenue.ComputeExactRevenue(rows), ShouldAlmostEqual, 1.74, 1e-9)
			})
		})

		Convey("Then revenue is linear in count for a fixed type and amount", func() {
			one := revenue.ComputeExactRevenue([]model.Transaction{{Type: "deposito_tarjeta", Amount: 250, Count: 1}})
			for n := 2; n <= 6; n++ {
				got := revenue.ComputeExactRevenue([]model.Transaction{{Type: "deposito_tarjeta", Amount: 250, Count: n}})
				So(got, ShouldAlmostEqual, one*float64(n), 1e-9)
			}
		})
	})
}

func TestEstimateFromTotal(t *testing.T) {
	Convey("Given an aggregate amount", t, func() {
		Convey("When the user count is known", func() {
			got := revenue.EstimateFromTotal(1_000_000, 100, 0)

			Convey("Then rate and per-user fee are combined", func() {
				So(got, ShouldAlmostEqual, 4570.0, 1e-9)
			})
		})

		Convey("When only transactions are known", func() {
			got := revenue.EstimateFromTotal(0, 0, 80)

			Convey("Then users are approximated as transactions/8", func() {
				So(got, ShouldAlmostEqual, 57.0, 1e-9)
			})
		})

		Convey("When inputs are degenerate", func() {
			So(revenue.EstimateFromTotal(-100, -1, -1), ShouldEqual, 0.0)
			So(revenue.EstimateFromTotal(0, 0, 0), ShouldEqual, 0.0)
		})
	})

	Convey("Given the fee schedule", t, func() {
		f, ok := revenue.FeeFor("deposito_tarjeta")
		So(ok, ShouldBeTrue)
		So(f.Kind, ShouldEqual, revenue.FeePercentage)

		_, ok = revenue.FeeFor("unknown")
		So(ok, ShouldBeFalse)
	})
}
