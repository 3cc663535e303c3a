package forecast_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/churnlens/internal/domain/forecast"
	"github.com/okian/churnlens/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func history(rates ...float64) []model.MonthlyAggregate {
	out := make([]model.MonthlyAggregate, len(rates))
	for i, r := range rates {
		out[i] = model.MonthlyAggregate{Month: month(2024, time.Month(i+1)), ChurnRate: r, Revenue: 1000}
	}
	return out
}

func TestProject(t *testing.T) {
	Convey("Given three months of churn history", t, func() {
		h := []model.MonthlyAggregate{
			{Month: month(2024, time.January), ChurnRate: 10, Amount: 1e6, Revenue: 100},
			{Month: month(2024, time.February), ChurnRate: 12, Amount: 1.1e6, Revenue: 110},
			{Month: month(2024, time.March), ChurnRate: 11, Amount: 1.05e6, Revenue: 121},
		}
		p := forecast.DefaultParams()
		p.Window = 0

		res, err := forecast.Project(h, p)
		So(err, ShouldBeNil)

		Convey("Then the trend blends recent and full differences", func() {
			So(res.RecentTrend, ShouldAlmostEqual, 0.5, 1e-9)
			So(res.FullTrend, ShouldAlmostEqual, 0.5, 1e-9)
			So(res.Trend, ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("Then predictions extrapolate from the last value", func() {
			So(len(res.Points), ShouldEqual, 3)
			So(res.Points[0].Predicted, ShouldAlmostEqual, 11.5, 1e-9)
			So(res.Points[2].Predicted, ShouldAlmostEqual, 12.5, 1e-9)
		})

		Convey("Then bands widen with the horizon and stay bounded", func() {
			w1 := res.Points[0].Upper - res.Points[0].Lower
			w3 := res.Points[2].Upper - res.Points[2].Lower
			So(w3, ShouldBeGreaterThan, w1)
			So(w1, ShouldAlmostEqual, 2.2, 1e-9)
			for _, pt := range res.Points {
				So(pt.Lower, ShouldBeGreaterThanOrEqualTo, 0)
				So(pt.Upper, ShouldBeLessThanOrEqualTo, 100)
				So(pt.Upper, ShouldBeGreaterThanOrEqualTo, pt.Predicted)
				So(pt.Predicted, ShouldBeGreaterThanOrEqualTo, pt.Lower)
			}
		})

		Convey("Then the intervention curve only diverges after the anchor", func() {
			So(res.Anchor.PredictedWithIntervention, ShouldEqual, 11)
			So(res.Anchor.Predicted, ShouldEqual, 11)
			So(res.Points[0].PredictedWithIntervention, ShouldAlmostEqual, 11.5*0.85, 1e-9)
		})

		Convey("Then revenue compounds by the last month-over-month ratio", func() {
			So(res.RevenueRatio, ShouldAlmostEqual, 1.1, 1e-9)
			So(res.Points[1].PredictedRevenue, ShouldAlmostEqual, 121*1.1*1.1, 1e-6)
		})

		Convey("Then future months follow the last historical month", func() {
			So(res.Points[0].Month.Equal(month(2024, time.April)), ShouldBeTrue)
			So(res.Points[2].Month.Equal(month(2024, time.June)), ShouldBeTrue)
		})
	})

	Convey("Given a single point of history", t, func() {
		res, err := forecast.Project(history(20), forecast.DefaultParams())

		Convey("Then the projection is flat with a zero-width band", func() {
			So(err, ShouldBeNil)
			So(res.Trend, ShouldEqual, 0)
			for _, pt := range res.Points {
				So(pt.Predicted, ShouldEqual, 20)
				So(pt.Upper, ShouldEqual, pt.Lower)
			}
			So(res.RevenueRatio, ShouldEqual, 1.0)
		})
	})

	Convey("Given only two revenue points", t, func() {
		h := history(10, 11)
		h[0].Revenue = 100
		h[1].Revenue = 200
		res, err := forecast.Project(h, forecast.DefaultParams())

		Convey("Then the revenue ratio stays flat", func() {
			So(err, ShouldBeNil)
			So(res.RevenueRatio, ShouldEqual, 1.0)
			So(res.Points[0].PredictedRevenue, ShouldEqual, 200)
		})
	})

	Convey("Given a steep trend under every scenario", t, func() {
		h := history(10, 40, 70, 95)
		for _, sc := range []forecast.Scenario{forecast.Conservador, forecast.Moderado, forecast.Optimista} {
			p := forecast.DefaultParams()
			p.Scenario = sc
			p.Horizon = 12
			res, err := forecast.Project(h, p)
			So(err, ShouldBeNil)
			for _, pt := range res.Points {
				So(pt.Predicted, ShouldBeBetweenOrEqual, 0, 100)
				So(pt.Upper, ShouldBeBetweenOrEqual, 0, 100)
				So(pt.Lower, ShouldBeBetweenOrEqual, 0, 100)
				So(pt.Upper, ShouldBeGreaterThanOrEqualTo, pt.Predicted)
				So(pt.Predicted, ShouldBeGreaterThanOrEqualTo, pt.Lower)
			}
		}
	})

	Convey("Given a window shorter than the history", t, func() {
		h := history(50, 50, 50, 50, 50, 50, 1, 2, 3, 4, 5, 6)
		p := forecast.DefaultParams()
		p.Window = 6
		res, err := forecast.Project(h, p)

		Convey("Then only the most recent months are used", func() {
			So(err, ShouldBeNil)
			So(res.HistoryUsed, ShouldEqual, 6)
			So(res.FullTrend, ShouldAlmostEqual, 1, 1e-9)
		})
	})
}

func TestParams(t *testing.T) {
	Convey("Given invalid parameters", t, func() {
		p := forecast.DefaultParams()
		p.Horizon = 13
		_, err := forecast.Project(history(1, 2), p)
		So(errors.Is(err, forecast.ErrInvalidParams), ShouldBeTrue)

		p = forecast.DefaultParams()
		p.Intervention = 0.5
		So(errors.Is(p.Validate(), forecast.ErrInvalidParams), ShouldBeTrue)

		p = forecast.DefaultParams()
		p.Window = 7
		So(errors.Is(p.Validate(), forecast.ErrInvalidParams), ShouldBeTrue)

		p = forecast.DefaultParams()
		p.Scenario = "Pesimista"
		So(errors.Is(p.Validate(), forecast.ErrInvalidParams), ShouldBeTrue)
	})

	Convey("Given empty history", t, func() {
		_, err := forecast.Project(nil, forecast.DefaultParams())
		So(errors.Is(err, forecast.ErrEmptyHistory), ShouldBeTrue)
	})

	Convey("Given scenario names", t, func() {
		sc, err := forecast.ParseScenario("optimista")
		So(err, ShouldBeNil)
		So(sc.Factor(), ShouldEqual, 0.9)
	})
}
