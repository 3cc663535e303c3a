package segment_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/churnlens/internal/domain/segment"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassifyRisk(t *testing.T) {
	Convey("Given the default inactivity threshold of 42 days", t, func() {
		const th = 42.0

		Convey("Then the tier boundaries follow the threshold fractions", func() {
			So(segment.ClassifyRisk(0, th), ShouldEqual, segment.RiskBajo)
			So(segment.ClassifyRisk(20.999, th), ShouldEqual, segment.RiskBajo)
			So(segment.ClassifyRisk(21, th), ShouldEqual, segment.RiskMedio)
			So(segment.ClassifyRisk(31.5, th), ShouldEqual, segment.RiskAlto)
			So(segment.ClassifyRisk(41.999, th), ShouldEqual, segment.RiskAlto)
			So(segment.ClassifyRisk(42, th), ShouldEqual, segment.RiskCritico)
			So(segment.ClassifyRisk(400, th), ShouldEqual, segment.RiskCritico)
		})

		Convey("Then tiers never decrease as days grow", func() {
			prev := segment.RiskUnknown
			for d := 0.0; d <= 100; d += 0.5 {
				cur := segment.ClassifyRisk(d, th)
				So(cur, ShouldBeGreaterThanOrEqualTo, prev)
				prev = cur
			}
		})

		Convey("Then negative days are treated as zero", func() {
			So(segment.ClassifyRisk(-5, th), ShouldEqual, segment.RiskBajo)
		})
	})
}

func TestClassifyActivity(t *testing.T) {
	Convey("Given the activity boundary and threshold", t, func() {
		So(segment.ClassifyActivity(29.9, 30, 42), ShouldEqual, segment.Activo)
		So(segment.ClassifyActivity(30, 30, 42), ShouldEqual, segment.EnRiesgo)
		So(segment.ClassifyActivity(41, 30, 42), ShouldEqual, segment.EnRiesgo)
		So(segment.ClassifyActivity(42, 30, 42), ShouldEqual, segment.Churneado)
		So(segment.IsChurned(42, 42), ShouldBeTrue)
		So(segment.IsChurned(41.5, 42), ShouldBeFalse)
	})
}

func TestThresholds(t *testing.T) {
	Convey("Given amounts with zeros mixed in", t, func() {
		amounts := []float64{0, 0, 0, 100, 200, 300, 400, 500, 600, 700}
		segs, th := segment.SegmentAll(amounts)

		Convey("Then percentiles ignore non-positive amounts", func() {
			So(th.Calibrated, ShouldBeTrue)
			So(th.PositiveCount, ShouldEqual, 7)
			So(th.P33, ShouldAlmostEqual, 298, 1e-9)
			So(th.P66, ShouldAlmostEqual, 496, 1e-9)
			So(th.P66, ShouldBeGreaterThan, th.P33)
		})

		Convey("Then segments are ordered by amount", func() {
			So(segs[0], ShouldEqual, segment.Basico)
			So(segs[4], ShouldEqual, segment.Basico)
			So(segs[6], ShouldEqual, segment.Premium)
			So(segs[9], ShouldEqual, segment.VIP)
		})
	})

	Convey("Given no positive amounts", t, func() {
		segs, th := segment.SegmentAll([]float64{0, 0, -3})

		Convey("Then everyone is Básico", func() {
			So(th.Calibrated, ShouldBeFalse)
			for _, s := range segs {
				So(s, ShouldEqual, segment.Basico)
			}
		})
	})

	Convey("Given a skewed distribution", t, func() {
		d := segment.Distribute([]segment.ValueSegment{segment.Basico, segment.Basico, segment.VIP})

		Convey("Then a warning names the empty segment", func() {
			So(d.Warning(), ShouldContainSubstring, "Premium")
		})
	})
}

func TestLabels(t *testing.T) {
	Convey("Given label round-trips", t, func() {
		r, err := segment.ParseRiskTier("critico")
		So(err, ShouldBeNil)
		So(r, ShouldEqual, segment.RiskCritico)
		So(r.String(), ShouldEqual, "Crítico")

		_, err = segment.ParseRiskTier("extreme")
		So(errors.Is(err, segment.ErrUnknownLabel), ShouldBeTrue)

		b, err := json.Marshal(segment.VIP)
		So(err, ShouldBeNil)
		So(string(b), ShouldEqual, `"VIP"`)

		var v segment.ValueSegment
		So(json.Unmarshal([]byte(`"Basico"`), &v), ShouldBeNil)
		So(v, ShouldEqual, segment.Basico)
		So(segment.RiskBajo < segment.RiskCritico, ShouldBeTrue)
	})
}
