package model_test

import (
	"testing"
	"time"

	model "github.com/okian/churnlens/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	convey.Convey("Given a table with nullable cells", t, func() {
		tbl := model.NewTable(
			[]string{"id_user", "recency_days", "cc_csats_mean"},
			[][]string{
				{"1", "12", "4.5"},
				{"2", "NaN", ""},
				{"3", "50"},
			},
		)

		convey.Convey("Then columns are looked up by name", func() {
			convey.So(tbl.Len(), convey.ShouldEqual, 3)
			convey.So(tbl.Has("recency_days"), convey.ShouldBeTrue)
			convey.So(tbl.Has("gender"), convey.ShouldBeFalse)
		})

		convey.Convey("Then null-like cells parse as missing", func() {
			v, ok := tbl.Float(0, "recency_days")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, 12)

			_, ok = tbl.Float(1, "recency_days")
			convey.So(ok, convey.ShouldBeFalse)

			_, ok = tbl.Float(2, "cc_csats_mean")
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then Select keeps the requested rows in order", func() {
			sub := tbl.Select([]int{2, 0})
			convey.So(sub.Len(), convey.ShouldEqual, 2)
			convey.So(sub.Cell(0, "id_user"), convey.ShouldEqual, "3")
			convey.So(sub.Cell(1, "id_user"), convey.ShouldEqual, "1")
		})
	})
}

func TestParsers(t *testing.T) {
	convey.Convey("Given raw CSV values", t, func() {
		b, ok := model.ParseBool("True")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(b, convey.ShouldBeTrue)

		_, ok = model.ParseBool("maybe")
		convey.So(ok, convey.ShouldBeFalse)

		v, ok := model.ParseFloat("false")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(v, convey.ShouldEqual, 0)

		for _, raw := range []string{"inf", "-Inf", "Infinity", "+infinity", "NaN", "nan"} {
			_, ok = model.ParseFloat(raw)
			convey.So(ok, convey.ShouldBeFalse)
		}

		m := model.MonthStart(time.Date(2024, 3, 17, 15, 4, 0, 0, time.UTC))
		convey.So(m.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
	})
}

func TestLessUserID(t *testing.T) {
	convey.Convey("Given user IDs of different widths", t, func() {
		convey.So(model.LessUserID("9", "10"), convey.ShouldBeTrue)
		convey.So(model.LessUserID("10", "9"), convey.ShouldBeFalse)
		convey.So(model.LessUserID("7", "7"), convey.ShouldBeFalse)
		convey.So(model.LessUserID("42", "abc"), convey.ShouldBeTrue)
		convey.So(model.LessUserID("abc", "42"), convey.ShouldBeFalse)
		convey.So(model.LessUserID("abc", "abd"), convey.ShouldBeTrue)
	})
}
