package api

import (
	"errors"
	"net/url"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestQueryParsing(t *testing.T) {
	Convey("Given a query with repeated and comma-separated values", t, func() {
		q := newQuery(url.Values{"risk": {"alto, critico", "bajo"}, "n": {"x"}, "p": {"1.5"}})

		Convey("Then lists are flattened and trimmed", func() {
			So(q.list("risk"), ShouldResemble, []string{"alto", "critico", "bajo"})
		})

		Convey("Then every parse failure is reported at once", func() {
			_ = q.int("n", 3)
			_ = q.float("n")
			So(*q.float("p"), ShouldEqual, 1.5)
			err := q.err()
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "not an integer")
			So(err.Error(), ShouldContainSubstring, "not a number")
		})
	})

	Convey("Given month parameters", t, func() {
		q := newQuery(url.Values{"a": {"2024-03"}, "b": {"2024-03-15"}, "c": {"March"}})
		So(q.month("a").Month().String(), ShouldEqual, "March")
		So(q.month("b").Day(), ShouldEqual, 15)
		So(q.month("c"), ShouldBeNil)
		So(q.err(), ShouldNotBeNil)
	})
}

func TestPaginate(t *testing.T) {
	Convey("Given a list of five items", t, func() {
		items := []int{1, 2, 3, 4, 5}

		So(paginate(items, page{Limit: 2, Offset: 0}), ShouldResemble, []int{1, 2})
		So(paginate(items, page{Limit: 10, Offset: 3}), ShouldResemble, []int{4, 5})
		So(paginate(items, page{Limit: 2, Offset: 5}), ShouldResemble, []int{})
	})
}

func TestParseCustomerSet(t *testing.T) {
	Convey("Given no parameters", t, func() {
		set, pg, err := parseCustomerSet(url.Values{})

		Convey("Then the set is empty and the default page applies", func() {
			So(err, ShouldBeNil)
			So(set.Risks, ShouldBeEmpty)
			So(set.Probability, ShouldBeNil)
			So(pg.Limit, ShouldEqual, defaultPageSize)
		})
	})

	Convey("Given IDs as free text", t, func() {
		set, _, err := parseCustomerSet(url.Values{"ids": {"12, 15 abc"}})
		So(err, ShouldBeNil)
		So(set.IDText, ShouldEqual, "12, 15 abc")
	})
}
