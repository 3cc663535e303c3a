package ranking_test

import (
	"testing"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAdjustedScore(t *testing.T) {
	Convey("Given the shrinkage estimator", t, func() {
		Convey("When an agent won 2 of 2 against a 48% prior", func() {
			score := ranking.AdjustedScore(2, 2, 10, 0.48)

			Convey("Then the score is pulled toward the prior", func() {
				So(score, ShouldAlmostEqual, 56.6667, 1e-3)
			})
		})

		Convey("When an agent has no cases", func() {
			Convey("Then the score equals the prior", func() {
				So(ranking.AdjustedScore(0, 0, 10, 0.48), ShouldAlmostEqual, 48, 1e-9)
			})
		})

		Convey("When an agent has a very large sample", func() {
			score := ranking.AdjustedScore(800_000, 1_000_000, 10, 0.48)

			Convey("Then the score approaches the raw win rate", func() {
				So(score, ShouldAlmostEqual, 80, 1e-3)
			})
		})

		Convey("When the team has no cases", func() {
			Convey("Then the global rate falls back to the configured prior", func() {
				So(ranking.GlobalRate([]model.Agent{{AgentID: "1"}}, 48), ShouldAlmostEqual, 0.48, 1e-9)
			})
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given a team with uneven volumes", t, func() {
		agents := []model.Agent{
			{AgentID: "1", CasesWon: 2, CasesTotal: 2},
			{AgentID: "2", CasesWon: 80, CasesTotal: 100},
			{AgentID: "3", CasesWon: 30, CasesTotal: 100},
			{AgentID: "4", CasesWon: 0, CasesTotal: 0, WinRate: 50},
		}

		ranked := ranking.Rank(agents, ranking.DefaultOptions())

		Convey("Then the high-volume strong agent ranks first", func() {
			So(ranked[0].AgentID, ShouldEqual, "2")
			So(ranked[0].Rank, ShouldEqual, 1)
			So(ranked[len(ranked)-1].Rank, ShouldEqual, len(agents))
		})

		Convey("Then win rate is derived from the counts", func() {
			for _, a := range ranked {
				if a.AgentID == "2" {
					So(a.WinRate, ShouldAlmostEqual, 80, 1e-9)
				}
				if a.AgentID == "4" {
					So(a.WinRate, ShouldAlmostEqual, 50, 1e-9)
				}
			}
		})

		Convey("Then scores are non-increasing down the list", func() {
			for i := 1; i < len(ranked); i++ {
				So(ranked[i].BayesianScore, ShouldBeLessThanOrEqualTo, ranked[i-1].BayesianScore)
			}
		})

		Convey("Then the input slice is untouched", func() {
			So(agents[0].BayesianScore, ShouldEqual, 0)
			So(agents[0].Rank, ShouldEqual, 0)
		})

		Convey("Then bands use the raw win rate", func() {
			for _, a := range ranked {
				if a.AgentID == "1" {
					So(a.Band, ShouldEqual, ranking.BandTop)
				}
				if a.AgentID == "3" {
					So(a.Band, ShouldEqual, ranking.BandBottom)
				}
			}
		})
	})

	Convey("Given agents with identical adjusted scores", t, func() {
		agents := []model.Agent{
			{AgentID: "a", CasesWon: 0, CasesTotal: 0},
			{AgentID: "b", CasesWon: 0, CasesTotal: 0},
			{AgentID: "c", CasesWon: 5, CasesTotal: 10},
			{AgentID: "d", CasesWon: 10, CasesTotal: 20},
		}
		ranked := ranking.Rank(agents, ranking.Options{Confidence: 10, DefaultGlobalRate: 48})

		Convey("Then more cases win the tie, then the lower ID", func() {
			So(ranked[0].AgentID, ShouldEqual, "d")
			So(ranked[1].AgentID, ShouldEqual, "c")
			So(ranked[2].AgentID, ShouldEqual, "a")
			So(ranked[3].AgentID, ShouldEqual, "b")
		})
	})
}

func TestFilterAndSummary(t *testing.T) {
	Convey("Given a ranked team", t, func() {
		ranked := ranking.Rank([]model.Agent{
			{AgentID: "10", CasesWon: 9, CasesTotal: 10},
			{AgentID: "11", CasesWon: 5, CasesTotal: 10},
			{AgentID: "12", CasesWon: 1, CasesTotal: 10},
		}, ranking.DefaultOptions())

		Convey("When filtering by a valid id", func() {
			out, warnings := ranking.Filter{AgentID: "011"}.Apply(ranked)
			So(warnings, ShouldBeEmpty)
			So(len(out), ShouldEqual, 1)
			So(out[0].AgentID, ShouldEqual, "11")
		})

		Convey("When the id is not numeric", func() {
			out, warnings := ranking.Filter{AgentID: "abc"}.Apply(ranked)

			Convey("Then the filter is skipped with a warning", func() {
				So(len(out), ShouldEqual, 3)
				So(len(warnings), ShouldEqual, 1)
			})
		})

		Convey("When filtering by win rate and limit", func() {
			lo := 40.0
			out, _ := ranking.Filter{MinWinRate: &lo, Limit: 1}.Apply(ranked)
			So(len(out), ShouldEqual, 1)
			So(out[0].AgentID, ShouldEqual, "10")
		})

		Convey("When summarizing", func() {
			s := ranking.Summarize(ranked, ranking.DefaultOptions())
			So(s.Agents, ShouldEqual, 3)
			So(s.TotalCases, ShouldEqual, 30)
			So(s.TotalWon, ShouldEqual, 15)
			So(s.SuccessRate, ShouldAlmostEqual, 50, 1e-9)
			So(s.AvgWinRate, ShouldAlmostEqual, 50, 1e-9)
			So(s.StdWinRate, ShouldAlmostEqual, 40, 1e-9)
		})
	})
}
