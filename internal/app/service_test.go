package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/churnlens/internal/adapters/repository"
	service "github.com/okian/churnlens/internal/app"
	"github.com/okian/churnlens/internal/config"
	"github.com/okian/churnlens/internal/datagen"
	"github.com/okian/churnlens/internal/domain/churn"
	"github.com/okian/churnlens/internal/domain/filter"
	"github.com/okian/churnlens/internal/domain/forecast"
	"github.com/okian/churnlens/internal/domain/ranking"
	"github.com/okian/churnlens/internal/domain/segment"
	"github.com/okian/churnlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func generate(t *testing.T, mutate func(*datagen.Options)) service.Sources {
	t.Helper()
	opts := datagen.DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	files, err := datagen.Generate(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("generate dataset: %v", err)
	}
	return service.Sources{
		Calls:        files.Calls,
		Agents:       files.Agents,
		Churn:        files.Churn,
		Base:         files.Base,
		Transactions: files.Transactions,
		ModelDir:     files.ModelDir,
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it is created stopped", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Then queries fail until it is started", func() {
			_, err := svc.Dataset(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(svc.Reload(context.Background()), service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a service built from configuration", t, func() {
		cfg := config.New()
		cfg.QueryCacheSize = 8
		svc := service.New(service.WithConfig(cfg))

		Convey("Then the configuration is applied", func() {
			So(svc.GetStats()["cacheSize"], ShouldEqual, 8)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service over a generated dataset", t, func() {
		src := generate(t, nil)
		svc := service.New(service.WithSources(src))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it starts with the model scorer", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["scorer"], ShouldEqual, churn.NameML)
				So(stats["months"], ShouldEqual, 12)
				So(stats["totalCustomers"], ShouldEqual, 200)
				So(stats["totalAgents"], ShouldEqual, 15)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
				So(svc.GetStats()["reloads"], ShouldEqual, int64(1))
			})
		})
	})

	Convey("Given a missing churn table", t, func() {
		src := generate(t, nil)
		src.Churn = src.Churn + ".missing"
		svc := service.New(service.WithSources(src))

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then the load fails and the service stays stopped", func() {
				So(errors.Is(err, service.ErrLoad), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "churn")
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given no model artifacts", t, func() {
		src := generate(t, func(o *datagen.Options) { o.WithModel = false })
		svc := service.New(service.WithSources(src))
		defer svc.Stop()

		Convey("When starting the service", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			ds, err := svc.Dataset(context.Background())
			So(err, ShouldBeNil)

			Convey("Then the heuristic scores every customer with a warning", func() {
				So(ds.ScorerName, ShouldEqual, churn.NameHeuristic)
				So(strings.Join(ds.Warnings, "\n"), ShouldContainSubstring, "inactivity heuristic")
				for _, c := range ds.Customers {
					So(c.Probability, ShouldEqual, churn.HeuristicProbability(c.DaysInactive))
				}
			})
		})
	})
}

func TestService_NegativeInputs(t *testing.T) {
	Convey("Given a churn table with negative days and amounts", t, func() {
		src := generate(t, nil)
		src.Base, src.Transactions, src.ModelDir = "", "", ""

		lines := []string{"mes,churn,monto_total,id_user,dias_sin_transacciones"}
		lines = append(lines, "2024-06-01,0,-30,1,-5")
		for i := 2; i <= 12; i++ {
			lines = append(lines, fmt.Sprintf("2024-06-01,0,%d,%d,%d", i*100, i, i*4))
		}
		src.Churn = filepath.Join(t.TempDir(), "churn.csv")
		So(os.WriteFile(src.Churn, []byte(strings.Join(lines, "\n")), 0o600), ShouldBeNil)

		svc := service.New(service.WithSources(src))
		defer svc.Stop()
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("Then the snapshot stores them clipped at zero", func() {
			c, err := svc.Customer(context.Background(), "1")
			So(err, ShouldBeNil)
			So(c.DaysInactive, ShouldEqual, 0)
			So(c.HistoricalAmount, ShouldEqual, 0)
			So(c.Risk, ShouldEqual, segment.RiskBajo)
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithSources(generate(t, nil)))
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it is marked as stopped and queries fail", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, err := svc.Dataset(context.Background())
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("And stopping twice is safe", func() {
				So(func() { svc.Stop() }, ShouldNotPanic)
			})
		})
	})
}

func TestService_Queries(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithSources(generate(t, nil)), service.WithMaxExportRows(10))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When requesting customers without filters", func() {
			res, err := svc.Customers(ctx, filter.Set{})
			So(err, ShouldBeNil)

			Convey("Then the queue covers the snapshot in priority order", func() {
				So(res.Total, ShouldEqual, 200)
				So(res.Summary.Customers, ShouldEqual, 200)
				for i := 1; i < len(res.Customers); i++ {
					So(res.Customers[i-1].PriorityScore, ShouldBeGreaterThanOrEqualTo, res.Customers[i].PriorityScore)
				}
				So(len(res.ByGender), ShouldBeGreaterThan, 0)
			})

			Convey("And the same query is served from cache", func() {
				_, err := svc.Customers(ctx, filter.Set{})
				So(err, ShouldBeNil)
				So(svc.GetStats()["cachedQueries"], ShouldEqual, int64(1))
			})
		})

		Convey("When an invalid id query follows a cached unfiltered query", func() {
			_, err := svc.Customers(ctx, filter.Set{})
			So(err, ShouldBeNil)
			res, err := svc.Customers(ctx, filter.Set{IDText: "abc"})
			So(err, ShouldBeNil)

			Convey("Then the invalid id warning is still reported", func() {
				So(res.Total, ShouldEqual, 200)
				So(strings.Join(res.Warnings, "\n"), ShouldContainSubstring, "ignored invalid user ids: abc")
				So(svc.GetStats()["cachedQueries"], ShouldEqual, int64(2))
			})
		})

		Convey("When filtering customers by risk", func() {
			res, err := svc.Customers(ctx, filter.Set{Risks: []segment.RiskTier{segment.RiskBajo}})
			So(err, ShouldBeNil)

			Convey("Then only that tier is returned", func() {
				for _, c := range res.Customers {
					So(c.Risk, ShouldEqual, segment.RiskBajo)
				}
			})
		})

		Convey("When looking up one customer", func() {
			ds, _ := svc.Dataset(ctx)
			c, err := svc.Customer(ctx, ds.Customers[0].UserID)
			So(err, ShouldBeNil)
			So(c.UserID, ShouldEqual, ds.Customers[0].UserID)

			_, err = svc.Customer(ctx, "no-such-user")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When listing agents", func() {
			res, err := svc.Agents(ctx, ranking.Filter{Limit: 5})
			So(err, ShouldBeNil)

			Convey("Then the ranking is limited and team stats cover everyone", func() {
				So(len(res.Agents), ShouldEqual, 5)
				So(res.Agents[0].Rank, ShouldEqual, 1)
				So(res.Team.Agents, ShouldEqual, 15)
			})

			Convey("And one agent's rank can be fetched", func() {
				a, err := svc.AgentRank(ctx, res.Agents[0].AgentID)
				So(err, ShouldBeNil)
				So(a.Rank, ShouldEqual, 1)
			})
		})

		Convey("When exporting customers", func() {
			var buf bytes.Buffer
			n, err := svc.ExportCustomers(ctx, &buf, filter.Set{})

			Convey("Then the export is capped", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 10)
				So(len(strings.Split(strings.TrimSpace(buf.String()), "\n")), ShouldEqual, 11)
			})
		})

		Convey("When exporting agents", func() {
			var buf bytes.Buffer
			n, err := svc.ExportAgents(ctx, &buf, ranking.Filter{Limit: 3})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)
		})

		Convey("When requesting the overview", func() {
			ov, err := svc.Overview(ctx, service.HistoryFilter{})
			So(err, ShouldBeNil)

			Convey("Then the latest month is summarized", func() {
				So(ov.Scorer, ShouldEqual, churn.NameML)
				So(ov.LastMonthRecords, ShouldEqual, 200)
				So(ov.LastMonthChurned+ov.LastMonthRetained, ShouldEqual, 200)
				So(ov.AvgAgentWinRate, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When requesting a forecast", func() {
			res, err := svc.Forecast(ctx, forecast.DefaultParams())
			So(err, ShouldBeNil)
			So(len(res.Points), ShouldEqual, 3)

			Convey("And the parameters are out of range", func() {
				p := forecast.DefaultParams()
				p.Horizon = 40
				_, err := svc.Forecast(ctx, p)
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When requesting contact reasons", func() {
			reasons, err := svc.Reasons(ctx, 3)
			So(err, ShouldBeNil)
			So(len(reasons), ShouldEqual, 3)
			So(reasons[0].Calls, ShouldBeGreaterThanOrEqualTo, reasons[1].Calls)
		})
	})
}
