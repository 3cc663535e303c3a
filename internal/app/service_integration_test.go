package service_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	service "github.com/okian/churnlens/internal/app"
	"github.com/okian/churnlens/internal/datagen"
	"github.com/okian/churnlens/internal/domain/filter"
	"github.com/okian/churnlens/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service over generated tables", t, func() {
		src := generate(t, nil)
		svc := service.New(service.WithSources(src))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		first, err := svc.Dataset(ctx)
		So(err, ShouldBeNil)

		Convey("When the inputs change and the service reloads", func() {
			_, err := svc.Customers(ctx, filter.Set{})
			So(err, ShouldBeNil)

			opts := datagen.DefaultOptions()
			opts.Users = 50
			files, err := datagen.Generate(t.TempDir(), opts)
			So(err, ShouldBeNil)
			So(os.Rename(files.Churn, src.Churn), ShouldBeNil)

			So(svc.Reload(ctx), ShouldBeNil)
			second, err := svc.Dataset(ctx)
			So(err, ShouldBeNil)

			Convey("Then a new snapshot is published", func() {
				So(second.ID, ShouldNotEqual, first.ID)
				So(len(second.Customers), ShouldEqual, 50)
				So(svc.GetStats()["reloads"], ShouldEqual, int64(2))
			})

			Convey("Then cached queries are recomputed", func() {
				res, err := svc.Customers(ctx, filter.Set{})
				So(err, ShouldBeNil)
				So(res.Total, ShouldEqual, 50)
			})
		})

		Convey("When a reload fails", func() {
			So(os.Remove(src.Agents), ShouldBeNil)
			err := svc.Reload(ctx)

			Convey("Then the previous snapshot stays published", func() {
				So(errors.Is(err, service.ErrLoad), ShouldBeTrue)
				current, err := svc.Dataset(ctx)
				So(err, ShouldBeNil)
				So(current.ID, ShouldEqual, first.ID)
				So(svc.GetStats()["lastReloadError"], ShouldNotBeNil)
			})
		})

		Convey("When queries run concurrently with reloads", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 64)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					for j := 0; j < 5; j++ {
						if i == 0 {
							if err := svc.Reload(ctx); err != nil {
								errs <- err
							}
							continue
						}
						if _, err := svc.Customers(ctx, filter.Set{TopN: i}); err != nil {
							errs <- err
						}
						if _, err := svc.Agents(ctx, ranking.Filter{}); err != nil {
							errs <- err
						}
					}
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then every query sees a complete snapshot", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				ds, err := svc.Dataset(ctx)
				So(err, ShouldBeNil)
				So(len(ds.Customers), ShouldEqual, 200)
			})
		})
	})

	Convey("Given a service with a periodic reload", t, func() {
		svc := service.New(
			service.WithSources(generate(t, nil)),
			service.WithReloadInterval(50*time.Millisecond),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the interval elapses", func() {
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				if n, _ := svc.GetStats()["reloads"].(int64); n > 1 {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}

			Convey("Then the dataset is reloaded in the background", func() {
				n, _ := svc.GetStats()["reloads"].(int64)
				So(n, ShouldBeGreaterThan, 1)
			})
		})
	})
}
