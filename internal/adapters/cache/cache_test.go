package cache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/okian/churnlens/internal/adapters/cache"
	. "github.com/smartystreets/goconvey/convey"
)

func TestQueryCache(t *testing.T) {
	Convey("Given a new cache", t, func() {
		ctx := context.Background()
		snap := uuid.New()
		key := func(h uint64) cache.Key { return cache.Key{Snapshot: snap, Kind: "customers", Hash: h} }

		Convey("When created with default options", func() {
			c := cache.New[string]()

			Convey("Then it starts empty", func() {
				So(c.Size(), ShouldEqual, 0)
				_, ok := c.Get(ctx, key(1))
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When storing and reading a value", func() {
			c := cache.New[string]()
			c.Put(ctx, key(1), "a")
			v, ok := c.Get(ctx, key(1))

			Convey("Then it is returned", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "a")
				So(c.Size(), ShouldEqual, 1)
			})

			Convey("Then overwriting keeps the size", func() {
				c.Put(ctx, key(1), "b")
				v, _ := c.Get(ctx, key(1))
				So(v, ShouldEqual, "b")
				So(c.Size(), ShouldEqual, 1)
			})

			Convey("Then other kinds do not collide", func() {
				_, ok := c.Get(ctx, cache.Key{Snapshot: snap, Kind: "agents", Hash: 1})
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the cache is full", func() {
			c := cache.New[int](cache.WithMaxSize(3))
			for i := 1; i <= 4; i++ {
				c.Put(ctx, key(uint64(i)), i)
			}

			Convey("Then the oldest entry is evicted", func() {
				So(c.Size(), ShouldEqual, 3)
				_, ok := c.Get(ctx, key(1))
				So(ok, ShouldBeFalse)
				v, ok := c.Get(ctx, key(4))
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 4)
			})
		})

		Convey("When a newer snapshot writes", func() {
			c := cache.New[int]()
			c.Put(ctx, key(1), 1)
			c.Put(ctx, key(2), 2)
			next := cache.Key{Snapshot: uuid.New(), Kind: "customers", Hash: 1}
			c.Put(ctx, next, 10)

			Convey("Then entries of the old snapshot are dropped", func() {
				So(c.Size(), ShouldEqual, 1)
				_, ok := c.Get(ctx, key(2))
				So(ok, ShouldBeFalse)
				v, _ := c.Get(ctx, next)
				So(v, ShouldEqual, 10)
			})
		})

		Convey("When caching is disabled", func() {
			c := cache.New[int](cache.WithMaxSize(0))
			c.Put(ctx, key(1), 1)
			_, ok := c.Get(ctx, key(1))
			So(ok, ShouldBeFalse)
			So(c.Size(), ShouldEqual, 0)
		})

		Convey("When computing through the cache", func() {
			c := cache.New[int]()
			calls := 0
			compute := func() (int, error) {
				calls++
				return 7, nil
			}
			v1, err1 := c.GetOrCompute(ctx, key(9), compute)
			v2, err2 := c.GetOrCompute(ctx, key(9), compute)

			Convey("Then the computation runs once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(v1, ShouldEqual, 7)
				So(v2, ShouldEqual, 7)
				So(calls, ShouldEqual, 1)
			})

			Convey("Then errors are not cached", func() {
				boom := errors.New("boom")
				_, err := c.GetOrCompute(ctx, key(10), func() (int, error) { return 0, boom })
				So(errors.Is(err, boom), ShouldBeTrue)
				_, ok := c.Get(ctx, key(10))
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When purged", func() {
			c := cache.New[int]()
			c.Put(ctx, key(1), 1)
			c.Purge()
			So(c.Size(), ShouldEqual, 0)
		})

		Convey("When used concurrently", func() {
			c := cache.New[string](cache.WithMaxSize(50))
			var wg sync.WaitGroup
			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						k := key(uint64(w*1000 + i))
						c.Put(ctx, k, fmt.Sprint(i))
						c.Get(ctx, k)
					}
				}(w)
			}
			wg.Wait()

			Convey("Then the bound holds", func() {
				So(c.Size(), ShouldBeLessThanOrEqualTo, 50)
			})
		})
	})
}
