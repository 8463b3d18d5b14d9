package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/coursecache/cache"
)

func ExampleNew() {
	c := cache.New(2, cache.NoExpiryPolicy())

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	_, ok := c.Get("b")
	fmt.Println("b present:", ok)
	fmt.Println("keys:", c.Keys())
	// Output:
	// b present: false
	// keys: [c a]
}

func ExampleBoundedCache_SetWithTTL() {
	c := cache.New(10, cache.DefaultPolicy())

	c.SetWithTTL("session", "token-1", time.Minute)
	_, ok := c.Get("session")
	fmt.Println("stored with TTL:", ok)

	// A zero TTL means the value expires immediately.
	c.SetWithTTL("session", "token-2", 0)
	_, ok = c.Get("session")
	fmt.Println("after zero TTL:", ok)
	// Output:
	// stored with TTL: true
	// after zero TTL: false
}

func ExampleBoundedCache_Stats() {
	c := cache.New(10, cache.NoExpiryPolicy())
	c.Set("x", 1)
	c.Get("x")
	c.Get("y")

	s := c.Stats()
	fmt.Printf("hits=%d misses=%d rate=%.2f\n", s.Hits, s.Misses, s.HitRate)
	// Output:
	// hits=1 misses=1 rate=0.50
}

func ExampleMemoize() {
	calls := 0
	fib := cache.Memoize("fib", func(_ context.Context, args cache.Args) (int, error) {
		calls++
		n := args.Positional[0].(int)
		a, b := 0, 1
		for i := 0; i < n; i++ {
			a, b = b, a+b
		}
		return a, nil
	})

	ctx := context.Background()
	v1, _ := fib.Call(ctx, cache.Positional(30))
	v2, _ := fib.Call(ctx, cache.Positional(30))
	fmt.Println(v1, v2, "calls:", calls)
	// Output:
	// 832040 832040 calls: 1
}
