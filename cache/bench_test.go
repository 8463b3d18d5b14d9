package cache

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkBoundedCache_Get_Hit(b *testing.B) {
	c := New(1024, DefaultPolicy())
	c.Set("key", "value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get("key")
	}
}

func BenchmarkBoundedCache_Get_Miss(b *testing.B) {
	c := New(1024, DefaultPolicy())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get("missing")
	}
}

// BenchmarkBoundedCache_Set_Evicting measures inserts into a full cache.
func BenchmarkBoundedCache_Set_Evicting(b *testing.B) {
	c := New(128, DefaultPolicy())
	keys := make([]string, 4096)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(keys[i%len(keys)], i)
	}
}

func BenchmarkBoundedCache_Parallel(b *testing.B) {
	c := New(1024, DefaultPolicy())
	for i := 0; i < 1024; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.Get(fmt.Sprintf("key-%d", i%1024))
			i++
		}
	})
}

func BenchmarkKeyer_Key(b *testing.B) {
	k := NewDefaultKeyer()
	args := Args{
		Positional: []any{"closures", 3},
		Named:      map[string]any{"limit": 10, "tags": []any{"go", "intro"}},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = k.Key("search", args)
	}
}

func BenchmarkMemoized_Hit(b *testing.B) {
	m := Memoize("id", func(_ context.Context, args Args) (any, error) {
		return args.Positional[0], nil
	})
	ctx := context.Background()
	_, _ = m.Call(ctx, Positional(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Call(ctx, Positional(1))
	}
}
