package filecache

import "testing"

func BenchmarkFileCache_Set(b *testing.B) {
	c, _ := New(b.TempDir())
	value := map[string]any{"lesson": 3, "title": "loops"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set("bench", value)
	}
}

func BenchmarkFileCache_Get(b *testing.B) {
	c, _ := New(b.TempDir())
	c.Set("bench", map[string]any{"lesson": 3, "title": "loops"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get("bench")
	}
}

func BenchmarkFileName(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = fileName("course/week-3/exercise 12", FormatJSON)
	}
}
