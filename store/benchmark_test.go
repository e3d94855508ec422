package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mcsmanager/mcsm_bot/models"
)

func BenchmarkInsertShortcut(b *testing.B) {
	ctx := context.Background()
	st := NewSQLiteStore(Params{})
	st.SetFlushDebounce(1 * time.Hour) // Disable auto-flush for benchmark
	if err := st.Open(ctx); err != nil {
		b.Fatalf("open: %v", err)
	}
	defer st.Close()

	sc := models.Shortcut{
		Description:        "bench",
		MessageTitle:       "Bench",
		MessageDescription: `line one\nline two`,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sc.ID = fmt.Sprintf("bench-%d", i)
		if err := st.InsertShortcut(ctx, sc); err != nil {
			b.Fatalf("insert: %v", err)
		}
	}
}

func BenchmarkListShortcuts(b *testing.B) {
	ctx := context.Background()
	st := NewSQLiteStore(Params{})
	st.SetFlushDebounce(1 * time.Hour)
	if err := st.Open(ctx); err != nil {
		b.Fatalf("open: %v", err)
	}
	defer st.Close()

	for i := 0; i < 100; i++ {
		sc := models.Shortcut{
			ID:                 fmt.Sprintf("shortcut-%03d", i),
			Description:        "desc",
			MessageTitle:       "Title",
			MessageDescription: "body",
		}
		if err := st.InsertShortcut(ctx, sc); err != nil {
			b.Fatalf("insert: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.ListShortcuts(ctx); err != nil {
			b.Fatalf("list: %v", err)
		}
	}
}

func BenchmarkCountThreadActionsSince(b *testing.B) {
	ctx := context.Background()
	st := NewSQLiteStore(Params{})
	st.SetFlushDebounce(1 * time.Hour)
	if err := st.Open(ctx); err != nil {
		b.Fatalf("open: %v", err)
	}
	defer st.Close()

	now := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)
	kinds := []models.ThreadActionKind{models.ThreadActionRemind, models.ThreadActionClose}
	for i := 0; i < 100; i++ {
		a := models.ThreadAction{
			ThreadID: fmt.Sprintf("%d", i),
			Forum:    "support",
			Action:   kinds[i%len(kinds)],
			At:       now.Add(-time.Duration(i) * time.Hour),
		}
		if err := st.InsertThreadAction(ctx, a); err != nil {
			b.Fatalf("insert: %v", err)
		}
	}

	cutoff := now.Add(-24 * time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.CountThreadActionsSince(ctx, models.ThreadActionRemind, cutoff); err != nil {
			b.Fatalf("count: %v", err)
		}
	}
}
