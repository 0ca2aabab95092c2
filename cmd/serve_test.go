package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/winelens/internal/store"
	"go.uber.org/zap/zaptest"
)

func withTestLogger(t *testing.T) {
	t.Helper()
	prev := logger
	logger = zaptest.NewLogger(t)
	t.Cleanup(func() { logger = prev })
}

func saveUpload(t *testing.T, st *store.Store) *store.Upload {
	t.Helper()
	u, err := st.Save("wine.csv", strings.NewReader(wineCSV), 1<<20)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return u
}

func TestPruneUploadsRunsOnceBeforeCancel(t *testing.T) {
	withTestLogger(t)
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	u := saveUpload(t, st)
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pruneUploads(ctx, st, time.Millisecond, time.Hour)

	if _, err := st.Get(u.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expired upload still present: %v", err)
	}
}

func TestPruneUploadsOnTicker(t *testing.T) {
	withTestLogger(t)
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	u := saveUpload(t, st)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pruneUploads(ctx, st, 50*time.Millisecond, 10*time.Millisecond)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// The first pass finds the upload fresh; a later tick must remove it.
	deadline := time.Now().Add(5 * time.Second)
	for {
		_, err := st.Get(u.ID)
		if errors.Is(err, store.ErrNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("upload not pruned by the ticker: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	fresh := saveUpload(t, st)
	cancel()
	<-done
	if _, err := st.Get(fresh.ID); err != nil {
		t.Fatalf("upload saved after the last tick should survive: %v", err)
	}
}
