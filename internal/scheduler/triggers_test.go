package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"threegen/pkg/logger"
)

func TestWatchFileReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	other := filepath.Join(dir, "other")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	if err := WatchFile(ctx, path, logger.NewNop(), func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := os.WriteFile(other, []byte("x"), 0o600); err != nil {
		t.Fatalf("write other: %v", err)
	}
	if err := os.WriteFile(path, []byte("token"), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected change notification")
	}
}
