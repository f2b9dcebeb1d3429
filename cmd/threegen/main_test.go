package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"threegen/internal/config"
	documentdomain "threegen/internal/domain/document"
	"threegen/internal/repository/inmemory"
	"threegen/internal/transport/httpserver"
	"threegen/internal/transport/httpserver/handler"
	"threegen/pkg/logger"
)

const cliSecret = "cli-secret"

// resetFlags restores every flag to its default between runs, since cobra
// keeps parsed values on the shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		_ = flag.Value.Set(flag.DefValue)
		flag.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("LOG_LEVEL", "critical")
	t.Setenv("SYNC_MIN_BATTERY_PERCENT", "0")
	return filepath.Join(t.TempDir(), "device.db")
}

func startRemote(t *testing.T) string {
	t.Helper()
	cfg := config.Config{Supabase: config.SupabaseConfig{JWTSecret: cliSecret}}
	documents := documentdomain.NewService(inmemory.NewInMemoryDocumentRepository())
	router := httpserver.NewRouter(cfg, handler.New(documents, logger.NewNop()), nil, nil, logger.NewNop())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "owner-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(cliSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	t.Setenv("THREEGEN_AUTH_TOKEN", token)
	return server.URL
}

func TestMemberCommands(t *testing.T) {
	dbPath := setupEnv(t)

	out, err := runCLI(t, "--db", dbPath, "member", "add", "--first", "Anna", "--last", "Lind", "--town", "Norrby")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "CREATED ALN ") {
		t.Fatalf("expected short name ALN, got %q", out)
	}

	out, err = runCLI(t, "--db", dbPath, "member", "add", "--first", "Bo", "--last", "Lind", "--parent", "ALN")
	if err != nil {
		t.Fatalf("add child: %v\n%s", err, out)
	}

	out, err = runCLI(t, "--db", dbPath, "member", "tree", "ALN")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if !strings.Contains(out, "BL") {
		t.Fatalf("expected child in tree, got %q", out)
	}

	out, err = runCLI(t, "--db", dbPath, "member", "edit", "BL", "--town", "Byn")
	if err != nil {
		t.Fatalf("edit: %v\n%s", err, out)
	}
	if !strings.Contains(out, "UPDATED BL NOT_SYNCED") {
		t.Fatalf("expected never-pushed record to stay NOT_SYNCED, got %q", out)
	}

	out, err = runCLI(t, "--db", dbPath, "member", "delete", "ALN")
	if err != nil {
		t.Fatalf("delete: %v\n%s", err, out)
	}

	out, err = runCLI(t, "--db", dbPath, "member", "show", "BL")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(out, "parent:") {
		t.Fatalf("expected parent link to be cleared, got %q", out)
	}

	out, err = runCLI(t, "--db", dbPath, "sync", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "pending records: 1") || !strings.Contains(out, "pending deletes: 1") {
		t.Fatalf("unexpected status: %q", out)
	}
}

func TestSyncCommandsAgainstRemote(t *testing.T) {
	dbPath := setupEnv(t)
	remoteURL := startRemote(t)

	if out, err := runCLI(t, "--db", dbPath, "member", "add", "--first", "Anna", "--last", "Lind"); err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}

	out, err := runCLI(t, "--db", dbPath, "--remote", remoteURL, "sync", "now")
	if err != nil {
		t.Fatalf("sync now: %v\n%s", err, out)
	}
	if !strings.Contains(out, "push: 1 pushed") || !strings.Contains(out, "sync: ok") {
		t.Fatalf("unexpected sync output: %q", out)
	}

	out, err = runCLI(t, "--db", dbPath, "--remote", remoteURL, "sync", "push", "--all")
	if err != nil {
		t.Fatalf("push --all: %v\n%s", err, out)
	}
	if !strings.Contains(out, "push: 1 pushed") {
		t.Fatalf("expected the synced record sent again, got %q", out)
	}

	otherDB := filepath.Join(t.TempDir(), "other.db")
	out, err = runCLI(t, "--db", otherDB, "--remote", remoteURL, "sync", "pull", "--full")
	if err != nil {
		t.Fatalf("pull: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 inserted") {
		t.Fatalf("expected the record on the second device, got %q", out)
	}

	out, err = runCLI(t, "--db", otherDB, "watermark", "show")
	if err != nil {
		t.Fatalf("watermark show: %v", err)
	}
	if !strings.Contains(out, "owner owner-1") {
		t.Fatalf("expected watermark for owner-1, got %q", out)
	}

	if _, err := runCLI(t, "--db", otherDB, "watermark", "reset"); err != nil {
		t.Fatalf("watermark reset: %v", err)
	}
	out, _ = runCLI(t, "--db", otherDB, "watermark", "show")
	if !strings.Contains(out, "none") {
		t.Fatalf("expected reset watermark, got %q", out)
	}
}

func TestSyncFailureIsAStatusLine(t *testing.T) {
	dbPath := setupEnv(t)
	t.Setenv("THREEGEN_AUTH_TOKEN", "")

	out, err := runCLI(t, "--db", dbPath, "--remote", "http://127.0.0.1:1", "sync", "push")
	if !errors.Is(err, errReported) {
		t.Fatalf("expected reported error, got %v", err)
	}
	if !strings.Contains(out, "push: failed: not authenticated") {
		t.Fatalf("expected status line, got %q", out)
	}
}
