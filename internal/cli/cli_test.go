package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/store/sqlite"
	"kasirdemo/backend/internal/testutil"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand(testutil.FixedClock(testNow))
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--timezone", "UTC"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func decodeSnapshot(t *testing.T, raw []byte) domain.Snapshot {
	t.Helper()
	var snapshot domain.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	return snapshot
}

func TestGenerateWritesSnapshotToStdout(t *testing.T) {
	out, err := execute(t, "generate", "--seed", "7", "--days", "3")
	require.NoError(t, err)

	snapshot := decodeSnapshot(t, []byte(out))
	require.NotEmpty(t, snapshot.RunID)
	require.NotNil(t, snapshot.Seed)
	assert.Equal(t, uint64(7), *snapshot.Seed)
	assert.Equal(t, 3, snapshot.Days)
	assert.True(t, snapshot.GeneratedAt.Equal(testNow))
	require.NotEmpty(t, snapshot.State.Items)

	for _, order := range snapshot.State.Orders {
		assert.Equal(t, domain.OrderStatusCharged, order.Status)
		opened := domain.TimeFromTimestamp(order.DateOpen)
		assert.False(t, opened.Before(testNow.AddDate(0, 0, -3).Truncate(24*time.Hour)), "order %s opened at %s", order.ID, opened)
	}
}

func TestGenerateIsReproducibleForSeed(t *testing.T) {
	first, err := execute(t, "generate", "--seed", "42", "--days", "5")
	require.NoError(t, err)
	second, err := execute(t, "generate", "--seed", "42", "--days", "5")
	require.NoError(t, err)

	a := decodeSnapshot(t, []byte(first))
	b := decodeSnapshot(t, []byte(second))
	stateA, err := json.Marshal(a.State)
	require.NoError(t, err)
	stateB, err := json.Marshal(b.State)
	require.NoError(t, err)
	assert.JSONEq(t, string(stateA), string(stateB))
}

func TestGenerateWritesFileAndSQLite(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "demo.json")
	dbPath := filepath.Join(dir, "demo.db")

	stdout, err := execute(t, "generate", "--seed", "3", "--days", "2", "--out", outPath, "--sqlite", dbPath, "--pretty")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"run_id\"")
	snapshot := decodeSnapshot(t, raw)

	db, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	stored, err := db.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snapshot.RunID, stored.RunID)
	assert.Len(t, stored.State.Orders, len(snapshot.State.Orders))
	assert.Len(t, stored.State.Items, len(snapshot.State.Items))
}

func TestGenerateSQLiteOnlySkipsStdout(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "demo.db")
	stdout, err := execute(t, "generate", "--seed", "3", "--days", "1", "--sqlite", dbPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	_, err = os.Stat(dbPath)
	require.NoError(t, err)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	_, err := execute(t, "generate", "--days", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--days")

	_, err = execute(t, "generate", "--catalog", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = execute(t, "--log-level", "loud", "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	_, err = execute(t, "--log-format", "xml", "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestGenerateWithCustomCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	defaultCatalog, err := os.ReadFile(filepath.Join("..", "catalog", "default.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, defaultCatalog, 0o644))

	out, err := execute(t, "generate", "--seed", "1", "--days", "1", "--catalog", path)
	require.NoError(t, err)
	assert.NotEmpty(t, decodeSnapshot(t, []byte(out)).State.Items)
}

func TestReportCSV(t *testing.T) {
	out, err := execute(t, "report", "--seed", "9", "--days", "4", "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "date,orders,items_sold,revenue,tax,cost,margin", lines[0])
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "total,"), "last line %q", lines[len(lines)-1])
	for _, line := range lines[1 : len(lines)-1] {
		assert.True(t, line >= "2026-10-13" && line < "2026-10-18", "row outside window: %q", line)
	}
}

func TestReportCSVRespectsRange(t *testing.T) {
	out, err := execute(t, "report", "--seed", "9", "--days", "4", "--format", "csv", "--from", "2026-10-20")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "total,0,0,0.00,0.00,0.00,0.00", lines[1])
}

func TestReportTable(t *testing.T) {
	out, err := execute(t, "report", "--seed", "9", "--days", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "total")
}

func TestReportRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "report", "--format", "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestWriteSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	seed := uint64(11)
	snapshot := domain.Snapshot{RunID: "run-1", Seed: &seed, Days: 1, GeneratedAt: testNow}

	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, writeSnapshotFile(path, snapshot, false))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", decodeSnapshot(t, raw).RunID)

	err = writeSnapshotFile(filepath.Join(dir, "missing", "snapshot.json"), snapshot, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
}

func TestGenerateReportsUnwritableOutput(t *testing.T) {
	_, err := execute(t, "generate", "--seed", "1", "--days", "1", "--out", t.TempDir())
	require.Error(t, err)
}
