package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T) (*Logger, string) {
	t.Helper()
	dir := t.TempDir()
	l := NewLogger(dir)
	if err := l.SetHMACKey(bytes.Repeat([]byte{0x42}, 32)); err != nil {
		t.Fatalf("SetHMACKey failed: %v", err)
	}
	return l, dir
}

func readLines(t *testing.T, dir string) [][]byte {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil || len(files) == 0 {
		t.Fatalf("no log files found: %v", err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	return bytes.Split(bytes.TrimSpace(data), []byte("\n"))
}

func writeLines(t *testing.T, dir string, lines [][]byte) {
	t.Helper()
	files, _ := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	out := append(bytes.Join(lines, []byte("\n")), '\n')
	if err := os.WriteFile(files[0], out, 0600); err != nil {
		t.Fatalf("failed to write log file: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir)

	if l.Path() != dir {
		t.Errorf("expected path %s, got %s", dir, l.Path())
	}
	if l.prevHash != genesisHash {
		t.Errorf("expected prevHash %q, got %s", genesisHash, l.prevHash)
	}
	if l.sessionID == "" {
		t.Error("expected non-empty sessionID")
	}
	if l.Ready() {
		t.Error("new logger should not be ready before SetHMACKey")
	}
}

func TestSetHMACKey(t *testing.T) {
	l, _ := newTestLogger(t)

	if !l.Ready() {
		t.Error("expected logger to be ready")
	}
	if len(l.hmacKey) != 32 {
		t.Errorf("expected hmacKey length 32, got %d", len(l.hmacKey))
	}
	if bytes.Equal(l.hmacKey, bytes.Repeat([]byte{0x42}, 32)) {
		t.Error("HMAC key must be derived, not the vault key itself")
	}
}

func TestLogWithoutHMACKey(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir)

	err := l.LogSuccess(OpVaultLoad, SourceCLI, "")
	if !errors.Is(err, ErrKeyNotSet) {
		t.Errorf("expected ErrKeyNotSet, got %v", err)
	}

	if _, err := l.Verify(); !errors.Is(err, ErrKeyNotSet) {
		t.Errorf("Verify without key: expected ErrKeyNotSet, got %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if len(files) != 0 {
		t.Errorf("expected no log files, got %v", files)
	}
}

func TestLogSuccess(t *testing.T) {
	l, dir := newTestLogger(t)

	const entryID = "5f0c2f9e-1111-4a4a-9b9b-000000000001"
	if err := l.LogSuccess(OpEntryAdd, SourceCLI, entryID); err != nil {
		t.Fatalf("LogSuccess failed: %v", err)
	}

	lines := readLines(t, dir)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if bytes.Contains(lines[0], []byte(entryID)) {
		t.Error("entry id must not appear in clear in the log")
	}

	var e Event
	if err := json.Unmarshal(lines[0], &e); err != nil {
		t.Fatalf("failed to parse event: %v", err)
	}
	if e.Version != SchemaVersion {
		t.Errorf("expected version %d, got %d", SchemaVersion, e.Version)
	}
	if e.Operation != OpEntryAdd {
		t.Errorf("expected op %s, got %s", OpEntryAdd, e.Operation)
	}
	if e.Result != ResultSuccess {
		t.Errorf("expected result %s, got %s", ResultSuccess, e.Result)
	}
	if e.Source != SourceCLI {
		t.Errorf("expected source %s, got %s", SourceCLI, e.Source)
	}
	if e.Chain.Sequence != 1 || e.Chain.PrevHash != genesisHash {
		t.Errorf("unexpected chain start: %+v", e.Chain)
	}

	want, err := l.EntryHMAC(entryID)
	if err != nil {
		t.Fatalf("EntryHMAC failed: %v", err)
	}
	if e.EntryHMAC != want {
		t.Errorf("expected entry hmac %s, got %s", want, e.EntryHMAC)
	}

	if _, err := time.Parse(time.RFC3339Nano, e.Timestamp); err != nil {
		t.Errorf("invalid timestamp %q: %v", e.Timestamp, err)
	}

	info, err := os.Stat(filepath.Join(dir, metaFile))
	if err != nil {
		t.Fatalf("chain state not saved: %v", err)
	}
	if info.Mode().Perm()&0077 != 0 {
		t.Errorf("chain state has insecure permissions %04o", info.Mode().Perm())
	}
}

func TestLogError(t *testing.T) {
	l, dir := newTestLogger(t)

	if err := l.LogError(OpVaultLoadFailed, SourceMCP, "", "LOAD_FAILED", "wrong password or corrupted file"); err != nil {
		t.Fatalf("LogError failed: %v", err)
	}

	var e Event
	if err := json.Unmarshal(readLines(t, dir)[0], &e); err != nil {
		t.Fatalf("failed to parse event: %v", err)
	}
	if e.Result != ResultError {
		t.Errorf("expected result %s, got %s", ResultError, e.Result)
	}
	if e.Error == nil || e.Error.Code != "LOAD_FAILED" {
		t.Errorf("unexpected error info: %+v", e.Error)
	}
	if e.EntryHMAC != "" {
		t.Errorf("expected no entry hmac, got %s", e.EntryHMAC)
	}
}

func TestChainIntegrity(t *testing.T) {
	l, _ := newTestLogger(t)

	ops := []string{OpVaultCreate, OpEntryAdd, OpVaultSave, OpVaultLoad, OpEntryRemove}
	for _, op := range ops {
		if err := l.LogSuccess(op, SourceCLI, "id"); err != nil {
			t.Fatalf("LogSuccess(%s) failed: %v", op, err)
		}
	}

	result, err := l.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid chain, got errors: %v", result.Errors)
	}
	if result.RecordsTotal != 5 || result.RecordsVerified != 5 {
		t.Errorf("expected 5/5 records, got %d/%d", result.RecordsVerified, result.RecordsTotal)
	}
}

func TestChainPersistence(t *testing.T) {
	dir := t.TempDir()
	key := make([]byte, 32)

	// First session
	l1 := NewLogger(dir)
	if err := l1.SetHMACKey(key); err != nil {
		t.Fatalf("SetHMACKey failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := l1.LogSuccess(OpVaultSave, SourceCLI, ""); err != nil {
			t.Fatalf("LogSuccess failed: %v", err)
		}
	}

	// Second session continues the chain
	l2 := NewLogger(dir)
	if err := l2.SetHMACKey(key); err != nil {
		t.Fatalf("SetHMACKey failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := l2.LogSuccess(OpVaultLoad, SourceMCP, ""); err != nil {
			t.Fatalf("LogSuccess failed: %v", err)
		}
	}

	result, err := l2.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid chain after session resume, got errors: %v", result.Errors)
	}
	if result.RecordsTotal != 5 {
		t.Errorf("expected 5 total records, got %d", result.RecordsTotal)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	dir := t.TempDir()

	l1 := NewLogger(dir)
	if err := l1.SetHMACKey(bytes.Repeat([]byte{1}, 32)); err != nil {
		t.Fatal(err)
	}
	if err := l1.LogSuccess(OpVaultSave, SourceCLI, ""); err != nil {
		t.Fatal(err)
	}

	l2 := NewLogger(dir)
	if err := l2.SetHMACKey(bytes.Repeat([]byte{2}, 32)); err != nil {
		t.Fatal(err)
	}
	result, err := l2.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.Valid {
		t.Error("expected chain to be invalid under a different key")
	}
}

// TestTamperingDetection tests that the HMAC chain detects edits, deletions
// and reordering.
func TestTamperingDetection(t *testing.T) {
	setup := func(t *testing.T) (*Logger, string) {
		l, dir := newTestLogger(t)
		for i := 0; i < 3; i++ {
			if err := l.LogSuccess(OpEntryUpdate, SourceCLI, "id"); err != nil {
				t.Fatalf("LogSuccess failed: %v", err)
			}
		}
		return l, dir
	}

	tests := []struct {
		name   string
		tamper func([][]byte) [][]byte
		errMsg string
	}{
		{
			name: "modified record",
			tamper: func(lines [][]byte) [][]byte {
				lines[1] = bytes.Replace(lines[1], []byte(OpEntryUpdate), []byte(OpEntryRemove), 1)
				return lines
			},
			errMsg: "HMAC mismatch",
		},
		{
			name: "deleted record",
			tamper: func(lines [][]byte) [][]byte {
				return append(lines[:1:1], lines[2])
			},
			errMsg: "sequence gap",
		},
		{
			name: "reordered records",
			tamper: func(lines [][]byte) [][]byte {
				lines[1], lines[2] = lines[2], lines[1]
				return lines
			},
			errMsg: "chain broken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, dir := setup(t)
			writeLines(t, dir, tt.tamper(readLines(t, dir)))

			result, err := l.Verify()
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if result.Valid {
				t.Fatal("expected tampering to be detected")
			}
			found := false
			for _, msg := range result.Errors {
				if strings.Contains(msg, tt.errMsg) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error containing %q, got %v", tt.errMsg, result.Errors)
			}
		})
	}
}

func TestVerifyEmptyLog(t *testing.T) {
	l, _ := newTestLogger(t)

	result, err := l.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Valid || result.RecordsTotal != 0 {
		t.Errorf("expected valid empty chain, got %+v", result)
	}
}

func TestVerifyCorruptLine(t *testing.T) {
	l, dir := newTestLogger(t)
	if err := l.LogSuccess(OpVaultSave, SourceCLI, ""); err != nil {
		t.Fatal(err)
	}
	writeLines(t, dir, append(readLines(t, dir), []byte("{not json")))

	if _, err := l.Verify(); err == nil {
		t.Error("expected Verify to fail on an unparsable line")
	}
}

func TestListEvents(t *testing.T) {
	l, _ := newTestLogger(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for i := 0; i < 5; i++ {
		if err := l.LogSuccess(OpVaultLoad, SourceCLI, ""); err != nil {
			t.Fatalf("LogSuccess failed: %v", err)
		}
	}

	all, err := l.ListEvents(0, time.Time{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 events, got %d", len(all))
	}

	limited, err := l.ListEvents(2, time.Time{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(limited) != 2 || limited[1].Chain.Sequence != 5 {
		t.Errorf("expected the 2 most recent events, got %+v", limited)
	}

	since, err := l.ListEvents(0, base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(since) != 2 {
		t.Errorf("expected 2 events after since, got %d", len(since))
	}
}

func TestListEventsWithoutKey(t *testing.T) {
	l, dir := newTestLogger(t)
	if err := l.LogSuccess(OpVaultSave, SourceCLI, ""); err != nil {
		t.Fatal(err)
	}

	reader := NewLogger(dir)
	events, err := reader.ListEvents(0, time.Time{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}

func TestRecordDataCoversContext(t *testing.T) {
	e := Event{Version: 1, ID: "x", Context: map[string]string{"b": "2", "a": "1"}}
	first := recordData(&e)

	e.Context["a"] = "changed"
	if bytes.Equal(first, recordData(&e)) {
		t.Error("record data must change when context changes")
	}

	// Map iteration order must not matter
	e1 := Event{Context: map[string]string{"a": "1", "b": "2", "c": "3"}}
	e2 := Event{Context: map[string]string{"c": "3", "b": "2", "a": "1"}}
	if !bytes.Equal(recordData(&e1), recordData(&e2)) {
		t.Error("record data must be deterministic")
	}
}
