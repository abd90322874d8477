package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modoterra/logcap/pkg/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func logServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/logs" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[[3,"2024-05-01T12:00:02.000Z","ERROR: disk full"],[2,"2024-05-01T12:00:01.000Z","serving"],[1,"2024-05-01T12:00:00.000Z","booting"]]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logcap.yaml")

	out, err := run(t, "config", "init", "--output", path)
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	out, err = run(t, "config", "validate", path)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "valid (capture exec/follow, store durable)") {
		t.Errorf("unexpected output: %s", out)
	}

	if _, err := run(t, "config", "init", "--output", path); err == nil {
		t.Error("init should refuse to overwrite")
	}
}

func TestConfigValidateInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := []byte(`store:
  mode: tape
capture:
  kind: journald
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "config", "validate", path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(out, "2 error(s)") {
		t.Errorf("expected 2 errors, got: %s", out)
	}
	if !strings.Contains(out, "unit is required") {
		t.Errorf("missing journald error: %s", out)
	}
}

func TestLogsTable(t *testing.T) {
	srv := logServer(t)

	out, err := run(t, "logs", "--addr", srv.URL)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "ERROR: disk full") || !strings.Contains(lines[3], "booting") {
		t.Errorf("rows out of order:\n%s", out)
	}
}

func TestLogsErrorsJSON(t *testing.T) {
	srv := logServer(t)

	out, err := run(t, "logs", "--addr", srv.URL, "--errors", "--json")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	var records []core.LogRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("not json: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0].ID != 3 {
		t.Errorf("got %+v", records)
	}
}

func TestLogsLimit(t *testing.T) {
	srv := logServer(t)

	out, err := run(t, "logs", "--addr", srv.URL, "-n", "1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "serving") || !strings.Contains(out, "disk full") {
		t.Errorf("limit not applied:\n%s", out)
	}
}

func TestLogsServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := run(t, "logs", "--addr", url); err == nil {
		t.Error("expected error for unreachable daemon")
	}
}

func TestFilterRecords(t *testing.T) {
	records := []core.LogRecord{
		{ID: 2, Message: "ERROR: b"},
		{ID: 1, Message: "a"},
	}
	if got := filterRecords(records, false, 0); len(got) != 2 {
		t.Errorf("no filter: got %d", len(got))
	}
	if got := filterRecords(records, true, 0); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("errors only: got %+v", got)
	}
	if got := filterRecords(records, false, 5); len(got) != 2 {
		t.Errorf("limit above length: got %d", len(got))
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "logcap dev") {
		t.Errorf("version output: %q", out)
	}
}
