package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUnitContents(t *testing.T) {
	got := UnitContents("/usr/local/bin/logcapd", "")

	if !strings.Contains(got, "ExecStart=/usr/local/bin/logcapd\n") {
		t.Error("unit file missing ExecStart with binary path")
	}
	if !strings.Contains(got, "Type=notify") {
		t.Error("unit file missing Type=notify")
	}
	if !strings.Contains(got, "Restart=on-failure") {
		t.Error("unit file missing Restart=on-failure")
	}
	if !strings.Contains(got, "[Install]") {
		t.Error("unit file missing [Install] section")
	}
}

func TestUnitContentsWithConfig(t *testing.T) {
	got := UnitContents("/usr/local/bin/logcapd", "/etc/logcap/logcap.yaml")
	if !strings.Contains(got, "ExecStart=/usr/local/bin/logcapd --config /etc/logcap/logcap.yaml") {
		t.Errorf("unit file missing --config: %s", got)
	}
}

func TestUnitPath(t *testing.T) {
	path, err := UnitPath()
	if err != nil {
		t.Fatalf("UnitPath() error: %v", err)
	}
	if !strings.HasSuffix(path, "systemd/user/logcapd.service") {
		t.Errorf("UnitPath() = %q, want suffix systemd/user/logcapd.service", path)
	}
}

func TestStatusDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	got := Status(context.Background(), url)
	if !strings.Contains(got, "http: down") {
		t.Errorf("Status() should report down, got: %s", got)
	}
}

func TestStatusUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	got := Status(context.Background(), srv.URL)
	if !strings.Contains(got, "http: up") {
		t.Errorf("Status() should report up, got: %s", got)
	}
}
