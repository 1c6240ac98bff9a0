package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/woozymasta/bmotd/internal/config"
	"github.com/woozymasta/bmotd/internal/models"
	"github.com/woozymasta/bmotd/internal/storage"
	"github.com/woozymasta/bmotd/pkg/bmotd"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{}
	cfg.Server.AuthToken = "secret"
	cfg.Server.MaxBodySize = 512
	cfg.Server.PollInterval = time.Hour
	cfg.RateLimit.HardLimitCount = 100
	cfg.RateLimit.HardLimitWin = time.Minute
	cfg.RateLimit.SoftLimitDur = 5 * time.Minute
	cfg.Query.Timeout = 250 * time.Millisecond
	cfg.Query.BufferSize = 1024

	return New(store, nil, cfg)
}

func TestHandleTrack(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		srv := newTestServer(t)
		rec := httptest.NewRecorder()
		srv.handleTrack(rec, httptest.NewRequest(http.MethodPost, "/api/track", strings.NewReader("{")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing host", func(t *testing.T) {
		srv := newTestServer(t)
		rec := httptest.NewRecorder()
		srv.handleTrack(rec, httptest.NewRequest(http.MethodPost, "/api/track", strings.NewReader(`{"port":19132}`)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("queued with default port", func(t *testing.T) {
		srv := newTestServer(t)
		rec := httptest.NewRecorder()
		srv.handleTrack(rec, httptest.NewRequest(http.MethodPost, "/api/track", strings.NewReader(`{"host":"play.example.com"}`)))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}

		select {
		case job := <-srv.queue:
			if job.Host != "play.example.com" || job.Port != 19132 {
				t.Errorf("queued job = %+v", job)
			}
		default:
			t.Fatal("no job queued")
		}
	})

	t.Run("soft limit suppresses requery", func(t *testing.T) {
		srv := newTestServer(t)

		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			srv.handleTrack(rec, httptest.NewRequest(http.MethodPost, "/api/track", strings.NewReader(`{"host":"play.example.com","port":19132}`)))
			if rec.Code != http.StatusAccepted {
				t.Fatalf("request %d status = %d, want 202", i, rec.Code)
			}
		}

		if len(srv.queue) != 1 {
			t.Errorf("queue length = %d, want 1 (second request soft-limited)", len(srv.queue))
		}
	})
}

func TestHandleGetServer(t *testing.T) {
	srv := newTestServer(t)

	now := time.Now()
	seed := models.Server{Host: "play.example.com", Port: 19132, Name: "Seed", FirstSeen: now, LastSeen: now}
	if err := srv.storage.UpsertServer(seed); err != nil {
		t.Fatalf("UpsertServer() failed: %v", err)
	}

	t.Run("missing params", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.handleGetServer(rec, httptest.NewRequest(http.MethodGet, "/api/server", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.handleGetServer(rec, httptest.NewRequest(http.MethodGet, "/api/server?host=other.example.com&port=19132", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.handleGetServer(rec, httptest.NewRequest(http.MethodGet, "/api/server?host=play.example.com&port=19132", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got models.Server
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if got.Name != "Seed" {
			t.Errorf("server = %+v", got)
		}
	})
}

func TestHandleDeleteServer(t *testing.T) {
	srv := newTestServer(t)

	now := time.Now()
	seed := models.Server{Host: "play.example.com", Port: 19132, Name: "Seed", FirstSeen: now, LastSeen: now}
	if err := srv.storage.UpsertServer(seed); err != nil {
		t.Fatalf("UpsertServer() failed: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.handleDeleteServer(rec, httptest.NewRequest(http.MethodDelete, "/api/server?host=play.example.com&port=19132", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	got, err := srv.storage.GetServer("play.example.com", 19132)
	if err != nil {
		t.Fatalf("GetServer() failed: %v", err)
	}
	if got != nil {
		t.Error("server still present after delete")
	}
}

func TestHandleLiveQuery(t *testing.T) {
	t.Run("missing params", func(t *testing.T) {
		srv := newTestServer(t)
		rec := httptest.NewRecorder()
		srv.handleLiveQuery(rec, httptest.NewRequest(http.MethodGet, "/api/motd", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		if err != nil {
			t.Fatalf("failed to bind responder: %v", err)
		}
		t.Cleanup(func() { _ = conn.Close() })

		go func() {
			buf := make([]byte, 64)
			for {
				_, src, err := conn.ReadFromUDP(buf)
				if err != nil {
					return
				}
				payload := "MCPE;Live Server;819;1.21.90;2;10;123456789;world;Survival;1"
				reply := append(make([]byte, bmotd.ReplyHeaderSize), payload...)
				_, _ = conn.WriteToUDP(reply, src)
			}
		}()

		srv := newTestServer(t)
		port := conn.LocalAddr().(*net.UDPAddr).Port
		target := fmt.Sprintf("/api/motd?host=127.0.0.1&port=%d", port)

		rec := httptest.NewRecorder()
		srv.handleLiveQuery(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}

		var info bmotd.Info
		if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if info.Name != "Live Server" || info.Players != 2 {
			t.Errorf("info = %+v", info)
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		probe, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		if err != nil {
			t.Fatalf("failed to probe free port: %v", err)
		}
		port := probe.LocalAddr().(*net.UDPAddr).Port
		_ = probe.Close()

		srv := newTestServer(t)
		target := fmt.Sprintf("/api/motd?host=127.0.0.1&port=%d", port)

		rec := httptest.NewRecorder()
		srv.handleLiveQuery(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusGatewayTimeout {
			t.Errorf("status = %d, want 504", rec.Code)
		}
	})
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleVersion(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "bmotd") {
		t.Errorf("version body = %s", rec.Body.String())
	}
}

func TestWorkerProcessesJob(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to bind responder: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, 64)
		for {
			_, src, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			payload := "MCPE;Tracked Server;819;1.21.90;5;20;42;world;Creative;2"
			reply := append(make([]byte, bmotd.ReplyHeaderSize), payload...)
			_, _ = conn.WriteToUDP(reply, src)
		}
	}()

	srv := newTestServer(t)
	port := conn.LocalAddr().(*net.UDPAddr).Port

	srv.processJob(trackJob{Host: "127.0.0.1", Port: uint16(port)})

	got, err := srv.storage.GetServer("127.0.0.1", port)
	if err != nil {
		t.Fatalf("GetServer() failed: %v", err)
	}
	if got == nil {
		t.Fatal("server not persisted by worker")
	}
	if got.Name != "Tracked Server" || got.Players != 5 || got.GameMode != "Creative" {
		t.Errorf("persisted server = %+v", got)
	}
	if got.IP != "127.0.0.1" {
		t.Errorf("persisted IP = %q, want 127.0.0.1", got.IP)
	}
}
