package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/sneakers-server/config"
	"github.com/stevemurr/sneakers-server/health"
	"github.com/stevemurr/sneakers-server/store"
)

func findFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func waitForServer(t *testing.T, url string) *http.Response {
	t.Helper()
	var lastErr error
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		lastErr = err
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server at %s never came up: %v", url, lastErr)
	return nil
}

func TestRunServesStoreAndStops(t *testing.T) {
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	dbFile := filepath.Join(t.TempDir(), "db.json")
	s, err := store.NewJSONFileStore(dbFile)
	require.NoError(t, err)
	require.NoError(t, s.Save(store.Document{"cart": store.Collection{}}))

	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = fmt.Sprint(findFreePort(t))
	cfg.DBFile = dbFile
	cfg.MetricsAddr = ""

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	base := "http://" + cfg.Addr() + "/sneakers"
	resp := waitForServer(t, base+"/cart")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(body))

	resp, err = http.Post(base+"/cart", "application/json", strings.NewReader(`{"id":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, doc["cart"], 1)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestStartAdminServerEndpoints(t *testing.T) {
	logger := log.NewEntry(log.New())
	logger.Logger.SetOutput(io.Discard)

	addr := fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	monitor := health.NewMonitor("test", logger)
	monitor.AddStore(store.NewMemoryStore())
	srv := startAdminServer(addr, logger, monitor)
	defer shutdownHTTP(srv, logger)

	for _, path := range []string{"/metrics", "/health", "/livez", "/readyz"} {
		resp := waitForServer(t, "http://"+addr+path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestStartAdminServerDisabled(t *testing.T) {
	assert.Nil(t, startAdminServer("", log.NewEntry(log.New()), health.NewMonitor("test", nil)))
}
