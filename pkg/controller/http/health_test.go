package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	controller "github.com/ccdrover/ccdrover/pkg/controller/http"
	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/ccdrover/ccdrover/pkg/infra/store"
	"github.com/m-mizutani/gt"
)

func newTestServer(t *testing.T) (*controller.Server, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "cases.db"))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	server, err := controller.NewServer(
		context.Background(),
		s,
		controller.WithAddr("localhost:0"),
	)
	gt.NoError(t, err)
	return server, s
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)

	gt.Equal(t, w.Code, http.StatusOK)

	var status model.HealthStatus
	gt.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	gt.Equal(t, status.Status, "healthy")
	gt.Equal(t, status.Service, "ccdrover")
	gt.True(t, status.Version != "")
}
