package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/teragrab/teragrab/storage"
)

func newTestRouter(t *testing.T, userIDs ...int64) http.Handler {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, id := range userIDs {
		if err := store.Ensure(context.Background(), id); err != nil {
			t.Fatal(err)
		}
	}
	return SetupRouter(store, func() string { return "teragrab_test_bot" })
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestStats(t *testing.T) {
	r := newTestRouter(t, 1, 2, 3)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Bot   string `json:"bot"`
		Users int64  `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Bot != "teragrab_test_bot" {
		t.Errorf("bot = %q", body.Bot)
	}
	if body.Users != 3 {
		t.Errorf("users = %d, want 3", body.Users)
	}
}
