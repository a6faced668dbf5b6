package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"hazard-map/internal/repository"
)

func newTestRouter(t *testing.T) (*gin.Engine, *repository.UserRepository, *repository.MarkerRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	userRepo := repository.NewUserRepository(db)
	markerRepo := repository.NewMarkerRepository(db)
	return NewServer(userRepo, markerRepo).Router(), userRepo, markerRepo
}

func TestUserMapRendersMarkers(t *testing.T) {
	router, userRepo, markerRepo := newTestRouter(t)
	ctx := context.Background()

	if err := userRepo.SetMapCenter(ctx, 100, 59.93, 30.31); err != nil {
		t.Fatalf("set center: %v", err)
	}
	if _, err := markerRepo.Create(ctx, 100, 59.94, 30.32, "speed camera"); err != nil {
		t.Fatalf("create marker: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/100.html", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "59.93") || !strings.Contains(body, "30.31") {
		t.Fatalf("map should be centered on the stored center, body:\n%s", body)
	}
	if !strings.Contains(body, "speed camera") {
		t.Fatalf("marker comment missing from page, body:\n%s", body)
	}
}

func TestUserMapDefaultCenter(t *testing.T) {
	router, userRepo, _ := newTestRouter(t)

	// User exists but never set a center.
	if _, _, err := userRepo.GetOrCreate(context.Background(), 100); err != nil {
		t.Fatalf("create user: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/100.html", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "55.751244") {
		t.Fatal("expected the default center on the page")
	}
}

func TestUserMapUnknownUser(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/999.html", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", w.Code)
	}
}

func TestUserMapBadPath(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for _, path := range []string{"/abc.html", "/100"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
}
