package shield

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/htmledit/kit"
)

func newRouter(maxBody int64, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	for _, mw := range DefaultStack(maxBody) {
		r.Use(mw)
	}
	r.Get("/test", h)
	r.Post("/test", h)
	return r
}

func TestDefaultStack_Headers(t *testing.T) {
	var traceInCtx string
	r := newRouter(1024, func(w http.ResponseWriter, r *http.Request) {
		traceInCtx = kit.GetTraceID(r.Context())
		w.WriteHeader(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	checks := map[string]string{
		"X-Frame-Options":        "SAMEORIGIN",
		"X-Content-Type-Options": "nosniff",
	}
	for header, expected := range checks {
		if got := w.Header().Get(header); got != expected {
			t.Errorf("%s: got %q, want %q", header, got, expected)
		}
	}
	traceID := w.Header().Get("X-Trace-ID")
	if len(traceID) != 8 {
		t.Errorf("X-Trace-ID: got %q, want 8 hex chars", traceID)
	}
	if traceInCtx != traceID {
		t.Errorf("context trace id %q != header %q", traceInCtx, traceID)
	}
}

func TestHeadToGet(t *testing.T) {
	r := newRouter(1024, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("HEAD", "/test", nil))
	if w.Code != 200 {
		t.Fatalf("HEAD: got %d, want 200", w.Code)
	}
}

func TestMaxBody(t *testing.T) {
	r := newRouter(4, func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/test", strings.NewReader("ok")))
	if w.Code != 200 {
		t.Errorf("small body: got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/test", strings.NewReader("too large")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: got %d, want 413", w.Code)
	}
}
