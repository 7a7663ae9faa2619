package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/htmledit/domtag"
	"github.com/hazyhaar/htmledit/editor"
	"github.com/hazyhaar/htmledit/shield"
)

// multipartSlack covers multipart framing on top of the document ceiling.
const multipartSlack = 1 << 20

var errNoFile = errors.New("No file uploaded")

func newRouter(svc *editor.Service, cfg *editor.Config) http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(cfg.MaxUploadBytes() + multipartSlack) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/analyze", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(cfg.MaxUploadBytes()); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeError(w, http.StatusRequestEntityTooLarge, editor.ErrTooLarge)
				return
			}
			writeError(w, 400, errNoFile)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, 400, errNoFile)
			return
		}
		defer file.Close()
		if header.Filename == "" {
			writeError(w, 400, errors.New("No file selected"))
			return
		}

		a, err := svc.Analyze(r.Context(), header.Filename, file)
		if err != nil {
			writeServiceError(w, r, err, 400)
			return
		}
		writeJSON(w, 200, a)
	})

	r.Get("/preview/{token}", func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		var (
			markup string
			err    error
		)
		if r.URL.Query().Get("safe") != "" {
			markup, err = svc.SafePreview(r.Context(), token)
		} else {
			markup, err = svc.Preview(r.Context(), token)
		}
		if err != nil {
			if errors.Is(err, editor.ErrSessionNotFound) {
				http.Error(w, "Session expired or invalid", http.StatusNotFound)
				return
			}
			writeServiceError(w, r, err, 404)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		w.Write([]byte(markup))
	})

	r.Get("/elements/{token}", func(w http.ResponseWriter, r *http.Request) {
		els, err := svc.Elements(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeServiceError(w, r, err, 404)
			return
		}
		writeJSON(w, 200, map[string]any{"elements": els})
	})

	r.Post("/generate", func(w http.ResponseWriter, r *http.Request) {
		var req editor.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		res, err := svc.Generate(r.Context(), req)
		if err != nil {
			if errors.Is(err, editor.ErrSessionNotFound) {
				writeError(w, 400, errors.New("Invalid session"))
				return
			}
			writeServiceError(w, r, err, 400)
			return
		}
		if !req.Final {
			writeJSON(w, 200, map[string]string{"status": res.Status})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(res.Filename)))
		w.WriteHeader(200)
		w.Write([]byte(res.Markup))
	})

	r.Get("/markdown/{token}", func(w http.ResponseWriter, r *http.Request) {
		md, err := svc.Markdown(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			writeServiceError(w, r, err, 404)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(200)
		w.Write([]byte(md))
	})

	r.Delete("/session/{token}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Close(r.Context(), chi.URLParam(r, "token")); err != nil {
			writeServiceError(w, r, err, 404)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

// writeServiceError maps service errors to status codes; notFound is the
// status used for unknown sessions on this route.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound int) {
	switch {
	case errors.Is(err, editor.ErrSessionNotFound):
		writeError(w, notFound, err)
	case errors.Is(err, editor.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, domtag.ErrInvalidMarkup):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		shield.GetLogger(r.Context()).Error("request failed", "error", err)
		writeError(w, 500, errors.New("internal error"))
	}
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == '\\' || r == '/' {
			return '_'
		}
		return r
	}, name)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
