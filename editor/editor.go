// CLAUDE:SUMMARY Edit-session service: analyze uploads, serve previews, apply edit passes and produce final documents.
// Package editor runs document edit sessions on top of domtag.
//
// A session starts with Analyze (tag the upload, store it under a fresh
// token), goes through any number of non-final Generate passes (patch the
// stored markup in place) and ends with a final Generate that returns the
// deliverable with tracking identifiers removed from edited elements.
//
// Usage:
//
//	store, _ := session.Open(dbopen.Memory)
//	svc := editor.New(store, editor.DefaultConfig())
//	a, err := svc.Analyze(ctx, "page.html", file)
//	res, err := svc.Generate(ctx, editor.GenerateRequest{Token: a.Token, Updates: ups, Final: true})
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/htmledit/domtag"
	"github.com/hazyhaar/htmledit/horosafe"
	"github.com/hazyhaar/htmledit/idgen"
	"github.com/hazyhaar/htmledit/observability"
	"github.com/hazyhaar/htmledit/session"
)

const serviceName = "htmledit"

var (
	// ErrSessionNotFound is returned for unknown, expired or malformed tokens.
	ErrSessionNotFound = errors.New("editor: session not found")

	// ErrTooLarge is returned when an upload exceeds the configured ceiling.
	ErrTooLarge = errors.New("editor: document too large")
)

// Service coordinates the tagger, the patcher and the session store.
type Service struct {
	cfg      Config
	store    *session.Store
	tagger   *domtag.Tagger
	newToken idgen.Generator
	events   *observability.EventLogger
	logger   *slog.Logger
	md       *markdownExporter
}

// Option configures a Service.
type Option func(*Service)

// WithTagger replaces the default domtag.Tagger.
func WithTagger(t *domtag.Tagger) Option { return func(s *Service) { s.tagger = t } }

// WithTokenGenerator replaces the session token generator.
func WithTokenGenerator(gen idgen.Generator) Option { return func(s *Service) { s.newToken = gen } }

// WithEvents records a business event for every operation.
func WithEvents(l *observability.EventLogger) Option { return func(s *Service) { s.events = l } }

// New creates a Service over store.
func New(store *session.Store, cfg *Config, opts ...Option) *Service {
	c := *cfg
	c.defaults()
	s := &Service{
		cfg:      c,
		store:    store,
		tagger:   domtag.NewTagger(),
		newToken: idgen.Token(),
		logger:   c.Logger,
		md:       newMarkdownExporter(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analysis is the result of Analyze.
type Analysis struct {
	Token       string           `json:"token"`
	Elements    []domtag.Element `json:"elements"`
	PreviewHTML string           `json:"preview_html"`
}

// Analyze reads an uploaded document, tags it and opens a session.
// Bytes that are not valid UTF-8 are dropped before parsing.
func (s *Service) Analyze(ctx context.Context, filename string, r io.Reader) (*Analysis, error) {
	data, err := horosafe.LimitedReadAll(r, s.cfg.MaxUploadBytes())
	if err != nil {
		if errors.Is(err, horosafe.ErrTooLarge) {
			return nil, fmt.Errorf("%w: max %d MB", ErrTooLarge, s.cfg.MaxUploadMB)
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return s.AnalyzeString(ctx, filename, string(data))
}

// AnalyzeString is Analyze for in-memory markup.
func (s *Service) AnalyzeString(ctx context.Context, filename, markup string) (*Analysis, error) {
	if int64(len(markup)) > s.cfg.MaxUploadBytes() {
		return nil, fmt.Errorf("%w: max %d MB", ErrTooLarge, s.cfg.MaxUploadMB)
	}
	markup = strings.ToValidUTF8(markup, "")

	tagged, elements, err := s.tagger.TagAndExtract(markup)
	if err != nil {
		s.event(ctx, "document.analyzed", "", "", false)
		return nil, err
	}

	name := ""
	if filename != "" {
		name = filepath.Base(filename)
	}
	token := s.newToken()
	if err := s.store.Create(ctx, token, tagged, name); err != nil {
		return nil, err
	}
	s.logger.Info("document analyzed", "token", token, "elements", len(elements), "bytes", len(markup))
	s.event(ctx, "document.analyzed", token, fmt.Sprintf(`{"elements":%d}`, len(elements)), true)

	if elements == nil {
		elements = []domtag.Element{}
	}
	return &Analysis{Token: token, Elements: elements, PreviewHTML: tagged}, nil
}

// Preview returns the current tagged markup of a session.
func (s *Service) Preview(ctx context.Context, token string) (string, error) {
	sess, err := s.load(ctx, token)
	if err != nil {
		return "", err
	}
	return sess.Markup, nil
}

// Elements re-extracts the editable elements of the current session markup.
// Identifiers are stable, so they match those returned by Analyze.
func (s *Service) Elements(ctx context.Context, token string) ([]domtag.Element, error) {
	sess, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	_, elements, err := s.tagger.TagAndExtract(sess.Markup)
	if err != nil {
		return nil, err
	}
	if elements == nil {
		elements = []domtag.Element{}
	}
	return elements, nil
}

// GenerateRequest is one edit submission.
type GenerateRequest struct {
	Token   string          `json:"token"`
	Updates []domtag.Update `json:"updates"`
	Final   bool            `json:"final"`
}

// GenerateResult reports a Generate pass. Markup and Filename are set only
// for final passes; Filename is "updated_" plus the uploaded name, or the
// configured default when the upload had none.
type GenerateResult struct {
	Status   string `json:"status"`
	Markup   string `json:"markup,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Generate applies an edit submission. Non-final passes write the patched
// markup back to the session; final passes return it and leave the session
// as it was, so editing can continue.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := horosafe.ValidateIdentifier(req.Token); err != nil {
		return nil, ErrSessionNotFound
	}
	unlock := s.store.Lock(req.Token)
	defer unlock()

	sess, err := s.load(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	patched, err := domtag.ApplyUpdates(sess.Markup, req.Updates, req.Final)
	if err != nil {
		s.event(ctx, "document.generated", req.Token, "", false)
		return nil, err
	}
	details, _ := json.Marshal(map[string]any{"updates": len(req.Updates), "final": req.Final})

	if !req.Final {
		ok, err := s.store.Put(ctx, req.Token, patched)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrSessionNotFound
		}
		s.event(ctx, "document.updated", req.Token, string(details), true)
		return &GenerateResult{Status: "ok"}, nil
	}

	s.logger.Info("document generated", "token", req.Token, "updates", len(req.Updates))
	s.event(ctx, "document.generated", req.Token, string(details), true)
	filename := s.cfg.Filename
	if sess.Filename != "" {
		filename = "updated_" + sess.Filename
	}
	return &GenerateResult{Status: "ok", Markup: patched, Filename: filename}, nil
}

// Close ends a session.
func (s *Service) Close(ctx context.Context, token string) error {
	if err := horosafe.ValidateIdentifier(token); err != nil {
		return ErrSessionNotFound
	}
	if err := s.store.Delete(ctx, token); err != nil {
		return err
	}
	s.event(ctx, "session.closed", token, "", true)
	return nil
}

func (s *Service) load(ctx context.Context, token string) (*session.Session, error) {
	if err := horosafe.ValidateIdentifier(token); err != nil {
		return nil, ErrSessionNotFound
	}
	sess, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) event(ctx context.Context, eventType, token, details string, ok bool) {
	if s.events == nil {
		return
	}
	s.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:   eventType,
		ServiceName: serviceName,
		EntityType:  "session",
		EntityID:    token,
		Details:     details,
		Success:     ok,
	})
}
