package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/htmledit/domtag"
)

type markdownExporter struct {
	conv *converter.Converter
}

func newMarkdownExporter() *markdownExporter {
	return &markdownExporter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Markdown renders the current session document as Markdown, without
// tracking identifiers.
func (s *Service) Markdown(ctx context.Context, token string) (string, error) {
	sess, err := s.load(ctx, token)
	if err != nil {
		return "", err
	}
	plain, err := domtag.Strip(sess.Markup)
	if err != nil {
		return "", err
	}
	md, err := s.md.conv.ConvertString(plain)
	if err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// previewPolicy keeps user-generated-content markup plus the tracking
// attribute, so the editor UI can still locate elements in the preview.
var previewPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs(domtag.AttrID).Globally()
	p.AllowAttrs("class").Globally()
	return p
}()

// SafePreview returns the session markup with scripts, event handlers and
// other active content removed.
func (s *Service) SafePreview(ctx context.Context, token string) (string, error) {
	markup, err := s.Preview(ctx, token)
	if err != nil {
		return "", err
	}
	return previewPolicy.Sanitize(markup), nil
}
