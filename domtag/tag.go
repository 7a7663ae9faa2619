package domtag

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/htmledit/idgen"
)

// labelPreview is the number of text runes shown in an Element label.
const labelPreview = 30

// Tagger assigns identifiers and extracts Elements.
type Tagger struct {
	newID idgen.Generator
}

// Option configures a Tagger.
type Option func(*Tagger)

// WithIDGenerator replaces the identifier generator. The generator output
// is used verbatim as the attribute value.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(t *Tagger) { t.newID = gen }
}

// NewTagger creates a Tagger. By default identifiers are "ai-edit-" followed
// by 12 random base-36 characters.
func NewTagger(opts ...Option) *Tagger {
	t := &Tagger{newID: idgen.Prefixed(IDPrefix, idgen.NanoID(12))}
	for _, o := range opts {
		o(t)
	}
	return t
}

var defaultTagger = NewTagger()

// TagAndExtract tags markup with the default Tagger.
func TagAndExtract(markup string) (string, []Element, error) {
	return defaultTagger.TagAndExtract(markup)
}

// TagAndExtract parses markup, gives every eligible element a data-ai-id
// (keeping any it already has), and returns the re-serialised markup with
// the Elements in document order.
func (t *Tagger) TagAndExtract(markup string) (string, []Element, error) {
	doc, err := parse(markup)
	if err != nil {
		return "", nil, err
	}

	taken := make(map[string]bool)
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if id, ok := getAttr(n, AttrID); ok && id != "" {
			taken[id] = true
		}
	})

	var elements []Element
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		r, ok := editable[n.DataAtom]
		if !ok {
			return
		}
		text := textContent(n)
		if text == "" && !r.media {
			return
		}

		id, ok := getAttr(n, AttrID)
		if !ok || id == "" {
			id = t.uniqueID(taken)
			setAttr(n, AttrID, id)
		}
		elements = append(elements, describe(n, r, id, text))
	})

	out, err := render(doc)
	if err != nil {
		return "", nil, err
	}
	return out, elements, nil
}

// uniqueID draws identifiers until one is not already used in the document.
func (t *Tagger) uniqueID(taken map[string]bool) string {
	for {
		id := t.newID()
		if !taken[id] {
			taken[id] = true
			return id
		}
	}
}

func describe(n *html.Node, r rule, id, text string) Element {
	tag := n.Data
	label := strings.ToUpper(tag)
	if text != "" {
		label += " - " + truncate(text, labelPreview) + "..."
	}
	if r.media {
		label += " (Image)"
	}

	el := Element{
		ID:      id,
		Tag:     tag,
		Label:   label,
		Content: text,
	}
	if len(r.attrs) > 0 {
		el.Attributes = make(map[string]string, len(r.attrs))
		for _, key := range r.attrs {
			v, _ := getAttr(n, key)
			el.Attributes[key] = v
		}
	}
	return el
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
