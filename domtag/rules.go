package domtag

import "golang.org/x/net/html/atom"

// rule is the per-tag behaviour of an editable element.
type rule struct {
	media bool     // eligible without text, labelled "(Image)"
	attrs []string // attributes surfaced on the Element, "" when missing
}

// editable lists the tags that can become Elements.
var editable = map[atom.Atom]rule{
	atom.H1:     {},
	atom.H2:     {},
	atom.H3:     {},
	atom.H4:     {},
	atom.H5:     {},
	atom.H6:     {},
	atom.P:      {},
	atom.A:      {attrs: []string{"href"}},
	atom.Img:    {media: true, attrs: []string{"src"}},
	atom.Span:   {},
	atom.Li:     {},
	atom.Button: {},
}

// voidElements never receive text content. html.Render refuses to
// serialise a void element that has children, so this is the full
// HTML void set and not only img/br/hr/input.
var voidElements = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Keygen: true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// hiddenText elements contribute no visible text.
var hiddenText = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
	atom.Noscript: true,
}
