package domtag

import (
	"sort"

	"golang.org/x/net/html"
)

// ApplyUpdates parses tagged markup, applies updates in order and returns the
// re-serialised document.
//
// Each update targets the first element whose data-ai-id equals its ID;
// updates matching nothing are skipped. Void elements keep their (absent)
// text even when Content is set, but still receive attribute changes. With
// final set, data-ai-id is removed from every matched element; unmatched
// elements keep theirs.
func ApplyUpdates(tagged string, updates []Update, final bool) (string, error) {
	doc, err := parse(tagged)
	if err != nil {
		return "", err
	}
	for _, u := range updates {
		n := findByID(doc, u.ID)
		if n == nil {
			continue
		}
		apply(n, u)
		if final {
			removeAttr(n, AttrID)
		}
	}
	return render(doc)
}

func apply(n *html.Node, u Update) {
	if u.Content != nil && !voidElements[n.DataAtom] {
		setText(n, *u.Content)
	}
	keys := make([]string, 0, len(u.Attributes))
	for k := range u.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		setAttr(n, k, u.Attributes[k])
	}
}

// Strip removes every data-ai-id from markup.
func Strip(markup string) (string, error) {
	doc, err := parse(markup)
	if err != nil {
		return "", err
	}
	walk(doc, func(n *html.Node) {
		if n.Type == html.ElementNode {
			removeAttr(n, AttrID)
		}
	})
	return render(doc)
}
