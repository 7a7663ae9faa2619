package main

import (
	"bytes"
	"context"
	"log/slog"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/htmledit/domtag"
	"github.com/hazyhaar/htmledit/editor"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTagCmd_Stdin(t *testing.T) {
	out, err := runCmd(t, `<h1>Title</h1><img src="a.png">`, "tag", "-")
	require.NoError(t, err)

	var res struct {
		TaggedHTML string           `json:"tagged_html"`
		Elements   []domtag.Element `json:"elements"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Elements, 2)
	assert.Equal(t, "h1", res.Elements[0].Tag)
	assert.Equal(t, "Title", res.Elements[0].Content)
	assert.Equal(t, "img", res.Elements[1].Tag)
	assert.Equal(t, "a.png", res.Elements[1].Attributes["src"])
	for _, el := range res.Elements {
		assert.Contains(t, res.TaggedHTML, `data-ai-id="`+el.ID+`"`)
	}
}

func TestTagCmd_EmptyDocument(t *testing.T) {
	out, err := runCmd(t, "", "tag", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"elements": []`)
}

func TestTagCmd_MissingFile(t *testing.T) {
	_, err := runCmd(t, "", "tag", filepath.Join(t.TempDir(), "nope.html"))
	require.Error(t, err)
}

func TestPatchCmd(t *testing.T) {
	doc := writeFile(t, "doc.html", `<p data-ai-id="ai-edit-1">Old</p><a data-ai-id="ai-edit-2" href="/x">Go</a>`)
	updates := writeFile(t, "updates.json", `[
		{"id": "ai-edit-1", "content": "New"},
		{"id": "ai-edit-2", "attributes": {"href": "/y"}},
		{"id": "ai-edit-404", "content": "ignored"}
	]`)

	out, err := runCmd(t, "", "patch", doc, "--updates", updates)
	require.NoError(t, err)
	assert.Contains(t, out, `<p data-ai-id="ai-edit-1">New</p>`)
	assert.Contains(t, out, `<a data-ai-id="ai-edit-2" href="/y">Go</a>`)
	assert.NotContains(t, out, "ignored")
}

func TestPatchCmd_Final(t *testing.T) {
	doc := writeFile(t, "doc.html", `<p data-ai-id="ai-edit-1">Old</p><p data-ai-id="ai-edit-2">Keep</p>`)
	updates := writeFile(t, "updates.json", `[{"id": "ai-edit-1", "content": "New"}]`)

	out, err := runCmd(t, "", "patch", doc, "-u", updates, "--final")
	require.NoError(t, err)
	assert.Contains(t, out, `<p>New</p>`)
	assert.Contains(t, out, `<p data-ai-id="ai-edit-2">Keep</p>`)
}

func TestPatchCmd_FinalWithoutUpdatesStripsAll(t *testing.T) {
	out, err := runCmd(t, `<p data-ai-id="ai-edit-1">A</p><li data-ai-id="ai-edit-2">B</li>`, "patch", "-", "--final")
	require.NoError(t, err)
	assert.NotContains(t, out, domtag.AttrID)
}

func TestPatchCmd_BadUpdates(t *testing.T) {
	doc := writeFile(t, "doc.html", `<p>x</p>`)
	updates := writeFile(t, "updates.json", `{not json`)
	_, err := runCmd(t, "", "patch", doc, "-u", updates)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse updates")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("MAX_UPLOAD_MB", "4")
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Listen)
	assert.Equal(t, "30m0s", cfg.SessionTTL.String())
	assert.Equal(t, 4, cfg.MaxUploadMB)
}

func TestOpenStore_Traced(t *testing.T) {
	cfg := editor.DefaultConfig()
	cfg.TraceSQL = true
	store, err := openStore(cfg, slog.Default())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Create(context.Background(), "tok", "<p>x</p>", ""))
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoadConfig_BadEnv(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	_, err := loadConfig("")
	require.Error(t, err)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, "htmledit.yaml", "listen: \":9000\"\nmax_upload_mb: 2\n")
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 2, cfg.MaxUploadMB)
}
