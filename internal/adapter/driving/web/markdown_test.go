package web

import (
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown_EmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
}

func TestRenderMarkdown_Bold(t *testing.T) {
	result := RenderMarkdown("**bold text**")
	assert.Contains(t, result, "<strong>bold text</strong>")
}

func TestRenderMarkdown_Link(t *testing.T) {
	result := RenderMarkdown("[click](https://example.com)")
	assert.Contains(t, result, `<a href="https://example.com"`)
	assert.Contains(t, result, "click</a>")
}

func TestRenderMarkdown_SanitizesScript(t *testing.T) {
	result := RenderMarkdown(`<script>alert("xss")</script>`)
	assert.NotContains(t, result, "<script>")
}

func TestRenderMarkdown_GFMStrikethrough(t *testing.T) {
	result := RenderMarkdown("~~deleted~~")
	assert.Contains(t, result, "<del>deleted</del>")
}

func TestIsMarkdown(t *testing.T) {
	assert.True(t, isMarkdown("README.md"))
	assert.True(t, isMarkdown("docs/Guide.MARKDOWN"))
	assert.False(t, isMarkdown("main.go"))
}

func TestRenderDiffHunk_EmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderDiffHunk(""))
}

func TestRenderDiffHunk_LineClasses(t *testing.T) {
	hunk := "@@ -1,3 +1,4 @@\n context line\n+added line\n-removed line"
	result := RenderDiffHunk(hunk)

	assert.Contains(t, result, `class="diff-header"`)
	assert.Contains(t, result, `class="diff-ctx"`)
	assert.Contains(t, result, `class="diff-add"`)
	assert.Contains(t, result, `class="diff-del"`)
}

func TestRenderDiffHunk_EscapesHTML(t *testing.T) {
	result := RenderDiffHunk("+<script>alert('xss')</script>")

	assert.NotContains(t, result, "<script>")
	assert.Contains(t, result, "&lt;script&gt;")
}

func TestPatchToUnified_DecodesServerPatch(t *testing.T) {
	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake("line one\nline two\nline three\n", "line one\nline 2 + more\nline three\n")
	text := dmp.PatchToText(patches)

	unified, err := PatchToUnified(text)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(unified, "@@ "))
	assert.Contains(t, unified, "2 + more")
	assert.NotContains(t, unified, "%0A")
}

func TestPatchToUnified_RejectsGarbage(t *testing.T) {
	_, err := PatchToUnified("@@ not a patch")
	assert.Error(t, err)
}

func TestRenderChange_FullContentIsAllAdded(t *testing.T) {
	result := RenderChange("a\nb\n", false)
	assert.Equal(t, 2, strings.Count(result, `class="diff-add"`))
	assert.NotContains(t, result, `class="diff-del"`)
}

func TestRenderChange_InvalidPatchShownVerbatim(t *testing.T) {
	result := RenderChange("+just text", true)
	assert.Contains(t, result, "just text")
}

func TestPreviewDiff(t *testing.T) {
	diff, err := PreviewDiff("main.go", "package main\n", "package main\n\nfunc main() {}\n")
	require.NoError(t, err)
	assert.Contains(t, diff, "--- a/main.go")
	assert.Contains(t, diff, "+++ b/main.go")
	assert.Contains(t, diff, "+func main() {}")

	same, err := PreviewDiff("main.go", "x\n", "x\n")
	require.NoError(t, err)
	assert.Empty(t, same)
}
