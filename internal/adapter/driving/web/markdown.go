package web

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
	patcher       *diffmatchpatch.DiffMatchPatch
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
	patcher = diffmatchpatch.New()
}

// isMarkdown reports whether the file should be rendered as markdown.
func isMarkdown(filePath string) bool {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// RenderMarkdown converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

// RenderDiffHunk converts unified diff text into HTML with line-level CSS classes.
// Each line is wrapped in a <span> with a class indicating its diff role:
//   - diff-add: added lines (prefix "+")
//   - diff-del: deleted lines (prefix "-")
//   - diff-header: hunk and file headers
//   - diff-ctx: context lines (no special prefix)
func RenderDiffHunk(hunk string) string {
	hunk = strings.TrimSuffix(hunk, "\n")
	if hunk == "" {
		return ""
	}

	lines := strings.Split(hunk, "\n")
	var buf strings.Builder
	buf.Grow(len(hunk) * 2)

	for i, line := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}

		buf.WriteString(`<span class="`)
		buf.WriteString(classForDiffLine(line))
		buf.WriteString(`">`)
		buf.WriteString(templ.EscapeString(line))
		buf.WriteString(`</span>`)
	}

	return buf.String()
}

func classForDiffLine(line string) string {
	if strings.HasPrefix(line, "@@") || strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
		return "diff-header"
	}
	if strings.HasPrefix(line, "+") {
		return "diff-add"
	}
	if strings.HasPrefix(line, "-") {
		return "diff-del"
	}
	return "diff-ctx"
}

// PatchToUnified decodes diff-match-patch patch text, the format the server
// stores for modified files, into line-oriented unified diff text.
func PatchToUnified(patchText string) (string, error) {
	patches, err := patcher.PatchFromText(patchText)
	if err != nil {
		return "", fmt.Errorf("parse patch: %w", err)
	}

	var b strings.Builder
	for _, p := range patches {
		for _, line := range strings.Split(strings.TrimSuffix(p.String(), "\n"), "\n") {
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "@@") {
				b.WriteString(line)
				b.WriteByte('\n')
				continue
			}

			op, body := line[:1], line[1:]
			text, err := url.PathUnescape(body)
			if err != nil {
				text = body
			}
			for _, l := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
				b.WriteString(op)
				b.WriteString(l)
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}

// RenderChange renders one commit change. Patches are shown as diffs, full
// contents as all-added lines.
func RenderChange(content string, isDiff bool) string {
	if content == "" {
		return ""
	}
	if isDiff {
		unified, err := PatchToUnified(content)
		if err != nil {
			// Not a patch after all; show it verbatim.
			return RenderDiffHunk(content)
		}
		return RenderDiffHunk(unified)
	}

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "+" + l
	}
	return RenderDiffHunk(strings.Join(lines, "\n"))
}

// PreviewDiff returns the unified diff of an upload against the current
// content of the same path, or "" when they are identical.
func PreviewDiff(filePath, current, uploaded string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(current),
		B:        difflib.SplitLines(uploaded),
		FromFile: "a/" + filePath,
		ToFile:   "b/" + filePath,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", filePath, err)
	}
	return text, nil
}
