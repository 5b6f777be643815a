// Package report renders the operator-facing failure/escalation digest
// spec.md §7 requires ("the operator always sees: a categorized failure...
// the latest output of the verification or gate that failed, and — for
// escalations — the worker's human-readable explanation"). Grounded on the
// teacher's internal/parser/markdown.go goldmark usage, repurposed from
// parsing plan markdown to rendering a digest and converting it to HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/waveforge/orc/internal/models"
)

// FailureDigest is everything needed to render one operator-facing failure
// report: the categorized failure, the affected task or level, the latest
// verification/gate output, and an optional escalation.
type FailureDigest struct {
	FeatureID    string
	Category     string // e.g. TASK_VERIFICATION_FAILED, MERGE_CONFLICT, GATE_FAILURE
	TaskID       string
	LevelIndex   int
	Output       string
	Escalation   *models.Escalation
	GeneratedAt  time.Time
}

// RenderMarkdown builds the Markdown source for a FailureDigest in the
// teacher's section-heading style (title, summary line, fenced output
// block, optional escalation section).
func RenderMarkdown(d FailureDigest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Failure report: %s\n\n", d.FeatureID)
	fmt.Fprintf(&sb, "- **Category**: `%s`\n", d.Category)
	if d.TaskID != "" {
		fmt.Fprintf(&sb, "- **Task**: `%s`\n", d.TaskID)
	}
	if d.LevelIndex > 0 {
		fmt.Fprintf(&sb, "- **Level**: %d\n", d.LevelIndex)
	}
	fmt.Fprintf(&sb, "- **Generated**: %s\n\n", d.GeneratedAt.Format(time.RFC3339))

	if strings.TrimSpace(d.Output) != "" {
		sb.WriteString("## Latest output\n\n```\n")
		sb.WriteString(strings.TrimRight(d.Output, "\n"))
		sb.WriteString("\n```\n\n")
	}

	if d.Escalation != nil {
		e := d.Escalation
		sb.WriteString("## Escalation\n\n")
		fmt.Fprintf(&sb, "- **Worker**: %d\n", e.WorkerID)
		fmt.Fprintf(&sb, "- **Category**: `%s`\n", e.Category)
		fmt.Fprintf(&sb, "- **Resolved**: %v\n\n", e.Resolved)
		sb.WriteString(e.Message)
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderHTML converts a digest's Markdown form to HTML via goldmark, for
// operators who view the digest in a browser rather than a terminal/file.
func RenderHTML(d FailureDigest) (string, error) {
	md := RenderMarkdown(d)
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("report: render html: %w", err)
	}
	return buf.String(), nil
}
