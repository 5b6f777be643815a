package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/waveforge/orc/internal/models"
)

func TestRenderMarkdownIncludesEscalation(t *testing.T) {
	d := FailureDigest{
		FeatureID:   "feat-1",
		Category:    "TASK_VERIFICATION_FAILED",
		TaskID:      "T1",
		LevelIndex:  2,
		Output:      "FAIL: exit status 1",
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Escalation: &models.Escalation{
			WorkerID: 1,
			Category: models.CategoryAmbiguousSpec,
			Message:  "spec does not say which format to use",
		},
	}

	md := RenderMarkdown(d)
	require.Contains(t, md, "feat-1")
	require.Contains(t, md, "TASK_VERIFICATION_FAILED")
	require.Contains(t, md, "FAIL: exit status 1")
	require.Contains(t, md, "AMBIGUOUS_SPEC")
	require.Contains(t, md, "spec does not say")
}

func TestRenderHTMLProducesHTMLTags(t *testing.T) {
	html, err := RenderHTML(FailureDigest{FeatureID: "feat-1", Category: "MERGE_CONFLICT"})
	require.NoError(t, err)
	require.True(t, strings.Contains(html, "<h1>") || strings.Contains(html, "<p>"))
}
