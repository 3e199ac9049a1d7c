package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"DGCA CPL Ground School Guide", "dgca-cpl-ground-school-guide"},
		{"  What's New in 2024?  ", "whats-new-in-2024"},
		{"Multiple   spaces___and_underscores", "multiple-spaces-and-underscores"},
		{"---already-hyphenated---", "already-hyphenated"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.title), "title=%q", tt.title)
	}
}

func TestExtractExcerpt(t *testing.T) {
	t.Run("short body returned whole", func(t *testing.T) {
		assert.Equal(t, "A short post.", ExtractExcerpt("A short post.", 160))
	})

	t.Run("long body cut at word boundary", func(t *testing.T) {
		body := strings.Repeat("navigation fundamentals ", 20)
		got := ExtractExcerpt(body, 50)
		assert.True(t, strings.HasSuffix(got, "..."))
		assert.LessOrEqual(t, len(got), 53)
		assert.False(t, strings.Contains(strings.TrimSuffix(got, "..."), "  "))
	})

	t.Run("cta placements stripped", func(t *testing.T) {
		body := "Intro text. <!-- CTA_COURSE_INTEGRATION --> More text."
		got := ExtractExcerpt(body, 160)
		assert.NotContains(t, got, "CTA_")
		assert.Contains(t, got, "Intro text.")
	})

	t.Run("zero max uses default", func(t *testing.T) {
		body := strings.Repeat("word ", 100)
		got := ExtractExcerpt(body, 0)
		assert.LessOrEqual(t, len([]rune(got)), 163)
	})
}

func TestCategorizeContent(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		want  string
	}{
		{"dgca training", "DGCA CPL Exam Guide", "syllabus overview", "Aviation Training"},
		{"operations", "Instrument Approach Basics", "cockpit procedures", "Flight Operations"},
		{"safety", "Handling Turbulence", "weather hazards explained", "Aviation Safety"},
		{"career", "Airline Interview Prep", "salary expectations", "Career Guidance"},
		{"no match", "Random Musings", "nothing relevant here", "Aviation Industry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeContent(tt.title, tt.body))
		})
	}
}

func TestEstimateReadingTime(t *testing.T) {
	assert.Equal(t, 1, EstimateReadingTime(""), "empty body is still one minute")
	assert.Equal(t, 1, EstimateReadingTime("just a few words"))
	assert.Equal(t, 2, EstimateReadingTime(strings.Repeat("word ", 300)))
	assert.Equal(t, 1, EstimateReadingTime(strings.Repeat("word ", 225)))
}

func TestExtractTags(t *testing.T) {
	body := "DGCA ground school covers air law, meteorology, navigation, technical general and regulations."
	tags := ExtractTags("CPL Syllabus", body)
	require.NotEmpty(t, tags)
	assert.LessOrEqual(t, len(tags), 5)
	assert.Contains(t, tags, "dgca")
}

func TestSelectAuthor(t *testing.T) {
	assert.Equal(t, "Ankit Kumar", SelectAuthor("DGCA Ground School Tips", "exam prep").Name)
	assert.Equal(t, "Dhruv Shirkoli", SelectAuthor("Weather Flying", "safety first").Name)
	assert.Equal(t, "Saksham Khandelwal", SelectAuthor("Airline Interview Guide", "").Name)
	assert.Equal(t, "Aman Suryavanshi", SelectAuthor("General Update", "nothing topical").Name)
}

func TestSanitizePost(t *testing.T) {
	p := &Post{
		Title: "  DGCA Exam Strategy  ",
		Body:  "Plan your prep. <!-- CTA_GROUND_SCHOOL_INTEGRATION -->\r\nStudy daily.",
	}
	SanitizePost(p)

	assert.Equal(t, "DGCA Exam Strategy", p.Title)
	assert.Equal(t, "dgca-exam-strategy", p.Slug)
	assert.NotContains(t, p.Body, "CTA_")
	assert.NotContains(t, p.Body, "\r\n")
	assert.Len(t, p.CTAPlacements, 1)
	assert.NotEmpty(t, p.Excerpt)
	assert.Equal(t, "Aviation Training", p.Category)
	assert.GreaterOrEqual(t, p.ReadingTime, 1)
	assert.NotEmpty(t, p.Author.Name)

	assert.NotPanics(t, func() { SanitizePost(nil) })
}

func TestIsFallbackID(t *testing.T) {
	assert.True(t, IsFallbackID("fallback-post-1"))
	assert.False(t, IsFallbackID("post-abc123"))
}

func TestOperationProgressPercentage(t *testing.T) {
	assert.Equal(t, float64(100), OperationProgress{}.Percentage())
	assert.Equal(t, float64(50), OperationProgress{Total: 10, Processed: 5}.Percentage())
}

func TestOperationStatusTerminal(t *testing.T) {
	assert.False(t, OpPending.Terminal())
	assert.False(t, OpRunning.Terminal())
	assert.True(t, OpCompleted.Terminal())
	assert.True(t, OpFailed.Terminal())
	assert.True(t, OpCancelled.Terminal())
}
