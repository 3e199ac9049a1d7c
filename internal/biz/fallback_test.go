package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ContentGuard/internal/model"
)

func TestFallbackContent_SentinelIDs(t *testing.T) {
	assert.True(t, model.IsFallbackID(FallbackPost().ID))
	assert.True(t, model.IsFallbackID(FallbackAuthor().ID))
	for _, p := range FallbackPostPreviews() {
		assert.True(t, model.IsFallbackID(p.ID))
	}
	for _, c := range FallbackCategories() {
		assert.True(t, model.IsFallbackID(c.ID))
	}
	for _, c := range FallbackCourses() {
		assert.True(t, model.IsFallbackID(c.ID))
		assert.True(t, c.Active)
		assert.NotEmpty(t, c.URL)
	}
}

func TestFallbackContent_Deterministic(t *testing.T) {
	assert.Equal(t, FallbackPost(), FallbackPost())
	assert.Equal(t, FallbackPostPreviews(), FallbackPostPreviews())
	assert.Equal(t, FallbackCategories(), FallbackCategories())
	assert.Equal(t, FallbackCourses(), FallbackCourses())
}

func TestFallbackPost_Renderable(t *testing.T) {
	p := FallbackPost()
	assert.NotEmpty(t, p.Title)
	assert.NotEmpty(t, p.Slug)
	assert.NotEmpty(t, p.Excerpt)
	assert.GreaterOrEqual(t, p.ReadingTime, 1)
}
