package biz

import (
	"time"

	"ContentGuard/internal/model"
)

// Fallback content served when the CMS is unreachable. Every ID carries the
// fallback sentinel prefix so downstream rendering can mark the payload and
// never persist it. These functions are pure and do no I/O.

// FallbackPost returns the placeholder article for single-post pages.
func FallbackPost() model.Post {
	body := "Our full article library is temporarily unavailable. " +
		"Please check back in a few minutes, or explore our training courses below."
	return model.Post{
		ID:          model.FallbackIDPrefix + "post",
		Title:       "Content Temporarily Unavailable",
		Slug:        "content-temporarily-unavailable",
		Excerpt:     model.ExtractExcerpt(body, 160),
		Body:        body,
		Category:    "Aviation Industry",
		Author:      FallbackAuthor(),
		ReadingTime: 1,
	}
}

// FallbackPostPreviews returns the placeholder blog listing.
func FallbackPostPreviews() []model.PostPreview {
	return []model.PostPreview{
		{
			ID:          model.FallbackIDPrefix + "preview-1",
			Title:       "Your DGCA Ground School Journey Starts Here",
			Slug:        "dgca-ground-school-journey",
			Excerpt:     "A complete roadmap for aspiring pilots preparing for DGCA CPL examinations.",
			Category:    "Aviation Training",
			ReadingTime: 5,
		},
		{
			ID:          model.FallbackIDPrefix + "preview-2",
			Title:       "How Airline Recruitment Really Works",
			Slug:        "how-airline-recruitment-works",
			Excerpt:     "What airlines look for beyond the license, from logbook hours to interview prep.",
			Category:    "Career Guidance",
			ReadingTime: 4,
		},
	}
}

// FallbackCategories returns the static category set.
func FallbackCategories() []model.Category {
	return []model.Category{
		{ID: model.FallbackIDPrefix + "cat-training", Title: "Aviation Training", Slug: "aviation-training"},
		{ID: model.FallbackIDPrefix + "cat-operations", Title: "Flight Operations", Slug: "flight-operations"},
		{ID: model.FallbackIDPrefix + "cat-safety", Title: "Aviation Safety", Slug: "aviation-safety"},
		{ID: model.FallbackIDPrefix + "cat-career", Title: "Career Guidance", Slug: "career-guidance"},
	}
}

// FallbackAuthor returns the default byline used on placeholder content.
func FallbackAuthor() model.Author {
	return model.Author{
		ID:   model.FallbackIDPrefix + "author",
		Name: "Editorial Team",
		Slug: "editorial-team",
		Role: "Staff",
	}
}

// FallbackCourses returns the evergreen course promotions used when CTA
// routing cannot reach live course data.
func FallbackCourses() []model.Course {
	return []model.Course{
		{
			ID:     model.FallbackIDPrefix + "course-cpl",
			Title:  "DGCA CPL Ground School",
			Slug:   "dgca-cpl-ground-school",
			Active: true,
			URL:    "/courses/dgca-cpl-ground-school",
		},
		{
			ID:     model.FallbackIDPrefix + "course-atpl",
			Title:  "ATPL Theory Preparation",
			Slug:   "atpl-theory-preparation",
			Active: true,
			URL:    "/courses/atpl-theory-preparation",
		},
		{
			ID:     model.FallbackIDPrefix + "course-rtr",
			Title:  "RTR(A) Radio Telephony",
			Slug:   "rtr-radio-telephony",
			Active: true,
			URL:    "/courses/rtr-radio-telephony",
		},
	}
}

// FallbackDiagnostic returns a minimal health report when diagnostics cannot
// reach any collaborator at all.
func FallbackDiagnostic(now time.Time) model.DiagnosticResult {
	return model.DiagnosticResult{
		Timestamp: now,
		Overall:   model.HealthCritical,
		Components: map[string]model.ComponentHealth{
			"diagnostics": model.HealthCritical,
		},
		Issues: []model.DiagnosticIssue{{
			Severity:    model.SeverityCritical,
			Component:   "diagnostics",
			Description: "diagnostic collaborators unreachable",
		}},
	}
}
