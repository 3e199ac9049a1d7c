package biz

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"ContentGuard/internal/model"
	cmserrors "ContentGuard/pkg/errors"
)

func isNotFound(err error) bool {
	return cmserrors.Kind(err) == cmserrors.KindNotFound
}

// ContentUsecase serves blog content for the marketing site. All CMS reads
// flow through the coordinator with the matching named breaker and a static
// fallback, so pages always render something non-empty.
type ContentUsecase struct {
	repo   CMSRepo
	co     *Coordinator
	logger *log.Helper
}

// NewContentUsecase creates the content use case.
func NewContentUsecase(repo CMSRepo, co *Coordinator, logger log.Logger) *ContentUsecase {
	return &ContentUsecase{
		repo:   repo,
		co:     co,
		logger: log.NewHelper(logger),
	}
}

// GetPosts returns the blog listing, or the fallback listing when the CMS
// is unavailable or fallback mode is active.
func (uc *ContentUsecase) GetPosts(ctx context.Context) ([]model.PostPreview, error) {
	if uc.co.Resilience().Boundary.IsFallbackMode() {
		return FallbackPostPreviews(), nil
	}
	return SafeOperation(ctx, uc.co, SafeCall[[]model.PostPreview]{
		Name:      BreakerFetchPosts,
		Component: "content",
		Operation: uc.repo.FetchPosts,
		Fallback:  FallbackPostPreviews,
		Breaker:   uc.co.Resilience().Breaker(BreakerFetchPosts),
	})
}

// GetPost returns one post by slug. Not-found errors propagate so routes can
// return 404 instead of the fallback article.
func (uc *ContentUsecase) GetPost(ctx context.Context, slug string) (*model.Post, error) {
	post, err := SafeOperation(ctx, uc.co, SafeCall[*model.Post]{
		Name:      BreakerFetchSinglePost,
		Component: "content",
		Operation: func(ctx context.Context) (*model.Post, error) {
			return uc.repo.FetchPost(ctx, slug)
		},
		Breaker: uc.co.Resilience().Breaker(BreakerFetchSinglePost),
	})
	if err != nil {
		return nil, err
	}
	model.SanitizePost(post)
	return post, nil
}

// GetPostOrFallback is GetPost with the placeholder article substituted for
// availability failures. Not-found still propagates.
func (uc *ContentUsecase) GetPostOrFallback(ctx context.Context, slug string) (*model.Post, error) {
	post, err := uc.GetPost(ctx, slug)
	if err == nil {
		return post, nil
	}
	if isNotFound(err) {
		return nil, err
	}
	fb := FallbackPost()
	return &fb, nil
}

// GetCategories returns the category set with a static fallback.
func (uc *ContentUsecase) GetCategories(ctx context.Context) ([]model.Category, error) {
	return SafeOperation(ctx, uc.co, SafeCall[[]model.Category]{
		Name:      BreakerFetchCategories,
		Component: "content",
		Operation: uc.repo.FetchCategories,
		Fallback:  FallbackCategories,
		Breaker:   uc.co.Resilience().Breaker(BreakerFetchCategories),
	})
}

// GetCourses returns active courses with a static fallback.
func (uc *ContentUsecase) GetCourses(ctx context.Context) ([]model.Course, error) {
	return SafeOperation(ctx, uc.co, SafeCall[[]model.Course]{
		Name:      BreakerFetchCourses,
		Component: "content",
		Operation: uc.repo.FetchCourses,
		Fallback:  FallbackCourses,
		Breaker:   uc.co.Resilience().Breaker(BreakerFetchCourses),
	})
}

// RouteCTA picks the course to promote inside a post. Course keywords are
// matched against the post text; ties go to the first active match and the
// evergreen CPL course is the last resort.
func (uc *ContentUsecase) RouteCTA(ctx context.Context, post *model.Post) (model.Course, error) {
	return SafeOperation(ctx, uc.co, SafeCall[model.Course]{
		Name:      BreakerCTARouting,
		Component: "content",
		Operation: func(ctx context.Context) (model.Course, error) {
			courses, err := uc.repo.FetchCourses(ctx)
			if err != nil {
				return model.Course{}, err
			}
			return matchCourse(post, courses), nil
		},
		Fallback: func() model.Course { return FallbackCourses()[0] },
		Breaker:  uc.co.Resilience().Breaker(BreakerCTARouting),
	})
}

// matchCourse scores courses by keyword hits in the post text.
func matchCourse(post *model.Post, courses []model.Course) model.Course {
	text := strings.ToLower(post.Title + " " + post.Category + " " + strings.Join(post.Tags, " "))
	var best model.Course
	bestScore := 0
	for _, c := range courses {
		if !c.Active {
			continue
		}
		score := 0
		for _, kw := range c.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	if bestScore == 0 {
		for _, c := range courses {
			if c.Active {
				return c
			}
		}
		return FallbackCourses()[0]
	}
	return best
}
