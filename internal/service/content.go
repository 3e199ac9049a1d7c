package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"ContentGuard/internal/biz"
	"ContentGuard/internal/model"
)

// ContentService exposes the public blog content endpoints. Every method
// goes through the resilience coordinator in the usecase, so callers get
// fallback content instead of errors when the CMS is down.
type ContentService struct {
	uc     *biz.ContentUsecase
	logger *log.Helper
}

// NewContentService creates a new ContentService instance.
func NewContentService(uc *biz.ContentUsecase, logger log.Logger) *ContentService {
	return &ContentService{
		uc:     uc,
		logger: log.NewHelper(logger),
	}
}

// ListPostsReply wraps the blog listing with its data source.
type ListPostsReply struct {
	Posts    []model.PostPreview `json:"posts"`
	Fallback bool                `json:"fallback"`
}

// GetPostReply wraps a single post with its data source.
type GetPostReply struct {
	Post     *model.Post `json:"post"`
	Fallback bool        `json:"fallback"`
}

// ListCategoriesReply wraps the category set with its data source.
type ListCategoriesReply struct {
	Categories []model.Category `json:"categories"`
	Fallback   bool             `json:"fallback"`
}

// RouteCTAReply is the course selected for a post's call-to-action slots.
type RouteCTAReply struct {
	Course   model.Course `json:"course"`
	Fallback bool         `json:"fallback"`
}

// ListPosts returns the blog listing, falling back to static previews when
// the CMS is unavailable.
func (s *ContentService) ListPosts(ctx context.Context) (*ListPostsReply, error) {
	posts, err := s.uc.GetPosts(ctx)
	if err != nil {
		s.logger.Errorw("msg", "failed to list posts", "error", err.Error())
		return nil, err
	}
	return &ListPostsReply{
		Posts:    posts,
		Fallback: containsFallback(posts),
	}, nil
}

// GetPost returns one post by slug. Unknown slugs return a not-found error;
// availability failures return the fallback post.
func (s *ContentService) GetPost(ctx context.Context, slug string) (*GetPostReply, error) {
	post, err := s.uc.GetPostOrFallback(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &GetPostReply{
		Post:     post,
		Fallback: model.IsFallbackID(post.ID),
	}, nil
}

// ListCategories returns the category set.
func (s *ContentService) ListCategories(ctx context.Context) (*ListCategoriesReply, error) {
	categories, err := s.uc.GetCategories(ctx)
	if err != nil {
		s.logger.Errorw("msg", "failed to list categories", "error", err.Error())
		return nil, err
	}
	fallback := false
	for _, c := range categories {
		if model.IsFallbackID(c.ID) {
			fallback = true
			break
		}
	}
	return &ListCategoriesReply{Categories: categories, Fallback: fallback}, nil
}

// RouteCTA picks the best matching course for a post's CTA slots.
func (s *ContentService) RouteCTA(ctx context.Context, slug string) (*RouteCTAReply, error) {
	post, err := s.uc.GetPostOrFallback(ctx, slug)
	if err != nil {
		return nil, err
	}
	course, err := s.uc.RouteCTA(ctx, post)
	if err != nil {
		return nil, err
	}
	return &RouteCTAReply{
		Course:   course,
		Fallback: model.IsFallbackID(course.ID),
	}, nil
}

func containsFallback(posts []model.PostPreview) bool {
	for _, p := range posts {
		if model.IsFallbackID(p.ID) {
			return true
		}
	}
	return false
}
