package data

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"ContentGuard/internal/conf"
	"ContentGuard/internal/model"
	"ContentGuard/pkg/sanity"
)

// GROQ projections for the content types served to the marketing site.
const (
	groqPosts = `*[_type == "post" && defined(slug.current)] | order(publishedAt desc) {
  "id": _id,
  title,
  "slug": slug.current,
  excerpt,
  "category": category->title,
  "image": mainImage.asset->url,
  readingTime,
  publishedAt
}`

	groqPostBySlug = `*[_type == "post" && slug.current == $slug][0] {
  "id": _id,
  title,
  "slug": slug.current,
  excerpt,
  body,
  "category": category->title,
  tags,
  "author": author-> { "id": _id, name, "slug": slug.current, role },
  "image": mainImage.asset->url,
  readingTime,
  seoTitle,
  seoDescription,
  focusKeyword,
  publishedAt
}`

	groqCategories = `*[_type == "category"] | order(title asc) {
  "id": _id,
  title,
  "slug": slug.current,
  "count": count(*[_type == "post" && references(^._id)])
}`

	groqCourses = `*[_type == "course"] | order(title asc) {
  "id": _id,
  title,
  "slug": slug.current,
  active,
  keywords,
  "url": enrollmentUrl
}`
)

// NewSanityClient builds the Sanity HTTP client from configuration.
func NewSanityClient(c *conf.CMS, logger log.Logger) (*sanity.Client, error) {
	helper := log.NewHelper(logger)
	cfg := sanity.Config{
		ProjectID:  c.ProjectID,
		Dataset:    c.Dataset,
		APIVersion: c.APIVersion,
		Token:      c.Token,
		BaseURL:    c.BaseURL,
		ProxyURL:   c.ProxyURL,
		UseCDN:     c.UseCDN,
	}
	if c.Timeout != nil {
		cfg.Timeout = c.Timeout.AsDuration()
	}
	client, err := sanity.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	helper.Infow("msg", "sanity client initialized",
		"type", "database",
		"project_id", c.ProjectID,
		"dataset", cfg.Dataset,
		"use_cdn", c.UseCDN,
		"proxy", c.ProxyURL != "")
	return client, nil
}

// CMSRepoImpl implements biz.CMSRepo with a Sanity client fronted by the
// two-tier content cache. Reads are cache-first; document mutations
// invalidate the affected keys so the next read repopulates from the CMS.
type CMSRepoImpl struct {
	client *sanity.Client
	data   *Data
	logger *log.Helper
}

// NewCMSRepo creates the CMS repository.
func NewCMSRepo(client *sanity.Client, data *Data, logger log.Logger) *CMSRepoImpl {
	return &CMSRepoImpl{
		client: client,
		data:   data,
		logger: log.NewHelper(logger),
	}
}

// fetchCached runs a GROQ query with cache read-through. The dest must be a
// pointer to a JSON-decodable value.
func (r *CMSRepoImpl) fetchCached(ctx context.Context, operation, key string, ttl time.Duration, query string, params map[string]any, dest any) error {
	cache := r.data.GetCache()
	if cache != nil {
		if err := cache.Get(ctx, key, dest); err == nil {
			return nil
		}
	}

	if err := r.client.Fetch(ctx, operation, query, params, dest); err != nil {
		return err
	}

	if cache != nil {
		if err := cache.Set(ctx, key, dest, ttl); err != nil {
			r.logger.Warnw("msg", "cache write failed",
				"type", "redis",
				"key", key,
				"error", err.Error())
		}
	}
	return nil
}

// FetchPosts returns published post previews, newest first.
func (r *CMSRepoImpl) FetchPosts(ctx context.Context) ([]model.PostPreview, error) {
	var posts []model.PostPreview
	if err := r.fetchCached(ctx, "fetchPosts", CacheKeyPostList, TTLPostList, groqPosts, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FetchPost returns one full post by slug. The query endpoint answers a
// missing slug with a null result, which the client classifies as not-found.
func (r *CMSRepoImpl) FetchPost(ctx context.Context, slug string) (*model.Post, error) {
	var post model.Post
	key := BuildCacheKey(CacheKeyPost, slug)
	err := r.fetchCached(ctx, "fetchSinglePost", key, TTLPost, groqPostBySlug,
		map[string]any{"slug": slug}, &post)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// FetchCategories returns all categories with post counts.
func (r *CMSRepoImpl) FetchCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := r.fetchCached(ctx, "fetchCategories", CacheKeyCategories, TTLCategories, groqCategories, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// FetchCourses returns the course catalog used by CTA routing.
func (r *CMSRepoImpl) FetchCourses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	if err := r.fetchCached(ctx, "fetchCourses", CacheKeyCourses, TTLCourses, groqCourses, nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// CreateDocument creates a CMS document and returns its id.
func (r *CMSRepoImpl) CreateDocument(ctx context.Context, docType string, fields map[string]any) (string, error) {
	doc := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	doc["_type"] = docType
	id, err := r.client.Create(ctx, doc)
	if err != nil {
		return "", err
	}
	r.invalidate(ctx)
	return id, nil
}

// PatchDocument applies a set patch to an existing document.
func (r *CMSRepoImpl) PatchDocument(ctx context.Context, id string, set map[string]any) error {
	if err := r.client.Patch(ctx, id, set); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// DeleteDocument removes a document. Cached listings are invalidated even
// though the individual post key may linger until its TTL; listings are the
// surface admins check after a deletion.
func (r *CMSRepoImpl) DeleteDocument(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// Ping probes CMS connectivity.
func (r *CMSRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

func (r *CMSRepoImpl) invalidate(ctx context.Context) {
	cache := r.data.GetCache()
	if cache == nil {
		return
	}
	if err := cache.Purge(ctx); err != nil {
		r.logger.Warnw("msg", "cache invalidation failed",
			"type", "redis",
			"error", err.Error())
	}
}
