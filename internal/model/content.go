package model

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// Post is a full blog post document from the CMS.
type Post struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Excerpt       string    `json:"excerpt"`
	Body          string    `json:"body"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags,omitempty"`
	Author        Author    `json:"author"`
	Image         string    `json:"image,omitempty"`
	ReadingTime   int       `json:"readingTime"`
	SEOTitle      string    `json:"seoTitle,omitempty"`
	SEODesc       string    `json:"seoDescription,omitempty"`
	FocusKeyword  string    `json:"focusKeyword,omitempty"`
	PublishedAt   time.Time `json:"publishedAt,omitzero"`
	CTAPlacements []string  `json:"ctaPlacements,omitempty"`
}

// PostPreview is the lightweight listing shape for blog index pages.
type PostPreview struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	Category    string    `json:"category"`
	Image       string    `json:"image,omitempty"`
	ReadingTime int       `json:"readingTime"`
	PublishedAt time.Time `json:"publishedAt,omitzero"`
}

// Category groups posts on the marketing site.
type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Count int    `json:"count,omitempty"`
}

// Author is a content author profile.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Role string `json:"role,omitempty"`
}

// Course is a training course promoted by CTA routing.
type Course struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Active   bool   `json:"active"`
	Keywords []string `json:"keywords,omitempty"`
	URL      string `json:"url"`
}

// FallbackIDPrefix marks sentinel documents served when the CMS is
// unreachable. Downstream rendering must never persist these.
const FallbackIDPrefix = "fallback-"

// IsFallbackID reports whether an ID belongs to sentinel fallback content.
func IsFallbackID(id string) bool {
	return strings.HasPrefix(id, FallbackIDPrefix)
}

// wordsPerMinute is the assumed adult reading speed for technical content.
const wordsPerMinute = 225

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces   = regexp.MustCompile(`[\s_]+`)
	slugHyphens  = regexp.MustCompile(`-+`)
	wordSplit    = regexp.MustCompile(`\s+`)
	ctaPlacement = regexp.MustCompile(`<!--\s*CTA_\w+_INTEGRATION\s*-->`)
)

// Slugify converts a title to a URL-safe slug.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ExtractExcerpt builds a listing excerpt from the post body, cut at a word
// boundary and capped at maxLen runes. A maxLen of zero uses 160.
func ExtractExcerpt(body string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 160
	}
	plain := strings.TrimSpace(stripPlacements(body))
	plain = wordSplit.ReplaceAllString(plain, " ")
	runes := []rune(plain)
	if len(runes) <= maxLen {
		return plain
	}
	cut := string(runes[:maxLen])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " .,;:") + "..."
}

// categoryKeywords maps aviation topic keywords to site categories. The
// first matching category wins, so order matters.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"Aviation Training", []string{"dgca", "cpl", "atpl", "ground school", "training", "exam", "pilot license", "syllabus"}},
	{"Flight Operations", []string{"navigation", "instrument", "approach", "takeoff", "landing", "cockpit", "flight plan"}},
	{"Aviation Safety", []string{"safety", "emergency", "incident", "hazard", "risk", "weather", "turbulence"}},
	{"Career Guidance", []string{"career", "airline", "interview", "salary", "job", "recruitment", "hiring"}},
}

// CategorizeContent picks a site category from the post title and body using
// keyword matching. Content matching nothing lands in the general bucket.
func CategorizeContent(title, body string) string {
	text := strings.ToLower(title + " " + body)
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(text, w) {
				return ck.category
			}
		}
	}
	return "Aviation Industry"
}

var tagKeywords = []string{
	"dgca", "cpl", "atpl", "ppl", "ground school", "pilot training",
	"navigation", "meteorology", "regulations", "air law", "technical general",
	"rtr", "type rating", "simulator", "checkride", "aviation career",
}

// ExtractTags derives up to five tags from post text.
func ExtractTags(title, body string) []string {
	text := strings.ToLower(title + " " + body)
	var tags []string
	for _, kw := range tagKeywords {
		if strings.Contains(text, kw) {
			tags = append(tags, kw)
			if len(tags) == 5 {
				break
			}
		}
	}
	return tags
}

// EstimateReadingTime returns reading time in whole minutes, never below 1.
func EstimateReadingTime(body string) int {
	words := len(wordSplit.Split(strings.TrimSpace(body), -1))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// siteAuthors maps topic areas to the editorial team. The first author is
// the default byline.
var siteAuthors = []struct {
	author Author
	topics []string
}{
	{Author{ID: "author-aman", Name: "Aman Suryavanshi", Slug: "aman-suryavanshi"}, nil},
	{Author{ID: "author-ankit", Name: "Ankit Kumar", Slug: "ankit-kumar"}, []string{"ground school", "dgca", "exam", "syllabus"}},
	{Author{ID: "author-dhruv", Name: "Dhruv Shirkoli", Slug: "dhruv-shirkoli"}, []string{"safety", "emergency", "weather"}},
	{Author{ID: "author-saksham", Name: "Saksham Khandelwal", Slug: "saksham-khandelwal"}, []string{"interview", "career", "airline"}},
}

// SelectAuthor assigns a byline based on the post topic.
func SelectAuthor(title, body string) Author {
	text := strings.ToLower(title + " " + body)
	for _, sa := range siteAuthors[1:] {
		for _, t := range sa.topics {
			if strings.Contains(text, t) {
				return sa.author
			}
		}
	}
	return siteAuthors[0].author
}

// stripPlacements removes CTA placement comments left by the content
// pipeline so they never leak into excerpts.
func stripPlacements(body string) string {
	return ctaPlacement.ReplaceAllString(body, "")
}

// SanitizePost normalizes a post fetched from the CMS: fills derived fields
// that are missing and strips pipeline artifacts from the body.
func SanitizePost(p *Post) {
	if p == nil {
		return
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	placements := ctaPlacement.FindAllString(p.Body, -1)
	if len(placements) > 0 && len(p.CTAPlacements) == 0 {
		p.CTAPlacements = placements
	}
	p.Body = strings.ReplaceAll(stripPlacements(p.Body), "\r\n", "\n")
	if p.Excerpt == "" {
		p.Excerpt = ExtractExcerpt(p.Body, 160)
	}
	if p.Category == "" {
		p.Category = CategorizeContent(p.Title, p.Body)
	}
	if len(p.Tags) == 0 {
		p.Tags = ExtractTags(p.Title, p.Body)
	}
	if p.ReadingTime <= 0 {
		p.ReadingTime = EstimateReadingTime(p.Body)
	}
	if p.Author.Name == "" {
		p.Author = SelectAuthor(p.Title, p.Body)
	}
}

// SanitizeCategory fills a missing slug from the title.
func SanitizeCategory(c *Category) {
	if c == nil {
		return
	}
	c.Title = strings.TrimSpace(c.Title)
	if c.Slug == "" {
		c.Slug = Slugify(c.Title)
	}
}

// SanitizeCourse fills a missing slug and trims whitespace.
func SanitizeCourse(c *Course) {
	if c == nil {
		return
	}
	c.Title = strings.TrimSpace(c.Title)
	if c.Slug == "" {
		c.Slug = Slugify(c.Title)
	}
}
