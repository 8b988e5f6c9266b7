// Package keys builds the canonical cache keys used by the application so
// callers never concatenate key strings by hand. Every helper joins its
// parts with ":" after normalizing them.
package keys

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const sep = ":"

func join(parts ...string) string {
	return strings.Join(parts, sep)
}

// normalize trims whitespace and lower-cases s. Used for parts that are
// case-insensitive to the backend, such as search queries.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// BooksList is the key for the full book listing.
func BooksList() string {
	return "books:list"
}

// BookMetadata is the key for the metadata of one book file. The filename is
// trimmed but keeps its case.
func BookMetadata(filename string) string {
	return join("books", "metadata", strings.TrimSpace(filename))
}

// ImageAccessible is the key recording whether an image URL can be loaded.
// URLs are hashed so the key has a fixed width regardless of URL length.
func ImageAccessible(url string) string {
	return join("images", "accessible", hash(strings.TrimSpace(url)))
}

func hash(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}

// ArticleList is the key for one page of the article listing. Pages below 1
// are treated as page 1.
func ArticleList(page, size int) string {
	if page < 1 {
		page = 1
	}
	return join("articles", "list", itoa(page), itoa(size))
}

// Article is the key for a single article.
func Article(id int64) string {
	return join("articles", strconv.FormatInt(id, 10))
}

// ArticleSearch is the key for one page of search results. Queries that
// differ only in case or surrounding whitespace share a key.
func ArticleSearch(query string, page int) string {
	if page < 1 {
		page = 1
	}
	return join("articles", "search", normalize(query), itoa(page))
}

func Categories() string {
	return "categories"
}

func Tags() string {
	return "tags"
}

// Series is the key for one article series.
func Series(id int64) string {
	return join("series", strconv.FormatInt(id, 10))
}

// Comments is the key for one page of comments on an article.
func Comments(articleID int64, page int) string {
	if page < 1 {
		page = 1
	}
	return join("comments", strconv.FormatInt(articleID, 10), itoa(page))
}

// MediaBlog is the key for the media attached to a blog post.
func MediaBlog(id int64) string {
	return join("media", "blog", strconv.FormatInt(id, 10))
}
