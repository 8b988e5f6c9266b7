package keys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticKeys(t *testing.T) {
	assert.Equal(t, "books:list", BooksList())
	assert.Equal(t, "categories", Categories())
	assert.Equal(t, "tags", Tags())
}

func TestBookMetadata(t *testing.T) {
	assert.Equal(t, "books:metadata:Dune.epub", BookMetadata("  Dune.epub "))
	assert.NotEqual(t, BookMetadata("a.epub"), BookMetadata("A.epub"))
}

func TestImageAccessible(t *testing.T) {
	a := ImageAccessible("https://example.com/a.png")
	b := ImageAccessible("https://example.com/b.png")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "images:accessible:"))
	assert.Equal(t, a, ImageAccessible(" https://example.com/a.png "))

	long := ImageAccessible("https://example.com/" + strings.Repeat("x", 4096))
	assert.Less(t, len(long), 64)
}

func TestArticleKeys(t *testing.T) {
	assert.Equal(t, "articles:list:2:20", ArticleList(2, 20))
	assert.Equal(t, "articles:list:1:20", ArticleList(0, 20))
	assert.Equal(t, "articles:42", Article(42))
	assert.Equal(t, "articles:search:golang:1", ArticleSearch("  GoLang ", 1))
	assert.Equal(t, ArticleSearch("go", 0), ArticleSearch("GO", 1))
	assert.NotEqual(t, ArticleSearch("go", 1), ArticleSearch("go", 2))
}

func TestNestedKeys(t *testing.T) {
	assert.Equal(t, "series:7", Series(7))
	assert.Equal(t, "comments:42:3", Comments(42, 3))
	assert.Equal(t, "comments:42:1", Comments(42, -1))
	assert.Equal(t, "media:blog:9", MediaBlog(9))
}
