package query

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/aiblog/models"
)

func post(title, content string, tags ...string) *models.Post {
	return &models.Post{Title: title, Content: content, Tags: pq.StringArray(tags), Status: models.PostPublished}
}

func TestBuildPostPredicate_EmptyMatchesEverything(t *testing.T) {
	pr := BuildPostPredicate(PostFilters{})
	require.Empty(t, pr)
	assert.True(t, pr.Match(post("a", "b")))
	assert.True(t, pr.Match(&models.Post{}))

	sql, args := pr.SQL()
	assert.Empty(t, sql)
	assert.Nil(t, args)
}

func TestBuildPostPredicate_EmptyValuesAddNoClause(t *testing.T) {
	pr := BuildPostPredicate(PostFilters{Search: "", Tags: []string{}, Status: "", AuthorID: ""})
	assert.Empty(t, pr)
}

func TestBuildPostPredicate_TagsAreConjunctive(t *testing.T) {
	pr := BuildPostPredicate(PostFilters{Tags: []string{"a", "b"}})
	assert.False(t, pr.Match(post("t", "c", "a")))
	assert.True(t, pr.Match(post("t", "c", "a", "b")))
	assert.True(t, pr.Match(post("t", "c", "b", "x", "a")))
}

func TestBuildPostPredicate_Search(t *testing.T) {
	pr := BuildPostPredicate(PostFilters{Search: "foo"})
	assert.True(t, pr.Match(post("foo bar", "nothing")))
	assert.True(t, pr.Match(post("FOO Bar", "nothing")))
	assert.True(t, pr.Match(post("title", "this has Foo inside")))
	assert.True(t, pr.Match(post("title", "content", "foo")))
	assert.False(t, pr.Match(post("title", "content", "Foo")))
	assert.False(t, pr.Match(post("title", "content", "food")))
}

func TestBuildPostPredicate_FeaturedExplicitFalse(t *testing.T) {
	no := false
	pr := BuildPostPredicate(PostFilters{IsFeatured: &no})
	require.Len(t, pr, 1)

	featured := post("a", "b")
	featured.IsFeatured = true
	assert.False(t, pr.Match(featured))
	assert.True(t, pr.Match(post("a", "b")))
}

func TestBuildPostPredicate_AllClausesAnded(t *testing.T) {
	yes := true
	pr := BuildPostPredicate(PostFilters{
		Search:     "go",
		Tags:       []string{"lang"},
		IsFeatured: &yes,
		Status:     models.PostPublished,
		AuthorID:   "author-1",
	})
	require.Len(t, pr, 5)

	p := post("Go tips", "x", "lang")
	p.IsFeatured = true
	p.AuthorID = "author-1"
	assert.True(t, pr.Match(p))

	p.AuthorID = "author-2"
	assert.False(t, pr.Match(p))

	sql, args := pr.SQL()
	assert.Equal(t, "(posts.title ILIKE ? OR posts.content ILIKE ? OR ? = ANY(posts.tags)) AND "+
		"(posts.is_featured = ?) AND (posts.status = ?) AND (posts.author_id = ?) AND (posts.tags @> ?)", sql)
	assert.Len(t, args, 7)
	assert.Equal(t, "%go%", args[0])
	assert.Equal(t, "go", args[2])
}

func TestSearchClause_EscapesLikeWildcards(t *testing.T) {
	_, args := searchClause{term: "50%_off"}.SQL()
	assert.Equal(t, `%50\%\_off%`, args[0])
}

func TestStatusIs(t *testing.T) {
	pr := StatusIs(models.PostDraft)
	draft := post("a", "b")
	draft.Status = models.PostDraft
	assert.True(t, pr.Match(draft))
	assert.False(t, pr.Match(post("a", "b")))
}
