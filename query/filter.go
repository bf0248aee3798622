package query

import (
	"strings"

	"github.com/lib/pq"

	"github.com/cppla/aiblog/models"
)

// PostFilters are the optional list criteria. Zero values mean "not supplied";
// IsFeatured is a pointer so that an explicit false is distinguishable.
type PostFilters struct {
	Search     string
	Tags       []string
	IsFeatured *bool
	Status     models.PostStatus
	AuthorID   string
}

// Clause is a single predicate over posts. It can be evaluated in memory or
// rendered as a SQL fragment against the posts table.
type Clause interface {
	Match(p *models.Post) bool
	SQL() (string, []interface{})
}

// Predicate is a conjunction of clauses. An empty predicate matches every post.
type Predicate []Clause

// Match reports whether p satisfies every clause.
func (pr Predicate) Match(p *models.Post) bool {
	for _, c := range pr {
		if !c.Match(p) {
			return false
		}
	}
	return true
}

// SQL renders the conjunction. It returns an empty string when there are no clauses.
func (pr Predicate) SQL() (string, []interface{}) {
	if len(pr) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(pr))
	var args []interface{}
	for _, c := range pr {
		frag, a := c.SQL()
		parts = append(parts, "("+frag+")")
		args = append(args, a...)
	}
	return strings.Join(parts, " AND "), args
}

// BuildPostPredicate turns the supplied filters into a predicate. Only filters
// that are present contribute a clause.
func BuildPostPredicate(f PostFilters) Predicate {
	var pr Predicate
	if f.Search != "" {
		pr = append(pr, searchClause{term: f.Search})
	}
	if f.IsFeatured != nil {
		pr = append(pr, featuredClause{featured: *f.IsFeatured})
	}
	if f.Status != "" {
		pr = append(pr, statusClause{status: f.Status})
	}
	if f.AuthorID != "" {
		pr = append(pr, authorClause{authorID: f.AuthorID})
	}
	if len(f.Tags) > 0 {
		pr = append(pr, tagsClause{tags: f.Tags})
	}
	return pr
}

// StatusIs is a single status clause, used by aggregate counts.
func StatusIs(status models.PostStatus) Predicate {
	return Predicate{statusClause{status: status}}
}

type searchClause struct{ term string }

func (c searchClause) Match(p *models.Post) bool {
	term := strings.ToLower(c.term)
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Content), term) ||
		p.HasTag(c.term)
}

func (c searchClause) SQL() (string, []interface{}) {
	like := "%" + escapeLike(c.term) + "%"
	return "posts.title ILIKE ? OR posts.content ILIKE ? OR ? = ANY(posts.tags)", []interface{}{like, like, c.term}
}

type featuredClause struct{ featured bool }

func (c featuredClause) Match(p *models.Post) bool { return p.IsFeatured == c.featured }

func (c featuredClause) SQL() (string, []interface{}) {
	return "posts.is_featured = ?", []interface{}{c.featured}
}

type statusClause struct{ status models.PostStatus }

func (c statusClause) Match(p *models.Post) bool { return p.Status == c.status }

func (c statusClause) SQL() (string, []interface{}) {
	return "posts.status = ?", []interface{}{string(c.status)}
}

type authorClause struct{ authorID string }

func (c authorClause) Match(p *models.Post) bool { return p.AuthorID == c.authorID }

func (c authorClause) SQL() (string, []interface{}) {
	return "posts.author_id = ?", []interface{}{c.authorID}
}

// tagsClause requires every listed tag to be present.
type tagsClause struct{ tags []string }

func (c tagsClause) Match(p *models.Post) bool {
	for _, t := range c.tags {
		if !p.HasTag(t) {
			return false
		}
	}
	return true
}

func (c tagsClause) SQL() (string, []interface{}) {
	return "posts.tags @> ?", []interface{}{pq.Array(c.tags)}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
