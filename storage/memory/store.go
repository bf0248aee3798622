package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/query"
	"github.com/cppla/aiblog/storage"
)

// threadDepth is how many comment levels FindPostThread attaches.
const threadDepth = 3

type state struct {
	posts    map[string]*models.Post
	comments map[string]*models.Comment
	users    map[string]*models.User
}

func (st *state) clone() *state {
	c := &state{
		posts:    make(map[string]*models.Post, len(st.posts)),
		comments: make(map[string]*models.Comment, len(st.comments)),
		users:    make(map[string]*models.User, len(st.users)),
	}
	for k, v := range st.posts {
		c.posts[k] = copyPost(v)
	}
	for k, v := range st.comments {
		c.comments[k] = copyComment(v)
	}
	for k, v := range st.users {
		u := *v
		c.users[k] = &u
	}
	return c
}

// Store is an in-process implementation of storage.Store. Transactions hold
// the write lock for their whole duration and roll back by restoring a copy.
type Store struct {
	mu   *sync.RWMutex
	st   *state
	inTx bool
	now  func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		mu: &sync.RWMutex{},
		st: &state{
			posts:    map[string]*models.Post{},
			comments: map[string]*models.Comment{},
			users:    map[string]*models.User{},
		},
		now: time.Now,
	}
}

var _ storage.Store = (*Store)(nil)

// WithClock overrides the time source, mainly for deterministic ordering in tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.st = *saved
		return err
	}
	return nil
}

func (s *Store) Snapshot(ctx context.Context, fn func(tx storage.Store) error) error {
	return s.Transaction(ctx, fn)
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	defer s.lock()()
	post.Prepare(s.now())
	s.st.posts[post.ID] = copyPost(post)
	return nil
}

func (s *Store) FindPost(ctx context.Context, id string) (*models.Post, error) {
	defer s.rlock()()
	p, ok := s.st.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyPost(p), nil
}

func (s *Store) FindPostThread(ctx context.Context, id string) (*models.Post, error) {
	defer s.rlock()()
	p, ok := s.st.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := s.withCount(p)
	out.Comments = s.approvedChildren(id, nil, threadDepth)
	return out, nil
}

// approvedChildren collects approved comments of post under parent, newest
// first, descending depth-1 further levels.
func (s *Store) approvedChildren(postID string, parent *string, depth int) []*models.Comment {
	level := []*models.Comment{}
	for _, c := range s.st.comments {
		if c.Status != models.CommentApproved {
			continue
		}
		if parent == nil {
			if c.PostID != postID || c.ParentID != nil {
				continue
			}
		} else if c.ParentID == nil || *c.ParentID != *parent {
			continue
		}
		level = append(level, copyComment(c))
	}
	sortCommentsNewestFirst(level)
	if depth > 1 {
		for _, c := range level {
			id := c.ID
			c.Replies = s.approvedChildren(postID, &id, depth-1)
		}
	}
	return level
}

func (s *Store) ListPosts(ctx context.Context, pred query.Predicate, page query.Pagination) ([]*models.Post, error) {
	defer s.rlock()()
	matched := s.filterPosts(pred)
	sortPosts(matched, page.SortBy, page.Descending())

	start := page.Skip
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if page.Limit >= 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	out := make([]*models.Post, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, s.withCount(p))
	}
	return out, nil
}

func (s *Store) CountPosts(ctx context.Context, pred query.Predicate) (int64, error) {
	defer s.rlock()()
	return int64(len(s.filterPosts(pred))), nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	defer s.rlock()()
	matched := s.filterPosts(query.BuildPostPredicate(query.PostFilters{AuthorID: authorID}))
	sortPosts(matched, "createdAt", true)
	out := make([]*models.Post, 0, len(matched))
	for _, p := range matched {
		out = append(out, s.withCount(p))
	}
	return out, nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	defer s.lock()()
	p, ok := s.st.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !patch.Empty() {
		patch.Apply(p)
		p.UpdatedAt = s.now()
	}
	return copyPost(p), nil
}

func (s *Store) IncrementPostViews(ctx context.Context, id string) error {
	defer s.lock()()
	p, ok := s.st.posts[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Views++
	return nil
}

func (s *Store) SumPostViews(ctx context.Context) (int64, error) {
	defer s.rlock()()
	var total int64
	for _, p := range s.st.posts {
		total += p.Views
	}
	return total, nil
}

// DeletePost removes the post and, like the SQL cascade, its comments.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.st.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.st.posts, id)
	for cid, c := range s.st.comments {
		if c.PostID == id {
			delete(s.st.comments, cid)
		}
	}
	return nil
}

// === Comments ===

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	defer s.lock()()
	comment.Prepare(s.now())
	s.st.comments[comment.ID] = copyComment(comment)
	return nil
}

func (s *Store) FindComment(ctx context.Context, id string) (*models.Comment, error) {
	defer s.rlock()()
	c, ok := s.st.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.withPostRef(c), nil
}

func (s *Store) ListCommentsByAuthor(ctx context.Context, authorID string) ([]*models.Comment, error) {
	defer s.rlock()()
	out := []*models.Comment{}
	for _, c := range s.st.comments {
		if c.AuthorID == authorID {
			out = append(out, s.withPostRef(c))
		}
	}
	sortCommentsNewestFirst(out)
	return out, nil
}

func (s *Store) UpdateComment(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error) {
	defer s.lock()()
	c, ok := s.st.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if patch.Content != nil {
		c.Content = *patch.Content
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	c.UpdatedAt = s.now()
	return copyComment(c), nil
}

// DeleteComment removes the comment and its reply subtree.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.st.comments[id]; !ok {
		return storage.ErrNotFound
	}
	s.deleteSubtree(id)
	return nil
}

func (s *Store) deleteSubtree(id string) {
	delete(s.st.comments, id)
	for cid, c := range s.st.comments {
		if c.ParentID != nil && *c.ParentID == id {
			s.deleteSubtree(cid)
		}
	}
}

func (s *Store) CountComments(ctx context.Context) (int64, error) {
	defer s.rlock()()
	return int64(len(s.st.comments)), nil
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()
	for _, u := range s.st.users {
		if strings.EqualFold(u.Email, user.Email) {
			return storage.ErrDuplicate
		}
	}
	user.Prepare(s.now())
	u := *user
	s.st.users[u.ID] = &u
	return nil
}

func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	defer s.rlock()()
	u, ok := s.st.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.rlock()()
	for _, u := range s.st.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) MarkEmailVerified(ctx context.Context, id string) error {
	defer s.lock()()
	u, ok := s.st.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.EmailVerified = true
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) CountUsers(ctx context.Context, role models.Role) (int64, error) {
	defer s.rlock()()
	var total int64
	for _, u := range s.st.users {
		if role == "" || u.Role == role {
			total++
		}
	}
	return total, nil
}

// SetUserStatus changes an account state. There is no HTTP surface for it;
// it exists for seeding and tests.
func (s *Store) SetUserStatus(id string, status models.UserStatus) error {
	defer s.lock()()
	u, ok := s.st.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Status = status
	return nil
}

// === helpers ===

func (s *Store) filterPosts(pred query.Predicate) []*models.Post {
	out := []*models.Post{}
	for _, p := range s.st.posts {
		if pred.Match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) withCount(p *models.Post) *models.Post {
	out := copyPost(p)
	for _, c := range s.st.comments {
		if c.PostID == p.ID {
			out.CommentCount++
		}
	}
	return out
}

func (s *Store) withPostRef(c *models.Comment) *models.Comment {
	out := copyComment(c)
	if p, ok := s.st.posts[c.PostID]; ok {
		out.Post = &models.PostRef{ID: p.ID, Title: p.Title}
	}
	return out
}

func copyPost(p *models.Post) *models.Post {
	cp := *p
	cp.Tags = append(pq.StringArray{}, p.Tags...)
	cp.Comments = nil
	cp.CommentCount = 0
	return &cp
}

func copyComment(c *models.Comment) *models.Comment {
	cp := *c
	if c.ParentID != nil {
		parent := *c.ParentID
		cp.ParentID = &parent
	}
	cp.Post = nil
	cp.Replies = nil
	return &cp
}

func sortCommentsNewestFirst(cs []*models.Comment) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].ID > cs[j].ID
		}
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}

func sortPosts(ps []*models.Post, field string, desc bool) {
	less := func(a, b *models.Post) bool {
		switch storage.PostSortColumn(field) {
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "title":
			return a.Title < b.Title
		case "views":
			return a.Views < b.Views
		case "status":
			return a.Status < b.Status
		case "is_featured":
			return !a.IsFeatured && b.IsFeatured
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if desc {
			return less(ps[j], ps[i])
		}
		return less(ps[i], ps[j])
	})
}
