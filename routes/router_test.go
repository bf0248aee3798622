package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/aiblog/auth"
	"github.com/cppla/aiblog/mailer"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/storage/memory"
	"github.com/cppla/aiblog/utils"
)

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) Dispatch(ctx context.Context, msg mailer.Message) {
	o.mu.Lock()
	o.sent = append(o.sent, msg)
	o.mu.Unlock()
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

type app struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
	issuer *auth.TokenIssuer
	mail   *outbox
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	tokens := utils.NewMemoryTokenStore()
	authn := auth.NewJWTAuthenticator(issuer, store, tokens)
	mail := &outbox{}

	router := SetupRouter(Deps{
		Authenticator:  authn,
		Posts:          services.NewPostService(store),
		Comments:       services.NewCommentService(store),
		Auth:           services.NewAuthService(store, issuer, authn, tokens, mail, "http://localhost:5000", nil),
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	return &app{t: t, router: router, store: store, issuer: issuer, mail: mail}
}

// member creates a verified account and returns it with a bearer token.
func (a *app) member(name string, role models.Role) (*models.User, string) {
	a.t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: role, EmailVerified: true}
	require.NoError(a.t, a.store.CreateUser(context.Background(), u))
	token, _, err := a.issuer.Issue(auth.IdentityOf(u))
	require.NoError(a.t, err)
	return u, token
}

func (a *app) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestModerationFlowOverHTTP(t *testing.T) {
	a := newApp(t)
	_, authorToken := a.member("author", models.RoleUser)
	_, readerToken := a.member("reader", models.RoleUser)
	_, adminToken := a.member("admin", models.RoleAdmin)

	w, env := a.do(http.MethodPost, "/api/v1/post", authorToken, gin.H{
		"title": "Hello", "content": "World", "tags": []string{"intro"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[models.Post](t, env.Data)
	assert.Equal(t, models.PostPublished, post.Status)

	w, env = a.do(http.MethodGet, "/api/v1/post", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[services.PostList](t, env.Data)
	require.Len(t, list.Data, 1)
	assert.Equal(t, post.ID, list.Data[0].ID)
	assert.Zero(t, list.Data[0].CommentCount)
	assert.Equal(t, int64(1), list.Pagination.Total)

	w, env = a.do(http.MethodPost, "/api/v1/comment", readerToken, gin.H{"content": "Nice", "postId": post.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[models.Comment](t, env.Data)
	assert.Equal(t, models.CommentPending, comment.Status)

	w, env = a.do(http.MethodGet, "/api/v1/post/"+post.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	thread := decode[models.Post](t, env.Data)
	assert.Empty(t, thread.Comments)
	assert.Equal(t, int64(1), thread.Views)

	w, _ = a.do(http.MethodPut, "/api/v1/comment/"+comment.ID, adminToken, gin.H{"status": "APPROVED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = a.do(http.MethodGet, "/api/v1/post/"+post.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	thread = decode[models.Post](t, env.Data)
	require.Len(t, thread.Comments, 1)
	assert.Equal(t, comment.ID, thread.Comments[0].ID)
	assert.Equal(t, int64(2), thread.Views)
	assert.Equal(t, int64(1), thread.CommentCount)
}

func TestGates(t *testing.T) {
	a := newApp(t)
	author, userToken := a.member("user", models.RoleUser)
	_, adminToken := a.member("admin", models.RoleAdmin)

	unverified := &models.User{Name: "new", Email: "new@example.com"}
	require.NoError(t, a.store.CreateUser(context.Background(), unverified))
	unverifiedToken, _, err := a.issuer.Issue(auth.IdentityOf(unverified))
	require.NoError(t, err)

	_, env := a.do(http.MethodPost, "/api/v1/post", userToken, gin.H{"title": "t", "content": "c", "tags": []string{"x"}})
	post := decode[models.Post](t, env.Data)

	cases := []struct {
		name    string
		method  string
		path    string
		token   string
		status  int
		message string
	}{
		{"anonymous create", http.MethodPost, "/api/v1/post", "", http.StatusUnauthorized, "Unauthorized"},
		{"unverified create", http.MethodPost, "/api/v1/post", unverifiedToken, http.StatusUnauthorized, "Email not verified. Please verify your email first."},
		{"admin cannot create", http.MethodPost, "/api/v1/post", adminToken, http.StatusForbidden, "Forbidden! You are not allowed to access this resource"},
		{"user cannot update", http.MethodPatch, "/api/v1/post/" + post.ID, userToken, http.StatusForbidden, "Forbidden! You are not allowed to access this resource"},
		{"user cannot delete", http.MethodDelete, "/api/v1/post/" + post.ID, userToken, http.StatusForbidden, "Forbidden! You are not allowed to access this resource"},
		{"user cannot read stats", http.MethodGet, "/api/v1/post/stats", userToken, http.StatusForbidden, "Forbidden! You are not allowed to access this resource"},
		{"anonymous comment read", http.MethodGet, "/api/v1/comment/author/" + author.ID, "", http.StatusUnauthorized, "Unauthorized"},
		{"garbage token", http.MethodGet, "/api/v1/comment/author/" + author.ID, "not-a-jwt", http.StatusUnauthorized, "Unauthorized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := a.do(tc.method, tc.path, tc.token, gin.H{"title": "changed"})
			assert.Equal(t, tc.status, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.message, env.Message)
		})
	}
}

func TestPostEndpoints(t *testing.T) {
	a := newApp(t)
	author, userToken := a.member("author", models.RoleUser)
	_, adminToken := a.member("admin", models.RoleAdmin)

	for _, tags := range [][]string{{"go", "web"}, {"go"}, {"rust"}} {
		w, _ := a.do(http.MethodPost, "/api/v1/post", userToken, gin.H{"title": "post " + tags[0], "content": "body", "tags": tags})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	t.Run("filters and pagination", func(t *testing.T) {
		_, env := a.do(http.MethodGet, "/api/v1/post?tags=go,web", "", nil)
		assert.Len(t, decode[services.PostList](t, env.Data).Data, 1)

		_, env = a.do(http.MethodGet, "/api/v1/post?search=RUST&limit=1&page=1", "", nil)
		list := decode[services.PostList](t, env.Data)
		assert.Len(t, list.Data, 1)
		assert.Equal(t, services.PageInfo{Total: 1, Page: 1, Limit: 1, TotalPages: 1}, list.Pagination)

		_, env = a.do(http.MethodGet, "/api/v1/post?limit=2&sortOrder=sideways", "", nil)
		list = decode[services.PostList](t, env.Data)
		assert.Len(t, list.Data, 2)
		assert.Equal(t, int64(2), list.Pagination.TotalPages)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		w, env := a.do(http.MethodGet, "/api/v1/post?status=LIVE", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Validation error", env.Message)
		assert.Contains(t, env.Errors, "status")
	})

	t.Run("validation errors", func(t *testing.T) {
		w, env := a.do(http.MethodPost, "/api/v1/post", userToken, gin.H{"title": "", "content": "c", "tags": []string{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, env.Errors, "title")
		assert.Contains(t, env.Errors, "tags")
	})

	t.Run("malformed payload", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/post", bytes.NewBufferString("{"))
		req.Header.Set("Authorization", "Bearer "+userToken)
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid request payload")
	})

	t.Run("my posts", func(t *testing.T) {
		w, env := a.do(http.MethodGet, "/api/v1/post/author/"+author.ID, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]*models.Post](t, env.Data), 3)
	})

	t.Run("admin update and stats", func(t *testing.T) {
		_, env := a.do(http.MethodGet, "/api/v1/post?search=rust", "", nil)
		target := decode[services.PostList](t, env.Data).Data[0]

		w, env := a.do(http.MethodPatch, "/api/v1/post/"+target.ID, adminToken, gin.H{"isFeatured": true, "status": "ARCHIVED"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		updated := decode[models.Post](t, env.Data)
		assert.True(t, updated.IsFeatured)
		assert.Equal(t, models.PostArchived, updated.Status)

		_, env = a.do(http.MethodGet, "/api/v1/post?isFeatured=true", "", nil)
		assert.Len(t, decode[services.PostList](t, env.Data).Data, 1)

		w, env = a.do(http.MethodGet, "/api/v1/post/stats", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		stats := decode[models.Stats](t, env.Data)
		assert.Equal(t, int64(3), stats.TotalPosts)
		assert.Equal(t, int64(1), stats.ArchivedPosts)
		assert.Equal(t, int64(2), stats.TotalUsers)
	})

	t.Run("unknown post", func(t *testing.T) {
		w, env := a.do(http.MethodGet, "/api/v1/post/00000000-0000-0000-0000-000000000000", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, services.ErrPostNotFound.Message, env.Message)
	})

	t.Run("admin delete", func(t *testing.T) {
		_, env := a.do(http.MethodGet, "/api/v1/post?search=rust", "", nil)
		target := decode[services.PostList](t, env.Data).Data[0]

		w, _ := a.do(http.MethodDelete, "/api/v1/post/"+target.ID, adminToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		w, _ = a.do(http.MethodDelete, "/api/v1/post/"+target.ID, adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCommentEndpoints(t *testing.T) {
	a := newApp(t)
	author, authorToken := a.member("author", models.RoleUser)
	_, otherToken := a.member("other", models.RoleUser)

	_, env := a.do(http.MethodPost, "/api/v1/post", authorToken, gin.H{"title": "t", "content": "c", "tags": []string{"x"}})
	post := decode[models.Post](t, env.Data)

	w, env := a.do(http.MethodPost, "/api/v1/comment", authorToken, gin.H{"content": "  first  ", "postId": post.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	comment := decode[models.Comment](t, env.Data)
	assert.Equal(t, "first", comment.Content)

	w, env = a.do(http.MethodGet, "/api/v1/comment/"+comment.ID, otherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	fetched := decode[models.Comment](t, env.Data)
	require.NotNil(t, fetched.Post)
	assert.Equal(t, post.Title, fetched.Post.Title)

	w, env = a.do(http.MethodGet, "/api/v1/comment/author/"+author.ID, otherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]*models.Comment](t, env.Data), 1)

	w, env = a.do(http.MethodPost, "/api/v1/comment", authorToken, gin.H{"content": "reply", "postId": post.ID, "parentId": "00000000-0000-0000-0000-000000000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.ErrParentCommentNotFound.Message, env.Message)

	w, env = a.do(http.MethodDelete, "/api/v1/comment/"+comment.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, services.ErrDeleteCommentForbidden.Message, env.Message)

	w, _ = a.do(http.MethodDelete, "/api/v1/comment/"+comment.ID, authorToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserTextRoundTrips(t *testing.T) {
	a := newApp(t)
	_, token := a.member("author", models.RoleUser)

	w, env := a.do(http.MethodPost, "/api/v1/post", token, gin.H{"title": "Q&A session", "content": "x < y", "tags": []string{"qa"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[models.Post](t, env.Data)

	_, env = a.do(http.MethodGet, "/api/v1/post/"+post.ID, "", nil)
	fetched := decode[models.Post](t, env.Data)
	assert.Equal(t, "Q&A session", fetched.Title)
	assert.Equal(t, "x < y", fetched.Content)

	_, env = a.do(http.MethodGet, "/api/v1/post?search="+url.QueryEscape("Q&A"), "", nil)
	assert.Len(t, decode[services.PostList](t, env.Data).Data, 1)

	content := "&" + strings.Repeat("a", 99)
	w, env = a.do(http.MethodPost, "/api/v1/comment", token, gin.H{"content": content, "postId": post.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, content, decode[models.Comment](t, env.Data).Content)

	w, env = a.do(http.MethodPost, "/api/v1/comment", token, gin.H{"content": "<script>alert(1)</script>", "postId": post.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Errors, "content")
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)

	w, env := a.do(http.MethodPost, "/api/v1/auth/sign-up", "", gin.H{"name": "Bob", "email": "Bob@Example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode[models.User](t, env.Data)
	assert.Equal(t, "bob@example.com", user.Email)
	assert.NotContains(t, string(env.Data), "correct-horse")

	w, env = a.do(http.MethodPost, "/api/v1/auth/sign-in", "", gin.H{"email": "bob@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, services.ErrInvalidCredentials.Message, env.Message)

	w, env = a.do(http.MethodPost, "/api/v1/auth/sign-in", "", gin.H{"email": "bob@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[services.AuthResult](t, env.Data)
	require.NotEmpty(t, res.Token)
	assert.Contains(t, w.Header().Get("Set-Cookie"), auth.CookieName+"=")

	// unverified callers may read their session but not use gated routes
	w, _ = a.do(http.MethodGet, "/api/v1/auth/me", res.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = a.do(http.MethodPost, "/api/v1/comment", res.Token, gin.H{"content": "hi", "postId": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Email not verified. Please verify your email first.", env.Message)

	require.Len(t, a.mail.sent, 1)
	link, err := url.Parse(a.mail.sent[0].Content.Action.Link)
	require.NoError(t, err)
	w, _ = a.do(http.MethodGet, "/api/v1/auth/verify-email?token="+url.QueryEscape(link.Query().Get("token")), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(http.MethodGet, "/api/v1/auth/verify-email?token="+url.QueryEscape(link.Query().Get("token")), "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = a.do(http.MethodGet, "/api/v1/auth/me", res.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sess := decode[auth.Session](t, env.Data)
	assert.True(t, sess.User.EmailVerified)

	w, _ = a.do(http.MethodPost, "/api/v1/auth/sign-out", res.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(http.MethodGet, "/api/v1/auth/me", res.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthAndNoRoute(t *testing.T) {
	a := newApp(t)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "OK", health["status"])
	assert.Contains(t, health, "uptime")
	assert.Contains(t, health, "timestamp")

	w, env := a.do(http.MethodGet, "/api/v1/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	a := newApp(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/post", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
