package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/storage"
	"github.com/cppla/aiblog/utils"
)

// CookieName is the cookie checked when no Authorization header is sent.
const CookieName = "aiblog_session"

const revokedPrefix = "jwt:revoked:"

// JWTAuthenticator resolves bearer tokens against the user store. Revoked
// tokens are remembered in a TokenStore until they would have expired.
type JWTAuthenticator struct {
	issuer  *TokenIssuer
	users   storage.UserStore
	revoked utils.TokenStore
}

func NewJWTAuthenticator(issuer *TokenIssuer, users storage.UserStore, revoked utils.TokenStore) *JWTAuthenticator {
	return &JWTAuthenticator{issuer: issuer, users: users, revoked: revoked}
}

var _ Authenticator = (*JWTAuthenticator)(nil)

// Authenticate returns nil for missing, malformed, expired or revoked tokens
// and for tokens whose user no longer exists or is not active. Only store
// failures are returned as errors.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (*Session, error) {
	raw := TokenFromRequest(r)
	if raw == "" {
		return nil, nil
	}
	claims, err := a.issuer.Parse(raw)
	if err != nil {
		return nil, nil
	}

	ctx := r.Context()
	revoked, err := a.revoked.Exists(ctx, revokedPrefix+raw)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, nil
	}

	user, err := a.users.FindUser(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.Status != models.UserActive {
		return nil, nil
	}
	return &Session{
		User:      IdentityOf(user),
		Token:     raw,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke blacklists the session token until its natural expiry.
func (a *JWTAuthenticator) Revoke(ctx context.Context, sess *Session) error {
	return a.revoked.Put(ctx, revokedPrefix+sess.Token, "1", time.Until(sess.ExpiresAt))
}

// TokenFromRequest extracts a bearer token from the Authorization header or
// the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
