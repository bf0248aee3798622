// Package auth resolves the caller of a request into an Identity.
package auth

import (
	"net/http"
	"time"

	"github.com/cppla/aiblog/models"
)

// Identity is the authenticated caller as seen by handlers and services.
type Identity struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	Name          string      `json:"name"`
	Role          models.Role `json:"role"`
	EmailVerified bool        `json:"emailVerified"`
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// IdentityOf projects a stored user onto an Identity.
func IdentityOf(u *models.User) Identity {
	return Identity{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}

// Session is a resolved, unexpired, unrevoked credential.
type Session struct {
	User      Identity  `json:"user"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Authenticator resolves request credentials. A nil session with a nil error
// means the request is unauthenticated.
type Authenticator interface {
	Authenticate(r *http.Request) (*Session, error)
}
