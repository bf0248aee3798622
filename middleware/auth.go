package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/auth"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/utils"
)

const (
	// ContextSessionKey stores the resolved *auth.Session inside Gin context.
	ContextSessionKey = "session"

	MsgUnauthorized     = "Unauthorized"
	MsgEmailNotVerified = "Email not verified. Please verify your email first."
	MsgForbidden        = "Forbidden! You are not allowed to access this resource"
)

// SessionRequired rejects requests without a valid session. It does not look
// at email verification, so unverified accounts can still sign out.
func SessionRequired(authn auth.Authenticator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := resolve(ctx, authn); ok {
			ctx.Next()
		}
	}
}

// AuthRequired admits verified callers whose role is in roles. With no roles
// any verified caller passes.
func AuthRequired(authn auth.Authenticator, roles ...models.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		sess, ok := resolve(ctx, authn)
		if !ok {
			return
		}
		if !sess.User.EmailVerified {
			utils.Fail(ctx, http.StatusUnauthorized, MsgEmailNotVerified, nil)
			ctx.Abort()
			return
		}
		if len(roles) > 0 && !hasRole(roles, sess.User.Role) {
			utils.Fail(ctx, http.StatusForbidden, MsgForbidden, nil)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// resolve authenticates the request and stores the session. On failure it
// has already written the response.
func resolve(ctx *gin.Context, authn auth.Authenticator) (*auth.Session, bool) {
	sess, err := authn.Authenticate(ctx.Request)
	if err != nil {
		utils.Logger.Error("auth middleware error", zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, "Internal server error", nil)
		ctx.Abort()
		return nil, false
	}
	if sess == nil {
		utils.Fail(ctx, http.StatusUnauthorized, MsgUnauthorized, nil)
		ctx.Abort()
		return nil, false
	}
	ctx.Set(ContextSessionKey, sess)
	return sess, true
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CurrentSession returns the session stored by the gate.
func CurrentSession(ctx *gin.Context) (*auth.Session, bool) {
	v, ok := ctx.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*auth.Session)
	return sess, ok && sess != nil
}

// CurrentIdentity returns the caller identity stored by the gate.
func CurrentIdentity(ctx *gin.Context) (auth.Identity, bool) {
	sess, ok := CurrentSession(ctx)
	if !ok {
		return auth.Identity{}, false
	}
	return sess.User, true
}
