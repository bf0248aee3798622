package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/aiblog/auth"
	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/utils"
)

// AuthController handles email and password accounts.
type AuthController struct {
	auth         *services.AuthService
	secureCookie bool
}

func NewAuthController(svc *services.AuthService, secureCookie bool) *AuthController {
	return &AuthController{auth: svc, secureCookie: secureCookie}
}

// SignUp registers an unverified account and mails a verification link.
func (a *AuthController) SignUp(ctx *gin.Context) {
	var in services.SignUpInput
	if !bindJSON(ctx, &in) {
		return
	}
	user, err := a.auth.SignUp(ctx.Request.Context(), in)
	if err != nil {
		respondError(ctx, err, "Failed to sign up")
		return
	}
	utils.Created(ctx, "Account created. Please verify your email.", user)
}

// VerifyEmail consumes the token from the verification link.
func (a *AuthController) VerifyEmail(ctx *gin.Context) {
	if err := a.auth.VerifyEmail(ctx.Request.Context(), ctx.Query("token")); err != nil {
		respondError(ctx, err, "Failed to verify email")
		return
	}
	utils.Success(ctx, "Email verified successfully", nil)
}

// SignIn issues a session token, returned in the body and as a cookie.
func (a *AuthController) SignIn(ctx *gin.Context) {
	var in services.SignInInput
	if !bindJSON(ctx, &in) {
		return
	}
	res, err := a.auth.SignIn(ctx.Request.Context(), in)
	if err != nil {
		respondError(ctx, err, "Failed to sign in")
		return
	}
	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(auth.CookieName, res.Token, maxAge, "/", "", a.secureCookie, true)
	utils.Success(ctx, "Signed in successfully", res)
}

// SignOut revokes the current session and clears the cookie.
func (a *AuthController) SignOut(ctx *gin.Context) {
	sess, ok := middleware.CurrentSession(ctx)
	if !ok {
		utils.Fail(ctx, http.StatusUnauthorized, middleware.MsgUnauthorized, nil)
		return
	}
	if err := a.auth.SignOut(ctx.Request.Context(), sess); err != nil {
		respondError(ctx, err, "Failed to sign out")
		return
	}
	ctx.SetCookie(auth.CookieName, "", -1, "/", "", a.secureCookie, true)
	utils.Success(ctx, "Signed out successfully", nil)
}

// Me returns the caller identity.
func (a *AuthController) Me(ctx *gin.Context) {
	sess, ok := middleware.CurrentSession(ctx)
	if !ok {
		utils.Fail(ctx, http.StatusUnauthorized, middleware.MsgUnauthorized, nil)
		return
	}
	utils.Success(ctx, "Session fetched successfully", sess)
}
