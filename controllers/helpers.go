package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/utils"
)

const msgInvalidPayload = "Invalid request payload"

// respondError maps a service error onto the envelope. Anything that is not a
// services.Error is logged and reported with the generic fallback.
func respondError(ctx *gin.Context, err error, fallback string) {
	var serr *services.Error
	if !errors.As(err, &serr) {
		utils.Logger.Error(fallback,
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err),
		)
		utils.Fail(ctx, http.StatusInternalServerError, fallback, nil)
		return
	}
	utils.Fail(ctx, statusFor(serr.Kind), serr.Message, serr.Fields)
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		// validation, not found and domain errors
		return http.StatusBadRequest
	}
}

// bindJSON decodes the body and answers 400 on malformed input.
func bindJSON(ctx *gin.Context, dst interface{}) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		utils.Fail(ctx, http.StatusBadRequest, msgInvalidPayload, nil)
		return false
	}
	return true
}

// caller returns the identity placed by the gate, answering 401 when absent.
func caller(ctx *gin.Context) (id string, isAdmin bool, ok bool) {
	identity, ok := middleware.CurrentIdentity(ctx)
	if !ok {
		utils.Fail(ctx, http.StatusUnauthorized, middleware.MsgUnauthorized, nil)
		return "", false, false
	}
	return identity.ID, identity.IsAdmin(), true
}
