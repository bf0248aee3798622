package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Respond writes the envelope with the given status code.
func Respond(ctx *gin.Context, status int, resp JSONResponse) {
	ctx.JSON(status, resp)
}

// Success returns a 200 envelope.
func Success(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusOK, JSONResponse{Success: true, Message: message, Data: data})
}

// Created returns a 201 envelope.
func Created(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusCreated, JSONResponse{Success: true, Message: message, Data: data})
}

// Fail returns an error envelope; fields may be nil.
func Fail(ctx *gin.Context, status int, message string, fields map[string][]string) {
	Respond(ctx, status, JSONResponse{Success: false, Message: message, Errors: fields})
}
