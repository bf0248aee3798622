package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/auth"
	"github.com/cppla/aiblog/controllers"
	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/telemetry"
	"github.com/cppla/aiblog/utils"
)

// Deps are the long-lived collaborators shared by every handler.
type Deps struct {
	Authenticator  auth.Authenticator
	Posts          *services.PostService
	Comments       *services.CommentService
	Auth           *services.AuthService
	AllowedOrigins []string
	SecureCookie   bool
	Logger         *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = utils.Logger
	}

	r := gin.New()
	r.Use(utils.RecoveryWithZap(logger))
	r.Use(utils.Ginzap(logger))
	r.Use(middleware.RequestMetrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(deps.AllowedOrigins) == 1 && deps.AllowedOrigins[0] == "*" {
		// browsers refuse a wildcard origin together with credentials
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = deps.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if h := telemetry.Handler(); h != nil {
		r.GET("/metrics", gin.WrapH(h))
	}

	healthController := controllers.NewHealthController()
	authController := controllers.NewAuthController(deps.Auth, deps.SecureCookie)
	postController := controllers.NewPostController(deps.Posts)
	commentController := controllers.NewCommentController(deps.Comments)

	member := middleware.AuthRequired(deps.Authenticator, models.RoleUser, models.RoleAdmin)
	admin := middleware.AuthRequired(deps.Authenticator, models.RoleAdmin)

	api := r.Group("/api/v1")
	api.GET("/health", healthController.Health)

	authGroup := api.Group("/auth")
	authGroup.POST("/sign-up", authController.SignUp)
	authGroup.POST("/sign-in", authController.SignIn)
	authGroup.GET("/verify-email", authController.VerifyEmail)
	authGroup.POST("/sign-out", middleware.SessionRequired(deps.Authenticator), authController.SignOut)
	authGroup.GET("/me", middleware.SessionRequired(deps.Authenticator), authController.Me)

	// gin needs one wildcard name per segment, so every /post/:x route uses :id
	postGroup := api.Group("/post")
	postGroup.GET("", postController.ListPosts)
	postGroup.GET("/stats", admin, postController.GetStats)
	postGroup.GET("/author/:authorId", postController.GetMyPosts)
	postGroup.GET("/:id", postController.GetPost)
	postGroup.POST("", middleware.AuthRequired(deps.Authenticator, models.RoleUser), postController.CreatePost)
	postGroup.PATCH("/:id", admin, postController.UpdatePost)
	postGroup.PUT("/:id", admin, postController.UpdatePost)
	postGroup.DELETE("/:id", admin, postController.DeletePost)

	commentGroup := api.Group("/comment")
	commentGroup.Use(member)
	commentGroup.POST("", commentController.CreateComment)
	commentGroup.GET("/author/:authorId", commentController.GetCommentsByAuthor)
	commentGroup.GET("/:id", commentController.GetComment)
	commentGroup.PUT("/:id", commentController.UpdateComment)
	commentGroup.DELETE("/:id", commentController.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Fail(ctx, http.StatusNotFound, "Route not found", nil)
	})

	return r
}
