package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clausewise/clausewise/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Documents *DocumentHandler
	Retrieval *RetrievalHandler
	Drafts    *DraftHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/token", middleware.RateLimit(time.Second), deps.Auth.Token)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/documents", deps.Documents.Create)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)

	authGroup.POST("/search/clauses", deps.Retrieval.Search)
	authGroup.POST("/classify/clause", deps.Retrieval.Classify)
	authGroup.POST("/clause/suggest", deps.Retrieval.Suggest)

	authGroup.POST("/drafts", deps.Drafts.Create)
	authGroup.GET("/drafts/:id", deps.Drafts.Get)
}
