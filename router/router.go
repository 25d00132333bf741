package router

import (
	"github.com/skipperr254/passai-backend/handler"
	"github.com/skipperr254/passai-backend/middleware"
	ginmetrics "github.com/skipperr254/passai-backend/pkg/metrics/gin"

	"github.com/gin-gonic/gin"
)

func Setup(materialHandler *handler.MaterialHandler, validator *middleware.TokenValidator) *gin.Engine {
	r := gin.Default()
	r.Use(ginmetrics.PrometheusMiddleware("material-service"))

	r.GET("/health", materialHandler.Health)

	api := r.Group("/api/v1")
	api.Use(validator.JWTAuth())
	{
		api.POST("/process-material", materialHandler.ProcessMaterial)
		api.POST("/upload", materialHandler.UploadMaterial)
		api.GET("/materials", materialHandler.ListMaterials)
		api.GET("/materials/:id", materialHandler.GetMaterial)
	}
	return r
}
