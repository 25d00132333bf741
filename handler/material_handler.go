package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/skipperr254/passai-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type MaterialHandler struct {
	materials service.MaterialService
	logger    *logrus.Logger
}

func NewMaterialHandler(materials service.MaterialService, logger *logrus.Logger) *MaterialHandler {
	return &MaterialHandler{materials: materials, logger: logger}
}

type processMaterialRequest struct {
	MaterialID  string `json:"material_id" binding:"required"`
	StoragePath string `json:"storage_path"`
}

// ProcessMaterial extracts text from a material already uploaded to storage.
// POST /api/v1/process-material
func (h *MaterialHandler) ProcessMaterial(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req processMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}
	materialID, err := uuid.Parse(req.MaterialID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "material_id is not a valid id"})
		return
	}

	result, err := h.materials.ProcessMaterial(c.Request.Context(), userID, service.ProcessingRequest{
		MaterialID:  materialID,
		StoragePath: req.StoragePath,
	})
	if err != nil {
		if errors.Is(err, service.ErrMaterialNotFound) || errors.Is(err, service.ErrNotOwner) {
			c.JSON(http.StatusNotFound, gin.H{"error": "material not found or access denied"})
			return
		}
		h.logger.WithError(err).WithField("material_id", req.MaterialID).Error("process material failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// UploadMaterial stores a new file and creates its pending material record.
// POST /api/v1/upload
func (h *MaterialHandler) UploadMaterial(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	title := c.PostForm("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required", "detail": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file", "detail": err.Error()})
		return
	}

	contentType := header.Header.Get("Content-Type")
	material, err := h.materials.UploadFile(c.Request.Context(), userID, title, header.Filename, contentType, data)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedUpload) || errors.Is(err, service.ErrFileTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("upload material failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"material": material,
	})
}

// GetMaterial returns a single owned material record.
// GET /api/v1/materials/:id
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	materialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material id"})
		return
	}

	material, err := h.materials.GetMaterial(userID, materialID)
	if err != nil {
		if errors.Is(err, service.ErrMaterialNotFound) || errors.Is(err, service.ErrNotOwner) {
			c.JSON(http.StatusNotFound, gin.H{"error": "material not found or access denied"})
			return
		}
		h.logger.WithError(err).Error("get material failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, material)
}

// ListMaterials returns the caller's materials, newest first.
// GET /api/v1/materials?page=1&page_size=10
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page := parseInt32(c.DefaultQuery("page", "1"), 1)
	pageSize := parseInt32(c.DefaultQuery("page_size", "10"), 10)

	materials, total, err := h.materials.ListMaterials(userID, page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("list materials failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"materials": materials,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Health is the liveness endpoint.
// GET /health
func (h *MaterialHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return uuid.Nil, false
	}
	idStr, ok := raw.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id format"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id format"})
		return uuid.Nil, false
	}
	return userID, true
}

func parseInt32(s string, def int32) int32 {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || v < 1 {
		return def
	}
	return int32(v)
}
