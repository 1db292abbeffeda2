package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"dailymind-api/internal/database"
	"dailymind-api/internal/models"
	"dailymind-api/internal/response"
	"dailymind-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetWhiteNoises returns active white noises, newest first
func GetWhiteNoises(c *gin.Context) {
	category := c.Query("category")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	moduleID, ok := resolveModuleParam(c)
	if !ok {
		return
	}

	whiteNoises, err := database.ListWhiteNoises(category, moduleID, limit, offset)
	if err != nil {
		logging.Errorf("Failed to load white noises: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load white noises")
		return
	}

	response.SuccessJSON(c, whiteNoises)
}

// GetWhiteNoiseAudio streams the audio file for one white noise
func GetWhiteNoiseAudio(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid white noise id")
		return
	}

	whiteNoise, err := database.GetWhiteNoise(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.ErrorJSON(c, http.StatusNotFound, "White noise not found")
			return
		}
		logging.Errorf("Failed to load white noise %d: %v", id, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load white noise")
		return
	}

	if !deps.Store.Exists(whiteNoise.FilePath) {
		logging.Errorf("Audio file %s for white noise %d is missing", whiteNoise.FilePath, id)
		response.ErrorJSON(c, http.StatusNotFound, "Audio file not found")
		return
	}

	c.Header("Content-Type", "audio/mpeg")
	c.File(deps.Store.Path(whiteNoise.FilePath))
}

// CreateWhiteNoiseRequest represents a create white noise request
type CreateWhiteNoiseRequest struct {
	Name       string `json:"name" binding:"required"`
	Category   string `json:"category"`
	FilePath   string `json:"file_path" binding:"required"`
	ModuleName string `json:"module_name"`
}

// CreateWhiteNoise registers an already uploaded audio file as a white noise
func CreateWhiteNoise(c *gin.Context) {
	var req CreateWhiteNoiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	moduleID, err := database.ResolveModuleID(req.ModuleName)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	if !deps.Store.Exists(req.FilePath) {
		response.ErrorJSON(c, http.StatusBadRequest, "Audio file has not been uploaded")
		return
	}

	whiteNoise := &models.WhiteNoise{
		Name:     req.Name,
		Category: req.Category,
		FilePath: req.FilePath,
		ModuleID: moduleID,
		IsActive: true,
	}
	if err := database.CreateWhiteNoise(whiteNoise); err != nil {
		logging.Errorf("Failed to create white noise: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to create white noise")
		return
	}

	response.JSON(c, http.StatusCreated, response.Success(whiteNoise))
}

// UploadAudio stores one uploaded audio file and registers it as a white
// noise in a single request. The blob is removed again if the record cannot
// be written, so no orphan files accumulate.
func UploadAudio(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Missing file field")
		return
	}

	ext := filepath.Ext(file.Filename)
	switch ext {
	case ".mp3", ".m4a", ".wav", ".ogg":
	default:
		response.ErrorJSON(c, http.StatusBadRequest, "Unsupported audio format")
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = strings.TrimSuffix(file.Filename, ext)
	}

	moduleID, err := database.ResolveModuleID(c.PostForm("module_name"))
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	fileName := uuid.New().String() + ext
	if err := c.SaveUploadedFile(file, deps.Store.Path(fileName)); err != nil {
		logging.Errorf("Failed to save uploaded file: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to save file")
		return
	}

	whiteNoise := &models.WhiteNoise{
		Name:     name,
		Category: c.PostForm("category"),
		FilePath: fileName,
		ModuleID: moduleID,
		IsActive: true,
	}
	if err := database.CreateWhiteNoise(whiteNoise); err != nil {
		logging.Errorf("Failed to register uploaded audio: %v", err)
		if removeErr := deps.Store.Remove(fileName); removeErr != nil {
			logging.Warnf("Failed to remove orphaned upload %s: %v", fileName, removeErr)
		}
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to register audio")
		return
	}

	response.JSON(c, http.StatusCreated, response.Success(whiteNoise))
}
