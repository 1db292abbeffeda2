package api

import (
	"errors"
	"net/http"
	"strconv"

	"dailymind-api/internal/database"
	"dailymind-api/internal/models"
	"dailymind-api/internal/response"
	"dailymind-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// resolveModuleParam maps the optional module_name query parameter to a module id
func resolveModuleParam(c *gin.Context) (*uint, bool) {
	moduleID, err := database.ResolveModuleID(c.Query("module_name"))
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return moduleID, true
}

// GetAffirmations returns a random sample of active affirmations
func GetAffirmations(c *gin.Context) {
	lang := c.DefaultQuery("lang", "zh")
	category := c.Query("category")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}

	moduleID, ok := resolveModuleParam(c)
	if !ok {
		return
	}

	affirmations, err := database.SampleAffirmations(lang, category, moduleID, limit)
	if err != nil {
		logging.Errorf("Failed to load affirmations: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load affirmations")
		return
	}

	response.SuccessJSON(c, affirmations)
}

// GetDailyAffirmations returns the affirmations created today
func GetDailyAffirmations(c *gin.Context) {
	moduleID, ok := resolveModuleParam(c)
	if !ok {
		return
	}

	affirmations, err := database.GetDailyAffirmations(moduleID)
	if err != nil {
		logging.Errorf("Failed to load daily affirmations: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load daily affirmations")
		return
	}

	response.SuccessJSON(c, affirmations)
}

// GetAffirmation returns one affirmation by id
func GetAffirmation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid affirmation id")
		return
	}

	affirmation, err := database.GetAffirmation(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.ErrorJSON(c, http.StatusNotFound, "Affirmation not found")
			return
		}
		logging.Errorf("Failed to load affirmation %d: %v", id, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load affirmation")
		return
	}

	response.SuccessJSON(c, affirmation)
}

// CreateAffirmationRequest represents a create affirmation request
type CreateAffirmationRequest struct {
	Message    string `json:"message" binding:"required"`
	Lang       string `json:"lang"`
	Category   string `json:"category"`
	ModuleName string `json:"module_name"`
}

// CreateAffirmation inserts one affirmation, rejecting exact duplicates
func CreateAffirmation(c *gin.Context) {
	var req CreateAffirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	if req.Lang == "" {
		req.Lang = "zh"
	}

	moduleID, err := database.ResolveModuleID(req.ModuleName)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	exists, err := database.AffirmationExists(req.Message)
	if err != nil {
		logging.Errorf("Failed to check affirmation uniqueness: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to create affirmation")
		return
	}
	if exists {
		response.ErrorJSON(c, http.StatusConflict, "Affirmation already exists")
		return
	}

	affirmation := &models.Affirmation{
		Message:  req.Message,
		Lang:     req.Lang,
		Category: req.Category,
		ModuleID: moduleID,
		IsActive: true,
	}
	if err := database.CreateAffirmation(affirmation); err != nil {
		logging.Errorf("Failed to create affirmation: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to create affirmation")
		return
	}

	response.JSON(c, http.StatusCreated, response.Success(affirmation))
}

// GenerateAffirmationsRequest represents a generation request
type GenerateAffirmationsRequest struct {
	Lang       string `json:"lang"`
	Category   string `json:"category"`
	Count      int    `json:"count"`
	ModuleName string `json:"module_name"`
}

// GenerateAffirmations asks the generation vendor for new texts and stores
// the ones not already present.
func GenerateAffirmations(c *gin.Context) {
	if deps.Generator == nil {
		response.ErrorJSON(c, http.StatusServiceUnavailable, "Affirmation generation is not configured")
		return
	}

	var req GenerateAffirmationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	if req.Lang == "" {
		req.Lang = "zh"
	}
	if req.Count < 1 || req.Count > 50 {
		req.Count = 10
	}

	moduleID, err := database.ResolveModuleID(req.ModuleName)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := deps.Generator.Generate(c.Request.Context(), req.Lang, req.Category, req.Count)
	if err != nil {
		logging.Errorf("Affirmation generation failed: %v", err)
		response.ErrorJSON(c, http.StatusBadGateway, "Affirmation generation failed")
		return
	}

	var created []models.Affirmation
	for _, message := range messages {
		exists, err := database.AffirmationExists(message)
		if err != nil {
			logging.Errorf("Failed to check affirmation uniqueness: %v", err)
			continue
		}
		if exists {
			continue
		}

		affirmation := models.Affirmation{
			Message:  message,
			Lang:     req.Lang,
			Category: req.Category,
			ModuleID: moduleID,
			IsActive: true,
		}
		if err := database.CreateAffirmation(&affirmation); err != nil {
			logging.Errorf("Failed to store generated affirmation: %v", err)
			continue
		}
		created = append(created, affirmation)
	}

	response.SuccessJSON(c, gin.H{
		"generated": len(messages),
		"created":   len(created),
		"items":     created,
	})
}
