package api

import (
	"fmt"
	"net/http"
	"strconv"

	"dailymind-api/internal/database"
	"dailymind-api/internal/models"
	"dailymind-api/internal/response"
	"dailymind-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// GetModules returns active modules
func GetModules(c *gin.Context) {
	modules, err := database.ListModules()
	if err != nil {
		logging.Errorf("Failed to load modules: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load modules")
		return
	}

	response.SuccessJSON(c, modules)
}

// CreateModuleRequest represents a create module request
type CreateModuleRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateModule inserts a new module
func CreateModule(c *gin.Context) {
	var req CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	module := &models.Module{
		Name:     req.Name,
		IsActive: true,
	}
	if err := database.CreateModule(module); err != nil {
		logging.Errorf("Failed to create module: %v", err)
		response.ErrorJSON(c, http.StatusConflict, "Failed to create module, name may already exist")
		return
	}

	response.JSON(c, http.StatusCreated, response.Success(module))
}

// UpdateModuleRequest represents an update module request
type UpdateModuleRequest struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

// UpdateModule applies a partial update to one module
func UpdateModule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid module id")
		return
	}

	var req UpdateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "No fields to update")
		return
	}

	if err := database.UpdateModule(uint(id), updates); err != nil {
		logging.Errorf("Failed to update module %d: %v", id, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to update module")
		return
	}

	response.SuccessJSON(c, gin.H{"message": "Module updated successfully"})
}

// DeleteModule soft-deletes one module. A module still referenced by content
// cannot be deleted; the content must be moved or removed first.
func DeleteModule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid module id")
		return
	}

	counts, err := database.CountModuleReferences(uint(id))
	if err != nil {
		logging.Errorf("Failed to count module references: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to delete module")
		return
	}
	if counts.Total() > 0 {
		response.ErrorJSON(c, http.StatusConflict, fmt.Sprintf(
			"Module is still referenced by content (affirmations: %d, categories: %d, white noises: %d)",
			counts.Affirmations, counts.Categories, counts.WhiteNoises))
		return
	}

	if err := database.DeleteModule(uint(id)); err != nil {
		logging.Errorf("Failed to delete module %d: %v", id, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to delete module")
		return
	}

	response.SuccessJSON(c, gin.H{"message": "Module deleted successfully"})
}
