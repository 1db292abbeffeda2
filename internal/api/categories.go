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

// categoryView is the localized shape returned to clients
type categoryView struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	ModuleID *uint  `json:"module_id"`
}

// GetCategories returns active categories with names localized to lang
func GetCategories(c *gin.Context) {
	lang := c.DefaultQuery("lang", "zh")

	moduleID, ok := resolveModuleParam(c)
	if !ok {
		return
	}

	categories, err := database.ListCategories(moduleID)
	if err != nil {
		logging.Errorf("Failed to load categories: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load categories")
		return
	}

	views := make([]categoryView, 0, len(categories))
	for i := range categories {
		views = append(views, categoryView{
			ID:       categories[i].ID,
			Name:     categories[i].Name(lang),
			ModuleID: categories[i].ModuleID,
		})
	}

	response.SuccessJSON(c, views)
}

// CategoryRequest represents a create or update category request
type CategoryRequest struct {
	NameZh     string `json:"name_zh"`
	NameEn     string `json:"name_en"`
	NameJa     string `json:"name_ja"`
	ModuleName string `json:"module_name"`
}

// CreateCategory inserts a new category
func CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}
	if req.NameZh == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "name_zh is required")
		return
	}

	moduleID, err := database.ResolveModuleID(req.ModuleName)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	category := &models.Category{
		NameZh:   req.NameZh,
		NameEn:   req.NameEn,
		NameJa:   req.NameJa,
		ModuleID: moduleID,
		IsActive: true,
	}
	if err := database.CreateCategory(category); err != nil {
		logging.Errorf("Failed to create category: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to create category")
		return
	}

	response.JSON(c, http.StatusCreated, response.Success(category))
}

// UpdateCategory applies a partial update to one category
func UpdateCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid category id")
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	if _, err := database.GetCategory(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.ErrorJSON(c, http.StatusNotFound, "Category not found")
			return
		}
		logging.Errorf("Failed to load category %d: %v", id, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load category")
		return
	}

	updates := make(map[string]interface{})
	if req.NameZh != "" {
		updates["name_zh"] = req.NameZh
	}
	if req.NameEn != "" {
		updates["name_en"] = req.NameEn
	}
	if req.NameJa != "" {
		updates["name_ja"] = req.NameJa
	}
	if len(updates) == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "No fields to update")
		return
	}

	if err := database.UpdateCategory(uint(id), updates); err != nil {
		logging.Errorf("Failed to update category %d: %v", id, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to update category")
		return
	}

	response.SuccessJSON(c, gin.H{"message": "Category updated successfully"})
}

// DeleteCategory soft-deletes one category
func DeleteCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid category id")
		return
	}

	if err := database.DeleteCategory(uint(id)); err != nil {
		logging.Errorf("Failed to delete category %d: %v", id, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to delete category")
		return
	}

	response.SuccessJSON(c, gin.H{"message": "Category deleted successfully"})
}
