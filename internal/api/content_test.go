package api

import (
	"fmt"
	"net/http"
	"testing"

	"dailymind-api/internal/database"
	"dailymind-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func setupContentAPI(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Affirmation{},
		&models.WhiteNoise{},
		&models.Category{},
		&models.Module{},
	))
	database.DB = db

	r := gin.New()
	r.GET("/api/affirmations", GetAffirmations)
	r.POST("/api/affirmations", CreateAffirmation)
	r.GET("/api/categories", GetCategories)
	r.GET("/api/modules", GetModules)
	r.POST("/api/modules", CreateModule)
	r.DELETE("/api/modules/:id", DeleteModule)
	return r
}

func TestGetAffirmationsFiltersByModule(t *testing.T) {
	r := setupContentAPI(t)

	module := models.Module{Name: "sleep", IsActive: true}
	require.NoError(t, database.DB.Create(&module).Error)

	for i := 0; i < 3; i++ {
		require.NoError(t, database.DB.Create(&models.Affirmation{
			Message:  fmt.Sprintf("default %d", i),
			Lang:     "zh",
			IsActive: true,
		}).Error)
	}
	require.NoError(t, database.DB.Create(&models.Affirmation{
		Message:  "sleep only",
		Lang:     "zh",
		ModuleID: &module.ID,
		IsActive: true,
	}).Error)

	// Default feed must not leak module content
	w := doJSON(t, r, http.MethodGet, "/api/affirmations?lang=zh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sleep only")

	w = doJSON(t, r, http.MethodGet, "/api/affirmations?lang=zh&module_name=sleep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sleep only")
	assert.NotContains(t, w.Body.String(), "default 0")

	// Unknown module names are rejected, not silently emptied
	w = doJSON(t, r, http.MethodGet, "/api/affirmations?module_name=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAffirmationRejectsDuplicate(t *testing.T) {
	r := setupContentAPI(t)

	payload := map[string]interface{}{
		"message":  "you are enough",
		"lang":     "en",
		"category": "self-esteem",
	}

	w := doJSON(t, r, http.MethodPost, "/api/affirmations", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/affirmations", payload)
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int64
	require.NoError(t, database.DB.Model(&models.Affirmation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetCategoriesLocalizesNames(t *testing.T) {
	r := setupContentAPI(t)

	require.NoError(t, database.DB.Create(&models.Category{
		NameZh:   "睡眠",
		NameEn:   "Sleep",
		IsActive: true,
	}).Error)

	w := doJSON(t, r, http.MethodGet, "/api/categories?lang=en", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sleep")

	// Missing translation falls back to Chinese
	w = doJSON(t, r, http.MethodGet, "/api/categories?lang=ja", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "睡眠")
}

func TestDeleteModuleGuardsReferences(t *testing.T) {
	r := setupContentAPI(t)

	module := models.Module{Name: "focus", IsActive: true}
	require.NoError(t, database.DB.Create(&module).Error)
	require.NoError(t, database.DB.Create(&models.Affirmation{
		Message:  "stay focused",
		ModuleID: &module.ID,
		IsActive: true,
	}).Error)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/modules/%d", module.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// After the content is gone the module can be deleted
	require.NoError(t, database.DB.Where("module_id = ?", module.ID).Delete(&models.Affirmation{}).Error)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/modules/%d", module.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateModule(t *testing.T) {
	r := setupContentAPI(t)

	w := doJSON(t, r, http.MethodPost, "/api/modules", map[string]interface{}{"name": "morning"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/modules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "morning")
}
