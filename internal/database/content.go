package database

import (
	"fmt"
	"time"

	"dailymind-api/internal/models"

	"gorm.io/gorm"
)

// GetModuleByName looks up a module by its unique name
func GetModuleByName(name string) (*models.Module, error) {
	var module models.Module
	err := DB.Where("name = ?", name).First(&module).Error
	if err != nil {
		return nil, err
	}
	return &module, nil
}

// moduleScope restricts a query to one module, or to rows without a module
// when moduleID is nil, so module content never leaks into the default feed.
func moduleScope(db *gorm.DB, moduleID *uint) *gorm.DB {
	if moduleID != nil {
		return db.Where("module_id = ?", *moduleID)
	}
	return db.Where("module_id IS NULL")
}

// SampleAffirmations returns up to limit random active affirmations
func SampleAffirmations(lang, category string, moduleID *uint, limit int) ([]models.Affirmation, error) {
	var affirmations []models.Affirmation
	query := DB.Where("is_active = ? AND lang = ?", true, lang)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	query = moduleScope(query, moduleID)

	err := query.Order("RANDOM()").Limit(limit).Find(&affirmations).Error
	return affirmations, err
}

// GetDailyAffirmations returns active affirmations created today (UTC)
func GetDailyAffirmations(moduleID *uint) ([]models.Affirmation, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	tomorrow := today.Add(24 * time.Hour)

	var affirmations []models.Affirmation
	query := DB.Where("is_active = ? AND created_at >= ? AND created_at < ?", true, today, tomorrow)
	query = moduleScope(query, moduleID)

	err := query.Find(&affirmations).Error
	return affirmations, err
}

// GetAffirmation looks up one affirmation by primary key
func GetAffirmation(id uint) (*models.Affirmation, error) {
	var affirmation models.Affirmation
	err := DB.First(&affirmation, id).Error
	if err != nil {
		return nil, err
	}
	return &affirmation, nil
}

// AffirmationExists checks for an exact message match before insert
func AffirmationExists(message string) (bool, error) {
	var count int64
	err := DB.Model(&models.Affirmation{}).Where("message = ?", message).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateAffirmation inserts a new affirmation
func CreateAffirmation(affirmation *models.Affirmation) error {
	return DB.Create(affirmation).Error
}

// ListWhiteNoises returns active white noises, newest first
func ListWhiteNoises(category string, moduleID *uint, limit, offset int) ([]models.WhiteNoise, error) {
	var whiteNoises []models.WhiteNoise
	query := DB.Where("is_active = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if moduleID != nil {
		query = query.Where("module_id = ?", *moduleID)
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&whiteNoises).Error
	return whiteNoises, err
}

// GetWhiteNoise looks up one white noise by primary key
func GetWhiteNoise(id uint) (*models.WhiteNoise, error) {
	var whiteNoise models.WhiteNoise
	err := DB.First(&whiteNoise, id).Error
	if err != nil {
		return nil, err
	}
	return &whiteNoise, nil
}

// CreateWhiteNoise inserts a new white noise record
func CreateWhiteNoise(whiteNoise *models.WhiteNoise) error {
	return DB.Create(whiteNoise).Error
}

// ListCategories returns active categories for a module, oldest first
func ListCategories(moduleID *uint) ([]models.Category, error) {
	var categories []models.Category
	query := DB.Where("is_active = ?", true)
	query = moduleScope(query, moduleID)

	err := query.Order("created_at ASC").Find(&categories).Error
	return categories, err
}

// GetCategory looks up one category by primary key
func GetCategory(id uint) (*models.Category, error) {
	var category models.Category
	err := DB.First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory inserts a new category
func CreateCategory(category *models.Category) error {
	return DB.Create(category).Error
}

// UpdateCategory applies a partial update to one category
func UpdateCategory(id uint, updates map[string]interface{}) error {
	return DB.Model(&models.Category{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteCategory soft-deletes one category
func DeleteCategory(id uint) error {
	return DB.Delete(&models.Category{}, id).Error
}

// CreateModule inserts a new module
func CreateModule(module *models.Module) error {
	return DB.Create(module).Error
}

// UpdateModule applies a partial update to one module
func UpdateModule(id uint, updates map[string]interface{}) error {
	return DB.Model(&models.Module{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteModule soft-deletes one module
func DeleteModule(id uint) error {
	return DB.Delete(&models.Module{}, id).Error
}

// ListModules returns active modules, newest first
func ListModules() ([]models.Module, error) {
	var modules []models.Module
	err := DB.Where("is_active = ?", true).Order("created_at DESC").Find(&modules).Error
	return modules, err
}

// ModuleReferenceCounts counts content rows referencing a module
type ModuleReferenceCounts struct {
	Affirmations int64
	Categories   int64
	WhiteNoises  int64
}

// Total reports the combined reference count
func (c ModuleReferenceCounts) Total() int64 {
	return c.Affirmations + c.Categories + c.WhiteNoises
}

// CountModuleReferences counts rows still referencing the module; a module
// with references must not be deleted
func CountModuleReferences(moduleID uint) (*ModuleReferenceCounts, error) {
	counts := &ModuleReferenceCounts{}

	if err := DB.Model(&models.Affirmation{}).Where("module_id = ?", moduleID).
		Count(&counts.Affirmations).Error; err != nil {
		return nil, err
	}
	if err := DB.Model(&models.Category{}).Where("module_id = ?", moduleID).
		Count(&counts.Categories).Error; err != nil {
		return nil, err
	}
	if err := DB.Model(&models.WhiteNoise{}).Where("module_id = ?", moduleID).
		Count(&counts.WhiteNoises).Error; err != nil {
		return nil, err
	}

	return counts, nil
}

// GetSpeechCache looks up a cached synthesis by text hash
func GetSpeechCache(textHash string) (*models.SpeechCache, error) {
	var cache models.SpeechCache
	err := DB.Where("text_hash = ?", textHash).First(&cache).Error
	if err != nil {
		return nil, err
	}
	return &cache, nil
}

// CreateSpeechCache records a synthesized audio file for reuse
func CreateSpeechCache(cache *models.SpeechCache) error {
	return DB.Create(cache).Error
}

// ResolveModuleID maps an optional module name to its id. Empty name means
// "no module" and resolves to nil; an unknown name is an error.
func ResolveModuleID(moduleName string) (*uint, error) {
	if moduleName == "" {
		return nil, nil
	}
	module, err := GetModuleByName(moduleName)
	if err != nil {
		return nil, fmt.Errorf("module %q not found: %w", moduleName, err)
	}
	return &module.ID, nil
}
