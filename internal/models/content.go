package models

// Affirmation is one short affirmation text in a single language.
// Uniqueness is by exact message match, checked before insert.
type Affirmation struct {
	BaseModel

	Message  string `json:"message" gorm:"type:text;not null"`
	Lang     string `json:"lang" gorm:"size:10;default:'zh';index"`
	Category string `json:"category" gorm:"size:100;index"`
	ModuleID *uint  `json:"module_id" gorm:"index"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

// WhiteNoise references one stored audio file.
type WhiteNoise struct {
	BaseModel

	Name     string `json:"name" gorm:"size:200;not null"`
	Category string `json:"category" gorm:"size:100;index"`
	FilePath string `json:"file_path" gorm:"size:500;not null"`
	ModuleID *uint  `json:"module_id" gorm:"index"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

// Category groups affirmations inside a module, with a localized name per language.
type Category struct {
	BaseModel

	NameZh   string `json:"name_zh" gorm:"size:100"`
	NameEn   string `json:"name_en" gorm:"size:100"`
	NameJa   string `json:"name_ja" gorm:"size:100"`
	ModuleID *uint  `json:"module_id" gorm:"index"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

// Name returns the localized category name, falling back to Chinese.
func (c *Category) Name(lang string) string {
	switch lang {
	case "en":
		if c.NameEn != "" {
			return c.NameEn
		}
	case "ja":
		if c.NameJa != "" {
			return c.NameJa
		}
	}
	return c.NameZh
}

// Module is the top-level content grouping.
type Module struct {
	BaseModel

	Name     string `json:"name" gorm:"size:100;uniqueIndex;not null"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

// SpeechCache maps synthesized text to its stored audio file so repeated
// requests do not hit the TTS vendor again.
type SpeechCache struct {
	BaseModel

	TextHash string `json:"text_hash" gorm:"size:64;uniqueIndex;not null"`
	Text     string `json:"text" gorm:"type:text"`
	FilePath string `json:"file_path" gorm:"size:500;not null"`
}
