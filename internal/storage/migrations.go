package storage

import (
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/model"
)

// backfillClientStateThemes gives rows written before themes were tracked the light theme, so a
// restored session never renders with an unknown theme.
func backfillClientStateThemes(database *gorm.DB) error {
	return database.Model(&model.ClientState{}).
		Where("theme IS NULL OR TRIM(theme) = '' OR theme NOT IN ?", []string{model.ThemeLight, model.ThemeDark}).
		Update("theme", model.ThemeLight).Error
}
