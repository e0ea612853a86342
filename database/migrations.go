package database

import (
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"astor/models"
)

func RunMigrations(db *gorm.DB, log zerolog.Logger) error {
	log.Info().Msg("running database migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.Page{},
		&models.ContentPage{},
		&models.IndexPage{},
		&models.UploadPage{},
		&models.Tag{},
		&models.PageTag{},
		&models.Comment{},
		&models.PageVisit{},
		&models.Activity{},
	)
	if err != nil {
		log.Error().Err(err).Msg("migrations failed")
		return err
	}

	log.Info().Msg("migrations completed")
	return nil
}
