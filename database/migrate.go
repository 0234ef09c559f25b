// database/migrate.go - Database migration runner
package database

import (
	"fmt"
	"log"

	"proofofcrab/models"

	"gorm.io/gorm"
)

// RunMigrations creates or updates every table the service owns.
func RunMigrations(db *gorm.DB) error {
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.Frame{},
		&models.Question{},
		&models.Challenge{},
		&models.ProvisionedItem{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)

	log.Println("✅ All migrations completed successfully")
	return nil
}

// createIndexes adds the composite indexes AutoMigrate cannot express from tags.
func createIndexes(db *gorm.DB) {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_poc_question_frame_position ON poc_question(frame_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_poc_challenge_frame_fid ON poc_frame_challenge(frame_id, fid)",
		"CREATE INDEX IF NOT EXISTS idx_poc_item_frame_status ON poc_provisioned_item(frame_id, status)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			log.Printf("Warning: index creation failed: %v", err)
		}
	}
}
