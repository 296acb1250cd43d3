package main

import (
	"log"
	"os"

	"askdocs-be/internal/constant"
	"askdocs-be/internal/entity"
	"askdocs-be/internal/model"
	"askdocs-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: extensions GORM AutoMigrate does not handle
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	models := []interface{}{
		&model.Document{},
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.AiConfiguration{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatal("Error: AutoMigrate failed:", err)
	}

	// 5. Seed the default system instructions row if absent
	seedSystemInstructions(db)

	log.Println("Migration completed.")
}

func seedSystemInstructions(db *gorm.DB) {
	var count int64
	if err := db.Model(&model.AiConfiguration{}).
		Where("key = ?", entity.AiConfigKeySystemInstructions).
		Count(&count).Error; err != nil {
		log.Printf("Warn: Failed to check existing configuration: %v", err)
		return
	}
	if count > 0 {
		log.Println("System instructions already seeded, skipping.")
		return
	}

	row := model.AiConfiguration{
		Id:          uuid.New(),
		Key:         entity.AiConfigKeySystemInstructions,
		Value:       constant.DefaultSystemInstructions,
		Description: "System prompt prepended to every answer generation request",
	}
	if err := db.Create(&row).Error; err != nil {
		log.Printf("Warn: Failed to seed system instructions: %v", err)
		return
	}
	log.Println("Seeded default system instructions.")
}
