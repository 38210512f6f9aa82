package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/commons/backend/internal/community"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsPrunesOrphanedMemberships(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	// foreign keys stay off so the orphaned rows can be written
	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	models := append(community.Models(), &migrationRecord{})
	if err := database.AutoMigrate(models...); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	createdAt := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	user := community.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", CreatedAt: createdAt}
	if err := database.Create(&user).Error; err != nil {
		testContext.Fatalf("failed to insert user: %v", err)
	}
	event := community.Event{Name: "Meeting", Date: createdAt, CreatorID: user.ID, CreatedAt: createdAt}
	if err := database.Create(&event).Error; err != nil {
		testContext.Fatalf("failed to insert event: %v", err)
	}

	attendees := []community.EventAttendee{
		{UserID: user.ID, EventID: event.ID},
		{UserID: 99, EventID: event.ID},
		{UserID: user.ID, EventID: 50},
	}
	if err := database.Create(&attendees).Error; err != nil {
		testContext.Fatalf("failed to insert attendees: %v", err)
	}
	contributors := []community.ProjectContributor{{UserID: user.ID, ProjectID: 77}}
	if err := database.Create(&contributors).Error; err != nil {
		testContext.Fatalf("failed to insert contributors: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var remaining []community.EventAttendee
	if err := database.Find(&remaining).Error; err != nil {
		testContext.Fatalf("failed to reload attendees: %v", err)
	}
	if len(remaining) != 1 || remaining[0].UserID != user.ID || remaining[0].EventID != event.ID {
		testContext.Fatalf("expected only the valid attendance row to survive, got %+v", remaining)
	}

	var contributorCount int64
	if err := database.Model(&community.ProjectContributor{}).Count(&contributorCount).Error; err != nil {
		testContext.Fatalf("failed to count contributors: %v", err)
	}
	if contributorCount != 0 {
		testContext.Fatalf("expected orphaned contributors to be pruned, got %d", contributorCount)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationPruneOrphanedMemberships).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("expected reapplying migrations to be a no-op: %v", err)
	}
}
