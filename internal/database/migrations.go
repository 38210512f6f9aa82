package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/commons/backend/internal/community"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationPruneOrphanedMemberships = "2026-10-01_prune_orphaned_memberships"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationPruneOrphanedMemberships, apply: pruneOrphanedMemberships},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// pruneOrphanedMemberships drops attendee and contributor rows whose user, event or project is
// gone. Databases written before foreign keys were enforced can carry such rows.
func pruneOrphanedMemberships(db *gorm.DB) error {
	if err := db.Where("user_id NOT IN (?) OR event_id NOT IN (?)",
		db.Model(&community.User{}).Select("id"),
		db.Model(&community.Event{}).Select("id"),
	).Delete(&community.EventAttendee{}).Error; err != nil {
		return err
	}
	return db.Where("user_id NOT IN (?) OR project_id NOT IN (?)",
		db.Model(&community.User{}).Select("id"),
		db.Model(&community.Project{}).Select("id"),
	).Delete(&community.ProjectContributor{}).Error
}
