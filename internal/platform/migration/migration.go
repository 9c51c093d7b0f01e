// Package migration applies numbered schema changes exactly once per database.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Migration is one schema step. Versions are applied in ascending order and
// recorded in schema_migrations.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

type SchemaMigration struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:128;not null"`
	AppliedAt time.Time
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

var ErrInvalidMigrations = errors.New("invalid migration list")

// Validate checks that versions are positive, unique and ascending.
func Validate(migrations []Migration) error {
	prev := 0
	for _, m := range migrations {
		if m.Version <= prev {
			return fmt.Errorf("%w: version %d after %d", ErrInvalidMigrations, m.Version, prev)
		}
		if m.Up == nil {
			return fmt.Errorf("%w: version %d has no Up", ErrInvalidMigrations, m.Version)
		}
		prev = m.Version
	}
	return nil
}

// Pending returns the migrations whose versions are not in applied.
func Pending(applied []int, migrations []Migration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	var out []Migration
	for _, m := range migrations {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// Run applies every pending migration and returns how many were applied.
func Run(ctx context.Context, db *gorm.DB, migrations []Migration, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := Validate(migrations); err != nil {
		return 0, err
	}

	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return 0, fmt.Errorf("create schema_migrations failed: %w", err)
	}

	var applied []int
	if err := db.Model(&SchemaMigration{}).Pluck("version", &applied).Error; err != nil {
		return 0, fmt.Errorf("read applied migrations failed: %w", err)
	}
	sort.Ints(applied)

	pending := Pending(applied, migrations)
	for _, m := range pending {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.Version, Name: m.Name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return 0, fmt.Errorf("apply migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		logger.Info("schema migration applied", "version", m.Version, "name", m.Name)
	}
	return len(pending), nil
}
