package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/internal/domain"
)

// AutoMigrateAll migrates every persisted entity plus the jsonb indexes the
// attribution queries rely on.
func (s *PostgresService) AutoMigrateAll() error {
	if err := AutoMigrate(s.db); err != nil {
		return err
	}
	return s.createJSONBIndexes()
}

func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&domain.Topic{},
		&domain.Document{},
		&domain.KnowledgeBaseEntry{},
		&domain.Source{},
		&domain.Generation{},
		&domain.GenerationItem{},
		&domain.GenerationItemSource{},
		&domain.Question{},
	)
}

func (s *PostgresService) createJSONBIndexes() error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_generation_source_ids_gin ON generation USING gin (source_ids jsonb_path_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_question_source_attribution_gin ON question USING gin (source_attribution jsonb_path_ops);`,
	}
	for _, stmt := range stmts {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
