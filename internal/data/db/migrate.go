package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Course{},
		&types.Section{},
		&types.CourseForkRecord{},
	)
}

// EnsureCourseIndexes creates the read-path indexes AutoMigrate does not
// express. Statements are valid on both Postgres and SQLite.
func EnsureCourseIndexes(db *gorm.DB) error {
	stmts := []struct{ name, sql string }{
		{"idx_course_section_tree", `CREATE INDEX IF NOT EXISTS idx_course_section_tree ON course_section(course_id, depth, sibling_order);`},
		{"idx_course_public_forks", `CREATE INDEX IF NOT EXISTS idx_course_public_forks ON course(is_public, fork_count);`},
		{"idx_course_user_created", `CREATE INDEX IF NOT EXISTS idx_course_user_created ON course(user_id, created_at);`},
		{"idx_course_fork_record_recent", `CREATE INDEX IF NOT EXISTS idx_course_fork_record_recent ON course_fork_record(course_id, forked_at);`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}

// Migrate runs AutoMigrateAll then EnsureCourseIndexes.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureCourseIndexes(db)
}
