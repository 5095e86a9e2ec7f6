package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	"github.com/yungbote/neurobridge-coursestore/internal/domain/content"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, isPublic bool) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    "course",
		IsPublic: isPublic,
		MaxDepth: types.DefaultMaxDepth,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedSection inserts a section below parent (nil for a root) at order. The
// course statistics are not touched.
func SeedSection(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, parent *types.Section, order int, title string) *types.Section {
	tb.Helper()
	s := &types.Section{
		ID:       uuid.New(),
		CourseID: courseID,
		Order:    order,
		Title:    title,
	}
	if parent != nil {
		s.ParentID = PtrUUID(parent.ID)
		s.Depth = parent.Depth + 1
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed section: %v", err)
	}
	return s
}

// SeedText stores plain structured text on a section without deriving the
// other slots.
func SeedText(tb testing.TB, ctx context.Context, tx *gorm.DB, s *types.Section, text string, words int) {
	tb.Helper()
	updates := map[string]interface{}{
		"structured_text":        text,
		"structured_text_status": string(content.StatusAvailable),
		"primary_format":         string(content.FormatStructuredText),
		"has_content":            text != "",
		"word_count":             words,
		"read_time_minutes":      1,
	}
	if err := tx.WithContext(ctx).Model(&types.Section{}).Where("id = ?", s.ID).Updates(updates).Error; err != nil {
		tb.Fatalf("seed text: %v", err)
	}
	s.StructuredText = text
	s.WordCount = words
	s.ReadTimeMinutes = 1
	s.HasContent = text != ""
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func PtrInt(v int) *int { return &v }
