package learning

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coursestore/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	"github.com/yungbote/neurobridge-coursestore/internal/domain/content"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
)

func TestSectionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSectionRepo(db, testutil.Logger(t))

	c := testutil.SeedCourse(t, ctx, tx, uuid.New(), false)
	root := &types.Section{CourseID: c.ID, Title: "root"}
	if _, err := repo.Create(dbc, []*types.Section{root}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if root.StructuredTextStatus != string(content.StatusAbsent) || root.PrimaryFormat != string(content.FormatStructuredText) {
		t.Fatalf("create defaults: status=%q primary=%q", root.StructuredTextStatus, root.PrimaryFormat)
	}
	second := testutil.SeedSection(t, ctx, tx, c.ID, nil, 1, "second")
	child := testutil.SeedSection(t, ctx, tx, c.ID, root, 0, "child")
	testutil.SeedText(t, ctx, tx, child, "hello there", 2)

	rows, err := repo.ListByCourse(dbc, c.ID)
	if err != nil || len(rows) != 3 {
		t.Fatalf("ListByCourse: err=%v len=%d", err, len(rows))
	}
	if rows[0].ID != root.ID || rows[1].ID != second.ID || rows[2].ID != child.ID {
		t.Fatalf("ListByCourse order: got=%s,%s,%s", rows[0].Title, rows[1].Title, rows[2].Title)
	}
	if rows[2].StructuredText != "hello there" {
		t.Fatalf("ListByCourse content: got=%q", rows[2].StructuredText)
	}

	structure, err := repo.ListStructureByCourse(dbc, c.ID)
	if err != nil || len(structure) != 3 {
		t.Fatalf("ListStructureByCourse: err=%v len=%d", err, len(structure))
	}
	if structure[2].StructuredText != "" || structure[2].WordCount != 2 {
		t.Fatalf("structure-only row: text=%q words=%d", structure[2].StructuredText, structure[2].WordCount)
	}

	if err := repo.UpdateFields(dbc, second.ID, map[string]interface{}{"sibling_order": 5, "title": "renamed"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, second.ID)
	if err != nil || got.Order != 5 || got.Title != "renamed" {
		t.Fatalf("after UpdateFields: err=%v got=%+v", err, got)
	}
	if err := repo.UpdateFields(dbc, uuid.New(), map[string]interface{}{"title": "ghost"}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("UpdateFields missing row: want=%v got=%v", gorm.ErrRecordNotFound, err)
	}
	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{root.ID, child.ID}); err != nil || len(rows) != 2 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	if err := repo.DeleteByIDs(dbc, []uuid.UUID{child.ID}); err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	if _, err := repo.GetByID(dbc, child.ID); err == nil {
		t.Fatalf("after DeleteByIDs: want not found")
	}
	if err := repo.DeleteByCourseID(dbc, c.ID); err != nil {
		t.Fatalf("DeleteByCourseID: %v", err)
	}
	if rows, _ := repo.ListByCourse(dbc, c.ID); len(rows) != 0 {
		t.Fatalf("after DeleteByCourseID: len=%d", len(rows))
	}
}

func TestForkRecordRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewForkRecordRepo(db, testutil.Logger(t))

	src := testutil.SeedCourse(t, ctx, tx, uuid.New(), true)
	fork1 := testutil.SeedCourse(t, ctx, tx, uuid.New(), false)
	fork2 := testutil.SeedCourse(t, ctx, tx, uuid.New(), false)
	older := &types.CourseForkRecord{CourseID: src.ID, ForkingUserID: fork1.UserID, ForkedCourseID: fork1.ID, ForkedAt: fork1.CreatedAt}
	newer := &types.CourseForkRecord{CourseID: src.ID, ForkingUserID: fork2.UserID, ForkedCourseID: fork2.ID, ForkedAt: fork1.CreatedAt.Add(1e9)}
	if _, err := repo.Create(dbc, []*types.CourseForkRecord{older, newer}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rows, err := repo.ListByCourse(dbc, src.ID, 0)
	if err != nil || len(rows) != 2 || rows[0].ForkedCourseID != fork2.ID {
		t.Fatalf("ListByCourse: err=%v rows=%v", err, rows)
	}
	if rows, _ := repo.ListByCourse(dbc, src.ID, 1); len(rows) != 1 {
		t.Fatalf("ListByCourse limit: len=%d", len(rows))
	}
	if n, err := repo.CountByCourse(dbc, src.ID); err != nil || n != 2 {
		t.Fatalf("CountByCourse: err=%v n=%d", err, n)
	}
	if err := repo.DeleteByCourseID(dbc, src.ID); err != nil {
		t.Fatalf("DeleteByCourseID: %v", err)
	}
	if n, _ := repo.CountByCourse(dbc, src.ID); n != 0 {
		t.Fatalf("after delete: n=%d", n)
	}
}
