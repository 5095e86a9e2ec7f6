package aggregates

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
)

// CASGuard provides compare-and-set helpers for aggregate writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if !dbc.InTx() && g.db == nil {
		return nil, ValidationError("missing db transaction context")
	}
	return dbc.Conn(g.db), nil
}

// UpdateByVersion applies updates only when the row's versionColumn still
// holds expectedVersion.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, versionColumn string, expectedVersion int, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	versionColumn = strings.TrimSpace(versionColumn)
	if table == "" || versionColumn == "" || id == uuid.Nil {
		return false, ValidationError("table, version column and id are required for UpdateByVersion")
	}
	if expectedVersion < 0 {
		return false, ValidationError("expectedVersion must be >= 0")
	}
	res := db.Table(table).
		Where(fmt.Sprintf("id = ? AND %s = ?", versionColumn), id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// BumpVersion advances versionColumn from expected to expected+1 and
// returns the new value, or a conflict when another writer got there first.
func (g CASGuard) BumpVersion(dbc dbctx.Context, table string, id uuid.UUID, versionColumn string, expected int, extra map[string]any) (int, error) {
	updates := map[string]any{versionColumn: expected + 1}
	for k, v := range extra {
		updates[k] = v
	}
	ok, err := g.UpdateByVersion(dbc, table, id, versionColumn, expected, updates)
	if err != nil {
		return expected, err
	}
	if err := RequireCASSuccess(ok, fmt.Sprintf("%s %s: %s moved past %d", table, id, versionColumn, expected)); err != nil {
		return expected, err
	}
	return expected + 1, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireVersionMatch checks a caller-supplied expected version. A nil
// expectation always matches.
func RequireVersionMatch(current int, expected *int) error {
	if expected == nil {
		return nil
	}
	if *expected < 0 {
		return ValidationError("expected version must be >= 0")
	}
	if current != *expected {
		return ConflictError(fmt.Sprintf("version mismatch: current %d, expected %d", current, *expected))
	}
	return nil
}
