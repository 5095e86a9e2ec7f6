package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	repotest "github.com/yungbote/neurobridge-coursestore/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-coursestore/internal/domain"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
)

func TestInjectedTxRunner_Outcomes(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name               string
		runner             *InjectedTxRunner
		body               error
		wantErr            error
		wantRan            bool
		commits, rollbacks int
	}{
		{name: "commit", runner: &InjectedTxRunner{}, wantRan: true, commits: 1},
		{name: "body fails", runner: &InjectedTxRunner{}, body: boom, wantErr: boom, wantRan: true, rollbacks: 1},
		{name: "begin fails", runner: &InjectedTxRunner{FailBegin: boom}, wantErr: boom},
		{name: "fails after body", runner: &InjectedTxRunner{FailAfterBody: boom}, wantErr: boom, wantRan: true, rollbacks: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ran := false
			err := tc.runner.InTx(context.Background(), func(dbctx.Context) error {
				ran = true
				return tc.body
			})
			if !errors.Is(err, tc.wantErr) || (tc.wantErr == nil && err != nil) {
				t.Fatalf("err: want=%v got=%v", tc.wantErr, err)
			}
			if ran != tc.wantRan {
				t.Fatalf("ran: want=%v got=%v", tc.wantRan, ran)
			}
			r := tc.runner
			if r.BeginCalls != 1 || r.CommitCalls != tc.commits || r.RollbackCalls != tc.rollbacks {
				t.Fatalf("calls: begin=%d commit=%d rollback=%d", r.BeginCalls, r.CommitCalls, r.RollbackCalls)
			}
		})
	}
}

func TestInjectedTxRunner_FailAfterBodyDiscardsCourse(t *testing.T) {
	db := repotest.DB(t)
	injected := errors.New("commit failed")
	r := &InjectedTxRunner{DB: db, FailAfterBody: injected}
	id := uuid.New()
	err := r.InTx(context.Background(), func(dbc dbctx.Context) error {
		return dbc.Tx.Create(&types.Course{ID: id, UserID: uuid.New(), Title: "ghost"}).Error
	})
	if !errors.Is(err, injected) {
		t.Fatalf("err: want=%v got=%v", injected, err)
	}
	var n int64
	if err := db.Model(&types.Course{}).Where("id = ?", id).Count(&n).Error; err != nil || n != 0 {
		t.Fatalf("course survived rollback: n=%d err=%v", n, err)
	}
}
