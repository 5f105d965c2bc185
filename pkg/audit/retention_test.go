package audit

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
)

func TestPurger_Purge(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM audit_logs WHERE created_at").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 42))

	p := NewPurger(db, 30, logrus.New())
	deleted, err := p.Purge(context.Background())
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if deleted != 42 {
		t.Errorf("expected 42 deleted rows, got %d", deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPurger_DefaultRetention(t *testing.T) {
	p := NewPurger(nil, 0, nil)
	if p.retentionDays != DefaultRetentionDays {
		t.Errorf("expected default retention %d, got %d", DefaultRetentionDays, p.retentionDays)
	}
}
