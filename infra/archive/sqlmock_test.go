package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Tsinling0525/journeyflow/plugin"
)

func newMockArchive(t *testing.T) (*SQLiteArchive, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &SQLiteArchive{db: db}, mock
}

func TestBeginRunWrapsDriverErrors(t *testing.T) {
	a, mock := newMockArchive(t)
	mock.ExpectExec("INSERT INTO runs").WillReturnError(errors.New("disk full"))

	err := a.BeginRun(context.Background(), plugin.RunInfo{ID: "run-1", JourneyID: "j1", VirtualFrom: t0})
	if err == nil || err.Error() != "begin run run-1: disk full" {
		t.Errorf("Expected wrapped driver error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecordTickRollsBackOnFailure(t *testing.T) {
	a, mock := newMockArchive(t)
	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT OR REPLACE INTO node_stats").
		ExpectExec().
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := a.RecordTick(context.Background(), "run-1", 1, t0, sampleJourney(10))
	if err == nil {
		t.Fatal("Expected RecordTick to fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEndRunReportsMissingRun(t *testing.T) {
	a, mock := newMockArchive(t)
	mock.ExpectExec("UPDATE runs SET ended_at").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := a.EndRun(context.Background(), "run-x", 3); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
