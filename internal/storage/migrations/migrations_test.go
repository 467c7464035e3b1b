package migrations

import (
	"context"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- leading comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

CREATE TABLE b (y String) ENGINE = Memory;
`
	stmts := splitStatements(input)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[1], "CREATE TABLE b") {
		t.Errorf("unexpected second statement: %q", stmts[1])
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	if err := validateNoSemicolonInStrings(`SELECT 'a;b'`); err == nil {
		t.Error("expected error for semicolon in literal")
	}
	if err := validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

type recordingExecer struct {
	stmts []string
}

func (r *recordingExecer) Exec(_ context.Context, query string, _ ...any) error {
	r.stmts = append(r.stmts, query)
	return nil
}

func TestRunClickhouseMigrations_Embedded(t *testing.T) {
	rec := &recordingExecer{}
	if err := RunClickhouseMigrations(context.Background(), rec); err != nil {
		t.Fatalf("RunClickhouseMigrations failed: %v", err)
	}
	if len(rec.stmts) == 0 {
		t.Fatal("no statements executed")
	}
	if !strings.Contains(rec.stmts[0], "activity_volume") {
		t.Errorf("first statement should create activity_volume: %q", rec.stmts[0])
	}
}

func TestPostgresFiles_Ordered(t *testing.T) {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		t.Fatalf("sqlFiles failed: %v", err)
	}
	if len(files) == 0 || files[0] != "001_init.sql" {
		t.Errorf("unexpected migration files: %v", files)
	}
}
