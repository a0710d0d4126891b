package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
)

func openMem(t *testing.T) *sqlx.DB {
	t.Helper()
	d, err := Open(context.Background(), DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), Driver("oracle"), ""); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpen_SchemaIsIdempotent(t *testing.T) {
	d := openMem(t)
	if err := ensureSchema(context.Background(), d, DriverSQLite); err != nil {
		t.Fatalf("second ensureSchema: %v", err)
	}
	var n int
	if err := d.Get(&n, `SELECT COUNT(*) FROM exam_results`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("want empty table, got %d rows", n)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	d := openMem(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, d, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, role, password_hash, created_at) VALUES ($1,'student','x',0)`, "ana"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	var n int
	if err := d.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("rollback expected, found %d users", n)
	}
}

func TestWithTx_Commits(t *testing.T) {
	d := openMem(t)
	ctx := context.Background()

	err := WithTx(ctx, d, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, role, password_hash, created_at) VALUES ($1,'teacher','x',0)`, "bo")
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	var n int
	if err := d.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want 1 user, got %d", n)
	}
}
