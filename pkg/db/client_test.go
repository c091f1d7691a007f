package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type auditRow struct {
	ID     int
	Remark string
}

func openTestConn(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&auditRow{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

func countRows(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := conn.Model(&auditRow{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	conn := openTestConn(t)
	client := NewFromConn(conn)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&auditRow{Remark: "kept"}).Error
	})
	if err != nil {
		t.Fatalf("WithTx commit: %v", err)
	}
	if got := countRows(t, conn); got != 1 {
		t.Fatalf("after commit: want 1 row, got %d", got)
	}

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&auditRow{Remark: "discarded"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("want error from failed transaction")
	}
	if got := countRows(t, conn); got != 1 {
		t.Fatalf("after rollback: want 1 row, got %d", got)
	}
}

func TestPing(t *testing.T) {
	client := NewFromConn(openTestConn(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
