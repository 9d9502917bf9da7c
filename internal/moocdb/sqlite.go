package moocdb

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteLoader imports the per-table CSV files produced by a pipeline run
// into a relational MOOCdb instance.
type SQLiteLoader struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the MOOCdb database at dbPath.
// WAL mode keeps the import resilient to interruption.
func OpenSQLite(dbPath string) (*SQLiteLoader, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; the loader is strictly sequential.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteLoader{db: db}, nil
}

// CreateSchema creates every MOOCdb table, dropping any previous copy. All
// columns are TEXT: the pipeline emits strings and downstream curation
// queries cast as needed.
func (l *SQLiteLoader) CreateSchema(ctx context.Context) error {
	for _, table := range tableNames() {
		fields := Tables[table]
		cols := make([]string, len(fields))
		for i, f := range fields {
			cols[i] = f + " TEXT"
		}
		drop := fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
		create := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", "))
		if _, err := l.db.ExecContext(ctx, drop); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
		if _, err := l.db.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// ImportDir bulk-loads <table>.csv from dir into each MOOCdb table. Tables
// whose CSV file is absent are skipped. Each table loads inside a single
// transaction. Returns the number of rows imported per table.
func (l *SQLiteLoader) ImportDir(ctx context.Context, dir string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range tableNames() {
		path := filepath.Join(dir, table+".csv")
		n, err := l.importTable(ctx, table, path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return counts, fmt.Errorf("failed to import %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

func (l *SQLiteLoader) importTable(ctx context.Context, table, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fields := Tables[table]
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(fields)), ",")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(fields, ", "), placeholders)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(fields)
	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		args := make([]any, len(record))
		for i, v := range record {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return 0, err
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the underlying database handle.
func (l *SQLiteLoader) Close() error {
	return l.db.Close()
}

// tableNames returns the schema tables in deterministic order.
func tableNames() []string {
	names := make([]string, 0, len(Tables))
	for name := range Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
