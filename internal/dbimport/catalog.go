package dbimport

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

// Column колонка таблицы и её тип в базе.
type Column struct {
	Name string
	Type string
}

// Catalog описывает схему одной из баз.
type Catalog interface {
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]Column, error)
}

// Target база, в которую копируются строки.
type Target interface {
	Catalog
	Placeholder() squirrel.PlaceholderFormat
	// Prepare отключает проверки внешних ключей на время загрузки, если база это позволяет.
	Prepare(ctx context.Context) error
	Count(ctx context.Context, table string) (int64, error)
	Truncate(ctx context.Context, table string) error
	// Finish выполняется после загрузки таблицы, например сдвигает последовательность id.
	Finish(ctx context.Context, table string, columns []Column) error
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// SQLite схема базы SQLite. Служит источником и, в тестах, приёмником.
type SQLite struct {
	DB *sql.DB
}

// Tables возвращает пользовательские таблицы без служебных.
func (s SQLite) Tables(ctx context.Context) ([]string, error) {
	const op = "dbimport.SQLite.Tables"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns возвращает колонки таблицы, кроме сгенерированных и скрытых.
func (s SQLite) Columns(ctx context.Context, table string) ([]Column, error) {
	const op = "dbimport.SQLite.Columns"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT name, type, hidden FROM pragma_table_xinfo(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c      Column
			hidden int64
		)
		if err := rows.Scan(&c.Name, &c.Type, &hidden); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if hidden != 0 {
			continue
		}
		c.Type = strings.ToLower(c.Type)
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Placeholder формат параметров SQLite.
func (s SQLite) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }

// Prepare отключает внешние ключи.
func (s SQLite) Prepare(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `PRAGMA foreign_keys = OFF`)
	return err
}

// Count возвращает количество строк в таблице.
func (s SQLite) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quote(table)).Scan(&n)
	return n, err
}

// Truncate очищает таблицу.
func (s SQLite) Truncate(ctx context.Context, table string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM `+quote(table))
	return err
}

// Finish ничего не делает: SQLite сама продолжает rowid.
func (s SQLite) Finish(context.Context, string, []Column) error { return nil }

// Postgres схема базы PostgreSQL. Настройки сессии требуют пула из одного соединения.
type Postgres struct {
	DB *sql.DB
}

// Tables возвращает таблицы схемы public без таблицы миграций.
func (p Postgres) Tables(ctx context.Context) ([]string, error) {
	const op = "dbimport.Postgres.Tables"
	rows, err := p.DB.QueryContext(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE' AND table_name <> 'schema_migrations'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns возвращает колонки таблицы, кроме генерируемых.
func (p Postgres) Columns(ctx context.Context, table string) ([]Column, error) {
	const op = "dbimport.Postgres.Columns"
	rows, err := p.DB.QueryContext(ctx, `SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1 AND is_generated = 'NEVER'
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Placeholder формат параметров PostgreSQL.
func (p Postgres) Placeholder() squirrel.PlaceholderFormat { return squirrel.Dollar }

// Prepare переводит сессию в режим реплики, в котором триггеры внешних ключей не срабатывают.
func (p Postgres) Prepare(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `SET session_replication_role = replica`)
	return err
}

// Count возвращает количество строк в таблице.
func (p Postgres) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := p.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quote(table)).Scan(&n)
	return n, err
}

// Truncate очищает таблицу и сбрасывает её последовательности.
func (p Postgres) Truncate(ctx context.Context, table string) error {
	_, err := p.DB.ExecContext(ctx, `TRUNCATE TABLE `+quote(table)+` RESTART IDENTITY CASCADE`)
	return err
}

// Finish сдвигает последовательность колонки id за максимальное загруженное значение.
func (p Postgres) Finish(ctx context.Context, table string, columns []Column) error {
	for _, c := range columns {
		if c.Name != "id" || (c.Type != "integer" && c.Type != "bigint") {
			continue
		}
		_, err := p.DB.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence($1, 'id'),
			COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM `+quote(table), table)
		return err
	}
	return nil
}
