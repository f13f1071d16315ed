// Package dbimport переносит данные из старой базы SQLite в PostgreSQL.
//
// Копируются таблицы, которые есть в обеих базах, по пересечению колонок.
// Имена сравниваются без учёта регистра и подчёркиваний, поэтому "SantierHistory.CreatedAt"
// совпадает с "santier_history.created_at".
package dbimport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize размер пачки строк в одной транзакции по умолчанию.
const DefaultBatchSize = 500

// ErrTargetNotEmpty возвращается, если приёмник уже содержит данные и очистка не запрошена.
var ErrTargetNotEmpty = errors.New("target table is not empty")

// tableAliases имена таблиц источника, которые не сводятся к имени приёмника нормализацией.
var tableAliases = map[string]string{
	"aspnetusers": "users",
}

// Options параметры переноса.
type Options struct {
	Truncate  bool
	BatchSize int
}

// TableResult итог переноса одной таблицы.
type TableResult struct {
	Source  string
	Target  string
	Columns int
	Rows    int64
}

// Importer переносит строки из источника в приёмник.
type Importer struct {
	src    *sql.DB
	srcCat Catalog
	dst    *sql.DB
	target Target
	log    *slog.Logger
}

// New создает Importer.
func New(src *sql.DB, srcCat Catalog, dst *sql.DB, target Target, log *slog.Logger) *Importer {
	return &Importer{src: src, srcCat: srcCat, dst: dst, target: target, log: log}
}

// normalize приводит имя таблицы или колонки к ключу сравнения.
func normalize(name string) string {
	key := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	if alias, ok := tableAliases[key]; ok {
		return alias
	}
	return key
}

type tablePlan struct {
	source     string
	target     string
	srcColumns []string
	dstColumns []Column
}

// plan сопоставляет таблицы и колонки обеих баз.
func (im *Importer) plan(ctx context.Context) ([]tablePlan, error) {
	const op = "dbimport.plan"
	srcTables, err := im.srcCat.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	dstTables, err := im.target.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	dstByKey := make(map[string]string, len(dstTables))
	for _, t := range dstTables {
		dstByKey[normalize(t)] = t
	}

	var plans []tablePlan
	for _, src := range srcTables {
		if strings.HasPrefix(src, "__") {
			continue
		}
		dst, ok := dstByKey[normalize(src)]
		if !ok {
			im.log.Info("skipping table without target", slog.String("table", src))
			continue
		}
		srcCols, err := im.srcCat.Columns(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		dstCols, err := im.target.Columns(ctx, dst)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p := matchColumns(srcCols, dstCols)
		if len(p.srcColumns) == 0 {
			im.log.Info("skipping table without common columns", slog.String("table", src))
			continue
		}
		p.source, p.target = src, dst
		plans = append(plans, p)
	}
	return plans, nil
}

func matchColumns(src, dst []Column) tablePlan {
	dstByKey := make(map[string]Column, len(dst))
	for _, c := range dst {
		dstByKey[normalize(c.Name)] = c
	}
	var p tablePlan
	for _, c := range src {
		if d, ok := dstByKey[normalize(c.Name)]; ok {
			p.srcColumns = append(p.srcColumns, c.Name)
			p.dstColumns = append(p.dstColumns, d)
		}
	}
	return p
}

// Run выполняет перенос. Без Truncate отказывается писать в непустые таблицы.
func (im *Importer) Run(ctx context.Context, opts Options) ([]TableResult, error) {
	const op = "dbimport.Run"
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	plans, err := im.plan(ctx)
	if err != nil {
		return nil, err
	}
	im.log.Info("import plan ready", slog.Int("tables", len(plans)))

	if err := im.target.Prepare(ctx); err != nil {
		im.log.Warn("could not disable foreign key checks", slog.String("error", err.Error()))
	}

	for _, p := range plans {
		if opts.Truncate {
			if err := im.target.Truncate(ctx, p.target); err != nil {
				return nil, fmt.Errorf("%s: truncate %s: %w", op, p.target, err)
			}
			continue
		}
		n, err := im.target.Count(ctx, p.target)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if n > 0 {
			return nil, fmt.Errorf("%s: %s has %d rows: %w", op, p.target, n, ErrTargetNotEmpty)
		}
	}

	results := make([]TableResult, 0, len(plans))
	for _, p := range plans {
		started := time.Now()
		rows, err := im.copyTable(ctx, p, opts.BatchSize)
		if err != nil {
			return results, fmt.Errorf("%s: table %s: %w", op, p.source, err)
		}
		if err := im.target.Finish(ctx, p.target, p.dstColumns); err != nil {
			return results, fmt.Errorf("%s: finish %s: %w", op, p.target, err)
		}
		im.log.Info("table imported",
			slog.String("source", p.source),
			slog.String("target", p.target),
			slog.Int64("rows", rows),
			slog.Duration("took", time.Since(started)))
		results = append(results, TableResult{Source: p.source, Target: p.target, Columns: len(p.srcColumns), Rows: rows})
	}
	return results, nil
}

// copyTable читает строки источника в одной горутине и пишет их пачками в другой.
func (im *Importer) copyTable(ctx context.Context, p tablePlan, batchSize int) (int64, error) {
	batches := make(chan [][]any, 2)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		quoted := make([]string, len(p.srcColumns))
		for i, c := range p.srcColumns {
			quoted[i] = quote(c)
		}
		rows, err := im.src.QueryContext(gCtx,
			`SELECT `+strings.Join(quoted, ", ")+` FROM `+quote(p.source))
		if err != nil {
			return err
		}
		defer rows.Close()

		batch := make([][]any, 0, batchSize)
		for rows.Next() {
			values := make([]any, len(p.srcColumns))
			ptrs := make([]any, len(values))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			for i, v := range values {
				values[i] = convertValue(v, p.dstColumns[i].Type)
			}
			batch = append(batch, values)
			if len(batch) == batchSize {
				select {
				case batches <- batch:
				case <-gCtx.Done():
					return gCtx.Err()
				}
				batch = make([][]any, 0, batchSize)
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			select {
			case batches <- batch:
			case <-gCtx.Done():
				return gCtx.Err()
			}
		}
		return nil
	})

	var total int64
	g.Go(func() error {
		columns := make([]string, len(p.dstColumns))
		for i, c := range p.dstColumns {
			columns[i] = quote(c.Name)
		}
		for batch := range batches {
			if err := im.writeBatch(gCtx, p.target, columns, batch); err != nil {
				return err
			}
			total += int64(len(batch))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

// writeBatch вставляет пачку строк в одной транзакции.
func (im *Importer) writeBatch(ctx context.Context, table string, columns []string, batch [][]any) error {
	tx, err := im.dst.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, values := range batch {
		query, args, err := squirrel.Insert(quote(table)).
			Columns(columns...).
			Values(values...).
			PlaceholderFormat(im.target.Placeholder()).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// convertValue приводит значение SQLite к типу колонки приёмника.
// SQLite хранит логические значения числами, а текст иногда байтами.
func convertValue(v any, targetType string) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		if targetType == "bytea" || targetType == "blob" {
			return t
		}
		return convertValue(string(t), targetType)
	case int64:
		if targetType == "boolean" {
			return t != 0
		}
	case string:
		if targetType == "boolean" {
			if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
				return b
			}
		}
	}
	return v
}
