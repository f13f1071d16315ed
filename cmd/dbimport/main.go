// Command dbimport переносит данные старой базы SQLite в PostgreSQL из конфига.
//
//	dbimport -sqlite ./legacy.db [-truncate] [-batch 500]
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/magabrotheeeer/datesantiere/internal/config"
	"github.com/magabrotheeeer/datesantiere/internal/dbimport"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
)

func main() {
	sqlitePath := flag.String("sqlite", "", "path to the legacy SQLite database")
	truncate := flag.Bool("truncate", false, "empty target tables before import")
	batch := flag.Int("batch", dbimport.DefaultBatchSize, "rows per transaction")
	flag.Parse()

	if *sqlitePath == "" {
		fmt.Fprintln(os.Stderr, "usage: dbimport -sqlite /path/to/db.sqlite [-truncate] [-batch 500]")
		os.Exit(2)
	}
	if _, err := os.Stat(*sqlitePath); err != nil {
		fmt.Fprintf(os.Stderr, "sqlite file not found: %s\n", *sqlitePath)
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *sqlitePath, cfg.StorageConnectionString, dbimport.Options{Truncate: *truncate, BatchSize: *batch}, logger); err != nil {
		logger.Error("import failed", sl.Err(err))
		if errors.Is(err, dbimport.ErrTargetNotEmpty) {
			logger.Info("re-run with -truncate if this is a fresh migration")
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, sqlitePath, dsn string, opts dbimport.Options, logger *slog.Logger) error {
	src, err := sql.Open("sqlite", "file:"+sqlitePath+"?mode=ro")
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer dst.Close()
	// Настройка session_replication_role действует в пределах одного соединения.
	dst.SetMaxOpenConns(1)
	if err := dst.PingContext(ctx); err != nil {
		return err
	}

	importer := dbimport.New(src, dbimport.SQLite{DB: src}, dst, dbimport.Postgres{DB: dst}, logger)
	results, err := importer.Run(ctx, opts)
	if err != nil {
		return err
	}

	var total int64
	for _, r := range results {
		total += r.Rows
	}
	logger.Info("import finished", slog.Int("tables", len(results)), slog.Int64("rows", total))
	return nil
}
