package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/unified-report/apps/api/migrations"
)

// Usage: migrate [-dir path] [up|down|status|version|redo|reset]
func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "migrations directory (defaults to the embedded set)")
	flag.Parse()

	command := "up"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("goose dialect: %v", err)
	}
	path := *dir
	if path == "" {
		goose.SetBaseFS(migrations.FS)
		path = "."
	}

	if err := goose.RunContext(context.Background(), command, db, path, args...); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}
}
