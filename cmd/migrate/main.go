package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/visionscan/pos-backend/pkg/config"
	"github.com/visionscan/pos-backend/pkg/db"
	"github.com/visionscan/pos-backend/pkg/logger"
	"github.com/visionscan/pos-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

commands:
  up        apply all pending migrations
  down      roll back the most recent migration
  status    print migration status
  version   migrate up or down to -target
  create    write a new SQL migration skeleton named -name
  validate  parse the migrations directory without touching the DB
`

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory")
	name := flag.String("name", "", "migration name for create")
	target := flag.String("target", "", "target version (YYYYMMDDHHMMSS) for version")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"command": command,
		"dir":     *dir,
	})

	// create and validate work on files alone.
	switch command {
	case "create":
		if *name == "" {
			fail(ctx, logg, fmt.Errorf("create needs -name"))
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail(ctx, logg, err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail(ctx, logg, err)
		}
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail(ctx, logg, fmt.Errorf("loading config: %w", err))
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail(ctx, logg, fmt.Errorf("connecting to database: %w", err))
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		fail(ctx, logg, fmt.Errorf("extracting sql.DB: %w", err))
	}

	switch command {
	case "up", "down", "status":
		err = migrate.Run(ctx, sqlDB, *dir, command)
	case "version":
		if *target == "" {
			err = fmt.Errorf("version needs -target")
		} else {
			err = migrate.MigrateToVersion(ctx, sqlDB, *dir, *target)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fail(ctx, logg, err)
	}
}

func fail(ctx context.Context, logg *logger.Logger, err error) {
	logg.Error(ctx, "migrate failed", err)
	os.Exit(1)
}
