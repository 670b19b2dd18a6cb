package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pushrelay-backend/pkg/config"
	"github.com/angelmondragon/pushrelay-backend/pkg/db"
	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|reset|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty uses the embedded set (create defaults to "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	if err := run(*cmd, *dir, *name, *version, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func run(cmd, dir, name, version string, out io.Writer) error {
	// create and validate never connect to a database
	switch cmd {
	case "create":
		if name == "" {
			return fmt.Errorf("-name is required")
		}
		path, err := migrate.CreateSQLMigration(orDefault(dir), name)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "created", path)
		return nil
	case "validate":
		if err := migrate.Validate(migrate.Source(dir)); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations valid")
		return nil
	case "up", "down", "reset", "status", "version":
	default:
		return fmt.Errorf("unknown command")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    cmd,
		"sqlite": cfg.FeatureFlags.UseSQLite,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	if cfg.FeatureFlags.UseSQLite {
		// goose migrations are Postgres-only
		if cmd != "up" {
			return fmt.Errorf("only -cmd=up is supported with sqlite")
		}
		if err := dbClient.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		logg.Info(ctx, "sqlite schema migrated")
		return nil
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}
	migrator, err := migrate.New(sqlDB, migrate.Source(dir))
	if err != nil {
		return err
	}

	var steps []migrate.Step
	switch cmd {
	case "up":
		steps, err = migrator.Up(ctx)
	case "down":
		steps, err = migrator.Down(ctx)
	case "reset":
		steps, err = migrator.Reset(ctx)
	case "version":
		if version == "" {
			return fmt.Errorf("-version is required")
		}
		steps, err = migrator.To(ctx, version)
	case "status":
		states, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(out, states)
		return nil
	}
	printSteps(out, steps)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "steps", len(steps)), "migrations finished")
	return nil
}

func orDefault(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func printSteps(out io.Writer, steps []migrate.Step) {
	if len(steps) == 0 {
		fmt.Fprintln(out, "no migrations to run")
		return
	}
	for _, s := range steps {
		fmt.Fprintf(out, "%-4s %d %s\n", s.Direction, s.Version, s.Path)
	}
}

func printStatus(out io.Writer, states []migrate.VersionState) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tFILE")
	for _, st := range states {
		state := "pending"
		if st.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", st.Version, state, st.Path)
	}
	_ = w.Flush()
}
