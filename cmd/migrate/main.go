package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/chatdesk/backend/internal/infrastructure/config"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/chatdesk/backend/internal/infrastructure/migration"
	"github.com/chatdesk/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultCreateDir = "migrations"

// session carries what a subcommand may need. migrator is nil for
// commands that do not touch the database.
type session struct {
	log      *zap.Logger
	path     string
	confirm  bool
	migrator *migration.Migrator
}

type command struct {
	usage   string
	summary string
	args    int
	db      bool
	run     func(s *session, args []string) error
}

var commands = map[string]command{
	"up": {
		summary: "Apply all pending migrations",
		db:      true,
		run:     func(s *session, _ []string) error { return s.migrator.Up() },
	},
	"down": {
		summary: "Roll back all migrations",
		db:      true,
		run:     func(s *session, _ []string) error { return s.migrator.Down() },
	},
	"step": {
		usage:   "<n>",
		summary: "Apply n migrations (negative n rolls back)",
		args:    1,
		db:      true,
		run: func(s *session, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return s.migrator.Steps(n)
		},
	},
	"goto": {
		usage:   "<version>",
		summary: "Migrate up or down to a version",
		args:    1,
		db:      true,
		run: func(s *session, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return s.migrator.GoTo(uint(v))
		},
	},
	"version": {
		summary: "Show the applied version",
		db:      true,
		run: func(s *session, _ []string) error {
			v, dirty, err := s.migrator.Version()
			if err != nil {
				return err
			}
			if v == 0 {
				s.log.Info("No migrations applied")
				return nil
			}
			s.log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
			return nil
		},
	},
	"force": {
		usage:   "<version>",
		summary: "Mark a version as applied and clear the dirty flag",
		args:    1,
		db:      true,
		run: func(s *session, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return s.migrator.Force(v)
		},
	},
	"drop": {
		summary: "Drop every database object (requires -confirm)",
		db:      true,
		run: func(s *session, _ []string) error {
			if !s.confirm {
				return errors.New("refusing to drop without -confirm")
			}
			return s.migrator.Drop()
		},
	},
	"create": {
		usage:   "<name> [description]",
		summary: "Write a new up/down migration pair",
		args:    1,
		run: func(s *session, args []string) error {
			dir := s.path
			if dir == "" {
				dir = defaultCreateDir
			}
			var desc string
			if len(args) > 1 {
				desc = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], desc)
			if err != nil {
				return err
			}
			s.log.Info("Migration created",
				zap.String("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	},
	"list": {
		summary: "List available migrations",
		run: func(s *session, _ []string) error {
			var fsys fs.FS = migrations.FS
			if s.path != "" {
				fsys = os.DirFS(s.path)
			}
			names, err := migration.ListMigrations(fsys)
			if err != nil {
				return err
			}
			s.log.Info("Available migrations", zap.Int("count", len(names)))
			for _, name := range names {
				fmt.Println("  -", name)
			}
			return nil
		},
	},
}

func main() {
	var (
		path     string
		logLevel string
		confirm  bool
	)
	flag.StringVar(&path, "path", "", "Migrations directory (default: migrations embedded in the binary)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&confirm, "confirm", false, "Confirm destructive commands such as drop")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	name, args := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		printUsage()
		os.Exit(2)
	}
	if len(args) < cmd.args {
		fmt.Fprintf(os.Stderr, "usage: migrate %s %s\n", name, cmd.usage)
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if path != "" {
		if path, err = filepath.Abs(path); err != nil {
			log.Fatal("Invalid migrations path", zap.Error(err))
		}
	}
	s := &session{log: log, path: path, confirm: confirm}

	if cmd.db {
		closeDB, err := s.open()
		if err != nil {
			log.Fatal("Failed to prepare migrator", zap.Error(err))
		}
		defer closeDB()
	}

	log.Debug("Running migrate command", zap.String("command", name), zap.String("source", sourceName(path)))
	if err := cmd.run(s, args); err != nil {
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

// open connects to the configured database and attaches a migrator
func (s *session) open() (func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	m, err := migration.New(db, s.path, s.log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.migrator = m
	return func() {
		if err := m.Close(); err != nil {
			s.log.Warn("Closing migrator", zap.Error(err))
		}
	}, nil
}

func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Chatdesk database migration tool")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage: migrate [flags] <command> [arguments]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(os.Stderr, "  %-22s %s\n", name+" "+cmd.usage, cmd.summary)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Database settings come from config.toml and CHAT_DATABASE_* environment variables.")
}
