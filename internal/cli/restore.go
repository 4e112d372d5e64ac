package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/backup"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
)

// RestoreCommand replaces the library database with a snapshot. The server
// must be stopped while it runs.
type RestoreCommand struct {
	DatabasePath string
	BackupDir    string
	From         string // Snapshot ID or file path
	NoSnapshot   bool

	out io.Writer
}

func NewRestoreCommand() *RestoreCommand {
	return &RestoreCommand{out: os.Stdout}
}

func (cmd *RestoreCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database to replace")
	fs.StringVar(&cmd.BackupDir, "dir", config.DefaultBackupDir, "Directory searched when -from is a snapshot ID")
	fs.StringVar(&cmd.From, "from", "", "Snapshot ID or path to a snapshot file (required)")
	fs.BoolVar(&cmd.NoSnapshot, "no-snapshot", false, "Do not snapshot the current database before replacing it")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s restore -from <id|path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Replace the library database with a snapshot. Stop the server first.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.From == "" {
		fs.Usage()
		return fmt.Errorf("required flag -from not provided")
	}
	return nil
}

// source resolves -from to a file, trying it as a path first.
func (cmd *RestoreCommand) source() (string, error) {
	if st, err := os.Stat(cmd.From); err == nil && !st.IsDir() {
		return cmd.From, nil
	}
	info, err := backup.Find(cmd.BackupDir, cmd.From)
	if err != nil {
		return "", err
	}
	return info.Path, nil
}

func (cmd *RestoreCommand) Run(ctx context.Context) error {
	src, err := cmd.source()
	if err != nil {
		return err
	}
	if err := backup.Validate(src); err != nil {
		return err
	}

	dst, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	if _, err := os.Stat(dst); err == nil && !cmd.NoSnapshot {
		info, err := snapshot(ctx, dst, cmd.BackupDir)
		if err != nil {
			return fmt.Errorf("failed to snapshot current database: %w", err)
		}
		fmt.Fprintf(cmd.out, "Current database saved as %s\n", info.Path)
	}

	if err := backup.Import(src, dst); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Fprintf(cmd.out, "Restored %s from %s\n", dst, src)
	return nil
}

func snapshot(ctx context.Context, dbPath, dir string) (*backup.Info, error) {
	db, err := database.NewDatabase(dbPath, database.WithLogLevel(logger.Silent))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return backup.Export(ctx, db.DB, dir)
}
