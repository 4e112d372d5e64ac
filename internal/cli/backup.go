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
	"github.com/mrlokans/bookshelf/internal/database/settings"
	"github.com/mrlokans/bookshelf/internal/settingsstore"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// BackupCommand writes a snapshot of the library database or lists the
// existing ones.
type BackupCommand struct {
	DatabasePath string
	BackupDir    string
	Keep         int
	List         bool

	out io.Writer
}

func NewBackupCommand() *BackupCommand {
	return &BackupCommand{out: os.Stdout}
}

func (cmd *BackupCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database")
	fs.StringVar(&cmd.BackupDir, "dir", "", "Backup directory (defaults to the configured backup directory)")
	fs.IntVar(&cmd.Keep, "keep", 0, "Keep only the newest N snapshots after writing (0 keeps all)")
	fs.BoolVar(&cmd.List, "list", false, "List existing snapshots instead of writing one")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s backup [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Write a consistent snapshot of the library database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s backup -db ./bookshelf.db -dir ./backups -keep 5\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s backup -list -dir ./backups\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Keep < 0 {
		return fmt.Errorf("-keep must not be negative")
	}
	return nil
}

func (cmd *BackupCommand) Run(ctx context.Context) error {
	if cmd.List && cmd.BackupDir != "" {
		return printBackups(cmd.out, cmd.BackupDir)
	}

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}
	if _, err := os.Stat(absDBPath); err != nil {
		return fmt.Errorf("database not found: %s", absDBPath)
	}

	db, err := database.NewDatabase(absDBPath, database.WithLogLevel(logger.Silent))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store := settingsstore.New(settings.NewRepository(db.DB), settingsstore.Defaults{
		BackupDir: config.DefaultBackupDir,
	})
	dir := cmd.BackupDir
	if dir == "" {
		dir = store.BackupConfig().Dir
	}

	if cmd.List {
		return printBackups(cmd.out, dir)
	}

	info, err := tasks.RunBackup(ctx, db.DB, store, dir, cmd.Keep)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	fmt.Fprintf(cmd.out, "Backup written: %s\n", info.Path)
	fmt.Fprintf(cmd.out, "ID:       %s\n", info.ID)
	fmt.Fprintf(cmd.out, "Size:     %d bytes\n", info.Size)
	fmt.Fprintf(cmd.out, "Checksum: %s\n", info.Checksum)
	return nil
}

func printBackups(w io.Writer, dir string) error {
	backups, err := backup.List(dir)
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		fmt.Fprintf(w, "No backups in %s\n", dir)
		return nil
	}

	fmt.Fprintf(w, "%d backups in %s\n", len(backups), dir)
	for _, b := range backups {
		fmt.Fprintf(w, "  %s  %s  %d bytes\n", b.CreatedAt.Local().Format("2006-01-02 15:04:05"), b.ID, b.Size)
	}
	return nil
}
