// Package backup writes and restores whole-file snapshots of the library
// database.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrInvalidBackup indicates the file is not a library database.
	ErrInvalidBackup = errors.New("invalid backup file")

	// ErrBackupNotFound indicates the requested backup does not exist.
	ErrBackupNotFound = errors.New("backup not found")
)

const (
	filePrefix = "bookshelf-"
	fileSuffix = ".db"
	timeLayout = "20060102-150405"
)

// Info describes a snapshot on disk.
type Info struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum,omitempty"`
}

// Export writes a consistent copy of db into dir using VACUUM INTO.
func Export(ctx context.Context, db *gorm.DB, dir string) (*Info, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()
	path := filepath.Join(dir, fileName(createdAt, id))

	start := time.Now()
	if err := db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("vacuum into %s: %w", path, err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}
	checksum, err := fileChecksum(path)
	if err != nil {
		return nil, err
	}

	log.Printf("Backup written to %s (%d bytes) in %v", path, stat.Size(), time.Since(start).Round(time.Millisecond))

	return &Info{
		ID:        id,
		Path:      path,
		Size:      stat.Size(),
		CreatedAt: createdAt,
		Checksum:  checksum,
	}, nil
}

// List returns all snapshots in dir, newest first. A missing directory has
// no backups.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, err
	}

	backups := []Info{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		createdAt, id, ok := parseFileName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			ID:        id,
			Path:      filepath.Join(dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: createdAt,
		})
	}

	// Sort by creation time, newest first
	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Find returns the snapshot with the given id.
func Find(dir, id string) (*Info, error) {
	backups, err := List(dir)
	if err != nil {
		return nil, err
	}
	for i := range backups {
		if backups[i].ID == id {
			return &backups[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
}

// Prune deletes all but the newest keep snapshots and returns how many
// were removed. keep <= 0 disables pruning.
func Prune(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	backups, err := List(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, b := range backups[min(keep, len(backups)):] {
		if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", b.Path, err)
		}
		removed++
	}
	return removed, nil
}

// Validate checks that path is an intact SQLite file with a books table.
func Validate(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	db, err := gorm.Open(sqlite.Open("file:"+path+"?mode=ro"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	defer sqlDB.Close()

	var integrity string
	if err := db.Raw("PRAGMA integrity_check").Scan(&integrity).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if integrity != "ok" {
		return fmt.Errorf("%w: integrity check: %s", ErrInvalidBackup, integrity)
	}

	var tables int64
	if err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", "books").Scan(&tables).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if tables == 0 {
		return fmt.Errorf("%w: no books table", ErrInvalidBackup)
	}
	return nil
}

// Import validates src and atomically replaces the database at dst with it.
// The server must not have dst open.
func Import(src, dst string) error {
	if err := Validate(src); err != nil {
		return err
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".restore_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if _, err := io.Copy(tmp, in); err != nil {
		return fmt.Errorf("copy backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Stale journal files would be replayed against the restored file.
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if err := os.Remove(dst + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", dst+suffix, err)
		}
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}

	log.Printf("Database %s restored from %s", dst, src)
	return nil
}

func fileName(createdAt time.Time, id string) string {
	return filePrefix + createdAt.Format(timeLayout) + "-" + id + fileSuffix
}

func parseFileName(name string) (time.Time, string, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, "", false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	if len(rest) <= len(timeLayout)+1 {
		return time.Time{}, "", false
	}

	createdAt, err := time.Parse(timeLayout, rest[:len(timeLayout)])
	if err != nil {
		return time.Time{}, "", false
	}
	id := rest[len(timeLayout)+1:]
	if _, err := uuid.Parse(id); err != nil {
		return time.Time{}, "", false
	}
	return createdAt, id, true
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum backup: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
