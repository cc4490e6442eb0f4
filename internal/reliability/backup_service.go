// Package reliability covers operational safety for the valuation history:
// local database backups, off-site copies, and scheduled maintenance.
package reliability

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/database"
)

// BackupService manages local database backups with daily rotation.
// The portfolio database is the source of truth for years of valuation
// history, so backups are verified before they count.
type BackupService struct {
	databases map[string]*database.DB
	backupDir string
	retention int // days of daily backups to keep
	log       zerolog.Logger
}

// NewBackupService creates a backup service over the named databases.
func NewBackupService(databases map[string]*database.DB, backupDir string, retentionDays int, log zerolog.Logger) *BackupService {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &BackupService{
		databases: databases,
		backupDir: backupDir,
		retention: retentionDays,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// DatabaseNames returns the databases included in backups. The cache database
// is rebuilt from external sources on demand and is never backed up.
func (s *BackupService) DatabaseNames() []string {
	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		if name == "cache" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DailyBackup copies every non-cache database into a dated directory and
// prunes directories older than the retention window.
func (s *BackupService) DailyBackup() error {
	start := time.Now()

	date := time.Now().Format("2006-01-02")
	dailyDir := filepath.Join(s.backupDir, "daily", date)
	if err := os.MkdirAll(dailyDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	for _, name := range s.DatabaseNames() {
		backupPath := filepath.Join(dailyDir, name+".db")

		if err := s.BackupDatabase(name, backupPath); err != nil {
			s.log.Error().Err(err).Str("database", name).Msg("Failed to backup database")
			continue
		}
		if err := s.VerifyBackup(backupPath); err != nil {
			s.log.Error().Err(err).Str("database", name).Msg("Backup verification failed")
			os.Remove(backupPath)
		}
	}

	if err := s.rotateDailyBackups(); err != nil {
		s.log.Error().Err(err).Msg("Failed to rotate old backups")
	}

	s.log.Info().
		Dur("duration_ms", time.Since(start)).
		Str("dir", dailyDir).
		Msg("Daily backup completed")
	return nil
}

// BackupDatabase writes an atomic copy of one database to backupPath.
// VACUUM INTO produces a compacted single-file copy with no WAL sidecar.
func (s *BackupService) BackupDatabase(name, backupPath string) error {
	db, ok := s.databases[name]
	if !ok {
		return fmt.Errorf("database %s not found", name)
	}

	if _, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", backupPath)); err != nil {
		return fmt.Errorf("VACUUM INTO failed for %s: %w", name, err)
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return fmt.Errorf("failed to stat backup: %w", err)
	}

	s.log.Debug().
		Str("database", name).
		Float64("size_mb", float64(info.Size())/1024/1024).
		Msg("Backup created")
	return nil
}

// VerifyBackup opens a backup read-only and runs an integrity check.
func (s *BackupService) VerifyBackup(backupPath string) error {
	backupDB, err := sql.Open("sqlite", backupPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer backupDB.Close()

	var result string
	if err := backupDB.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup is corrupted: %s", result)
	}
	return nil
}

// rotateDailyBackups removes dated backup directories past the retention
// window.
func (s *BackupService) rotateDailyBackups() error {
	dailyRoot := filepath.Join(s.backupDir, "daily")
	entries, err := os.ReadDir(dailyRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -s.retention).Format("2006-01-02")
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// Directory names are dates; lexicographic compare is chronological.
		if entry.Name() < cutoff {
			path := filepath.Join(dailyRoot, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				s.log.Warn().Err(err).Str("dir", path).Msg("Failed to remove old backup")
				continue
			}
			s.log.Info().Str("dir", path).Msg("Removed expired backup")
		}
	}
	return nil
}
