// Package historydb persists completed rounds in a SQLite database.
package historydb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/osa030/guessbox/internal/domain/history"
)

const dbFileName = "history.db"

// record is the table row of one history entry.
type record struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	TrackID     string `gorm:"index:idx_track_id"`
	TrackName   string
	ArtistName  string
	CoverURL    string
	Score       int
	IsCorrect   bool
	ElapsedMs   int64
	CompletedAt time.Time `gorm:"index:idx_completed_at"`
}

func (record) TableName() string {
	return "history_entries"
}

// Store is a SQLite history store.
type Store struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

// DefaultPath returns the history database path under the XDG data
// directory, creating its parent directory.
func DefaultPath() (string, error) {
	path, err := xdg.DataFile(filepath.Join("guessbox", dbFileName))
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve history path")
	}
	return path, nil
}

// Open opens the database at path, creating it if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create history directory")
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB from gorm")
	}
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&record{}); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to migrate history database")
	}

	return &Store{db: db, sqlDB: sqlDB}, nil
}

// Append stores a history entry.
func (s *Store) Append(ctx context.Context, entry history.Entry) error {
	r := toRecord(entry)
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return errors.Wrapf(err, "failed to append history entry %s", entry.ID)
	}
	return nil
}

// List returns all entries ordered by completion time, oldest first.
func (s *Store) List(ctx context.Context) ([]history.Entry, error) {
	var records []record
	if err := s.db.WithContext(ctx).Order("completed_at ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list history")
	}

	entries := make([]history.Entry, len(records))
	for i, r := range records {
		entries[i] = r.toEntry()
	}
	return entries, nil
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&record{}).Error
	if err != nil {
		return errors.Wrap(err, "failed to clear history")
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toRecord(e history.Entry) record {
	return record{
		ID:          e.ID,
		TrackID:     e.TrackID,
		TrackName:   e.TrackName,
		ArtistName:  e.ArtistName,
		CoverURL:    e.CoverURL,
		Score:       e.Score,
		IsCorrect:   e.IsCorrect,
		ElapsedMs:   e.Elapsed.Milliseconds(),
		CompletedAt: e.CompletedAt.UTC(),
	}
}

func (r record) toEntry() history.Entry {
	return history.Entry{
		ID:          r.ID,
		TrackID:     r.TrackID,
		TrackName:   r.TrackName,
		ArtistName:  r.ArtistName,
		CoverURL:    r.CoverURL,
		Score:       r.Score,
		IsCorrect:   r.IsCorrect,
		Elapsed:     time.Duration(r.ElapsedMs) * time.Millisecond,
		CompletedAt: r.CompletedAt,
	}
}
