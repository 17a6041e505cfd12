package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Song is a generated song kept in the history.
type Song struct {
	ID        string    `gorm:"primarykey" csv:"id" json:"id"`
	CreatedAt time.Time `csv:"created_at" json:"created_at"`
	UpdatedAt time.Time `csv:"-" json:"-"`

	Preset  string `gorm:"index;not null;default:''" csv:"preset" json:"preset"`
	Source  string `gorm:"not null;default:''" csv:"source" json:"source,omitempty"`
	Content string `gorm:"not null;default:''" csv:"content" json:"content"`
	Context string `gorm:"not null;default:''" csv:"context" json:"context,omitempty"`
	Model   string `gorm:"not null;default:''" csv:"model" json:"model"`

	Title  string `gorm:"not null;default:''" csv:"title" json:"title"`
	Style  string `gorm:"not null;default:''" csv:"style" json:"style"`
	Lyrics string `gorm:"not null;default:''" csv:"lyrics" json:"lyrics"`

	Confidence float64 `gorm:"not null;default:0" csv:"confidence" json:"confidence,omitempty"`
}

func (s *Store) GetSong(ctx context.Context, id string) (*Song, error) {
	var v Song
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get song %s: %w", id, err)
	}
	return &v, nil
}

// SetSong saves the song, assigning a new id when it has none.
func (s *Store) SetSong(ctx context.Context, v *Song) error {
	if v.ID == "" {
		v.ID = ulid.Make().String()
	}
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set song %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteSong(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Song{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete song %s: %w", id, err)
	}
	return nil
}

// ListSongs returns a page of songs, newest first unless orderBy is set.
func (s *Store) ListSongs(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Song, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Song{}

	q := s.db.WithContext(ctx).Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if orderBy == "" {
		orderBy = "id desc"
	}
	q = q.Order(orderBy)
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list songs: %w", err)
	}
	return vs, nil
}
