// Package core holds the message catalog and download log types shared by
// the stores and the server.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageRunes bounds catalog texts so they fit the widened arc.
const MaxMessageRunes = 40

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")
)

type (
	// Message is a curated curved-text option offered to users.
	Message struct {
		ID        string    `json:"id"`
		Label     string    `json:"label"`
		Text      string    `json:"text"`
		Active    bool      `json:"active"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	MessageStore interface {
		List(ctx context.Context, activeOnly bool) ([]Message, error)
		Get(ctx context.Context, id string) (Message, error)
		Create(ctx context.Context, m Message) (Message, error)
		Update(ctx context.Context, m Message) (Message, error)
		Delete(ctx context.Context, id string) error
	}

	// Download is one downloaded profile picture. MessageID is empty for
	// free-form or no text.
	Download struct {
		ID        string    `json:"id"`
		MessageID string    `json:"messageId,omitempty"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// DownloadStat counts downloads per text.
	DownloadStat struct {
		Text  string `json:"text"`
		Count int    `json:"count"`
	}

	DownloadLog interface {
		Record(ctx context.Context, d Download) (Download, error)
		Stats(ctx context.Context) ([]DownloadStat, error)
	}

	// Store is everything the server persists.
	Store interface {
		MessageStore
		DownloadLog
		Close() error
	}
)

// Normalize trims m and checks it can be stored.
func (m Message) Normalize() (Message, error) {
	m.Label = strings.TrimSpace(m.Label)
	m.Text = strings.TrimSpace(m.Text)
	switch {
	case m.Label == "":
		return m, fmt.Errorf("%w: label is required", ErrInvalid)
	case m.Text == "":
		return m, fmt.Errorf("%w: text is required", ErrInvalid)
	case utf8.RuneCountInString(m.Text) > MaxMessageRunes:
		return m, fmt.Errorf("%w: text longer than %d characters", ErrInvalid, MaxMessageRunes)
	}
	return m, nil
}

// Now is the store clock, truncated to what SQLite keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
