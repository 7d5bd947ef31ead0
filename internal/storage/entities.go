package storage

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgtype"
)

// Group is a chat thread pinned to a map location.
// Texts is nil when the document has no message list at all.
type Group struct {
	ID    string
	Name  string
	Lat   float64
	Lng   float64
	Texts []Text
}

// Text is a single chat message as stored inside the group document
type Text struct {
	Text   string `json:"text"`
	UserID string `json:"userId"`
}

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Change is a decoded group_changes notification
type Change struct {
	GroupID string
	Origin  string
}

// encodeTexts maps a message list onto the nullable jsonb column
func encodeTexts(texts []Text) (pgtype.JSONB, error) {
	if texts == nil {
		return pgtype.JSONB{Status: pgtype.Null}, nil
	}
	b, err := json.Marshal(texts)
	if err != nil {
		return pgtype.JSONB{}, err
	}
	return pgtype.JSONB{Bytes: b, Status: pgtype.Present}, nil
}

func decodeTexts(src pgtype.JSONB) ([]Text, error) {
	if src.Status != pgtype.Present {
		return nil, nil
	}
	texts := []Text{}
	if err := json.Unmarshal(src.Bytes, &texts); err != nil {
		return nil, err
	}
	return texts, nil
}
