// Package chat binds map markers to chat groups: it keeps the marker registry,
// resolves profile images for senders, and runs the per-view session controller
// that subscribes to the open group and renders its transcript.
package chat

import (
	"context"
	"errors"
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrUnknownMarker  = errors.New("unknown marker")
	ErrNoOpenChat     = errors.New("no chat is open")
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrMarkersLoaded  = errors.New("markers already loaded")
	ErrSessionStopped = errors.New("session stopped")
)

// Group is a chat thread tied to a map location.
// Texts is nil when the group has never had a message.
type Group struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Lat   float64   `json:"lat"`
	Lng   float64   `json:"lng"`
	Texts []Message `json:"texts,omitempty"`
}

// Message has no identity or timestamp, its position in Group.Texts is its order
type Message struct {
	Text   string `json:"text"`
	UserID string `json:"userId"`
}

// Snapshot is one subscription delivery.
// Exists is false when the group document is missing.
type Snapshot struct {
	Group  Group
	Exists bool
}

// Subscription is a live feed of one group document.
// Updates is closed after Cancel.
type Subscription interface {
	Updates() <-chan Snapshot
	Cancel()
}

// GroupStore is the realtime group store
type GroupStore interface {
	Groups(ctx context.Context) (map[string]Group, error)
	Group(ctx context.Context, id string) (Group, error)
	PutGroup(ctx context.Context, g Group) error
	// Subscribe delivers the current document first and then every change until cancelled
	Subscribe(ctx context.Context, id string) (Subscription, error)
}

// Directory resolves profile images, ok is false when the user has none
type Directory interface {
	ProfileImage(ctx context.Context, userID string) (url string, ok bool, err error)
}

// Prefs is durable per-user storage
type Prefs interface {
	Get(userID, key string) (string, bool, error)
	Set(userID, key, value string) error
}

// KeyCurrentChat holds the id of the last opened group
const KeyCurrentChat = "currentChat"

// View receives everything the session wants to show
type View interface {
	PlaceMarkers(markers []Marker)
	ShowPanel(title string)
	HidePanel()
	RenderTranscript(t Transcript)
	ClearInput()
	InsertNewline()
}

// AppendMessage reads the group, appends msg and writes the whole document back.
// name, lat and lng are carried over unchanged. Concurrent appends race: the last write wins.
func AppendMessage(ctx context.Context, store GroupStore, groupID string, msg Message) error {
	if isBlank(msg.Text) {
		return ErrEmptyMessage
	}

	g, err := store.Group(ctx, groupID)
	if err != nil {
		return err
	}

	texts := make([]Message, 0, len(g.Texts)+1)
	texts = append(texts, g.Texts...)
	g.Texts = append(texts, msg)

	return store.PutGroup(ctx, g)
}
