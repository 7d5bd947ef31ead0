package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveTranscriptVariantsAndOrder(t *testing.T) {
	dir := newFakeDirectory(map[string]string{"u2": "https://img/u2.png"})
	r := newResolver(t, dir)

	messages := []Message{
		{Text: "hello", UserID: "u2"},
		{Text: "hi", UserID: "u1"},
		{Text: "hello", UserID: "u2"},
		{Text: "who?", UserID: "u3"},
	}

	rendered := ResolveTranscript(context.Background(), messages, r, "u1")

	require.Equal(t, []RenderedMessage{
		{Text: "hello", UserID: "u2", Image: "https://img/u2.png", Variant: Received},
		{Text: "hi", UserID: "u1", Image: "/default.png", Variant: Sent},
		{Text: "hello", UserID: "u2", Image: "https://img/u2.png", Variant: Received},
		{Text: "who?", UserID: "u3", Image: "/default.png", Variant: Received},
	}, rendered)
}

func TestResolveTranscriptEmpty(t *testing.T) {
	r := newResolver(t, newFakeDirectory(nil))

	rendered := ResolveTranscript(context.Background(), nil, r, "u1")
	require.Empty(t, rendered)
}

func TestResolveTranscriptDirectoryError(t *testing.T) {
	dir := newFakeDirectory(map[string]string{"u2": "https://img/u2.png"})
	dir.err = errDirectoryDown
	r := newResolver(t, dir)

	rendered := ResolveTranscript(context.Background(), []Message{{Text: "x", UserID: "u2"}}, r, "u1")
	require.Equal(t, "/default.png", rendered[0].Image)
	require.False(t, r.Cache().Has("u2"))
}

func TestLoadMarkersEmpty(t *testing.T) {
	r := LoadMarkers(map[string]Group{})
	require.Equal(t, 0, r.Len())
	require.Empty(t, r.Markers())

	_, ok := r.Lookup("g1")
	require.False(t, ok)
}

func TestLoadMarkersLookup(t *testing.T) {
	r := LoadMarkers(map[string]Group{
		"b": {ID: "b", Name: "Second", Lat: 1, Lng: 2},
		"a": {ID: "a", Name: "First", Lat: 3, Lng: 4},
	})

	require.Equal(t, []Marker{
		{GroupID: "a", DisplayName: "First", Location: Location{3, 4}},
		{GroupID: "b", DisplayName: "Second", Location: Location{1, 2}},
	}, r.Markers())

	m, ok := r.Lookup("b")
	require.True(t, ok)
	require.Equal(t, "Second", m.DisplayName)

	var nilRegistry *Registry
	_, ok = nilRegistry.Lookup("a")
	require.False(t, ok)
}

func TestInterpretKey(t *testing.T) {
	require.Equal(t, KeySend, InterpretKey(KeyEvent{Key: "Enter"}))
	require.Equal(t, KeyNewline, InterpretKey(KeyEvent{Key: "Enter", Shift: true}))
	require.Equal(t, KeyPassThrough, InterpretKey(KeyEvent{Key: "a"}))
	require.Equal(t, KeyPassThrough, InterpretKey(KeyEvent{Key: "a", Shift: true}))
}

func TestAppendMessage(t *testing.T) {
	store := newFakeStore(Group{ID: "g1", Name: "Lobby", Lat: 1, Lng: 2})

	require.Equal(t, ErrEmptyMessage, AppendMessage(context.Background(), store, "g1", Message{Text: "  ", UserID: "u1"}))
	require.Equal(t, ErrGroupNotFound, AppendMessage(context.Background(), store, "nope", Message{Text: "hi", UserID: "u1"}))

	require.NoError(t, AppendMessage(context.Background(), store, "g1", Message{Text: "hi", UserID: "u1"}))
	require.NoError(t, AppendMessage(context.Background(), store, "g1", Message{Text: "yo", UserID: "u2"}))
	require.Equal(t, Group{ID: "g1", Name: "Lobby", Lat: 1, Lng: 2, Texts: []Message{{Text: "hi", UserID: "u1"}, {Text: "yo", UserID: "u2"}}}, store.group("g1"))
}
