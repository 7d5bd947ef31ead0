package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"map-chat/internal/chat"
	"map-chat/internal/storage"
)

type inFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, e *testEnv, query string) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(e.handler)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) inFrame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var f inFrame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

// readFrames reads n frames whose relative order is not fixed and indexes them by type
func readFrames(t *testing.T, conn *websocket.Conn, n int) map[string]inFrame {
	t.Helper()

	frames := make(map[string]inFrame, n)
	for i := 0; i < n; i++ {
		f := readFrame(t, conn)
		frames[f.Type] = f
	}
	return frames
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func decodeTranscript(t *testing.T, f inFrame) transcriptData {
	t.Helper()
	require.Equal(t, frameTranscript, f.Type)

	var td transcriptData
	require.NoError(t, json.Unmarshal(f.Data, &td))
	return td
}

func TestWSRequiresToken(t *testing.T) {
	e := bootstrapEnv(t)
	ts := httptest.NewServer(e.handler)
	defer ts.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.Equal(t, 401, resp.StatusCode)
}

func TestWSChatSession(t *testing.T) {
	e := bootstrapEnv(t, storage.Group{ID: "lobby", Name: "Lobby", Lat: 52.5, Lng: 13.3, Texts: []storage.Text{}})
	uid, token := e.signUp(t)
	conn := dialWS(t, e, "token="+token)

	f := readFrame(t, conn)
	require.Equal(t, frameMarkers, f.Type)
	require.JSONEq(t, `[{"id":"lobby","chatName":"Lobby","location":[52.5,13.3]}]`, string(f.Data))

	writeFrame(t, conn, `{"type":"open","group":"lobby"}`)

	f = readFrame(t, conn)
	require.Equal(t, framePanel, f.Type)
	require.JSONEq(t, `{"visible":true,"title":"Lobby"}`, string(f.Data))

	td := decodeTranscript(t, readFrame(t, conn))
	require.Equal(t, "lobby", td.Group)
	require.Empty(t, td.Messages)

	writeFrame(t, conn, `{"type":"send","text":"hi"}`)

	frames := readFrames(t, conn, 2)
	require.JSONEq(t, `{"clear":true}`, string(frames[frameInput].Data))
	td = decodeTranscript(t, frames[frameTranscript])
	require.Equal(t, []chat.RenderedMessage{
		{Text: "hi", UserID: uid, Image: chat.DefaultProfileImage, Variant: chat.Sent},
	}, td.Messages)
	require.Contains(t, td.HTML, `class="text-list-sent"`)
	require.Contains(t, td.HTML, "<p>hi</p>")

	current, ok, err := e.prefs.Get(uid, chat.KeyCurrentChat)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "lobby", current)

	writeFrame(t, conn, `{"type":"close"}`)
	f = readFrame(t, conn)
	require.Equal(t, framePanel, f.Type)
	require.JSONEq(t, `{"visible":false}`, string(f.Data))
}

func TestWSKeys(t *testing.T) {
	e := bootstrapEnv(t, storage.Group{ID: "lobby", Name: "Lobby"})
	uid, token := e.signUp(t)
	conn := dialWS(t, e, "token="+token)
	readFrame(t, conn)

	writeFrame(t, conn, `{"type":"open","group":"lobby"}`)
	readFrame(t, conn)
	readFrame(t, conn)

	writeFrame(t, conn, `{"type":"key","key":"Enter","shift":true,"draft":"line"}`)
	f := readFrame(t, conn)
	require.Equal(t, frameInput, f.Type)
	require.JSONEq(t, `{"newline":true}`, string(f.Data))

	writeFrame(t, conn, `{"type":"key","key":"Enter","shift":false,"draft":"line\nnext"}`)
	frames := readFrames(t, conn, 2)
	require.Contains(t, frames, frameInput)
	require.Contains(t, frames, frameTranscript)

	require.Equal(t, []storage.Text{{Text: "line\nnext", UserID: uid}}, e.backend.group("lobby").Texts)
}

func TestWSErrors(t *testing.T) {
	e := bootstrapEnv(t, storage.Group{ID: "lobby", Name: "Lobby"})
	_, token := e.signUp(t)
	conn := dialWS(t, e, "token="+token)
	readFrame(t, conn)

	cases := []struct {
		frame   string
		message string
	}{
		{`{"type":"open","group":"nope"}`, "Unknown chat group"},
		{`{"type":"send","text":"hi"}`, "No chat is open"},
		{`{"type":"dance"}`, `Unknown frame type "dance"`},
		{`{"type":`, "Malformed JSON"},
	}
	for _, c := range cases {
		writeFrame(t, conn, c.frame)

		f := readFrame(t, conn)
		require.Equal(t, frameError, f.Type, c.frame)
		require.JSONEq(t, `{"message":"`+strings.ReplaceAll(c.message, `"`, `\"`)+`"}`, string(f.Data), c.frame)
	}

	writeFrame(t, conn, `{"type":"ping"}`)
	require.Equal(t, framePong, readFrame(t, conn).Type)
}

func TestWSResume(t *testing.T) {
	e := bootstrapEnv(t,
		storage.Group{ID: "lobby", Name: "Lobby"},
		storage.Group{ID: "cafe", Name: "Cafe", Texts: []storage.Text{{Text: "bonjour", UserID: "someone"}}},
	)
	uid, token := e.signUp(t)
	require.NoError(t, e.prefs.Set(uid, chat.KeyCurrentChat, "cafe"))

	conn := dialWS(t, e, "token="+token+"&resume=true")

	require.Equal(t, frameMarkers, readFrame(t, conn).Type)

	f := readFrame(t, conn)
	require.Equal(t, framePanel, f.Type)
	require.JSONEq(t, `{"visible":true,"title":"Cafe"}`, string(f.Data))

	td := decodeTranscript(t, readFrame(t, conn))
	require.Equal(t, "cafe", td.Group)
	require.Equal(t, []chat.RenderedMessage{
		{Text: "bonjour", UserID: "someone", Image: chat.DefaultProfileImage, Variant: chat.Received},
	}, td.Messages)
}

func TestWSProfileImagesInTranscript(t *testing.T) {
	e := bootstrapEnv(t, storage.Group{ID: "lobby", Name: "Lobby", Texts: []storage.Text{{Text: "yo", UserID: "bob"}}})
	e.profiles.images["bob"] = "https://img.example.com/bob.png"
	_, token := e.signUp(t)
	conn := dialWS(t, e, "token="+token)
	readFrame(t, conn)

	writeFrame(t, conn, `{"type":"open","group":"lobby"}`)
	readFrame(t, conn)

	td := decodeTranscript(t, readFrame(t, conn))
	require.Equal(t, "https://img.example.com/bob.png", td.Messages[0].Image)
	require.Equal(t, chat.Received, td.Messages[0].Variant)
	require.Contains(t, td.HTML, `src="https://img.example.com/bob.png"`)
}
