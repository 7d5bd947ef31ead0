package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"map-chat/internal/chat"
	"map-chat/internal/metrics"
	"map-chat/internal/render"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Server frame types
const (
	frameMarkers    = "markers"
	framePanel      = "panel"
	frameTranscript = "transcript"
	frameInput      = "input"
	frameError      = "error"
	framePong       = "pong"
)

type outFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type panelData struct {
	Visible bool   `json:"visible"`
	Title   string `json:"title,omitempty"`
}

type transcriptData struct {
	Group    string                 `json:"group"`
	Messages []chat.RenderedMessage `json:"messages"`
	HTML     string                 `json:"html"`
}

type inputData struct {
	Clear   bool `json:"clear,omitempty"`
	Newline bool `json:"newline,omitempty"`
}

type errorData struct {
	Message string `json:"message"`
}

// wsConn is one map view: it implements chat.View by queueing frames for the write pump
type wsConn struct {
	logger *zap.SugaredLogger
	conn   *websocket.Conn
	send   chan outFrame
	done   chan struct{}
	once   sync.Once
}

func newWSConn(logger *zap.SugaredLogger, conn *websocket.Conn) *wsConn {
	return &wsConn{
		logger: logger,
		conn:   conn,
		send:   make(chan outFrame, sendBuffer),
		done:   make(chan struct{}),
	}
}

// push never blocks, a client that can not keep up is disconnected
func (c *wsConn) push(f outFrame) {
	select {
	case <-c.done:
	case c.send <- f:
	default:
		c.logger.Warnf("Send buffer is full, dropping connection")
		c.shutdown()
	}
}

func (c *wsConn) shutdown() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *wsConn) pushError(msg string) {
	c.push(outFrame{Type: frameError, Data: errorData{Message: msg}})
}

func (c *wsConn) PlaceMarkers(markers []chat.Marker) {
	c.push(outFrame{Type: frameMarkers, Data: markers})
}

func (c *wsConn) ShowPanel(title string) {
	c.push(outFrame{Type: framePanel, Data: panelData{Visible: true, Title: title}})
}

func (c *wsConn) HidePanel() {
	c.push(outFrame{Type: framePanel, Data: panelData{Visible: false}})
}

func (c *wsConn) RenderTranscript(t chat.Transcript) {
	html, err := render.Transcript(t.Messages)
	if err != nil {
		c.logger.Errorf("Cannot render transcript of group %s: %v", t.GroupID, err)
	}
	messages := t.Messages
	if messages == nil {
		messages = []chat.RenderedMessage{}
	}
	c.push(outFrame{Type: frameTranscript, Data: transcriptData{Group: t.GroupID, Messages: messages, HTML: html}})
}

func (c *wsConn) ClearInput() {
	c.push(outFrame{Type: frameInput, Data: inputData{Clear: true}})
}

func (c *wsConn) InsertNewline() {
	c.push(outFrame{Type: frameInput, Data: inputData{Newline: true}})
}

// serveWS handles websocket connections on "/ws" endpoint
func (h *handler) serveWS(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("Websocket upgrade failed: %v", err)
		return
	}

	logger := h.logger.With("user_id", p.UID)
	c := newWSConn(logger, conn)

	metrics.WebsocketConnections.Inc()
	defer metrics.WebsocketConnections.Dec()

	images := chat.NewImageResolver(logger, h.profiles, chat.NewImageCache(), h.placeholder)
	session := chat.NewSession(logger, p, h.groups, images, h.prefs, c)

	written := make(chan struct{})
	go func() {
		defer close(written)
		c.writePump()
	}()

	ctx := r.Context()
	if err := session.LoadMarkers(ctx); err != nil {
		logger.Errorf("Cannot load markers: %v", err)
		c.pushError("Cannot load chat groups")
	} else if r.URL.Query().Get("resume") == "true" {
		if err := session.Resume(ctx); err != nil {
			logger.Errorf("Cannot resume chat: %v", err)
		}
	}

	c.readPump(ctx, session)

	session.Stop()
	c.shutdown()
	<-written

	logger.Debug("Websocket connection closed")
}

// readPump dispatches client frames until the connection fails or is shut down
func (c *wsConn) readPump(ctx context.Context, session *chat.Session) {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Errorf("Cannot set read deadline: %v", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var parser fastjson.Parser
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warnf("Unexpected websocket close: %v", err)
			}
			return
		}

		select {
		case <-c.done:
			return
		default:
		}

		v, err := parser.ParseBytes(data)
		if err != nil {
			c.pushError("Malformed JSON")
			continue
		}
		c.dispatch(ctx, session, v)
	}
}

func (c *wsConn) dispatch(ctx context.Context, session *chat.Session, v *fastjson.Value) {
	switch t := string(v.GetStringBytes("type")); t {
	case "open":
		err := session.Activate(ctx, string(v.GetStringBytes("group")))
		if err != nil {
			c.reportError(err)
		}
	case "close":
		session.Close()
	case "send":
		if _, err := session.Send(ctx, string(v.GetStringBytes("text"))); err != nil {
			c.reportError(err)
		}
	case "key":
		ev := chat.KeyEvent{Key: string(v.GetStringBytes("key")), Shift: v.GetBool("shift")}
		if _, err := session.HandleKey(ctx, ev, string(v.GetStringBytes("draft"))); err != nil {
			c.reportError(err)
		}
	case "ping":
		c.push(outFrame{Type: framePong})
	default:
		c.pushError("Unknown frame type \"" + t + "\"")
	}
}

func (c *wsConn) reportError(err error) {
	switch {
	case errors.Is(err, chat.ErrUnknownMarker):
		c.pushError("Unknown chat group")
	case errors.Is(err, chat.ErrNoOpenChat):
		c.pushError("No chat is open")
	case errors.Is(err, chat.ErrGroupNotFound):
		c.pushError("Chat group does not exist")
	default:
		c.logger.Error(err)
		c.pushError("Cannot complete the request, try again")
	}
}

// writePump writes queued frames and keeps the connection alive with pings
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f := <-c.send:
			payload, err := json.Marshal(f)
			if err != nil {
				c.logger.Errorf("Cannot marshal %s frame: %v", f.Type, err)
				continue
			}

			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.shutdown()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Warnf("Cannot write %s frame: %v", f.Type, err)
				c.shutdown()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.shutdown()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
