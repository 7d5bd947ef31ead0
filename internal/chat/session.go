package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"map-chat/internal/auth"
	"map-chat/internal/metrics"
)

// Session is the chat controller of one map view.
// It is either closed or open on exactly one group, and holds at most one live subscription.
type Session struct {
	logger    *zap.SugaredLogger
	principal auth.Principal
	groups    GroupStore
	images    *ImageResolver
	prefs     Prefs
	view      View

	mu      sync.Mutex
	markers *Registry
	open    string
	gen     uint64
	stop    func()
	stopped bool
	pumps   sync.WaitGroup
}

func NewSession(logger *zap.SugaredLogger, principal auth.Principal, groups GroupStore, images *ImageResolver, prefs Prefs, view View) *Session {
	return &Session{
		logger:    logger.With("user_id", principal.UID),
		principal: principal,
		groups:    groups,
		images:    images,
		prefs:     prefs,
		view:      view,
	}
}

func (s *Session) Principal() auth.Principal {
	return s.principal
}

// LoadMarkers reads all groups once and places one marker per group on the view
func (s *Session) LoadMarkers(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.markers != nil
	s.mu.Unlock()
	if loaded {
		return ErrMarkersLoaded
	}

	groups, err := s.groups.Groups(ctx)
	if err != nil {
		return err
	}
	registry := LoadMarkers(groups)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markers != nil {
		return ErrMarkersLoaded
	}
	s.markers = registry
	s.view.PlaceMarkers(registry.Markers())

	s.logger.Debugf("Placed %d markers", registry.Len())

	return nil
}

// Markers returns the loaded marker registry, nil before LoadMarkers
func (s *Session) Markers() *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers
}

// Current returns the id of the open group
func (s *Session) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open, s.open != ""
}

// Activate opens the chat of the marker bound to groupID.
// Any previous subscription, including one on the same group, is released first.
func (s *Session) Activate(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSessionStopped
	}

	marker, ok := s.markers.Lookup(groupID)
	if !ok {
		return ErrUnknownMarker
	}

	if err := s.prefs.Set(s.principal.UID, KeyCurrentChat, groupID); err != nil {
		s.logger.Warnf("Cannot persist current chat %s: %v", groupID, err)
	}

	s.release()
	s.open = ""

	// the subscription outlives the request that opened it
	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub, err := s.groups.Subscribe(pumpCtx, groupID)
	if err != nil {
		cancel()
		return err
	}
	metrics.ActiveSubscriptions.Inc()

	s.gen++
	gen := s.gen
	s.open = groupID
	s.stop = func() {
		cancel()
		sub.Cancel()
		metrics.ActiveSubscriptions.Dec()
	}

	s.pumps.Add(1)
	go s.pump(pumpCtx, gen, groupID, sub)

	s.view.ShowPanel(marker.DisplayName)

	s.logger.Debugf("Opened chat %s", groupID)

	return nil
}

// Close releases the subscription and hides the panel.
// The persisted current chat is left untouched so it can be resumed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open != "" {
		s.logger.Debugf("Closed chat %s", s.open)
	}
	s.release()
	s.open = ""
	s.view.HidePanel()
}

// Resume reopens the persisted current chat if it still has a marker
func (s *Session) Resume(ctx context.Context) error {
	groupID, ok, err := s.prefs.Get(s.principal.UID, KeyCurrentChat)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if _, known := s.Markers().Lookup(groupID); !known {
		s.logger.Debugf("Not resuming chat %s, marker is gone", groupID)
		return nil
	}

	return s.Activate(ctx, groupID)
}

// Send appends text to the open group as the session principal.
// Blank text is a no-op and reports sent == false without error.
func (s *Session) Send(ctx context.Context, text string) (bool, error) {
	if isBlank(text) {
		return false, nil
	}

	groupID, ok := s.Current()
	if !ok {
		return false, ErrNoOpenChat
	}

	err := AppendMessage(ctx, s.groups, groupID, Message{Text: text, UserID: s.principal.UID})
	if err != nil {
		return false, err
	}
	metrics.MessagesSent.Inc()

	s.view.ClearInput()

	return true, nil
}

// HandleKey applies a key press in the message box holding draft
func (s *Session) HandleKey(ctx context.Context, ev KeyEvent, draft string) (KeyAction, error) {
	action := InterpretKey(ev)
	switch action {
	case KeySend:
		_, err := s.Send(ctx, draft)
		return action, err
	case KeyNewline:
		s.view.InsertNewline()
	}
	return action, nil
}

// Stop releases everything and waits for the pump to exit, the session is unusable afterwards
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.release()
	s.open = ""
	s.mu.Unlock()

	s.pumps.Wait()
}

// release cancels the live subscription, callers hold s.mu
func (s *Session) release() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	// renders computed for the released subscription are dropped
	s.gen++
}

func (s *Session) pump(ctx context.Context, gen uint64, groupID string, sub Subscription) {
	defer s.pumps.Done()

	updates := sub.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}

			var messages []Message
			if snap.Exists {
				messages = snap.Group.Texts
			}
			rendered := ResolveTranscript(ctx, messages, s.images, s.principal.UID)

			s.mu.Lock()
			if s.gen == gen {
				s.view.RenderTranscript(Transcript{GroupID: groupID, Messages: rendered})
				metrics.TranscriptRenders.Inc()
			}
			s.mu.Unlock()
		}
	}
}
