package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"map-chat/internal/auth"
)

type fakeSub struct {
	store   *fakeStore
	groupID string
	ch      chan Snapshot
	once    sync.Once
}

func (s *fakeSub) Updates() <-chan Snapshot { return s.ch }

func (s *fakeSub) Cancel() {
	s.once.Do(func() {
		s.store.mu.Lock()
		defer s.store.mu.Unlock()
		delete(s.store.subs[s.groupID], s)
		close(s.ch)
	})
}

// fakeStore is an in-memory realtime group store
type fakeStore struct {
	mu       sync.Mutex
	groups   map[string]Group
	subs     map[string]map[*fakeSub]struct{}
	puts     int
	putErr   error
	maxLive  map[string]int
	subCalls int
}

func newFakeStore(groups ...Group) *fakeStore {
	s := &fakeStore{
		groups:  make(map[string]Group),
		subs:    make(map[string]map[*fakeSub]struct{}),
		maxLive: make(map[string]int),
	}
	for _, g := range groups {
		s.groups[g.ID] = g
	}
	return s
}

func (s *fakeStore) Groups(context.Context) (map[string]Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Group, len(s.groups))
	for id, g := range s.groups {
		out[id] = g
	}
	return out, nil
}

func (s *fakeStore) Group(_ context.Context, id string) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return Group{}, ErrGroupNotFound
	}
	return g, nil
}

func (s *fakeStore) PutGroup(_ context.Context, g Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.groups[g.ID] = g
	for sub := range s.subs[g.ID] {
		sub.ch <- Snapshot{Group: g, Exists: true}
	}
	return nil
}

func (s *fakeStore) Subscribe(_ context.Context, id string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subCalls++
	sub := &fakeSub{store: s, groupID: id, ch: make(chan Snapshot, 64)}
	if s.subs[id] == nil {
		s.subs[id] = make(map[*fakeSub]struct{})
	}
	s.subs[id][sub] = struct{}{}
	if n := len(s.subs[id]); n > s.maxLive[id] {
		s.maxLive[id] = n
	}
	g, ok := s.groups[id]
	sub.ch <- Snapshot{Group: g, Exists: ok}
	return sub, nil
}

func (s *fakeStore) live(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[id])
}

func (s *fakeStore) group(id string) Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[id]
}

// fakeDirectory counts lookups per user; gate, when set, blocks every lookup until closed
type fakeDirectory struct {
	mu     sync.Mutex
	images map[string]string
	calls  map[string]int
	gate   chan struct{}
	err    error
}

func newFakeDirectory(images map[string]string) *fakeDirectory {
	return &fakeDirectory{images: images, calls: make(map[string]int)}
}

func (d *fakeDirectory) ProfileImage(_ context.Context, userID string) (string, bool, error) {
	d.mu.Lock()
	d.calls[userID]++
	gate, err := d.gate, d.err
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	url, ok := d.images[userID]
	return url, ok, nil
}

func (d *fakeDirectory) callsFor(userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[userID]
}

type fakePrefs struct {
	mu sync.Mutex
	m  map[string]string
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{m: make(map[string]string)}
}

func (p *fakePrefs) Get(userID, key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[userID+"/"+key]
	return v, ok, nil
}

func (p *fakePrefs) Set(userID, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[userID+"/"+key] = value
	return nil
}

// fakeView records everything the session shows
type fakeView struct {
	mu       sync.Mutex
	markers  []Marker
	panel    bool
	title    string
	last     *Transcript
	cleared  int
	newlines int
	renders  chan Transcript
}

func newFakeView() *fakeView {
	return &fakeView{renders: make(chan Transcript, 64)}
}

func (v *fakeView) PlaceMarkers(markers []Marker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markers = markers
}

func (v *fakeView) ShowPanel(title string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panel, v.title = true, title
}

func (v *fakeView) HidePanel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panel = false
}

func (v *fakeView) RenderTranscript(t Transcript) {
	v.mu.Lock()
	v.last = &t
	v.mu.Unlock()
	v.renders <- t
}

func (v *fakeView) ClearInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared++
}

func (v *fakeView) InsertNewline() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.newlines++
}

func (v *fakeView) current() *Transcript {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}

// nextRender waits for the next transcript render
func (v *fakeView) nextRender(t *testing.T) Transcript {
	t.Helper()
	select {
	case tr := <-v.renders:
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("transcript was not rendered")
		return Transcript{}
	}
}

// noRender asserts that nothing is rendered for a while
func (v *fakeView) noRender(t *testing.T) {
	t.Helper()
	select {
	case tr := <-v.renders:
		t.Fatalf("unexpected render of %s", tr.GroupID)
	case <-time.After(100 * time.Millisecond):
	}
}

type sessionFixture struct {
	store   *fakeStore
	dir     *fakeDirectory
	prefs   *fakePrefs
	view    *fakeView
	session *Session
}

func newFixture(t *testing.T, self auth.Principal, dir *fakeDirectory, groups ...Group) *sessionFixture {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	f := &sessionFixture{
		store: newFakeStore(groups...),
		dir:   dir,
		prefs: newFakePrefs(),
		view:  newFakeView(),
	}
	images := NewImageResolver(logger.Sugar(), dir, NewImageCache(), "")
	f.session = NewSession(logger.Sugar(), self, f.store, images, f.prefs, f.view)
	t.Cleanup(f.session.Stop)

	require.NoError(t, f.session.LoadMarkers(context.Background()))

	return f
}

var errDirectoryDown = errors.New("directory down")
