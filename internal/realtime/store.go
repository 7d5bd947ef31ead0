// Package realtime turns the group table into a live document store:
// writes are announced through Postgres notifications and every instance
// pushes fresh snapshots to its local subscribers.
package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"map-chat/internal/chat"
	"map-chat/internal/metrics"
	"map-chat/internal/storage"
)

// Backend is the durable group storage with change notifications
type Backend interface {
	Groups(ctx context.Context) (map[string]storage.Group, error)
	Group(ctx context.Context, id string) (storage.Group, error)
	PutGroup(ctx context.Context, g storage.Group, origin string) error
	Listen(ctx context.Context, fn func(storage.Change)) error
}

// GroupStore implements chat.GroupStore on top of a Backend
type GroupStore struct {
	logger  *zap.SugaredLogger
	backend Backend
	broker  *Broker
	origin  string
	retry   time.Duration
}

type Option interface {
	apply(*GroupStore)
}

type optionFunc func(*GroupStore)

func (f optionFunc) apply(s *GroupStore) {
	f(s)
}

// RetryInterval sets the pause before listening again after the notification connection fails
func RetryInterval(d time.Duration) Option {
	return optionFunc(func(s *GroupStore) {
		s.retry = d
	})
}

func NewGroupStore(logger *zap.SugaredLogger, backend Backend, opts ...Option) *GroupStore {
	s := &GroupStore{
		logger:  logger,
		backend: backend,
		broker:  NewBroker(),
		origin:  xid.New().String(),
		retry:   time.Second,
	}

	for _, opt := range opts {
		opt.apply(s)
	}

	return s
}

// Origin identifies writes of this instance in change notifications
func (s *GroupStore) Origin() string {
	return s.origin
}

func (s *GroupStore) Groups(ctx context.Context) (map[string]chat.Group, error) {
	groups, err := s.backend.Groups(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]chat.Group, len(groups))
	for id, g := range groups {
		out[id] = toChat(g)
	}
	return out, nil
}

func (s *GroupStore) Group(ctx context.Context, id string) (chat.Group, error) {
	g, err := s.backend.Group(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrGroupNotExist) {
			return chat.Group{}, chat.ErrGroupNotFound
		}
		return chat.Group{}, err
	}
	return toChat(g), nil
}

// PutGroup writes the whole document and publishes it to local subscribers
func (s *GroupStore) PutGroup(ctx context.Context, g chat.Group) error {
	if err := s.backend.PutGroup(ctx, toStorage(g), s.origin); err != nil {
		return err
	}
	s.broker.Publish(g.ID, chat.Snapshot{Group: g, Exists: true})
	return nil
}

// Subscribe delivers the current document first and then every later write
func (s *GroupStore) Subscribe(ctx context.Context, id string) (chat.Subscription, error) {
	sub, seq := s.broker.subscribe(id)

	snap, err := s.snapshot(ctx, id)
	if err != nil {
		sub.Cancel()
		return nil, err
	}
	s.broker.offer(sub, snap, seq)

	return sub, nil
}

// Run listens for change notifications of other instances until ctx is done
func (s *GroupStore) Run(ctx context.Context) error {
	for {
		err := s.backend.Listen(ctx, func(c storage.Change) {
			s.handleChange(ctx, c)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Errorf("Listening for group changes failed, retrying in %s: %v", s.retry, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retry):
		}
	}
}

func (s *GroupStore) handleChange(ctx context.Context, c storage.Change) {
	if c.Origin == s.origin {
		metrics.StoreNotifications.WithLabelValues(metrics.OriginLocal).Inc()
		return
	}
	metrics.StoreNotifications.WithLabelValues(metrics.OriginRemote).Inc()

	if s.broker.Subscribers(c.GroupID) == 0 {
		return
	}

	snap, err := s.snapshot(ctx, c.GroupID)
	if err != nil {
		s.logger.Errorf("Cannot reload group %s: %v", c.GroupID, err)
		return
	}
	s.broker.Publish(c.GroupID, snap)
}

func (s *GroupStore) snapshot(ctx context.Context, id string) (chat.Snapshot, error) {
	g, err := s.backend.Group(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrGroupNotExist) {
			return chat.Snapshot{Group: chat.Group{ID: id}}, nil
		}
		return chat.Snapshot{}, err
	}
	return chat.Snapshot{Group: toChat(g), Exists: true}, nil
}

func toChat(g storage.Group) chat.Group {
	out := chat.Group{ID: g.ID, Name: g.Name, Lat: g.Lat, Lng: g.Lng}
	if g.Texts != nil {
		out.Texts = make([]chat.Message, len(g.Texts))
		for i, t := range g.Texts {
			out.Texts[i] = chat.Message{Text: t.Text, UserID: t.UserID}
		}
	}
	return out
}

func toStorage(g chat.Group) storage.Group {
	out := storage.Group{ID: g.ID, Name: g.Name, Lat: g.Lat, Lng: g.Lng}
	if g.Texts != nil {
		out.Texts = make([]storage.Text, len(g.Texts))
		for i, m := range g.Texts {
			out.Texts[i] = storage.Text{Text: m.Text, UserID: m.UserID}
		}
	}
	return out
}
