package storage

import (
	"context"
	"errors"

	"github.com/valyala/fastjson"
)

// Listen holds one pool connection and calls fn for every group_changes notification until ctx is done.
// Malformed payloads are logged and skipped.
func (s *Store) Listen(ctx context.Context, fn func(Change)) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "listen "+ChangesChannel); err != nil {
		return err
	}
	s.logger.Infof("Listening for notifications on %s", ChangesChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		change, err := parseChange(n.Payload)
		if err != nil {
			s.logger.Warnf("Skipping malformed notification %q: %v", n.Payload, err)
			continue
		}

		fn(change)
	}
}

func encodeChange(c Change) (string, error) {
	if c.GroupID == "" {
		return "", errors.New("change without group id")
	}

	var a fastjson.Arena
	o := a.NewObject()
	o.Set("group", a.NewString(c.GroupID))
	o.Set("origin", a.NewString(c.Origin))

	return string(o.MarshalTo(nil)), nil
}

func parseChange(payload string) (Change, error) {
	var p fastjson.Parser
	v, err := p.Parse(payload)
	if err != nil {
		return Change{}, err
	}

	group := string(v.GetStringBytes("group"))
	if group == "" {
		return Change{}, errors.New("missing field \"group\"")
	}

	return Change{
		GroupID: group,
		Origin:  string(v.GetStringBytes("origin")),
	}, nil
}
