package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"map-chat/internal/metrics"
)

// DefaultProfileImage is shown for senders without a profile image
const DefaultProfileImage = "/assets/default-profile.png"

// ImageResolver looks profile images up through the cache, falling back to the directory.
// Concurrent lookups of the same uncached user share one directory call.
type ImageResolver struct {
	logger      *zap.SugaredLogger
	dir         Directory
	cache       *ImageCache
	placeholder string
	flight      singleflight.Group
}

func NewImageResolver(logger *zap.SugaredLogger, dir Directory, cache *ImageCache, placeholder string) *ImageResolver {
	if placeholder == "" {
		placeholder = DefaultProfileImage
	}
	return &ImageResolver{
		logger:      logger,
		dir:         dir,
		cache:       cache,
		placeholder: placeholder,
	}
}

func (r *ImageResolver) Cache() *ImageCache {
	return r.cache
}

func (r *ImageResolver) Placeholder() string {
	return r.placeholder
}

// Resolve returns the cached or freshly fetched image of userID.
// Directory errors are returned and not cached.
func (r *ImageResolver) Resolve(ctx context.Context, userID string) (string, ImageState, error) {
	if ref, state := r.cache.Get(userID); state != Unresolved {
		return ref, state, nil
	}

	v, err, _ := r.flight.Do(userID, func() (interface{}, error) {
		// a flight that finished between the check above and Do already filled the cache
		if ref, state := r.cache.Get(userID); state != Unresolved {
			return imageEntry{ref: ref, state: state}, nil
		}

		url, ok, err := r.dir.ProfileImage(ctx, userID)
		if err != nil {
			metrics.DirectoryLookups.WithLabelValues(metrics.LookupError).Inc()
			return nil, err
		}

		if !ok || url == "" {
			metrics.DirectoryLookups.WithLabelValues(metrics.LookupAbsent).Inc()
			r.cache.SetAbsent(userID)
			return imageEntry{state: Absent}, nil
		}

		metrics.DirectoryLookups.WithLabelValues(metrics.LookupFound).Inc()
		r.cache.Set(userID, url)
		return imageEntry{ref: url, state: Present}, nil
	})
	if err != nil {
		return "", Unresolved, err
	}

	e := v.(imageEntry)
	return e.ref, e.state, nil
}

// ResolveAll resolves every id concurrently and waits for all of them
func (r *ImageResolver) ResolveAll(ctx context.Context, userIDs []string) {
	var wg sync.WaitGroup
	for _, id := range userIDs {
		if r.cache.Has(id) {
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, _, err := r.Resolve(ctx, id); err != nil {
				r.logger.Errorf("Cannot resolve profile image of user %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()
}

// Image returns the cached image of userID or the placeholder
func (r *ImageResolver) Image(userID string) string {
	if ref, state := r.cache.Get(userID); state == Present {
		return ref
	}
	return r.placeholder
}
