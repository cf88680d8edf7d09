// SPDX-License-Identifier: MIT

// Package guide bulk-fetches and caches program listings. The cache is the
// one deliberate cache in the connector: everything else reloads from the
// server, guide data is refreshed at most once per TTL.
package guide

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jfpvr/jfpvr/internal/handle"
	"github.com/jfpvr/jfpvr/internal/jellyfin"
	"github.com/jfpvr/jfpvr/internal/log"
)

// TTL is the maximum age of the cached guide before a query forces a new
// bulk fetch.
const TTL = 3600 * time.Second

// Entry is one program-guide entry, stamped with the channel handle the
// caller asked about (the storage key is the volatile server channel id).
type Entry struct {
	BroadcastID    int32
	ChannelHandle  int32
	Title          string
	Synopsis       string
	EpisodeTitle   string
	Start          time.Time
	End            time.Time
	ParentalRating int
	SeriesIndex    int
}

// HandleResolver resolves host handles to server channel ids.
type HandleResolver interface {
	ChannelID(h int32) (string, bool)
}

// Cache holds the program guide grouped by server channel id.
type Cache struct {
	client   *jellyfin.Client
	userID   string
	resolver HandleResolver
	clock    jellyfin.Clock
	log      zerolog.Logger

	sf singleflight.Group

	mu          sync.RWMutex
	entries     map[string][]Entry
	refreshedAt time.Time
}

// New creates an empty guide cache.
func New(client *jellyfin.Client, userID string, resolver HandleResolver, clock jellyfin.Clock) *Cache {
	if clock == nil {
		clock = jellyfin.RealClock{}
	}
	return &Cache{
		client:   client,
		userID:   userID,
		resolver: resolver,
		clock:    clock,
		log:      log.WithComponent("guide"),
	}
}

// EntriesFor returns the cached entries for one channel in the requested
// window, refreshing the cache first when empty or stale. An unresolvable
// handle yields an empty, non-error result: a channel without guide data
// is indistinguishable from an unknown handle at this boundary.
func (c *Cache) EntriesFor(ctx context.Context, channelHandle int32, start, end time.Time) ([]Entry, error) {
	channelID, ok := c.resolver.ChannelID(channelHandle)
	if !ok {
		return nil, nil
	}
	if err := c.ensureFresh(ctx, start, end); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	cached := c.entries[channelID]
	out := make([]Entry, len(cached))
	for i, e := range cached {
		e.ChannelHandle = channelHandle
		out[i] = e
	}
	return out, nil
}

// ensureFresh issues at most one bulk fetch, no matter how many callers
// arrive while the cache is stale.
func (c *Cache) ensureFresh(ctx context.Context, start, end time.Time) error {
	if c.fresh() {
		return nil
	}
	_, err, _ := c.sf.Do("refresh", func() (any, error) {
		if c.fresh() {
			return nil, nil
		}
		return nil, c.refresh(ctx, start, end)
	})
	return err
}

func (c *Cache) fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.refreshedAt.IsZero() {
		return false
	}
	return c.clock.Now().Sub(c.refreshedAt) <= TTL
}

// refresh replaces the entire cache with one bulk listing covering the
// window for all channels. Items missing an id or channel id are dropped.
func (c *Cache) refresh(ctx context.Context, start, end time.Time) error {
	query := url.Values{
		"userId":       {c.userID},
		"minStartDate": {jellyfin.FormatTime(start)},
		"maxStartDate": {jellyfin.FormatTime(end)},
	}
	var page jellyfin.ItemsPage[jellyfin.ProgramItem]
	if err := c.client.Get(ctx, "/LiveTv/Programs", query, &page); err != nil {
		c.log.Error().Err(err).Msg("failed to load guide data")
		return err
	}

	entries := make(map[string][]Entry)
	dropped := 0
	for _, item := range page.Items {
		if item.ID == "" || item.ChannelID == "" {
			dropped++
			continue
		}
		e := Entry{
			// Stable across refetches: the same program keeps its id.
			BroadcastID:  handle.Derive(item.ID),
			Title:        item.Name,
			Synopsis:     item.Overview,
			EpisodeTitle: item.EpisodeTitle,
		}
		if t, ok := jellyfin.ParseTime(item.StartDate); ok {
			e.Start = t
		}
		if t, ok := jellyfin.ParseTime(item.EndDate); ok {
			e.End = t
		}
		e.ParentalRating = item.ParentalRating
		if item.SeriesID != "" {
			e.SeriesIndex = item.IndexNumber
		}
		entries[item.ChannelID] = append(entries[item.ChannelID], e)
	}
	if dropped > 0 {
		c.log.Warn().Int("dropped", dropped).Msg("guide items missing ids were dropped")
	}

	c.mu.Lock()
	c.entries = entries
	c.refreshedAt = c.clock.Now()
	c.mu.Unlock()

	c.log.Info().Int("channels", len(entries)).Msg("guide cache refreshed")
	return nil
}

// Invalidate drops the cache so the next query refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = nil
	c.refreshedAt = time.Time{}
	c.mu.Unlock()
}
