package guide

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfpvr/jfpvr/internal/handle"
	"github.com/jfpvr/jfpvr/internal/jellyfin"
)

type staticResolver map[int32]string

func (r staticResolver) ChannelID(h int32) (string, bool) {
	id, ok := r[h]
	return id, ok
}

func newTestCache(t *testing.T) (*Cache, *jellyfin.MockServer, *jellyfin.MockClock, staticResolver) {
	t.Helper()
	srv := jellyfin.NewMockServer()
	t.Cleanup(srv.Close)
	client := jellyfin.New(srv.URL, srv.Token, jellyfin.DefaultIdentity("test-device"))
	clock := jellyfin.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	resolver := staticResolver{7: "chan-a", 8: "chan-b"}
	return New(client, srv.UserID, resolver, clock), srv, clock, resolver
}

func window() (time.Time, time.Time) {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}

func TestEntriesForGroupsByChannel(t *testing.T) {
	c, srv, _, _ := newTestCache(t)
	srv.Programs = []map[string]any{
		{"Id": "p1", "ChannelId": "chan-a", "Name": "Morning News",
			"StartDate": "2026-03-01T08:00:00.0000000Z", "EndDate": "2026-03-01T09:00:00.0000000Z",
			"Overview": "headlines"},
		{"Id": "p2", "ChannelId": "chan-b", "Name": "Other Show"},
		{"Id": "p3", "ChannelId": "chan-a", "Name": "Midday News",
			"EpisodeTitle": "Episode One", "SeriesId": "s1", "IndexNumber": 4, "ParentalRating": 12},
	}

	start, end := window()
	entries, err := c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Morning News", entries[0].Title)
	assert.Equal(t, "headlines", entries[0].Synopsis)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), entries[0].Start)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), entries[0].End)
	assert.Equal(t, int32(7), entries[0].ChannelHandle, "caller handle is stamped in")

	assert.Equal(t, "Episode One", entries[1].EpisodeTitle)
	assert.Equal(t, 4, entries[1].SeriesIndex)
	assert.Equal(t, 12, entries[1].ParentalRating)

	assert.Equal(t, handle.Derive("p1"), entries[0].BroadcastID, "broadcast id is the stable item hash")
}

func TestEntriesForUnknownHandle(t *testing.T) {
	c, srv, _, _ := newTestCache(t)
	srv.Programs = []map[string]any{{"Id": "p1", "ChannelId": "chan-a", "Name": "X"}}

	start, end := window()
	entries, err := c.EntriesFor(context.Background(), 999, start, end)
	assert.NoError(t, err, "unknown handle is a success with no data")
	assert.Empty(t, entries)
	assert.Equal(t, 0, srv.Hits("/LiveTv/Programs"), "no fetch for unresolvable handles")
}

func TestEntriesForChannelWithoutData(t *testing.T) {
	c, srv, _, _ := newTestCache(t)
	srv.Programs = []map[string]any{{"Id": "p1", "ChannelId": "chan-a", "Name": "X"}}

	start, end := window()
	entries, err := c.EntriesFor(context.Background(), 8, start, end)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTTLBoundary(t *testing.T) {
	c, srv, clock, _ := newTestCache(t)
	srv.Programs = []map[string]any{{"Id": "p1", "ChannelId": "chan-a", "Name": "X"}}
	start, end := window()

	_, err := c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)
	require.Equal(t, 1, srv.Hits("/LiveTv/Programs"))

	clock.Advance(3599 * time.Second)
	_, err = c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Hits("/LiveTv/Programs"), "one second inside the TTL: no refetch")

	clock.Advance(2 * time.Second)
	_, err = c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Hits("/LiveTv/Programs"), "past the TTL: refetch")
}

func TestRefreshReplacesCacheWholesale(t *testing.T) {
	c, srv, clock, _ := newTestCache(t)
	srv.Programs = []map[string]any{{"Id": "p1", "ChannelId": "chan-a", "Name": "Old"}}
	start, end := window()

	_, err := c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)

	srv.Programs = []map[string]any{{"Id": "p2", "ChannelId": "chan-b", "Name": "New"}}
	clock.Advance(TTL + time.Second)

	entries, err := c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)
	assert.Empty(t, entries, "stale entries for chan-a are gone, not merged")

	entries, err = c.EntriesFor(context.Background(), 8, start, end)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "New", entries[0].Title)
}

func TestItemsMissingIDsAreDropped(t *testing.T) {
	c, srv, _, _ := newTestCache(t)
	srv.Programs = []map[string]any{
		{"Id": "p1", "ChannelId": "chan-a", "Name": "Keep"},
		{"ChannelId": "chan-a", "Name": "NoId"},
		{"Id": "p2", "Name": "NoChannel"},
	}
	start, end := window()

	entries, err := c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Keep", entries[0].Title)
}

func TestInvalidate(t *testing.T) {
	c, srv, _, _ := newTestCache(t)
	srv.Programs = []map[string]any{{"Id": "p1", "ChannelId": "chan-a", "Name": "X"}}
	start, end := window()

	_, err := c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Hits("/LiveTv/Programs"))
}

func TestBroadcastIDStableAcrossRefetch(t *testing.T) {
	c, srv, clock, _ := newTestCache(t)
	srv.Programs = []map[string]any{{"Id": "p1", "ChannelId": "chan-a", "Name": "X"}}
	start, end := window()

	first, err := c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)

	clock.Advance(TTL + time.Second)
	second, err := c.EntriesFor(context.Background(), 7, start, end)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].BroadcastID, second[0].BroadcastID)
}
