// SPDX-License-Identifier: MIT

// Package recordings lists and manages finished recordings and scheduled
// timers. Nothing here is cached: the DVR state changes behind our back,
// so every listing call hits the server.
package recordings

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfpvr/jfpvr/internal/handle"
	"github.com/jfpvr/jfpvr/internal/jellyfin"
	"github.com/jfpvr/jfpvr/internal/log"
)

// ChannelResolver maps between channel handles and server ids. Satisfied
// by directory.Directory.
type ChannelResolver interface {
	ChannelID(h int32) (string, bool)
	ChannelHandle(serverID string) (int32, bool)
}

// Recording is one finished recording as the host sees it.
type Recording struct {
	ID           string
	Title        string
	ChannelName  string
	Synopsis     string
	GroupingName string
	Start        time.Time
	End          time.Time
	PlayCount    int
}

// Timer is one scheduled or completed recording timer.
type Timer struct {
	Handle        int32
	ID            string
	Title         string
	ChannelHandle int32
	Start         time.Time
	End           time.Time
	IsScheduled   bool
}

// TimerSpec describes a timer to create.
type TimerSpec struct {
	Title         string
	ChannelHandle int32
	Start         time.Time
	End           time.Time
}

// Directory talks to the DVR endpoints of an authenticated session.
type Directory struct {
	client   *jellyfin.Client
	userID   string
	resolver ChannelResolver
	log      zerolog.Logger

	mu       sync.Mutex
	lastSeen map[int32]string // timer handle -> timer id from the last listing
}

// New creates a recordings directory. The caller guarantees the client is
// already authenticated.
func New(client *jellyfin.Client, userID string, resolver ChannelResolver) *Directory {
	return &Directory{
		client:   client,
		userID:   userID,
		resolver: resolver,
		log:      log.WithComponent("recordings"),
		lastSeen: make(map[int32]string),
	}
}

// List returns all finished recordings, freshly loaded. The backend has
// no trash can, so asking for deleted recordings yields an empty result.
func (d *Directory) List(ctx context.Context, deleted bool) ([]Recording, error) {
	if deleted {
		return nil, nil
	}

	query := url.Values{"userId": {d.userID}}
	var page jellyfin.ItemsPage[jellyfin.RecordingItem]
	if err := d.client.Get(ctx, "/LiveTv/Recordings", query, &page); err != nil {
		d.log.Error().Err(err).Msg("failed to load recordings")
		return nil, err
	}

	recs := make([]Recording, 0, len(page.Items))
	for _, item := range page.Items {
		if item.ID == "" {
			continue
		}
		rec := Recording{
			ID:           item.ID,
			Title:        item.Name,
			ChannelName:  item.ChannelName,
			Synopsis:     item.Overview,
			GroupingName: item.SeriesName,
			PlayCount:    item.UserData.PlayCount,
		}
		if t, ok := jellyfin.ParseTime(item.StartDate); ok {
			rec.Start = t
		}
		if t, ok := jellyfin.ParseTime(item.EndDate); ok {
			rec.End = t
		}
		recs = append(recs, rec)
	}
	d.log.Debug().Int("count", len(recs)).Msg("loaded recordings")
	return recs, nil
}

// Delete removes one recording by server id.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if err := d.client.Delete(ctx, "/LiveTv/Recordings/"+url.PathEscape(id)); err != nil {
		d.log.Error().Err(err).Str(log.FieldRecordingID, id).Msg("failed to delete recording")
		return err
	}
	d.log.Info().Str(log.FieldRecordingID, id).Msg("deleted recording")
	return nil
}

// Timers returns all timers, freshly loaded. The handle->id mapping of
// the returned set is remembered so DeleteTimer can resolve handles.
func (d *Directory) Timers(ctx context.Context) ([]Timer, error) {
	query := url.Values{"userId": {d.userID}}
	var page jellyfin.ItemsPage[jellyfin.TimerItem]
	if err := d.client.Get(ctx, "/LiveTv/Timers", query, &page); err != nil {
		d.log.Error().Err(err).Msg("failed to load timers")
		return nil, err
	}

	timers := make([]Timer, 0, len(page.Items))
	seen := make(map[int32]string, len(page.Items))
	for _, item := range page.Items {
		if item.ID == "" {
			continue
		}
		t := Timer{
			Handle:      handle.Derive(item.ID),
			ID:          item.ID,
			Title:       item.Name,
			IsScheduled: item.Status == "New",
		}
		if ch, ok := d.resolver.ChannelHandle(item.ChannelID); ok {
			t.ChannelHandle = ch
		}
		if ts, ok := jellyfin.ParseTime(item.StartDate); ok {
			t.Start = ts
		}
		if ts, ok := jellyfin.ParseTime(item.EndDate); ok {
			t.End = ts
		}
		seen[t.Handle] = t.ID
		timers = append(timers, t)
	}

	d.mu.Lock()
	d.lastSeen = seen
	d.mu.Unlock()

	d.log.Debug().Int("count", len(timers)).Msg("loaded timers")
	return timers, nil
}

// AddTimer schedules a recording. The channel handle must resolve to a
// currently loaded channel.
func (d *Directory) AddTimer(ctx context.Context, spec TimerSpec) error {
	channelID, ok := d.resolver.ChannelID(spec.ChannelHandle)
	if !ok {
		return jellyfin.ErrNotFound
	}
	req := jellyfin.CreateTimerRequest{
		Name:      spec.Title,
		ChannelID: channelID,
		StartDate: jellyfin.FormatTime(spec.Start),
		EndDate:   jellyfin.FormatTime(spec.End),
	}
	if err := d.client.Post(ctx, "/LiveTv/Timers", nil, req, nil); err != nil {
		d.log.Error().Err(err).Str(log.FieldChannelID, channelID).Msg("failed to create timer")
		return err
	}
	d.log.Info().Str(log.FieldChannelID, channelID).Str("title", spec.Title).Msg("created timer")
	return nil
}

// DeleteTimer cancels a timer by handle. Handles are resolved against the
// most recent Timers listing; a handle not in that snapshot is the
// caller's error, not the server's.
func (d *Directory) DeleteTimer(ctx context.Context, timerHandle int32) error {
	d.mu.Lock()
	id, ok := d.lastSeen[timerHandle]
	d.mu.Unlock()
	if !ok {
		return jellyfin.ErrNotFound
	}
	if err := d.client.Delete(ctx, "/LiveTv/Timers/"+url.PathEscape(id)); err != nil {
		d.log.Error().Err(err).Str(log.FieldTimerID, id).Msg("failed to delete timer")
		return err
	}
	d.log.Info().Str(log.FieldTimerID, id).Msg("deleted timer")
	return nil
}
