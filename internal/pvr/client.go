// SPDX-License-Identifier: MIT

// Package pvr is the host-facing facade: one Connector per configured
// server, created unauthenticated and populated by Connect. Directory,
// guide, recordings and stream components exist only after a successful
// authentication, so no call path can reach the server anonymously.
package pvr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfpvr/jfpvr/internal/config"
	"github.com/jfpvr/jfpvr/internal/directory"
	"github.com/jfpvr/jfpvr/internal/guide"
	"github.com/jfpvr/jfpvr/internal/jellyfin"
	"github.com/jfpvr/jfpvr/internal/log"
	"github.com/jfpvr/jfpvr/internal/recordings"
	"github.com/jfpvr/jfpvr/internal/stream"
)

// ErrNotConnected is returned by data calls made before Connect succeeds.
var ErrNotConnected = errors.New("pvr: not connected")

// Capabilities reports what this backend supports to the host.
type Capabilities struct {
	SupportsEPG                bool
	SupportsTV                 bool
	SupportsRadio              bool
	SupportsRecordings         bool
	SupportsRecordingsDelete   bool
	SupportsRecordingsUndelete bool
	SupportsTimers             bool
	SupportsChannelGroups      bool
}

// Connector binds one server session together. All exported methods are
// safe for concurrent use.
type Connector struct {
	settings config.Settings
	client   *jellyfin.Client
	session  *jellyfin.Session
	clock    jellyfin.Clock
	log      zerolog.Logger

	mu         sync.RWMutex
	info       jellyfin.SystemInfo
	directory  *directory.Directory
	guide      *guide.Cache
	recordings *recordings.Directory
	resolver   *stream.Resolver
}

// New creates a disconnected connector. Settings must already validate.
func New(settings config.Settings, clock jellyfin.Clock) *Connector {
	settings.EnsureDeviceID()
	if clock == nil {
		clock = jellyfin.RealClock{}
	}
	client := jellyfin.New(settings.ServerURL(), settings.Token(), jellyfin.DefaultIdentity(settings.DeviceID))
	return &Connector{
		settings: settings,
		client:   client,
		session:  jellyfin.NewSession(client, clock),
		clock:    clock,
		log:      log.WithComponent("pvr"),
	}
}

// Connect authenticates with the configured method, probes the server and
// loads the initial channel set. Safe to call again after a failure.
func (c *Connector) Connect(ctx context.Context) error {
	c.log.Info().Str(log.FieldBaseURL, c.client.BaseURL()).Msg("connecting")

	if err := c.authenticate(ctx); err != nil {
		return err
	}
	userID, _, ok := c.session.Credentials()
	if !ok {
		return ErrNotConnected
	}

	info, err := c.client.ServerInfo(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("server info probe failed")
		return err
	}
	c.log.Info().Str("server", info.ServerName).Str("version", info.Version).Msg("connected")

	dir := directory.New(c.client, userID)
	if err := dir.Reload(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.info = info
	c.directory = dir
	c.guide = guide.New(c.client, userID, dir, c.clock)
	c.recordings = recordings.New(c.client, userID, dir)
	c.resolver = stream.New(c.client, userID, dir)
	c.mu.Unlock()
	return nil
}

func (c *Connector) authenticate(ctx context.Context) error {
	switch c.settings.AuthMethod {
	case config.AuthPassword:
		// A stored token from an earlier session skips the password
		// round trip when the server still accepts it.
		if c.settings.AccessToken != "" && c.settings.UserID != "" {
			if err := c.session.Revalidate(ctx, c.settings.UserID); err == nil {
				return nil
			}
			c.log.Info().Msg("stored token rejected, falling back to password login")
			c.client.SetToken("")
		}
		return c.session.AuthenticateByPassword(ctx, c.settings.Username, c.settings.Password)

	case config.AuthQuickConnect:
		if c.settings.AccessToken != "" && c.settings.UserID != "" {
			if err := c.session.Revalidate(ctx, c.settings.UserID); err == nil {
				return nil
			}
			c.log.Info().Msg("stored token rejected, starting quick connect pairing")
			c.client.SetToken("")
		}
		code, err := c.session.InitiateQuickConnect(ctx)
		if err != nil {
			return err
		}
		c.log.Info().Str("code", code).Msg("confirm this quick connect code on the server")
		return c.session.WaitForQuickConnect(ctx)

	case config.AuthAPIKey:
		if c.settings.UserID == "" {
			return errors.New("pvr: api key auth requires a configured user id")
		}
		return c.session.Revalidate(ctx, c.settings.UserID)

	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidAuthMethod, c.settings.AuthMethod)
	}
}

// components returns the post-connect component set, or ErrNotConnected.
func (c *Connector) components() (*directory.Directory, *guide.Cache, *recordings.Directory, *stream.Resolver, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.directory == nil {
		return nil, nil, nil, nil, ErrNotConnected
	}
	return c.directory, c.guide, c.recordings, c.resolver, nil
}

// Capabilities reports the fixed feature set of this backend.
func (c *Connector) Capabilities() Capabilities {
	return Capabilities{
		SupportsEPG:              true,
		SupportsTV:               true,
		SupportsRadio:            false,
		SupportsRecordings:       true,
		SupportsRecordingsDelete: true,
		SupportsTimers:           true,
		SupportsChannelGroups:    true,
	}
}

// BackendName identifies the backend kind, not the instance.
func (c *Connector) BackendName() string { return "Jellyfin Live TV" }

// ServerVersion returns the probed server version.
func (c *Connector) ServerVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info.Version
}

// Hostname returns the probed server name.
func (c *Connector) Hostname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info.ServerName
}

// ConnectionString returns the base URL the session talks to.
func (c *Connector) ConnectionString() string {
	return c.client.BaseURL()
}

// Channels lists the loaded channels. This backend has no radio channels,
// so a radio listing is empty by definition.
func (c *Connector) Channels(radio bool) ([]directory.Channel, error) {
	dir, _, _, _, err := c.components()
	if err != nil {
		return nil, err
	}
	if radio {
		return nil, nil
	}
	return dir.Channels(), nil
}

// ChannelCount returns the number of TV channels.
func (c *Connector) ChannelCount() (int, error) {
	dir, _, _, _, err := c.components()
	if err != nil {
		return 0, err
	}
	return dir.ChannelCount(), nil
}

// Groups lists the channel groups; radio groups do not exist here.
func (c *Connector) Groups(radio bool) ([]directory.Group, error) {
	dir, _, _, _, err := c.components()
	if err != nil {
		return nil, err
	}
	if radio {
		return nil, nil
	}
	return dir.Groups(), nil
}

// GroupCount returns the number of channel groups.
func (c *Connector) GroupCount() (int, error) {
	dir, _, _, _, err := c.components()
	if err != nil {
		return 0, err
	}
	return dir.GroupCount(), nil
}

// GroupMembers returns the member channel handles of a group.
func (c *Connector) GroupMembers(ctx context.Context, groupHandle int32) ([]int32, error) {
	dir, _, _, _, err := c.components()
	if err != nil {
		return nil, err
	}
	return dir.Members(ctx, groupHandle)
}

// ReloadChannels refreshes the channel and group sets.
func (c *Connector) ReloadChannels(ctx context.Context) error {
	dir, g, _, _, err := c.components()
	if err != nil {
		return err
	}
	if err := dir.Reload(ctx); err != nil {
		return err
	}
	g.Invalidate()
	return nil
}

// ProgramGuide returns the guide entries of one channel for a window.
func (c *Connector) ProgramGuide(ctx context.Context, channelHandle int32, from, to time.Time) ([]guide.Entry, error) {
	_, g, _, _, err := c.components()
	if err != nil {
		return nil, err
	}
	return g.EntriesFor(ctx, channelHandle, from, to)
}

// Recordings lists finished recordings.
func (c *Connector) Recordings(ctx context.Context, deleted bool) ([]recordings.Recording, error) {
	_, _, rec, _, err := c.components()
	if err != nil {
		return nil, err
	}
	return rec.List(ctx, deleted)
}

// RecordingCount returns the number of finished recordings.
func (c *Connector) RecordingCount(ctx context.Context) (int, error) {
	recs, err := c.Recordings(ctx, false)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// DeleteRecording removes one recording by server id.
func (c *Connector) DeleteRecording(ctx context.Context, id string) error {
	_, _, rec, _, err := c.components()
	if err != nil {
		return err
	}
	return rec.Delete(ctx, id)
}

// Timers lists the scheduled and completed timers.
func (c *Connector) Timers(ctx context.Context) ([]recordings.Timer, error) {
	_, _, rec, _, err := c.components()
	if err != nil {
		return nil, err
	}
	return rec.Timers(ctx)
}

// TimerCount returns the number of timers.
func (c *Connector) TimerCount(ctx context.Context) (int, error) {
	timers, err := c.Timers(ctx)
	if err != nil {
		return 0, err
	}
	return len(timers), nil
}

// AddTimer schedules a recording.
func (c *Connector) AddTimer(ctx context.Context, spec recordings.TimerSpec) error {
	_, _, rec, _, err := c.components()
	if err != nil {
		return err
	}
	return rec.AddTimer(ctx, spec)
}

// DeleteTimer cancels a timer by handle.
func (c *Connector) DeleteTimer(ctx context.Context, timerHandle int32) error {
	_, _, rec, _, err := c.components()
	if err != nil {
		return err
	}
	return rec.DeleteTimer(ctx, timerHandle)
}

// ChannelStream negotiates a live stream for a channel handle.
func (c *Connector) ChannelStream(ctx context.Context, channelHandle int32) (stream.Stream, error) {
	_, _, _, res, err := c.components()
	if err != nil {
		return stream.Stream{}, err
	}
	return res.ResolveChannel(ctx, channelHandle)
}

// RecordingStream returns the playback URL of a finished recording.
func (c *Connector) RecordingStream(id string) (stream.Stream, error) {
	_, _, _, res, err := c.components()
	if err != nil {
		return stream.Stream{}, err
	}
	return res.ResolveRecording(id), nil
}

// UpdatedSettings returns the settings with credentials acquired during
// Connect filled in, for the host to persist.
func (c *Connector) UpdatedSettings() config.Settings {
	s := c.settings
	if userID, token, ok := c.session.Credentials(); ok {
		s.UserID = userID
		s.AccessToken = token
	}
	return s
}
