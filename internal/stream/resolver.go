// SPDX-License-Identifier: MIT

// Package stream turns channel and recording handles into playable URLs.
// Live channels go through the server's playback negotiation; recordings
// are plain static downloads.
package stream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jfpvr/jfpvr/internal/jellyfin"
	"github.com/jfpvr/jfpvr/internal/log"
)

// ChannelResolver resolves a channel handle to its server id. Satisfied
// by directory.Directory.
type ChannelResolver interface {
	ChannelID(h int32) (string, bool)
}

// Stream is a resolved playback target.
type Stream struct {
	URL        string
	IsRealtime bool
	MimeType   string
}

// Resolver negotiates playback with an authenticated session.
type Resolver struct {
	client   *jellyfin.Client
	userID   string
	resolver ChannelResolver
	log      zerolog.Logger
}

// New creates a stream resolver. The caller guarantees the client is
// already authenticated.
func New(client *jellyfin.Client, userID string, resolver ChannelResolver) *Resolver {
	return &Resolver{
		client:   client,
		userID:   userID,
		resolver: resolver,
		log:      log.WithComponent("stream"),
	}
}

type playbackInfoRequest struct {
	UserID             string        `json:"UserId"`
	DeviceProfile      deviceProfile `json:"DeviceProfile"`
	AutoOpenLiveStream bool          `json:"AutoOpenLiveStream"`
}

// ResolveChannel negotiates a live stream for the channel behind h.
func (r *Resolver) ResolveChannel(ctx context.Context, h int32) (Stream, error) {
	channelID, ok := r.resolver.ChannelID(h)
	if !ok {
		return Stream{}, jellyfin.ErrNotFound
	}

	req := playbackInfoRequest{
		UserID:             r.userID,
		DeviceProfile:      liveDeviceProfile(),
		AutoOpenLiveStream: true,
	}
	var info jellyfin.PlaybackInfo
	path := "/Items/" + url.PathEscape(channelID) + "/PlaybackInfo"
	if err := r.client.Post(ctx, path, nil, req, &info); err != nil {
		r.log.Error().Err(err).Str(log.FieldChannelID, channelID).Msg("playback negotiation failed")
		return Stream{}, err
	}
	if len(info.MediaSources) == 0 {
		r.log.Error().Str(log.FieldChannelID, channelID).Msg("no media sources in playback response")
		return Stream{}, fmt.Errorf("resolve channel %s: no media sources: %w", channelID, jellyfin.ErrServer)
	}

	source := info.MediaSources[0]
	if source.LiveStreamID == "" {
		r.log.Error().Str(log.FieldChannelID, channelID).Msg("media source carries no live stream id")
		return Stream{}, fmt.Errorf("resolve channel %s: no live stream id: %w", channelID, jellyfin.ErrServer)
	}
	mediaSourceID := source.ID
	if mediaSourceID == "" {
		mediaSourceID = channelID
	}

	var streamURL string
	if source.Path != "" {
		streamURL = r.rewritePath(source.Path)
	} else {
		streamURL = fmt.Sprintf("%s/videos/%s/live.m3u8?LiveStreamId=%s&MediaSourceId=%s&api_key=%s",
			r.client.BaseURL(), url.PathEscape(channelID),
			url.QueryEscape(source.LiveStreamID), url.QueryEscape(mediaSourceID),
			url.QueryEscape(r.client.Token()))
	}

	r.log.Info().Str(log.FieldChannelID, channelID).Msg("resolved live stream")
	return Stream{URL: streamURL, IsRealtime: true, MimeType: "application/x-mpegURL"}, nil
}

// rewritePath grafts a server-provided stream path onto the configured
// base URL. The server may report itself under an internal address (a
// container IP, say) that the player cannot reach, so only the path part
// after the known API prefix is trusted.
func (r *Resolver) rewritePath(path string) string {
	idx := strings.Index(path, "/LiveTv")
	if idx < 0 {
		idx = strings.Index(path, "/Videos")
	}
	if idx < 0 {
		// Unrecognized shape, pass it through untouched.
		return path
	}
	streamURL := r.client.BaseURL() + path[idx:]
	if !strings.Contains(streamURL, "api_key=") {
		sep := "?"
		if strings.Contains(streamURL, "?") {
			sep = "&"
		}
		streamURL += sep + "api_key=" + url.QueryEscape(r.client.Token())
	}
	return streamURL
}

// ResolveRecording returns the static download URL for a recording. No
// negotiation: finished recordings are served as-is.
func (r *Resolver) ResolveRecording(id string) Stream {
	u := fmt.Sprintf("%s/Videos/%s/stream?static=true&api_key=%s",
		r.client.BaseURL(), url.PathEscape(id), url.QueryEscape(r.client.Token()))
	return Stream{URL: u, IsRealtime: false, MimeType: "video/mp4"}
}
