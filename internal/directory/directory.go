// SPDX-License-Identifier: MIT

// Package directory owns the channel and channel-group state of one
// session: loading from the server, assigning stable handles and resolving
// group membership lazily.
package directory

import (
	"context"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jfpvr/jfpvr/internal/handle"
	"github.com/jfpvr/jfpvr/internal/jellyfin"
	"github.com/jfpvr/jfpvr/internal/log"
)

// Channel is one live-TV channel as the host sees it.
type Channel struct {
	Handle   int32
	ServerID string
	Name     string
	Number   int
	IconURL  string
	IsRadio  bool
}

// Group is one channel group.
type Group struct {
	Handle   int32
	ServerID string
	Name     string
}

// Directory loads and caches the channel/group universe. The whole channel
// set is rebuilt on each Reload; the handle table lives as long as the
// directory so a reloaded channel keeps its handle.
type Directory struct {
	client *jellyfin.Client
	userID string
	table  *handle.Table
	log    zerolog.Logger

	mu       sync.RWMutex
	channels []Channel
	byID     map[string]int // index into channels by serverID
	groups   []Group
	members  map[string][]string // group serverID -> member serverIDs, lazy
}

// New creates an empty directory. The caller guarantees the client is
// already authenticated.
func New(client *jellyfin.Client, userID string) *Directory {
	return &Directory{
		client:  client,
		userID:  userID,
		table:   handle.NewTable(),
		log:     log.WithComponent("directory"),
		members: make(map[string][]string),
	}
}

// Reload replaces the entire channel and group set atomically. Items
// missing an id or name are skipped with a warning. The lazy group-member
// cache is dropped along with everything else.
func (d *Directory) Reload(ctx context.Context) error {
	query := url.Values{"userId": {d.userID}}

	var page jellyfin.ItemsPage[jellyfin.ChannelItem]
	if err := d.client.Get(ctx, "/LiveTv/Channels", query, &page); err != nil {
		d.log.Error().Err(err).Msg("failed to load channels")
		return err
	}

	channels := make([]Channel, 0, len(page.Items))
	byID := make(map[string]int, len(page.Items))
	for i, item := range page.Items {
		if item.ID == "" || item.Name == "" {
			d.log.Warn().Int("index", i).Msg("channel item missing required fields, skipping")
			continue
		}
		number, ok := item.ChannelNumber.Value()
		if !ok {
			number = i + 1
		}
		ch := Channel{
			Handle:   d.table.Acquire(item.ID),
			ServerID: item.ID,
			Name:     item.Name,
			Number:   number,
			IsRadio:  item.Type == "RadioChannel",
		}
		if item.ImageTags["Primary"] != "" {
			ch.IconURL = d.client.BaseURL() + "/Items/" + url.PathEscape(item.ID) + "/Images/Primary"
		}
		byID[item.ID] = len(channels)
		channels = append(channels, ch)

		d.log.Debug().
			Str(log.FieldChannelID, ch.ServerID).
			Int32(log.FieldHandle, ch.Handle).
			Str("name", ch.Name).
			Msg("loaded channel")
	}
	d.log.Info().Int("count", len(channels)).Msg("loaded channels")

	// Group load failure is not fatal: the previous group set survives,
	// matching the channel listing remaining usable without groups.
	var groups []Group
	groupsLoaded := false
	var groupPage jellyfin.ItemsPage[jellyfin.GroupItem]
	if err := d.client.Get(ctx, "/LiveTv/ChannelGroups", query, &groupPage); err != nil {
		d.log.Warn().Err(err).Msg("failed to load channel groups")
	} else {
		groupsLoaded = true
		groups = make([]Group, 0, len(groupPage.Items))
		for i, item := range groupPage.Items {
			if item.ID == "" || item.Name == "" {
				d.log.Warn().Int("index", i).Msg("channel group item missing required fields, skipping")
				continue
			}
			groups = append(groups, Group{
				Handle:   d.table.Acquire(item.ID),
				ServerID: item.ID,
				Name:     item.Name,
			})
		}
		d.log.Info().Int("count", len(groups)).Msg("loaded channel groups")
	}

	d.mu.Lock()
	d.channels = channels
	d.byID = byID
	if groupsLoaded {
		d.groups = groups
	}
	d.members = make(map[string][]string)
	d.mu.Unlock()
	return nil
}

// Channels returns the current channel set.
func (d *Directory) Channels() []Channel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Channel(nil), d.channels...)
}

// ChannelCount returns the number of loaded channels.
func (d *Directory) ChannelCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.channels)
}

// Groups returns the current group set.
func (d *Directory) Groups() []Group {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Group(nil), d.groups...)
}

// GroupCount returns the number of loaded groups.
func (d *Directory) GroupCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.groups)
}

// ChannelID resolves a handle to its server id. A miss is a normal
// outcome, never an error.
func (d *Directory) ChannelID(h int32) (string, bool) {
	id, ok := d.table.ServerID(h)
	if !ok {
		return "", false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, present := d.byID[id]; !present {
		return "", false
	}
	return id, true
}

// ChannelHandle resolves a server id to the handle of a currently loaded
// channel.
func (d *Directory) ChannelHandle(serverID string) (int32, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, present := d.byID[serverID]; !present {
		return 0, false
	}
	return d.table.Handle(serverID)
}

// ChannelForHandle returns the channel currently registered under h.
func (d *Directory) ChannelForHandle(h int32) (Channel, bool) {
	id, ok := d.table.ServerID(h)
	if !ok {
		return Channel{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	idx, present := d.byID[id]
	if !present {
		return Channel{}, false
	}
	return d.channels[idx], true
}

// Members returns the member channel handles of a group in server order.
// The member list is fetched on first access and cached for the
// directory's lifetime (until the next Reload). An unknown group handle
// yields an empty, non-error result.
func (d *Directory) Members(ctx context.Context, groupHandle int32) ([]int32, error) {
	groupID, ok := d.table.ServerID(groupHandle)
	if !ok {
		return nil, nil
	}
	d.mu.RLock()
	known := false
	for _, g := range d.groups {
		if g.ServerID == groupID {
			known = true
			break
		}
	}
	memberIDs, cached := d.members[groupID]
	d.mu.RUnlock()
	if !known {
		return nil, nil
	}

	if !cached {
		query := url.Values{"userId": {d.userID}, "groupId": {groupID}}
		var page jellyfin.ItemsPage[jellyfin.ChannelItem]
		if err := d.client.Get(ctx, "/LiveTv/Channels", query, &page); err != nil {
			d.log.Error().Err(err).Str(log.FieldGroupID, groupID).Msg("failed to load group members")
			return nil, err
		}
		memberIDs = make([]string, 0, len(page.Items))
		for _, item := range page.Items {
			if item.ID != "" {
				memberIDs = append(memberIDs, item.ID)
			}
		}
		d.mu.Lock()
		d.members[groupID] = memberIDs
		d.mu.Unlock()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	handles := make([]int32, 0, len(memberIDs))
	for _, id := range memberIDs {
		// Only channels present in the current set are reported.
		if _, present := d.byID[id]; !present {
			continue
		}
		if h, ok := d.table.Handle(id); ok {
			handles = append(handles, h)
		}
	}
	return handles, nil
}
