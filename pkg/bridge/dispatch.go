// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-signal/pkg/bridge/wire"
)

// SessionState is the mutable per-connection state: the account's own user
// ID as learned from the hello event, and its current presence status.
// It is written only from the connection's read loop, but the delivery
// goroutines may read it, so access goes through the lock.
type SessionState struct {
	mu     sync.Mutex
	ownID  string
	status wire.PresenceStatus
}

// NewSessionState returns fresh state for one connection. Presence starts
// as online until the server says otherwise.
func NewSessionState() *SessionState {
	return &SessionState{status: wire.StatusOnline}
}

// OwnID returns the account's own user ID, or "" before the hello event.
func (s *SessionState) OwnID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownID
}

// setOwnID records the own user ID. Only the first value sticks; the ID
// never changes within one connection's lifetime.
func (s *SessionState) setOwnID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownID == "" {
		s.ownID = id
	}
}

// Status returns the account's current presence status.
func (s *SessionState) Status() wire.PresenceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *SessionState) setStatus(status wire.PresenceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// NotificationRequest is a decided, formatted notification waiting to be
// delivered. Deciding and delivering are separated so that a slow delivery
// never blocks frame processing.
type NotificationRequest struct {
	Destination string
	Body        string
}

// Dispatcher consumes decoded envelopes, updates session state, and decides
// which posts warrant a push notification to the operator.
type Dispatcher struct {
	serverName  string
	destination string
	location    *time.Location
	log         zerolog.Logger
}

// NewDispatcher builds a dispatcher for one server. Notification timestamps
// are rendered in loc.
func NewDispatcher(serverName, destination string, loc *time.Location, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		serverName:  serverName,
		destination: destination,
		location:    loc,
		log:         log.With().Str("component", "dispatcher").Logger(),
	}
}

// Handle processes one envelope against the session state and returns a
// notification request for it, or nil. The checks run in a fixed order:
// state updates first, then the per-recipient suppression map, then the
// mention filter, then the do-not-disturb mute, and finally formatting.
func (d *Dispatcher) Handle(env *wire.Envelope, state *SessionState) *NotificationRequest {
	switch event := env.Event.(type) {
	case *wire.Hello:
		state.setOwnID(env.Broadcast.UserID)
		d.log.Info().
			Str("user_id", env.Broadcast.UserID).
			Str("server_version", event.ServerVersion).
			Msg("Connection established")
		return nil
	case *wire.StatusChange:
		if event.UserID == state.OwnID() {
			d.log.Debug().Str("status", string(event.Status)).Msg("Own presence changed")
			state.setStatus(event.Status)
		}
		return nil
	}

	ownID := state.OwnID()

	// The server marked us as a recipient to skip, typically because this
	// event echoes our own action.
	if ownID != "" && env.Broadcast.OmitUsers[ownID] {
		return nil
	}

	posted, ok := env.Event.(*wire.Posted)
	if !ok {
		return nil
	}
	if ownID == "" || posted.Mentions == nil || !slices.Contains(posted.Mentions.V, ownID) {
		return nil
	}
	if state.Status() == wire.StatusDoNotDisturb {
		d.log.Debug().Str("post_id", posted.Post.V.ID).Msg("Muted by do-not-disturb")
		return nil
	}

	body, ok := d.formatNotification(posted)
	if !ok {
		return nil
	}
	d.log.Info().
		Str("post_id", posted.Post.V.ID).
		Str("channel_id", posted.Post.V.ChannelID).
		Msg("Mention matched, notifying")
	return &NotificationRequest{Destination: d.destination, Body: body}
}

// formatNotification renders the outbound text for a mention. Direct and
// group messages omit the channel name; system channels are never
// user-facing and produce nothing.
func (d *Dispatcher) formatNotification(posted *wire.Posted) (string, bool) {
	post := posted.Post.V
	localtime := post.CreateAt.In(d.location).Format("15:04:05")
	switch posted.ChannelType {
	case wire.ChannelDirect, wire.ChannelGroup:
		return fmt.Sprintf("%s %s:\n%s\n@%s",
			d.serverName, posted.SenderName, post.Message, localtime), true
	case wire.ChannelOpen, wire.ChannelPrivate:
		return fmt.Sprintf("%s %s in %s:\n%s\n@%s",
			d.serverName, posted.SenderName, posted.ChannelDisplayName, post.Message, localtime), true
	default:
		return "", false
	}
}
