// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package wire implements the codec for the Mattermost event-stream wire
// format: the envelope/reply frame union, the closed set of event kinds,
// and the legacy quirks of the format (payloads double-encoded as JSON
// strings, space-separated string sets, second-precision timestamps).
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame is a decoded inbound frame: either an *Envelope carrying an event
// or a *Reply acknowledging a command this client sent.
type Frame interface {
	frame()
}

func (*Envelope) frame() {}
func (*Reply) frame()    {}

// Envelope wraps one Event with its broadcast metadata and sequence number.
type Envelope struct {
	Event     Event
	Broadcast Broadcast
	Seq       int64
}

// Reply acknowledges a command by its sequence number. It carries no event.
type Reply struct {
	Status   string `json:"status"`
	SeqReply int64  `json:"seq_reply"`
}

// ReplyStatusOK is the only reply status the server is known to send.
const ReplyStatusOK = "OK"

// Broadcast describes who an event was fanned out to. OmitUsers marks
// recipients the server asked to be skipped, typically the author of the
// action being echoed back.
type Broadcast struct {
	OmitUsers map[string]bool `json:"omit_users"`
	UserID    string          `json:"user_id"`
	ChannelID string          `json:"channel_id"`
	TeamID    string          `json:"team_id"`
}

// ErrUnrecognizedFrame is returned when a frame is valid JSON but matches
// neither the envelope nor the reply shape.
var ErrUnrecognizedFrame = errors.New("frame is neither an event envelope nor a reply")

type rawFrame struct {
	Event     *Kind           `json:"event,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Broadcast *Broadcast      `json:"broadcast,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Status    string          `json:"status,omitempty"`
	SeqReply  *int64          `json:"seq_reply,omitempty"`
}

// DecodeFrame parses one raw text frame. The two frame shapes share no
// discriminator, so the decision is structural: an "event" key selects the
// envelope shape, a "seq_reply" key selects the reply shape. Unrecognized
// event tags decode to *Ignored, never to an error.
func DecodeFrame(data []byte) (Frame, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	switch {
	case raw.Event != nil:
		if raw.Broadcast == nil {
			return nil, fmt.Errorf("event %q: missing broadcast", *raw.Event)
		}
		event, err := decodeEvent(*raw.Event, raw.Data)
		if err != nil {
			return nil, err
		}
		return &Envelope{Event: event, Broadcast: *raw.Broadcast, Seq: raw.Seq}, nil
	case raw.SeqReply != nil:
		return &Reply{Status: raw.Status, SeqReply: *raw.SeqReply}, nil
	default:
		return nil, ErrUnrecognizedFrame
	}
}

func decodeEvent(kind Kind, data json.RawMessage) (Event, error) {
	event := newEvent(kind)
	if event == nil {
		return &Ignored{Tag: kind}, nil
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, event); err != nil {
			return nil, fmt.Errorf("event %q: %w", kind, err)
		}
	}
	return event, nil
}

// MarshalJSON encodes the envelope in the wire shape, including the legacy
// double-encoding of nested payloads, so that encoded envelopes are
// indistinguishable from server-produced ones.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	if e.Event == nil {
		return nil, errors.New("envelope has no event")
	}
	data, err := json.Marshal(e.Event)
	if err != nil {
		return nil, err
	}
	kind := e.Event.EventKind()
	broadcast := e.Broadcast
	return json.Marshal(rawFrame{
		Event:     &kind,
		Data:      data,
		Broadcast: &broadcast,
		Seq:       e.Seq,
	})
}

// AuthChallenge is the first frame sent on every fresh connection. The
// server answers it with a Reply for sequence number 1.
type AuthChallenge struct {
	Seq    int64             `json:"seq"`
	Action string            `json:"action"`
	Data   AuthChallengeData `json:"data"`
}

// AuthChallengeData carries the credential inside an AuthChallenge.
type AuthChallengeData struct {
	Token string `json:"token"`
}

// NewAuthChallenge builds the authentication frame for the given token.
func NewAuthChallenge(token string) AuthChallenge {
	return AuthChallenge{
		Seq:    1,
		Action: "authentication_challenge",
		Data:   AuthChallengeData{Token: token},
	}
}
