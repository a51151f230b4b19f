// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package wire

import "go.mau.fi/util/jsontime"

// Kind is the snake_case discriminator of a server-pushed event.
type Kind string

const (
	KindHello                Kind = "hello"
	KindStatusChange         Kind = "status_change"
	KindEphemeralMessage     Kind = "ephemeral_message"
	KindTyping               Kind = "typing"
	KindPosted               Kind = "posted"
	KindPostEdited           Kind = "post_edited"
	KindPostDeleted          Kind = "post_deleted"
	KindReactionAdded        Kind = "reaction_added"
	KindReactionRemoved      Kind = "reaction_removed"
	KindChannelCreated       Kind = "channel_created"
	KindChannelUpdated       Kind = "channel_updated"
	KindChannelDeleted       Kind = "channel_deleted"
	KindChannelViewed        Kind = "channel_viewed"
	KindChannelMemberUpdated Kind = "channel_member_updated"
	KindPreferencesChanged   Kind = "preferences_changed"
	KindPreferencesDeleted   Kind = "preferences_deleted"
	KindUserUpdated          Kind = "user_updated"
	KindNewUser              Kind = "new_user"
	KindUserAdded            Kind = "user_added"
	KindUserRemoved          Kind = "user_removed"
	KindLeaveTeam            Kind = "leave_team"
	KindUpdateTeam           Kind = "update_team"
	KindDeleteTeam           Kind = "delete_team"
	KindDirectAdded          Kind = "direct_added"
	KindGroupAdded           Kind = "group_added"
	KindEmojiAdded           Kind = "emoji_added"
	KindConfigChanged        Kind = "config_changed"
)

// Event is one typed variant of a server-pushed occurrence. The set of
// implementations is closed; tags outside it decode to *Ignored so that
// server-side protocol additions never break the stream.
type Event interface {
	EventKind() Kind
}

// Hello is the first event on a fresh connection. Its broadcast carries
// the authenticated account's own user ID.
type Hello struct {
	ServerVersion string `json:"server_version"`
}

// StatusChange reports a presence transition for one user.
type StatusChange struct {
	Status PresenceStatus `json:"status"`
	UserID string         `json:"user_id"`
}

// EphemeralMessage is a server-generated message visible to one user only.
type EphemeralMessage struct {
	Post Nested[Post] `json:"post"`
}

// Typing reports that a user started typing.
type Typing struct {
	ParentID string `json:"parent_id"`
	UserID   string `json:"user_id"`
}

// Posted is a new message together with the channel metadata needed to
// render a notification without a round trip to the REST API.
type Posted struct {
	ChannelDisplayName string            `json:"channel_display_name"`
	ChannelName        string            `json:"channel_name"`
	ChannelType        ChannelType       `json:"channel_type"`
	Post               Nested[Post]      `json:"post"`
	SenderName         string            `json:"sender_name"`
	TeamID             string            `json:"team_id"`
	Mentions           *Nested[[]string] `json:"mentions,omitempty"`
	Image              *string           `json:"image,omitempty"`
	OtherFile          *string           `json:"otherFile,omitempty"`
}

// PostEdited reports an in-place edit of an existing post.
type PostEdited struct {
	Post Nested[Post] `json:"post"`
}

// PostDeleted reports removal of a post.
type PostDeleted struct {
	Post Nested[Post] `json:"post"`
}

// ReactionAdded reports a new emoji reaction.
type ReactionAdded struct {
	Reaction Nested[Reaction] `json:"reaction"`
}

// ReactionRemoved reports a withdrawn emoji reaction.
type ReactionRemoved struct {
	Reaction Nested[Reaction] `json:"reaction"`
}

// ChannelCreated announces a new channel by ID only.
type ChannelCreated struct {
	ChannelID string `json:"channel_id"`
	TeamID    string `json:"team_id"`
}

// ChannelUpdated carries the full updated channel record.
type ChannelUpdated struct {
	Channel Nested[Channel] `json:"channel"`
}

// ChannelDeleted announces channel removal. The deletion timestamp uses
// the current millisecond wire format.
type ChannelDeleted struct {
	ChannelID string              `json:"channel_id"`
	DeleteAt  *jsontime.UnixMilli `json:"delete_at,omitempty"`
}

// ChannelViewed reports that this account marked a channel as read.
type ChannelViewed struct {
	ChannelID string `json:"channel_id"`
}

// ChannelMemberUpdated carries an updated membership record.
type ChannelMemberUpdated struct {
	ChannelMember Nested[ChannelMember] `json:"channelMember"`
}

// PreferencesChanged carries the raw preferences blob; the bridge does not
// interpret it.
type PreferencesChanged struct {
	Preferences string `json:"preferences"`
}

// PreferencesDeleted carries the raw deleted-preferences blob.
type PreferencesDeleted struct {
	Preferences string `json:"preferences"`
}

// UserUpdated carries the full updated user record, as a plain object.
type UserUpdated struct {
	User User `json:"user"`
}

// NewUser announces account creation by ID only.
type NewUser struct {
	UserID string `json:"user_id"`
}

// UserAdded reports a user joining a team.
type UserAdded struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

// UserRemoved reports a user being removed from a team.
type UserRemoved struct {
	RemoverID string `json:"remover_id"`
	UserID    string `json:"user_id"`
}

// LeaveTeam reports a user leaving a team on their own.
type LeaveTeam struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

// UpdateTeam carries the full updated team record.
type UpdateTeam struct {
	Team Nested[Team] `json:"team"`
}

// DeleteTeam carries the full record of a deleted team.
type DeleteTeam struct {
	Team Nested[Team] `json:"team"`
}

// DirectAdded announces a freshly opened direct-message channel.
type DirectAdded struct {
	TeammateID string `json:"teammate_id"`
}

// GroupAdded announces a freshly opened group channel.
type GroupAdded struct {
	TeammateIDs Nested[[]string] `json:"teammate_ids"`
}

// EmojiAdded announces a new custom emoji.
type EmojiAdded struct {
	Emoji Nested[Emoji] `json:"emoji"`
}

// ConfigChanged reports a server configuration update.
type ConfigChanged struct {
	Config map[string]string `json:"config"`
}

// Ignored stands in for any event tag outside the recognized set. It
// carries the tag for logging and nothing else.
type Ignored struct {
	Tag Kind `json:"-"`
}

func (*Hello) EventKind() Kind                { return KindHello }
func (*StatusChange) EventKind() Kind         { return KindStatusChange }
func (*EphemeralMessage) EventKind() Kind     { return KindEphemeralMessage }
func (*Typing) EventKind() Kind               { return KindTyping }
func (*Posted) EventKind() Kind               { return KindPosted }
func (*PostEdited) EventKind() Kind           { return KindPostEdited }
func (*PostDeleted) EventKind() Kind          { return KindPostDeleted }
func (*ReactionAdded) EventKind() Kind        { return KindReactionAdded }
func (*ReactionRemoved) EventKind() Kind      { return KindReactionRemoved }
func (*ChannelCreated) EventKind() Kind       { return KindChannelCreated }
func (*ChannelUpdated) EventKind() Kind       { return KindChannelUpdated }
func (*ChannelDeleted) EventKind() Kind       { return KindChannelDeleted }
func (*ChannelViewed) EventKind() Kind        { return KindChannelViewed }
func (*ChannelMemberUpdated) EventKind() Kind { return KindChannelMemberUpdated }
func (*PreferencesChanged) EventKind() Kind   { return KindPreferencesChanged }
func (*PreferencesDeleted) EventKind() Kind   { return KindPreferencesDeleted }
func (*UserUpdated) EventKind() Kind          { return KindUserUpdated }
func (*NewUser) EventKind() Kind              { return KindNewUser }
func (*UserAdded) EventKind() Kind            { return KindUserAdded }
func (*UserRemoved) EventKind() Kind          { return KindUserRemoved }
func (*LeaveTeam) EventKind() Kind            { return KindLeaveTeam }
func (*UpdateTeam) EventKind() Kind           { return KindUpdateTeam }
func (*DeleteTeam) EventKind() Kind           { return KindDeleteTeam }
func (*DirectAdded) EventKind() Kind          { return KindDirectAdded }
func (*GroupAdded) EventKind() Kind           { return KindGroupAdded }
func (*EmojiAdded) EventKind() Kind           { return KindEmojiAdded }
func (*ConfigChanged) EventKind() Kind        { return KindConfigChanged }
func (e *Ignored) EventKind() Kind            { return e.Tag }

// newEvent returns an empty value of the variant matching kind, or nil for
// unrecognized tags.
func newEvent(kind Kind) Event {
	switch kind {
	case KindHello:
		return &Hello{}
	case KindStatusChange:
		return &StatusChange{}
	case KindEphemeralMessage:
		return &EphemeralMessage{}
	case KindTyping:
		return &Typing{}
	case KindPosted:
		return &Posted{}
	case KindPostEdited:
		return &PostEdited{}
	case KindPostDeleted:
		return &PostDeleted{}
	case KindReactionAdded:
		return &ReactionAdded{}
	case KindReactionRemoved:
		return &ReactionRemoved{}
	case KindChannelCreated:
		return &ChannelCreated{}
	case KindChannelUpdated:
		return &ChannelUpdated{}
	case KindChannelDeleted:
		return &ChannelDeleted{}
	case KindChannelViewed:
		return &ChannelViewed{}
	case KindChannelMemberUpdated:
		return &ChannelMemberUpdated{}
	case KindPreferencesChanged:
		return &PreferencesChanged{}
	case KindPreferencesDeleted:
		return &PreferencesDeleted{}
	case KindUserUpdated:
		return &UserUpdated{}
	case KindNewUser:
		return &NewUser{}
	case KindUserAdded:
		return &UserAdded{}
	case KindUserRemoved:
		return &UserRemoved{}
	case KindLeaveTeam:
		return &LeaveTeam{}
	case KindUpdateTeam:
		return &UpdateTeam{}
	case KindDeleteTeam:
		return &DeleteTeam{}
	case KindDirectAdded:
		return &DirectAdded{}
	case KindGroupAdded:
		return &GroupAdded{}
	case KindEmojiAdded:
		return &EmojiAdded{}
	case KindConfigChanged:
		return &ConfigChanged{}
	default:
		return nil
	}
}
