// Copyright 2024-2026 Aiku AI

package wire

import "go.mau.fi/util/jsontime"

// PresenceStatus is a user's availability as broadcast by the server.
type PresenceStatus string

const (
	StatusOnline       PresenceStatus = "online"
	StatusAway         PresenceStatus = "away"
	StatusDoNotDisturb PresenceStatus = "dnd"
	StatusOffline      PresenceStatus = "offline"
)

// ChannelType distinguishes the kinds of channels a post can arrive in.
// Unlike event kinds this set is closed for real: S-channels exist only for
// server-internal bookkeeping and are never shown to users.
type ChannelType string

const (
	ChannelOpen    ChannelType = "O"
	ChannelPrivate ChannelType = "P"
	ChannelDirect  ChannelType = "D"
	ChannelGroup   ChannelType = "G"
	ChannelSystem  ChannelType = "S"
)

// PostKind tags a post as a plain user message or one of the
// system-generated varieties. The empty string is a user message.
type PostKind string

const (
	PostUserMessage             PostKind = ""
	PostSystemEphemeral         PostKind = "system_ephemeral"
	PostSystemJoinChannel       PostKind = "system_join_channel"
	PostSystemLeaveChannel      PostKind = "system_leave_channel"
	PostSystemHeaderChange      PostKind = "system_header_change"
	PostSystemPurposeChange     PostKind = "system_purpose_change"
	PostSystemDisplaynameChange PostKind = "system_displayname_change"
	PostSystemChannelDeleted    PostKind = "system_channel_deleted"
	PostSystemAddToChannel      PostKind = "system_add_to_channel"
	PostSystemRemoveFromChannel PostKind = "system_remove_from_channel"
	PostSystemJoinTeam          PostKind = "system_join_team"
	PostSystemRemoveFromTeam    PostKind = "system_remove_from_team"
)

// Post is a chat message as carried in the event stream. The timestamp
// fields use whole-second precision on the legacy wire format.
type Post struct {
	ID            string    `json:"id"`
	CreateAt      Seconds   `json:"create_at"`
	UpdateAt      Seconds   `json:"update_at"`
	EditAt        Seconds   `json:"edit_at"`
	DeleteAt      Seconds   `json:"delete_at"`
	IsPinned      bool      `json:"is_pinned"`
	UserID        string    `json:"user_id"`
	ChannelID     string    `json:"channel_id"`
	RootID        string    `json:"root_id"`
	ParentID      string    `json:"parent_id"`
	OriginalID    string    `json:"original_id"`
	Message       string    `json:"message"`
	Kind          PostKind  `json:"type"`
	Props         PostProps `json:"props"`
	Hashtags      StringSet `json:"hashtags"`
	PendingPostID string    `json:"pending_post_id"`
	FileIDs       []string  `json:"file_ids,omitempty"`
	HasReactions  *bool     `json:"has_reactions,omitempty"`
}

// PostProps holds the optional per-post metadata bag. Only the keys the
// server is known to emit are modelled; each is absent unless set.
type PostProps struct {
	OverrideIconURL  *string                `json:"override_icon_url,omitempty"`
	OldHeader        *string                `json:"old_header,omitempty"`
	NewHeader        *string                `json:"new_header,omitempty"`
	Username         *string                `json:"username,omitempty"`
	NewPurpose       *string                `json:"new_purpose,omitempty"`
	OldPurpose       *string                `json:"old_purpose,omitempty"`
	NewDisplayname   *string                `json:"new_displayname,omitempty"`
	OldDisplayname   *string                `json:"old_displayname,omitempty"`
	AddedUsername    *string                `json:"addedUsername,omitempty"`
	RemovedUsername  *string                `json:"removedUsername,omitempty"`
	AddChannelMember *AddChannelMember      `json:"add_channel_member,omitempty"`
	FromWebhook      *string                `json:"from_webhook,omitempty"`
	OverrideUsername *string                `json:"override_username,omitempty"`
	AddedUserID      *string                `json:"addedUserId,omitempty"`
	UserID           *string                `json:"userId,omitempty"`
	ChannelMentions  map[string]ChannelInfo `json:"channel_mentions,omitempty"`
}

// AddChannelMember describes a system post inviting users to a channel.
type AddChannelMember struct {
	PostID    string   `json:"post_id"`
	UserIDs   []string `json:"user_ids"`
	Usernames []string `json:"usernames"`
}

// ChannelInfo is the display metadata attached to a ~channel mention.
type ChannelInfo struct {
	DisplayName string `json:"display_name"`
}

// Reaction is an emoji reaction on a post.
type Reaction struct {
	UserID    string  `json:"user_id"`
	PostID    string  `json:"post_id"`
	EmojiName string  `json:"emoji_name"`
	CreateAt  Seconds `json:"create_at"`
}

// Emoji is a custom emoji definition.
type Emoji struct {
	ID        string  `json:"id"`
	CreateAt  Seconds `json:"create_at"`
	UpdateAt  Seconds `json:"update_at"`
	DeleteAt  Seconds `json:"delete_at"`
	CreatorID string  `json:"creator_id"`
	Name      string  `json:"name"`
}

// Team is a Mattermost team.
type Team struct {
	ID                 string              `json:"id"`
	CreateAt           Seconds             `json:"create_at"`
	UpdateAt           Seconds             `json:"update_at"`
	DeleteAt           Seconds             `json:"delete_at"`
	DisplayName        string              `json:"display_name"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Email              string              `json:"email"`
	Type               ChannelType         `json:"type"`
	CompanyName        string              `json:"company_name"`
	AllowedDomains     string              `json:"allowed_domains"`
	InviteID           string              `json:"invite_id"`
	AllowOpenInvite    bool                `json:"allow_open_invite"`
	SchemeID           *string             `json:"scheme_id,omitempty"`
	LastTeamIconUpdate *jsontime.UnixMilli `json:"last_team_icon_update,omitempty"`
}

// Channel is a Mattermost channel.
type Channel struct {
	ID            string      `json:"id"`
	CreateAt      Seconds     `json:"create_at"`
	UpdateAt      Seconds     `json:"update_at"`
	DeleteAt      Seconds     `json:"delete_at"`
	TeamID        string      `json:"team_id"`
	Type          ChannelType `json:"type"`
	DisplayName   string      `json:"display_name"`
	Header        string      `json:"header"`
	LastPostAt    Seconds     `json:"last_post_at"`
	TotalMsgCount int64       `json:"total_msg_count"`
	ExtraUpdateAt Seconds     `json:"extra_update_at"`
	CreatorID     string      `json:"creator_id"`
}

// User is a Mattermost account as carried by user_updated events.
type User struct {
	ID                 string              `json:"id"`
	CreateAt           Seconds             `json:"create_at"`
	UpdateAt           Seconds             `json:"update_at"`
	DeleteAt           Seconds             `json:"delete_at"`
	Username           string              `json:"username"`
	FirstName          string              `json:"first_name"`
	LastName           string              `json:"last_name"`
	Nickname           string              `json:"nickname"`
	Email              string              `json:"email"`
	EmailVerified      *bool               `json:"email_verified,omitempty"`
	AuthService        string              `json:"auth_service"`
	Position           string              `json:"position"`
	Roles              StringSet           `json:"roles"`
	Locale             string              `json:"locale"`
	LastPasswordUpdate *jsontime.UnixMilli `json:"last_password_update,omitempty"`
	LastPictureUpdate  *jsontime.UnixMilli `json:"last_picture_update,omitempty"`
	FailedAttempts     *int64              `json:"failed_attempts,omitempty"`
	MfaActive          *bool               `json:"mfa_active,omitempty"`
}

// ChannelMember is a user's membership record in one channel.
type ChannelMember struct {
	ChannelID     string              `json:"channel_id"`
	UserID        string              `json:"user_id"`
	Roles         StringSet           `json:"roles"`
	LastViewedAt  *jsontime.UnixMilli `json:"last_viewed_at,omitempty"`
	MsgCount      int64               `json:"msg_count"`
	MentionCount  int64               `json:"mention_count"`
	NotifyProps   NotifyProps         `json:"notify_props"`
	LastUpdateAt  *jsontime.UnixMilli `json:"last_update_at,omitempty"`
	SchemeUser    bool                `json:"scheme_user"`
	SchemeAdmin   bool                `json:"scheme_admin"`
	ExplicitRoles StringSet           `json:"explicit_roles"`
}

// NotifyProps is the per-channel notification preference bag.
type NotifyProps struct {
	Desktop               *string `json:"desktop,omitempty"`
	Email                 *string `json:"email,omitempty"`
	IgnoreChannelMentions *string `json:"ignore_channel_mentions,omitempty"`
	MarkUnread            *string `json:"mark_unread,omitempty"`
	Push                  *string `json:"push,omitempty"`
}
