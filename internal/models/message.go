package models

import "time"

// ContentKind is the payload variant carried by a message.
type ContentKind string

const (
	ContentText    ContentKind = "text"
	ContentImage   ContentKind = "image"
	ContentVideo   ContentKind = "video"
	ContentFile    ContentKind = "file"
	ContentSticker ContentKind = "sticker"
	ContentPoll    ContentKind = "poll"
	ContentCall    ContentKind = "call"
)

// Message is one entry of a channel's append log. Ordering within a channel
// is (created_at, id); the serial id breaks timestamp ties so client clocks
// never participate in ordering.
type Message struct {
	ID          int64       `db:"id" json:"id"`
	ChannelID   int         `db:"channel_id" json:"channel_id"`
	SenderID    int         `db:"sender_id" json:"sender_id"`
	ContentKind ContentKind `db:"content_kind" json:"content_kind"`
	Content     string      `db:"content" json:"content"`

	AttachmentURL  *string `db:"attachment_url" json:"attachment_url,omitempty"`
	AttachmentName *string `db:"attachment_name" json:"attachment_name,omitempty"`

	// Reply snapshot, captured when the reply is sent. Deliberately not a
	// live reference: later edits or deletes of the original do not update it.
	ReplyToID       *int64  `db:"reply_to_id" json:"reply_to_id,omitempty"`
	ReplySnippet    *string `db:"reply_snippet" json:"reply_snippet,omitempty"`
	ReplySenderName *string `db:"reply_sender_name" json:"reply_sender_name,omitempty"`

	PollQuestion *string `db:"poll_question" json:"-"`
	PollMultiple bool    `db:"poll_multiple" json:"-"`

	CallRoomID *string `db:"call_room_id" json:"call_room_id,omitempty"`
	CallEnded  bool    `db:"call_ended" json:"call_ended,omitempty"`

	IsPinned  bool       `db:"is_pinned" json:"is_pinned"`
	PinnedAt  *time.Time `db:"pinned_at" json:"pinned_at,omitempty"`
	IsEdited  bool       `db:"is_edited" json:"is_edited"`
	IsDeleted bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`

	// Hydrated annotation sets, not columns of the messages table.
	Reactions []ReactionGroup `db:"-" json:"reactions,omitempty"`
	ReadBy    []int           `db:"-" json:"read_by,omitempty"`
	Poll      *Poll           `db:"-" json:"poll,omitempty"`
}

// MessageEdit is one immutable entry of a message's edit history, holding
// the pre-edit content.
type MessageEdit struct {
	ID        int       `db:"id" json:"id"`
	MessageID int64     `db:"message_id" json:"message_id"`
	Content   string    `db:"content" json:"content"`
	EditedAt  time.Time `db:"edited_at" json:"edited_at"`
}

// ReactionGroup is the per-emoji rollup of a message's reactions.
type ReactionGroup struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
	Users []int  `json:"users"`
}

// Draft is the client-supplied part of an append.
type Draft struct {
	ContentKind    ContentKind
	Content        string
	AttachmentURL  string
	AttachmentName string
	ReplyToID      int64
	CallRoomID     string
}

// ChannelEvent is broadcast over websockets to a channel's subscribers.
type ChannelEvent struct {
	Type      string   `json:"type"`
	ChannelID int      `json:"channel_id"`
	Message   *Message `json:"message,omitempty"`
	MessageID int64    `json:"message_id,omitempty"`
	UserID    int      `json:"user_id,omitempty"`
	Emoji     string   `json:"emoji,omitempty"`
	OptionID  int      `json:"option_id,omitempty"`
	Pinned    *bool    `json:"pinned,omitempty"`
	Typers    []string `json:"typers,omitempty"`

	Reactions []ReactionGroup `json:"reactions,omitempty"`
	Poll      *Poll           `json:"poll,omitempty"`
}

// Event types pushed through the hub.
const (
	EventMessage       = "message"
	EventMessageEdited = "message_edited"
	EventMessageUnsent = "message_unsent"
	EventReaction      = "reaction"
	EventPin           = "pin"
	EventPollVote      = "poll_vote"
	EventRead          = "read"
	EventTyping        = "typing"
	EventCallEnded     = "call_ended"
)
