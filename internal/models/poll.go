package models

// Poll is the hydrated poll payload of a poll-kind message.
type Poll struct {
	Question      string       `json:"question"`
	AllowMultiple bool         `json:"allow_multiple"`
	Options       []PollOption `json:"options"`
}

// PollOption is one answer with its voter set.
type PollOption struct {
	ID       int    `db:"id" json:"id"`
	Position int    `db:"position" json:"position"`
	Label    string `db:"label" json:"label"`
	Voters   []int  `db:"-" json:"voters"`
}
