package domain

import "time"

// Comment is one entry in a ticket's conversation thread. Comments are
// append-only: never edited or deleted once created.
type Comment struct {
	ID          string
	TicketID    string
	AuthorID    *string
	AuthorName  string
	AuthorRole  Role
	Body        string
	Internal    bool
	Attachments []AttachmentReference
	CreatedAt   time.Time
}

// AttachmentReference stores metadata for a comment attachment. The
// bytes live in external storage; only the reference crosses this
// boundary.
type AttachmentReference struct {
	ID         string
	CommentID  string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
