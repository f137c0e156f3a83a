package ticket

import (
	"fmt"
	"time"

	"parceldesk/internal/shared/biztime"
	"parceldesk/internal/shared/sanitize"
)

// Comment is a ticket note. Internal comments are visible to staff only.
// Comments belong to their ticket and are deleted with it.
type Comment struct {
	id        uint
	ticketID  uint
	authorID  *uint
	text      string
	internal  bool
	createdAt time.Time
}

func NewComment(ticketID uint, authorID *uint, text string, internal bool) (*Comment, error) {
	text = sanitize.Text(text)
	if text == "" {
		return nil, fmt.Errorf("comment text is required")
	}
	if len(text) > 2000 {
		return nil, fmt.Errorf("comment exceeds maximum length of 2000 characters")
	}

	return &Comment{
		ticketID:  ticketID,
		authorID:  authorID,
		text:      text,
		internal:  internal,
		createdAt: biztime.NowUTC(),
	}, nil
}

// NewSystemComment creates an internal comment with no author, used for
// automated annotations such as close notes.
func NewSystemComment(ticketID uint, text string) (*Comment, error) {
	return NewComment(ticketID, nil, text, true)
}

// ReconstructComment rebuilds a comment from persistence without validation.
func ReconstructComment(
	id uint,
	ticketID uint,
	authorID *uint,
	text string,
	internal bool,
	createdAt time.Time,
) *Comment {
	return &Comment{
		id:        id,
		ticketID:  ticketID,
		authorID:  authorID,
		text:      text,
		internal:  internal,
		createdAt: createdAt,
	}
}

func (c *Comment) ID() uint             { return c.id }
func (c *Comment) TicketID() uint       { return c.ticketID }
func (c *Comment) AuthorID() *uint      { return c.authorID }
func (c *Comment) Text() string         { return c.text }
func (c *Comment) IsInternal() bool     { return c.internal }
func (c *Comment) CreatedAt() time.Time { return c.createdAt }

// SetID assigns the persistence-generated ID once.
func (c *Comment) SetID(id uint) error {
	if c.id != 0 {
		return fmt.Errorf("comment ID already set")
	}
	c.id = id
	return nil
}
