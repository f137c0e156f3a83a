package models

// TicketModel is the persistence representation of a support ticket.
type TicketModel struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	Number          string `gorm:"type:varchar(20);uniqueIndex;not null"`
	TrackingRef     string `gorm:"type:varchar(64);index"`
	CustomerContact string `gorm:"type:varchar(64)"`
	Subject         string `gorm:"type:varchar(200);not null"`
	Description     string `gorm:"type:text"`
	Status          string `gorm:"type:varchar(20);not null;index"`
	Priority        string `gorm:"type:varchar(20);not null;index"`
	AssigneeID      *uint  `gorm:"index"`
	CreatedAt       int64  `gorm:"not null;index"`
	UpdatedAt       int64  `gorm:"not null"`
	ClosedAt        *int64

	Comments []TicketCommentModel `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for TicketModel
func (TicketModel) TableName() string {
	return "tickets"
}

// TicketCommentModel is the persistence representation of a ticket comment.
type TicketCommentModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TicketID  uint   `gorm:"not null;index"`
	AuthorID  *uint  `gorm:"index"`
	Text      string `gorm:"type:text;not null"`
	Internal  bool   `gorm:"not null;default:false"`
	CreatedAt int64  `gorm:"not null"`
}

// TableName returns the table name for TicketCommentModel
func (TicketCommentModel) TableName() string {
	return "ticket_comments"
}
