package models

import "gorm.io/datatypes"

// BroadcastLogModel is the persistence representation of an outbound
// notification attempt. ProviderMeta stores the raw provider response.
type BroadcastLogModel struct {
	ID           uint           `gorm:"primaryKey;autoIncrement"`
	Channel      string         `gorm:"type:varchar(20);not null;index"`
	Recipient    string         `gorm:"type:varchar(64);not null;index"`
	TrackingRef  string         `gorm:"type:varchar(64);index"`
	Message      string         `gorm:"type:text"`
	Status       string         `gorm:"type:varchar(20);not null;index"`
	ErrorDetail  string         `gorm:"type:text"`
	ProviderMeta datatypes.JSON `gorm:"type:json"`
	SentAt       int64          `gorm:"not null;index"`
	CreatedAt    int64          `gorm:"not null"`
	UpdatedAt    int64          `gorm:"not null"`
}

// TableName returns the table name for BroadcastLogModel
func (BroadcastLogModel) TableName() string {
	return "broadcast_logs"
}
