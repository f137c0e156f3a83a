// Package models defines the gorm persistence models. Timestamps are stored
// as Unix milliseconds.
package models

// AccountModel is the persistence representation of a staff account.
type AccountModel struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	DisplayName    string `gorm:"type:varchar(100);not null"`
	Email          string `gorm:"type:varchar(255);uniqueIndex;not null"`
	CredentialHash string `gorm:"type:varchar(255);not null"`
	Role           string `gorm:"type:varchar(20);not null;index"`
	Active         bool   `gorm:"not null;default:true"`
	CreatedAt      int64  `gorm:"not null"`
	UpdatedAt      int64  `gorm:"not null"`
}

// TableName returns the table name for AccountModel
func (AccountModel) TableName() string {
	return "accounts"
}
