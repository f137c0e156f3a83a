// Package account contains the staff account entity: admins managing the
// dashboard and agents handling tickets.
package account

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"parceldesk/internal/shared/biztime"
	"parceldesk/internal/shared/sanitize"
)

// Role is the account role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

var validRoles = map[Role]bool{
	RoleAdmin: true,
	RoleAgent: true,
}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// NewRole parses a role string.
func NewRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid account role: %s", s)
	}
	return r, nil
}

// Account is a staff identity. Credential hashing happens in the
// infrastructure layer; the entity only stores the resulting hash.
type Account struct {
	id             uint
	displayName    string
	email          string
	credentialHash string
	role           Role
	active         bool
	createdAt      time.Time
	updatedAt      time.Time
}

func NewAccount(displayName, email, credentialHash string, role Role) (*Account, error) {
	displayName = sanitize.Text(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("display name is required")
	}
	if len(displayName) > 100 {
		return nil, fmt.Errorf("display name exceeds maximum length of 100 characters")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email address: %s", email)
	}

	if credentialHash == "" {
		return nil, fmt.Errorf("credential hash is required")
	}

	if !role.IsValid() {
		return nil, fmt.Errorf("invalid account role: %s", role)
	}

	now := biztime.NowUTC()
	return &Account{
		displayName:    displayName,
		email:          email,
		credentialHash: credentialHash,
		role:           role,
		active:         true,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructAccount rebuilds an account from persistence without validation.
func ReconstructAccount(
	id uint,
	displayName string,
	email string,
	credentialHash string,
	role Role,
	active bool,
	createdAt time.Time,
	updatedAt time.Time,
) *Account {
	return &Account{
		id:             id,
		displayName:    displayName,
		email:          email,
		credentialHash: credentialHash,
		role:           role,
		active:         active,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (a *Account) ID() uint               { return a.id }
func (a *Account) DisplayName() string    { return a.displayName }
func (a *Account) Email() string          { return a.email }
func (a *Account) CredentialHash() string { return a.credentialHash }
func (a *Account) Role() Role             { return a.role }
func (a *Account) IsActive() bool         { return a.active }
func (a *Account) CreatedAt() time.Time   { return a.createdAt }
func (a *Account) UpdatedAt() time.Time   { return a.updatedAt }

// SetID assigns the persistence-generated ID once.
func (a *Account) SetID(id uint) error {
	if a.id != 0 {
		return fmt.Errorf("account ID already set")
	}
	a.id = id
	return nil
}

func (a *Account) Activate() {
	a.active = true
	a.updatedAt = biztime.NowUTC()
}

func (a *Account) Deactivate() {
	a.active = false
	a.updatedAt = biztime.NowUTC()
}

func (a *Account) ChangeRole(role Role) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid account role: %s", role)
	}
	a.role = role
	a.updatedAt = biztime.NowUTC()
	return nil
}

func (a *Account) Rename(displayName string) error {
	displayName = sanitize.Text(displayName)
	if displayName == "" {
		return fmt.Errorf("display name is required")
	}
	a.displayName = displayName
	a.updatedAt = biztime.NowUTC()
	return nil
}
