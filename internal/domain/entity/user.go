package entity

import (
	"time"
)

// UserRole is the fixed role set understood by the stats and role-change
// operations.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
	RoleGuest UserRole = "guest"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

// User is the aggregate root for the user domain. Stored documents
// serialize dates as RFC 3339 strings and are parsed back on every read.
type User struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	DisplayName   string       `json:"displayName,omitempty"`
	PhotoURL      string       `json:"photoURL,omitempty"`
	EmailVerified bool         `json:"emailVerified"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	Metadata      UserMetadata `json:"metadata"`
}

type UserMetadata struct {
	LastLoginAt    *time.Time       `json:"lastLoginAt,omitempty"`
	SignInProvider string           `json:"signInProvider,omitempty"`
	IsActive       bool             `json:"isActive"`
	Role           UserRole         `json:"role,omitempty"`
	Preferences    *UserPreferences `json:"preferences,omitempty"`
}

type UserPreferences struct {
	Theme         string                   `json:"theme,omitempty"` // light, dark, system
	Language      string                   `json:"language,omitempty"`
	Notifications *NotificationPreferences `json:"notifications,omitempty"`
}

type NotificationPreferences struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// CreateUser carries the fields a caller may set on creation. ID is
// assigned by the repository when empty.
type CreateUser struct {
	ID            string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	Metadata      *UserMetadata
}

// CreateUserWithAuth is the authenticating creation path: the password is
// validated and persisted as a credential artifact keyed by the new id.
type CreateUserWithAuth struct {
	Email       string
	Password    string
	DisplayName string
}

// UpdateUser is a partial update. Nil fields are left untouched; a
// non-nil Metadata replaces the stored metadata wholesale.
type UpdateUser struct {
	DisplayName   *string
	PhotoURL      *string
	EmailVerified *bool
	Metadata      *UserMetadata
}

// MetadataPatch merges into existing metadata field by field, unlike
// UpdateUser.Metadata which replaces it.
type MetadataPatch struct {
	LastLoginAt    *time.Time
	SignInProvider *string
	IsActive       *bool
	Role           *UserRole
	Preferences    *UserPreferences
}

// Apply merges the patch into m.
func (p *MetadataPatch) Apply(m *UserMetadata) {
	if p == nil {
		return
	}
	if p.LastLoginAt != nil {
		m.LastLoginAt = p.LastLoginAt
	}
	if p.SignInProvider != nil {
		m.SignInProvider = *p.SignInProvider
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
	}
	if p.Role != nil {
		m.Role = *p.Role
	}
	if p.Preferences != nil {
		m.Preferences = p.Preferences
	}
}

// UpdateProfile is the profile-facing partial update: display fields plus
// a field-wise metadata merge.
type UpdateProfile struct {
	DisplayName *string
	PhotoURL    *string
	Metadata    *MetadataPatch
}
