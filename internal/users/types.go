package users

import "time"

// User is the read-only local projection of a remote identity. The identity
// platform owns the account; this row only exists for fast lookups and
// duplicate-email checks.
type User struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Email           string    `gorm:"uniqueIndex" json:"email"`
	ProfileImageRef *string   `json:"profile_image_ref,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName keeps the projection on the migrated users table.
func (User) TableName() string { return "users" }

// UserDTO is the transport shape returned to clients.
type UserDTO struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	ProfileImageRef *string `json:"profile_image_ref,omitempty"`
}

func FromModel(u *User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		ProfileImageRef: u.ProfileImageRef,
	}
}
