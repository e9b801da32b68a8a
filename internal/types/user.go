package types

import (
	"time"

	"github.com/google/uuid"
)

// UserAuth is the authentication account row. The password hash never leaves
// the repository layer in responses.
type UserAuth struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserProfile mirrors the user_profiles table. The profile id is the auth
// account id.
type UserProfile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateProfileParams carries the fields a user may change on their own
// profile. Nil means "leave unchanged".
type UpdateProfileParams struct {
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// UserWithRoles is the admin user-management listing row.
type UserWithRoles struct {
	Profile UserProfile `json:"profile"`
	Roles   []Role      `json:"roles"`
}
