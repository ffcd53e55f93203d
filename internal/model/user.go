package model

import "time"

// Role is the user role managed by the identity service
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "ALUMNO"
)

// User is the externally managed identity row. The chat core only reads it
// (username for message payloads) and references it by id.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255"`
	Role         Role      `json:"role" gorm:"type:varchar(20);default:'ALUMNO'"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated principal resolved from a credential
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// ToIdentity converts a User to the principal carried through requests
func (u *User) ToIdentity() *Identity {
	return &Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}
