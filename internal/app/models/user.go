package models

import "time"

// RoleType is the platform role of a user
type RoleType string

const (
	RoleStudent    RoleType = "student"
	RoleCounsellor RoleType = "counsellor"
	RoleAdmin      RoleType = "admin"
	RoleSuperAdmin RoleType = "superadmin"
)

// College defines the tenant model based on the 'colleges' table.
// Every community, conversation and user belongs to exactly one college.
type College struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Domain    string    `json:"domain" db:"domain"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// User defines the user model based on the 'users' table
type User struct {
	ID            int64      `json:"id" db:"id"`
	CollegeID     int64      `json:"collegeId" db:"college_id"`
	Email         string     `json:"email" db:"email"`
	Password      string     `json:"-" db:"password"` // hashed, excluded from JSON
	FirstName     string     `json:"firstName" db:"first_name"`
	LastName      string     `json:"lastName" db:"last_name"`
	Role          RoleType   `json:"role" db:"role"`
	AnonymousName *string    `json:"-" db:"anonymous_name"` // persistent handle shown for students in communities
	IsActive      bool       `json:"isActive" db:"is_active"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName returns the user's real display name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// RefreshToken defines a stored refresh token based on the 'refresh_tokens' table
type RefreshToken struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"userId" db:"user_id"`
	Token     string     `json:"-" db:"token"`
	ExpiresAt time.Time  `json:"expiresAt" db:"expires_at"`
	RevokedAt *time.Time `json:"revokedAt,omitempty" db:"revoked_at"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}
