package model

// DefaultAdminGroup is the group whose members act as patient administrators
const DefaultAdminGroup = "patient_admin"

// User represents a login identity. It may own at most one clinician
// profile and at most one patient profile.
type User struct {
	ID           int64    `json:"id" db:"id"`
	Email        string   `json:"email" db:"email"`
	Name         string   `json:"name" db:"name"`
	PasswordHash string   `json:"-" db:"password_hash"`
	IsActive     bool     `json:"is_active" db:"is_active"`
	Groups       []string `json:"groups" db:"-"`
	Timestamps
}

// InGroup reports whether the user belongs to group
func (u *User) InGroup(group string) bool {
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Email    string   `json:"email" binding:"required,email,max=254"`
	Name     string   `json:"name" binding:"max=255"`
	Password string   `json:"password" binding:"required,min=8"`
	IsActive *bool    `json:"is_active"`
	Groups   []string `json:"groups" binding:"omitempty,dive,required,max=150"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
