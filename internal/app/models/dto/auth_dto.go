package dto

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token for rotation
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenResponse represents issued credentials
type TokenResponse struct {
	AccessToken      string       `json:"accessToken"`
	RefreshToken     string       `json:"refreshToken"`
	ExpiresIn        int          `json:"expiresIn"`
	RefreshExpiresIn int          `json:"refreshExpiresIn"`
	User             *UserSummary `json:"user,omitempty"`
}

// SocketTokenResponse carries a short-lived websocket credential
type SocketTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// UserSummary is the public projection of a user
type UserSummary struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	CollegeID int64  `json:"collegeId"`
}
