package models

// LoginRequest holds credentials for authenticating a member.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the body returned by the login endpoint.
type LoginResult struct {
	User    *User  `json:"user"`
	Message string `json:"message"`
}

// Session describes the member signed in on this client.
type Session struct {
	UserID   int
	Username string
	IsAdmin  bool
}
