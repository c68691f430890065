package auth

// User is the authenticated account as returned by the auth endpoints.
type User struct {
	ID       int     `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
}

// TokenResponse is the payload of a successful login or registration.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}
