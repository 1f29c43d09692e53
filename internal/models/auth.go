package models

// LoginRequest defines the structure for login requests
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest defines the structure for member self-registration
type RegisterRequest struct {
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Phone          string `json:"phone"`
	MembershipType string `json:"membershipType"`
}

// AuthResponse is returned after a successful login or registration.
type AuthResponse struct {
	Token  string  `json:"token"`
	Member *Member `json:"member"`
}
