package queue

// Routing keys on the auth.events topic exchange.
const (
	KeyOTPRequested = "otp.requested"
	KeyUserLoggedIn = "user.loggedin"
)

// OTPRequested asks the notifier to mail a one-time code.
type OTPRequested struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type UserLoggedIn struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}
