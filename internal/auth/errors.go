package auth

import "github.com/lalith-99/echocrm/internal/apperr"

// Provider error codes. The set is closed; Message maps anything else to
// a generic message.
const (
	CodeEmailInUse      = "auth/email-already-in-use"
	CodeInvalidEmail    = "auth/invalid-email"
	CodeWeakPassword    = "auth/weak-password"
	CodeUserNotFound    = "auth/user-not-found"
	CodeWrongPassword   = "auth/wrong-password"
	CodeTooManyRequests = "auth/too-many-requests"
	CodeTokenExpired    = "auth/user-token-expired"
)

const genericMessage = "An error occurred. Please try again."

var messages = map[string]string{
	CodeEmailInUse:      "Email already in use. Please login instead.",
	CodeInvalidEmail:    "Invalid email address.",
	CodeWeakPassword:    "Password is too weak. Use at least 6 characters.",
	CodeUserNotFound:    "No account found with this email.",
	CodeWrongPassword:   "Incorrect password. Please try again.",
	CodeTooManyRequests: "Too many failed attempts. Please try again later.",
	CodeTokenExpired:    "Your session has expired. Please sign in again.",
}

// Message is the user-facing text for a provider error code.
func Message(code string) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return genericMessage
}

func authError(code string) *apperr.Error {
	return apperr.Auth(code, Message(code))
}
