package response

const (
	ErrCodeTokenMissing  = 4001 // No credential presented
	ErrCodeTokenInvalid  = 4002 // Credential invalid, expired or malformed
	ErrCodeUserNotFound  = 4003 // Credential resolves to no user
	ErrCodeUserInactive  = 4004 // User disabled
	ErrCodeParamInvalid  = 4005 // Request parameters invalid
	ErrCodeRateLimited   = 4290 // Too many requests
	ErrCodeInternal      = 5000 // Unexpected failure
	ErrCodeEventRejected = 4220 // Domain event failed validation
	ErrCodeNotFound      = 4040 // Resource not found
	ErrCodeUnauthorized  = 4010 // Missing or bad bearer token on REST routes
	ErrCodeForbidden     = 4030 // Internal ingest key mismatch
)

// message
var msg = map[int]string{
	// Handshake
	ErrCodeTokenMissing: "token missing",
	ErrCodeTokenInvalid: "invalid token",
	ErrCodeUserNotFound: "user not found",
	ErrCodeUserInactive: "user inactive",

	// Requests
	ErrCodeParamInvalid:  "invalid parameters",
	ErrCodeRateLimited:   "rate limit exceeded",
	ErrCodeInternal:      "internal error",
	ErrCodeEventRejected: "event rejected",
	ErrCodeNotFound:      "not found",
	ErrCodeUnauthorized:  "unauthorized",
	ErrCodeForbidden:     "forbidden",
}

// Msg returns the client-facing text for code, or an empty string for unknown codes.
func Msg(code int) string {
	return msg[code]
}
