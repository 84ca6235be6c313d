package models

// ErrorResponse is a standardized error response for API
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ConnectedUsersResponse is the admin view of the live registry.
type ConnectedUsersResponse struct {
	ConnectedUsers []uint `json:"connected_users"`
	Total          int    `json:"total"`
}
