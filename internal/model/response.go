package model

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  Profile `json:"user"`
	Token string  `json:"token,omitempty"`
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DocumentURL  string `json:"documentUrl"`
	SubmissionID string `json:"submissionId"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EmailResponse is returned after a report was mailed.
type EmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EmailID string `json:"emailId"`
}
