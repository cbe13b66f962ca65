package dto

// ErrorResponse is the error body every endpoint returns. The single
// "detail" field is a compatibility contract with existing API clients
// and must not grow siblings.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NewErrorResponse creates an error response
func NewErrorResponse(detail string) ErrorResponse {
	return ErrorResponse{Detail: detail}
}
