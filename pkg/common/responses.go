package common

import "net/http"

// Response is the JSON envelope returned by every endpoint.
type Response struct {
	Status  int         `json:"status"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}, message string) Response {
	return Response{Status: http.StatusOK, Success: true, Message: message, Data: data}
}

func NewErrorResponse(message string, data interface{}, status int) Response {
	return Response{Status: status, Message: message, Data: data}
}

// Accepted marks a response as acknowledged but not yet final.
func (r Response) Accepted() Response {
	r.Status = http.StatusAccepted
	r.Success = true
	return r
}
