package global

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type APIResponse struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

func SuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

func ErrorResponse(message string, errors []ValidationError) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Errors:  errors,
	}
}

// ErrorResponseWithData is used when the client still needs a payload to render,
// e.g. a shipping display state alongside the failure.
func ErrorResponseWithData(message string, data interface{}, errors []ValidationError) APIResponse {
	return APIResponse{
		Success: false,
		Data:    data,
		Message: message,
		Errors:  errors,
	}
}
