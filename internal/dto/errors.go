package dto

// BaseError универсальный формат ошибки.
// Code — машинно-ориентированный код (snake_case),
// Message — краткое человеко-читаемое описание,
// Details — дополнительная строка (диагностика).
type BaseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewValidationError(msg string) BaseError {
	return BaseError{Code: "validation_error", Message: msg}
}

func NewNotFoundError(msg string) BaseError {
	return BaseError{Code: "not_found", Message: msg}
}

func NewConflictError(msg string) BaseError {
	return BaseError{Code: "conflict", Message: msg}
}

func NewGoneError(msg string) BaseError {
	return BaseError{Code: "gone", Message: msg}
}

func NewInternalError(details string) BaseError {
	return BaseError{Code: "internal_error", Message: "internal server error", Details: details}
}
