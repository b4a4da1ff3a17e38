package model

import "errors"

const (
	ErrCodeUserNotFound   = "USR001"
	ErrCodeInvalidProfile = "USR002"
	ErrCodeInvalidFID     = "USR003"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrInvalidFID     = errors.New("fid must be a positive integer")
)

type UserError struct {
	Code    string
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func NewUserError(code, message string, err error) *UserError {
	return &UserError{Code: code, Message: message, Err: err}
}
