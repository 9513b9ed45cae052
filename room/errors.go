package room

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("invalid request")
	ErrRoomFull      = fmt.Errorf("%w: room is full", ErrValidation)
	ErrTurn          = errors.New("not your turn")
	ErrIllegalMove   = errors.New("illegal move")
	ErrAuthorization = errors.New("not allowed")
	ErrCodeTaken     = errors.New("room code already in use")
)

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

func illegalf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrIllegalMove}, args...)...)
}

func forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrAuthorization}, args...)...)
}
