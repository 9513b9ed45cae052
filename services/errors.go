package services

import (
	"errors"

	"github.com/wfunc/tysiac/persistence"
	"github.com/wfunc/tysiac/room"
)

// Error codes returned in failed responses.
const (
	CodeNotFound      = "not_found"
	CodeValidation    = "validation"
	CodeRoomFull      = "room_full"
	CodeTurn          = "turn"
	CodeIllegalMove   = "illegal_move"
	CodeAuthorization = "authorization"
	CodeConflict      = "conflict"
	CodeInternal      = "internal"
)

// ErrorCode classifies err into one of the stable response codes.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, room.ErrRoomFull):
		// 必须先于 ErrValidation 判断
		return CodeRoomFull
	case errors.Is(err, room.ErrValidation):
		return CodeValidation
	case errors.Is(err, room.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, room.ErrTurn):
		return CodeTurn
	case errors.Is(err, room.ErrIllegalMove):
		return CodeIllegalMove
	case errors.Is(err, room.ErrAuthorization):
		return CodeAuthorization
	case errors.Is(err, persistence.ErrVersionConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}
