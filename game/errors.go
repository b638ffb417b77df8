package game

import "errors"

var (
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrRoomClosed      = errors.New("room closed")
)
