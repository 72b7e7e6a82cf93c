package types

import "errors"

var (
	ErrClientNotFound   = errors.New("client not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrInvalidDriver    = errors.New("invalid database driver")
	ErrSessionClosed    = errors.New("session closed")
	ErrUnexpectedPacket = errors.New("unexpected message from client")
)
