package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid input")

	ErrInvalidBackend = errors.New("invalid backend")
	ErrRemoteWrite    = errors.New("remote write failed")
	ErrRemoteRead     = errors.New("remote read failed")
	ErrAuth           = errors.New("authentication failed")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
