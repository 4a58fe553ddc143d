package service

import (
	"errors"
	"fmt"

	"github.com/shinyyama/skillswap-backend/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnauthorized       = errors.New("not allowed")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInvalidState       = errors.New("invalid state")
	ErrAlreadyRated       = errors.New("already rated")
	ErrConflict           = errors.New("conflict")
	ErrBanned             = errors.New("user is banned")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnavailable        = errors.New("unavailable")
)

func invalidArg(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// storeErr maps repository errors onto the service vocabulary. Anything it
// does not recognise is returned unchanged.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrDBNotReady):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
