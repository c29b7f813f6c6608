package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds returned by the repository. Callers match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// missing maps gorm's not-found to kind, leaving other errors untouched.
func missing(err error, kind error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d not found", kind, what, id)
	}
	return err
}
