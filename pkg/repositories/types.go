package repositories

import "errors"

type ErrNotFound struct {
}

func (e *ErrNotFound) Error() string {
	return "not found"
}

func IsNotFound(err error) bool {
	var notFound *ErrNotFound
	return errors.As(err, &notFound)
}

type ErrNameExists struct {
}

func (e *ErrNameExists) Error() string {
	return "name already exists"
}

func IsNameExists(err error) bool {
	var nameExists *ErrNameExists
	return errors.As(err, &nameExists)
}
