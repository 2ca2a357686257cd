package domain

var (
	ErrNotFound     = Error("not_found")
	ErrInvalidInput = Error("invalid_input")
)

type Error string

func (e Error) Error() string { return string(e) }
