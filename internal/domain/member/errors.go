package member

import "errors"

var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrFirstNameRequired  = errors.New("first name is required")
	ErrShortNameTaken     = errors.New("short name taken")
	ErrShortNameExhausted = errors.New("short name generation failed")
	ErrParentNotFound     = errors.New("parent not found")
	ErrSpouseNotFound     = errors.New("spouse not found")
	ErrSelfReference      = errors.New("member cannot reference itself")
	ErrInvalidChildNumber = errors.New("child number must be positive")
)
