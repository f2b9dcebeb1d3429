package user

import "errors"

var ErrUserIDRequired = errors.New("user id is required")
