package config

import "errors"

var (
	ErrParse   = errors.New("config: invalid yaml")
	ErrInvalid = errors.New("config: invalid value")
)
