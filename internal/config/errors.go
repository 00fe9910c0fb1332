package config

import "errors"

// ErrLoadConfig wraps failures reading the config file or environment.
var ErrLoadConfig = errors.New("load config failed")

// ErrInvalidConfig is returned when loaded values fail validation.
var ErrInvalidConfig = errors.New("invalid config")
