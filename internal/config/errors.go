package config

import (
	"errors"
)

// Sentinel errors so callers can distinguish a broken source (file,
// env) from a config that parsed but fails validation.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
