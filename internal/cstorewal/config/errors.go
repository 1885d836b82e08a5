package config

import (
	"errors"
	"fmt"
)

type ConfigErrorKind int

const (
	ConfigErrorKindNotFound ConfigErrorKind = iota + 1
	ConfigErrorKindUnsupportedVersion
	ConfigErrorKindInvalid
	ConfigErrorKindEncode
	ConfigErrorKindDecode
	ConfigErrorKindWrite
	ConfigErrorKindAlreadyExists
	ConfigErrorKindUnknown
)

func (k ConfigErrorKind) String() string {
	switch k {
	case ConfigErrorKindNotFound:
		return "not_found"
	case ConfigErrorKindUnsupportedVersion:
		return "unsupported_version"
	case ConfigErrorKindInvalid:
		return "invalid"
	case ConfigErrorKindEncode:
		return "encode"
	case ConfigErrorKindDecode:
		return "decode"
	case ConfigErrorKindWrite:
		return "write"
	case ConfigErrorKindAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

var (
	ErrConfigNotFound           = errors.New("config: file not found")
	ErrConfigUnsupportedVersion = errors.New("config: unsupported version")
	ErrConfigInvalid            = errors.New("config: invalid settings")
	ErrConfigEncode             = errors.New("config: unable to encode to JSON")
	ErrConfigDecode             = errors.New("config: unable to decode from JSON")
	ErrConfigWrite              = errors.New("config: unable to write to file")
	ErrConfigAlreadyExists      = errors.New("config: file already exists")
)

type ConfigError struct {
	Kind ConfigErrorKind
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("config error (%s) %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	switch e.Kind {
	case ConfigErrorKindNotFound:
		return ErrConfigNotFound
	case ConfigErrorKindUnsupportedVersion:
		return ErrConfigUnsupportedVersion
	case ConfigErrorKindInvalid:
		return ErrConfigInvalid
	case ConfigErrorKindEncode:
		return ErrConfigEncode
	case ConfigErrorKindDecode:
		return ErrConfigDecode
	case ConfigErrorKindWrite:
		return ErrConfigWrite
	case ConfigErrorKindAlreadyExists:
		return ErrConfigAlreadyExists
	default:
		return e.Err
	}
}

// CauseErr returns the underlying error.
func (e *ConfigError) CauseErr() error { return e.Err }
