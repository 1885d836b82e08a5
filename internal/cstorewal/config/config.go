// Package config reads and writes the engine settings file.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/julianstephens/go-utils/helpers"
	"github.com/julianstephens/go-utils/jsonutil"

	"github.com/julianstephens/cstorewal/internal/cstorewal"
	"github.com/julianstephens/cstorewal/internal/logger"
)

// File is the on-disk layout of cstorewal.json. Zero fields take defaults.
type File struct {
	Version         int    `json:"version"`
	Root            string `json:"root"`
	MaxSegmentBytes int64  `json:"max_segment_bytes"`
	RotationMargin  int64  `json:"rotation_margin"`
	QueueSize       int    `json:"queue_size"`
	WriterMode      string `json:"writer_mode"`
	SyncOnAppend    bool   `json:"sync_on_append"`
	LogMaxSize      *int   `json:"log_max_size,omitempty"`
	LogMaxBackups   *int   `json:"log_max_backups,omitempty"`
	LogMaxAgeDays   *int   `json:"log_max_age_days,omitempty"`
}

// Default returns a File holding the built-in defaults.
func Default() *File {
	return FromOptions(cstorewal.DefaultOptions())
}

// FromOptions captures opts as a File.
func FromOptions(opts cstorewal.Options) *File {
	return &File{
		Version:         cstorewal.ConfigVersion,
		Root:            opts.Root,
		MaxSegmentBytes: opts.MaxSegmentBytes,
		RotationMargin:  opts.RotationMargin,
		QueueSize:       opts.QueueSize,
		WriterMode:      opts.WriterMode,
		SyncOnAppend:    opts.SyncOnAppend,
	}
}

// Path returns the config file path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, cstorewal.ConfigFileName)
}

// Options converts f to engine options, filling unset fields with defaults.
func (f *File) Options() cstorewal.Options {
	opts := cstorewal.DefaultOptions()
	if f == nil {
		return opts
	}
	if f.Root != "" {
		opts.Root = f.Root
	}
	if f.MaxSegmentBytes != 0 {
		opts.MaxSegmentBytes = f.MaxSegmentBytes
	}
	if f.RotationMargin != 0 {
		opts.RotationMargin = f.RotationMargin
	}
	if f.QueueSize != 0 {
		opts.QueueSize = f.QueueSize
	}
	if f.WriterMode != "" {
		opts.WriterMode = f.WriterMode
	}
	opts.SyncOnAppend = f.SyncOnAppend
	return opts
}

// LogRotation returns the file logger limits, falling back to the defaults
// for unset or out-of-range values.
func (f *File) LogRotation() logger.Rotation {
	rot := logger.Rotation{
		MaxSizeMB:  cstorewal.DefaultLogMaxSize,
		MaxBackups: cstorewal.DefaultLogMaxBackups,
		MaxAgeDays: cstorewal.DefaultLogMaxAgeDays,
	}
	if f.LogMaxSize != nil && *f.LogMaxSize > 0 {
		rot.MaxSizeMB = *f.LogMaxSize
	}
	if f.LogMaxBackups != nil && *f.LogMaxBackups >= 0 {
		rot.MaxBackups = *f.LogMaxBackups
	}
	if f.LogMaxAgeDays != nil && *f.LogMaxAgeDays >= 0 {
		rot.MaxAgeDays = *f.LogMaxAgeDays
	}
	return rot
}

// Create writes a default config file at path. It fails if one exists.
func Create(path string) error {
	if helpers.Exists(path) {
		return &ConfigError{
			Kind: ConfigErrorKindAlreadyExists,
			Path: path,
			Err:  fmt.Errorf("config already exists at %s", path),
		}
	}
	return Default().write(path)
}

// Load reads and validates the config file at path.
func Load(path string) (*File, error) {
	if !helpers.Exists(path) {
		return nil, &ConfigError{Kind: ConfigErrorKindNotFound, Path: path, Err: fs.ErrNotExist}
	}

	f := &File{}
	if err := jsonutil.ReadFileStrict(path, f); err != nil {
		return nil, &ConfigError{Kind: ConfigErrorKindDecode, Path: path, Err: err}
	}

	if f.Version > cstorewal.ConfigVersion {
		return nil, &ConfigError{
			Kind: ConfigErrorKindUnsupportedVersion,
			Path: path,
			Err:  fmt.Errorf("config version %d is not supported", f.Version),
		}
	}
	if err := f.Options().Validate(); err != nil {
		return nil, &ConfigError{Kind: ConfigErrorKindInvalid, Path: path, Err: err}
	}
	return f, nil
}

// Save replaces the config file at path. The file must already exist.
func (f *File) Save(path string) error {
	if !helpers.Exists(path) {
		return &ConfigError{Kind: ConfigErrorKindNotFound, Path: path, Err: fs.ErrNotExist}
	}
	return f.write(path)
}

func (f *File) write(path string) error {
	if err := f.Options().Validate(); err != nil {
		return &ConfigError{Kind: ConfigErrorKindInvalid, Path: path, Err: err}
	}
	data, err := jsonutil.Marshal(f)
	if err != nil {
		return &ConfigError{Kind: ConfigErrorKindEncode, Path: path, Err: err}
	}
	return writeFile(path, data)
}

func writeFile(filePath string, data []byte) error {
	if err := helpers.AtomicFileWrite(filePath, data); err != nil {
		return &ConfigError{Kind: ConfigErrorKindWrite, Path: filePath, Err: err}
	}
	d, err := os.Open(filepath.Dir(filePath)) //nolint:gosec
	if err != nil {
		return &ConfigError{Kind: ConfigErrorKindWrite, Path: filePath, Err: err}
	}
	defer func() { _ = d.Close() }()

	if err := d.Sync(); err != nil {
		return &ConfigError{Kind: ConfigErrorKindWrite, Path: filePath, Err: err}
	}
	return nil
}
