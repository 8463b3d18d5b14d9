package filecache

import "errors"

var (
	// ErrSerialization marks a value that could not be encoded or a file
	// that could not be decoded. It is only ever logged.
	ErrSerialization = errors.New("filecache: serialization failed")

	// ErrUnsafePath is returned when a resolved entry path would leave the
	// cache directory.
	ErrUnsafePath = errors.New("filecache: path escapes cache directory")

	// ErrUnknownFormat is returned for a format other than json or yaml.
	ErrUnknownFormat = errors.New("filecache: unknown format")
)
