package artwork

import (
	"errors"
	"fmt"
)

var (
	// ErrResize indicates the local image could not be decoded or resized
	ErrResize = errors.New("resize failed")
	// ErrUpload indicates the image host did not return a usable URL
	ErrUpload = errors.New("upload failed")
)

// ResolveError describes a failed local cover art resolution
type ResolveError struct {
	Op   string // "read", "resize" or "upload"
	Path string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("artwork %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
