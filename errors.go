package spinebox

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSelection is returned when an operation needs a decoded selection
	// and none is live yet.
	ErrNoSelection = errors.New("spinebox: no decoded selection")
	// ErrIndexOutOfRange is returned by index-based selection changes.
	ErrIndexOutOfRange = errors.New("spinebox: index out of range")
)

// WrongArityError reports a drop that did not contain exactly DropArity files.
type WrongArityError struct {
	Got int
}

func (e *WrongArityError) Error() string {
	return fmt.Sprintf("spinebox: dropped %d files, not %d (atlas, skeleton, texture)", e.Got, DropArity)
}

// UnsupportedFileTypeError reports a dropped file that is neither an atlas,
// a skeleton nor a texture. It is non-fatal: the bundle proceeds without it.
type UnsupportedFileTypeError struct {
	Name     string
	MIMEType string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("spinebox: unsupported file %q (type %q)", e.Name, e.MIMEType)
}

// DecodeStage identifies which resolution step of a decode failed.
type DecodeStage string

const (
	StageAtlas    DecodeStage = "atlas"
	StageSkeleton DecodeStage = "skeleton"
	StageTexture  DecodeStage = "texture"
	StageBind     DecodeStage = "bind"
)

// DecodeError aborts a single decode attempt.
type DecodeError struct {
	Stage DecodeStage
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("spinebox: decode %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FetchError reports an unreachable reference payload.
type FetchError struct {
	Locator string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("spinebox: fetch %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CacheError wraps a persistent cache failure. It never aborts ingestion.
type CacheError struct {
	Op  string
	ID  string
	Err error
}

func (e *CacheError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("spinebox: cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("spinebox: cache %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
