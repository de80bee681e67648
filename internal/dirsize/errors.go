package dirsize

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrorKind classifies why a path could not be measured.
// Kinds are string-based so they serialize naturally to JSON.
type ErrorKind string

const (
	// KindNotFound indicates the path does not exist.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindNotADirectory indicates the path exists but is not a directory.
	KindNotADirectory ErrorKind = "NOT_A_DIRECTORY"
	// KindAccessDenied indicates a permission failure on a listing or metadata call.
	KindAccessDenied ErrorKind = "ACCESS_DENIED"
	// KindTransientRace indicates an entry disappeared between listing and measuring.
	KindTransientRace ErrorKind = "TRANSIENT_RACE"
	// KindWorkerFailed indicates a worker process crashed or could not be started.
	KindWorkerFailed ErrorKind = "WORKER_FAILED"
	// KindIO indicates any other I/O failure.
	KindIO ErrorKind = "IO_ERROR"
)

// Sentinel errors, one per ErrorKind, for use with errors.Is.
var (
	ErrNotFound      = errors.New("no such file or directory")
	ErrNotADirectory = errors.New("not a directory")
	ErrAccessDenied  = errors.New("access denied")
	ErrTransientRace = errors.New("entry vanished during scan")
	ErrWorkerFailed  = errors.New("worker process failed")
	ErrIO            = errors.New("i/o error")
)

// sentinel returns the sentinel error matching the kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindNotADirectory:
		return ErrNotADirectory
	case KindAccessDenied:
		return ErrAccessDenied
	case KindTransientRace:
		return ErrTransientRace
	case KindWorkerFailed:
		return ErrWorkerFailed
	default:
		return ErrIO
	}
}

// Classify maps an error returned by the os package to an ErrorKind.
func Classify(err error) ErrorKind {
	var scanErr ScanError
	var fatal *FatalError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &fatal):
		return fatal.Kind
	case errors.As(err, &scanErr):
		return scanErr.Kind
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindAccessDenied
	case errors.Is(err, syscall.ENOTDIR):
		return KindNotADirectory
	default:
		return KindIO
	}
}

// ScanError records a subtree that could not be measured completely.
// It contributes 0 bytes to the total and marks the result as partial.
type ScanError struct {
	// Path is the entry that failed.
	Path string
	// Kind classifies the failure.
	Kind ErrorKind
	// Err is the underlying cause.
	Err error
}

func (e ScanError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e ScanError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for the error's kind.
// This keeps errors.Is working after an error crossed a process boundary.
func (e ScanError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

type wireError struct {
	Path    string    `json:"path"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// MarshalJSON encodes the error as {path, kind, message}.
func (e ScanError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}

	return json.Marshal(wireError{Path: e.Path, Kind: e.Kind, Message: msg})
}

// UnmarshalJSON decodes an error produced by MarshalJSON.
func (e *ScanError) UnmarshalJSON(data []byte) error {
	var w wireError
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Kind {
	case KindNotFound, KindNotADirectory, KindAccessDenied, KindTransientRace, KindWorkerFailed, KindIO:
	default:
		return fmt.Errorf("unknown error kind %q", w.Kind)
	}

	e.Path = w.Path
	e.Kind = w.Kind
	e.Err = errors.New(w.Message)

	return nil
}

// FatalError is returned when the root path itself cannot be measured.
// No ScanResult accompanies it: "could not start" is not "measured 0 bytes".
type FatalError struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("cannot measure %q: %v", e.Path, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func (e *FatalError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// newFatal builds a FatalError for the root path.
func newFatal(path string, err error) *FatalError {
	return &FatalError{Path: path, Kind: Classify(err), Err: err}
}

// subtreeError records a failure below the root. A subtree that no longer
// exists was removed after its parent was listed, so it is reported as a race.
func subtreeError(path string, err error) ScanError {
	kind := Classify(err)
	if kind == KindNotFound {
		kind = KindTransientRace
	}

	return ScanError{Path: path, Kind: kind, Err: err}
}
