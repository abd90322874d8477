package core

import "errors"

var (
	// ErrProcessLaunch means the target process could not be started or attached.
	ErrProcessLaunch = errors.New("process launch failed")

	// ErrStreamRead is a read failure on one output stream, distinct from end-of-stream.
	ErrStreamRead = errors.New("stream read failed")

	// ErrStorageUnavailable means the store could not be opened or created.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorageWriteError is an insert failure on the backing medium.
	ErrStorageWriteError = errors.New("storage write failed")

	// ErrStorageReadError is a scan failure on the backing medium.
	ErrStorageReadError = errors.New("storage read failed")

	// ErrStoreClosed is returned by every store operation after Close.
	ErrStoreClosed = errors.New("store closed")

	// ErrSessionClosed is returned when operating on a closed capture session.
	ErrSessionClosed = errors.New("capture session closed")

	// ErrSessionActive is returned when a capture session is already running.
	ErrSessionActive = errors.New("capture session already active")
)
