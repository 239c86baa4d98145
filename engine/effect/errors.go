package effect

import "errors"

var (
	// ErrCompilation is returned when an effect permutation fails to compile.
	ErrCompilation = errors.New("effect: compilation failed")

	// ErrSystemDestroyed is returned when a compilation completes after the effect system was destroyed.
	ErrSystemDestroyed = errors.New("effect: effect system destroyed")

	// ErrEffectNotFound is returned for effect names no generator is registered for.
	ErrEffectNotFound = errors.New("effect: effect not found")

	// ErrInvalidArgument is returned for empty effect names or missing parameters.
	ErrInvalidArgument = errors.New("effect: invalid argument")

	// ErrAlreadyRecording is returned when compile recording is started twice.
	ErrAlreadyRecording = errors.New("effect: compile recording already started")

	// ErrNotRecording is returned when compile recording is stopped without being started.
	ErrNotRecording = errors.New("effect: compile recording not started")
)
