package view

import "fmt"

// Error kinds for the engine. Every kind follows the teacher's
// (pkg/pipeline/error.go) idiom: a public alias to error plus a constructor
// that wraps with context. Callers match kinds with errors.As/errors.Is
// against the aliased type, never by inspecting message strings.

// ErrOrdering is returned when an input update stream is not monotonically
// non-decreasing by key under its comparator, or when a Delete is followed
// by a further row sharing its key.
type ErrOrdering = error

func NewOrderingError(reason string) ErrOrdering {
	return fmt.Errorf("ordering error: %s", reason)
}

// ErrProducerUnderconsumed is returned when a ProduceFunc returns before
// fully consuming its ValueSeq.
type ErrProducerUnderconsumed = error

func NewProducerUnderconsumedError(key any) ErrProducerUnderconsumed {
	return fmt.Errorf("producer underconsumed: values for key %v were not fully consumed", key)
}

// ErrUnexpectedDeletion is returned when a content-deletion instruction
// refers to a (TargetKey, SourceKey) pair absent from prior Content,
// indicating prior KeyMappings desynchronised from Content.
type ErrUnexpectedDeletion = error

func NewUnexpectedDeletionError(tk, sk any) ErrUnexpectedDeletion {
	return fmt.Errorf("unexpected deletion: no existing content row for (target=%v, source=%v)", tk, sk)
}

// ErrRegistration is returned when a stage is registered twice under the
// same name in a Registry.
type ErrRegistration = error

func NewRegistrationError(name string) ErrRegistration {
	return fmt.Errorf("stage %q is already registered", name)
}

// ErrMerge is returned when the multi-source merger fails to reconcile its
// feeders.
type ErrMerge = error

func NewMergeError(feeder string, err error) ErrMerge {
	return fmt.Errorf("multi-source merge failed on feeder %q: %w", feeder, err)
}
