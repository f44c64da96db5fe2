package errors

import "fmt"

// Wrap adds context to errors at package boundaries. It returns nil if
// err is nil, allowing for safe inline usage:
//
//	if err := store.Set(ctx, session); err != nil {
//	    return errors.Wrap(err, "failed to persist session")
//	}
//
// The wrapped error preserves the original chain, so errors.Is checks
// against the sentinels keep working. Only wrap at package boundaries
// to avoid overly nested messages.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf adds formatted context to errors at package boundaries:
//
//	return errors.Wrapf(err, "failed to update task %s", taskID)
//
// Like Wrap, it returns nil for a nil error and preserves the chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}
