package trap

import (
	"errors"
	"fmt"
)

// InstallError reports a handler that could not be bound to a vector.
type InstallError struct {
	Vector Cause
	Reason string
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install handler for vector %d (%s): %s", int(e.Vector), e.Vector, e.Reason)
}

// IsInstallError reports whether err is or wraps an InstallError.
func IsInstallError(err error) bool {
	var ie *InstallError
	return errors.As(err, &ie)
}
