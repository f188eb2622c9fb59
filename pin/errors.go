package pin

// OpenError indicates a hardware claim failed, leaving the pin state Unknown.
type OpenError struct {
	error
}

func (err OpenError) Is(target error) bool {
	_, ok := target.(OpenError)
	return ok
}

func (err OpenError) Unwrap() error { return err.error }

// CloseError indicates a hardware release failed, leaving the pin state
// Unknown.
type CloseError struct {
	error
}

func (err CloseError) Is(target error) bool {
	_, ok := target.(CloseError)
	return ok
}

func (err CloseError) Unwrap() error { return err.error }

// UnsupportedPinError indicates hardware PWM was requested on a pin, or
// through a backend, that has no PWM peripheral.
type UnsupportedPinError struct {
	error
}

func (err UnsupportedPinError) Is(target error) bool {
	_, ok := target.(UnsupportedPinError)
	return ok
}

func (err UnsupportedPinError) Unwrap() error { return err.error }
