package service

// Decision is the outcome of an authorization check. Reason is the error to
// surface when the action is denied.
type Decision struct {
	Allowed bool
	Reason  error
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason error) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for allowed decisions and the denial reason otherwise
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Reason
}
