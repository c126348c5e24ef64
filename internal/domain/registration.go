package domain

// DeviceRegistration links a user to a push token for one device.
// The server keeps one row per (userId, token) pair; registering an existing
// token is an upsert, removing a missing one is a no-op.
type DeviceRegistration struct {
	Token  string
	UserID string
}

// Active reports whether the registration carries a usable token.
func (r DeviceRegistration) Active() bool {
	return r.Token != ""
}
