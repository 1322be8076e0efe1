package scanner

// State is the lifecycle state of a Controller.
type State int

const (
	StateIdle State = iota
	StateRequestingPermission
	StateStarting
	StateScanning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingPermission:
		return "requesting_permission"
	case StateStarting:
		return "starting"
	case StateScanning:
		return "scanning"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// Active reports whether the state holds, or is about to hold, a device.
func (s State) Active() bool {
	return s != StateIdle
}

// ShowsSurface reports whether the viewfinder surface should exist in this state.
func (s State) ShowsSurface() bool {
	return s == StateStarting || s == StateScanning
}
