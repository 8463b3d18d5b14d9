package lazy

// State is the lifecycle state of a registered name.
type State int

const (
	// StateUnregistered is reported for names with no loader.
	StateUnregistered State = iota
	// StateRegistered means a loader is installed but has not produced a value.
	StateRegistered
	// StateLoading means the loader is running.
	StateLoading
	// StateLoaded means the value is available.
	StateLoaded
	// StateFailed means the last load returned an error. The next Get retries.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unregistered"
	}
}
