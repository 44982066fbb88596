package notify

// PermissionState mirrors the three-way outcome of a notification
// permission prompt.
type PermissionState string

const (
	PermissionGranted      PermissionState = "granted"
	PermissionDenied       PermissionState = "denied"
	PermissionUndetermined PermissionState = "undetermined"
)

// Notifier delivers reminder notifications. Implementations must tolerate
// being asked to notify while unavailable or unpermitted; callers skip the
// side effect in that case rather than treating it as a failure.
type Notifier interface {
	IsAvailable() bool
	PermissionState() PermissionState
	// RequestPermission negotiates permission asynchronously. It never
	// blocks and the state may remain undetermined if the negotiation
	// does not resolve.
	RequestPermission()
	Notify(title, body string) error
}
