package schema

// ActivateRequest binds a controller to a host window.
type ActivateRequest struct {
	WorkingDir string
	Selection  []string
	Frame      Frame
}
