package api

const moveRequestMaxSize = 4 * 1024 // 4 KiB

// POST /api/tasks/:id/move request body
type moveRequest struct {
	Status string `json:"status"`
}

// POST /api/tasks/:id/move response body
type moveResponse struct {
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
}
