package handlers

// Failure is the body of an unsuccessful proxy response. Upstream failures
// carry the marketplace status and decoded body; local failures carry an
// error message.
type Failure struct {
	OK     bool   `json:"ok"               example:"false"`
	Status int    `json:"status,omitempty" example:"403"   doc:"Marketplace status being mirrored"`
	Data   any    `json:"data,omitempty"                   doc:"Marketplace response body"`
	Error  string `json:"error,omitempty"  example:"query missing"`
}

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
