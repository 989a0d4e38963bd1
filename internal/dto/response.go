package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"user_id is required"`
}

// PublishTouchpointResponse represents a successful touchpoint ingestion response
type PublishTouchpointResponse struct {
	TouchpointID string `json:"touchpoint_id" example:"9f86d081884c7d65"`
	Status       string `json:"status" example:"accepted"`
}

// PublishBulkTouchpointsResponse represents a bulk touchpoint ingestion response
type PublishBulkTouchpointsResponse struct {
	Accepted      int      `json:"accepted" example:"5"`
	Rejected      int      `json:"rejected" example:"0"`
	TouchpointIDs []string `json:"touchpoint_ids,omitempty"`
	Errors        []string `json:"errors,omitempty" example:"timestamp cannot be in the future"`
}

// CreditRow is one (user, model, channel) credit
type CreditRow struct {
	UserID  string  `json:"user_id" example:"user_123"`
	Model   string  `json:"model" example:"markov"`
	Channel string  `json:"channel" example:"paid_search"`
	Credit  float64 `json:"conversion_credit" example:"0.42"`
}

// AttributeResponse represents the result of a synchronous attribution run
type AttributeResponse struct {
	Converters int         `json:"converters" example:"120"`
	Columns    []string    `json:"columns"`
	Credits    []CreditRow `json:"credits"`
}

// RunResponse summarizes a stored attribution run
type RunResponse struct {
	RunID      string `json:"run_id" example:"3f1c2a8e-8d8b-4f4e-9c55-0d9b6f1e2a11"`
	From       int64  `json:"from" example:"1723475612"`
	To         int64  `json:"to" example:"1726067612"`
	Journeys   int    `json:"journeys" example:"1500"`
	Converters int    `json:"converters" example:"120"`
	Rows       int    `json:"rows" example:"3000"`
}

// GetRunResponse lists the stored credits of a run
type GetRunResponse struct {
	RunID   string      `json:"run_id"`
	Credits []CreditRow `json:"credits"`
}
