package dto

// PublishTouchpointRequest represents a single touchpoint ingestion request
type PublishTouchpointRequest struct {
	UserID    string `json:"user_id" binding:"required" example:"user_123"`
	Channel   string `json:"channel" binding:"required" example:"paid_search"`
	Step      int    `json:"step" binding:"required" example:"2"`
	Timestamp int64  `json:"timestamp" binding:"required" example:"1723475612"`
}

// PublishTouchpointsBulkRequest represents a bulk touchpoint ingestion request
type PublishTouchpointsBulkRequest struct {
	Touchpoints []PublishTouchpointRequest `json:"touchpoints" binding:"required,min=1,max=1000,dive"`
}

// AttributeRequest carries inline touchpoints for a synchronous attribution run
type AttributeRequest struct {
	Touchpoints []PublishTouchpointRequest `json:"touchpoints" binding:"required,min=1,max=100000,dive"`
}

// CreateRunRequest starts an attribution run over stored touchpoints
type CreateRunRequest struct {
	From int64 `json:"from" binding:"required" example:"1723475612"`
	To   int64 `json:"to" binding:"required" example:"1726067612"`
}
