package queue

// TouchpointMessage is the JSON body of a queued touchpoint
type TouchpointMessage struct {
	TouchpointID string `json:"touchpoint_id"`
	UserID       string `json:"user_id"`
	Channel      string `json:"channel"`
	Step         int    `json:"step"`
	Timestamp    int64  `json:"timestamp"`
}
