package model

// WebSocket message types
const (
	WSMessageTypeModelStatus = "model3d_status"
	WSMessageTypePing        = "ping"
	WSMessageTypePong        = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSModelStatusMessage is pushed to subscribers of a listing when its
// 3D pipeline state changes
type WSModelStatusMessage struct {
	Type       string        `json:"type"`
	ListingID  string        `json:"listingId"`
	Status     Model3DStatus `json:"status"`
	Model3D    string        `json:"model3d,omitempty"`
	RetryCount int           `json:"retryCount"`
}
