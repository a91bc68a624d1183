package dto

// StartConversationRequest opens (or returns) the thread with a peer
type StartConversationRequest struct {
	PeerID int64 `json:"peerId" binding:"required,gt=0"`
}

// HistoryQuery pages conversation history backwards in time
type HistoryQuery struct {
	Before string `form:"before"` // RFC3339; empty starts from the newest
	Limit  int    `form:"limit,default=50"`
}
