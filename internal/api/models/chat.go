package models

// ChatMessage is one message between two boats.
type ChatMessage struct {
	ID              string     `json:"id"`
	ThreadID        string     `json:"threadId"`
	FromBoatID      string     `json:"fromBoatId"`
	ToBoatID        string     `json:"toBoatId"`
	Message         string     `json:"message"`
	MessageType     string     `json:"messageType"`
	Timestamp       Timestamp  `json:"timestamp"`
	IsDelivered     bool       `json:"isDelivered"`
	DeliveredAt     *Timestamp `json:"deliveredAt,omitempty"`
	IsRead          bool       `json:"isRead"`
	ReadAt          *Timestamp `json:"readAt,omitempty"`
	TransportStatus string     `json:"transportStatus"`
}

// ChatSendRequest sends a message to another boat.
type ChatSendRequest struct {
	FromBoatID  string `json:"fromBoatId" validate:"required"`
	ToBoatID    string `json:"toBoatId" validate:"required"`
	Message     string `json:"message" validate:"required,max=1000"`
	MessageType string `json:"messageType,omitempty" validate:"omitempty,oneof=text sos location weather"`
}

// ChatBroadcastRequest sends a message to every other active boat.
type ChatBroadcastRequest struct {
	FromBoatID  string `json:"fromBoatId" validate:"required"`
	Message     string `json:"message" validate:"required,max=1000"`
	MessageType string `json:"messageType,omitempty"`
}

// ChatBroadcastResult is the outcome for one recipient.
type ChatBroadcastResult struct {
	ToBoatID  string       `json:"toBoatId"`
	Success   bool         `json:"success"`
	MessageID string       `json:"messageId,omitempty"`
	Error     string       `json:"error,omitempty"`
	Message   *ChatMessage `json:"message,omitempty"`
}

// ChatBroadcastResponse lists per-recipient outcomes.
type ChatBroadcastResponse struct {
	Sent    int                   `json:"sent"`
	Failed  int                   `json:"failed"`
	Results []ChatBroadcastResult `json:"results"`
}

// ChatMessageList is a chronological list of messages.
type ChatMessageList struct {
	Items []ChatMessage `json:"items"`
	Meta  ListMeta      `json:"meta"`
}

// ChatThread summarises a thread for one of its participants.
type ChatThread struct {
	ThreadID    string       `json:"threadId"`
	OtherBoatID string       `json:"otherBoatId"`
	LastMessage *ChatMessage `json:"lastMessage,omitempty"`
	UnreadCount int          `json:"unreadCount"`
}

// ChatThreadList lists a boat's threads.
type ChatThreadList struct {
	Items []ChatThread `json:"items"`
	Meta  ListMeta     `json:"meta"`
}

// ChatReadRequest marks a thread read for a boat.
type ChatReadRequest struct {
	BoatID string `json:"boatId" validate:"required"`
}

// ChatCount carries a message count.
type ChatCount struct {
	Count int `json:"count"`
}

// ChatBackupEntry is a queued copy of a message.
type ChatBackupEntry struct {
	ChatMessage
	BackedUpAt Timestamp `json:"backedUpAt"`
}

// ChatBackupList is a boat's backup queue, oldest first.
type ChatBackupList struct {
	Items []ChatBackupEntry `json:"items"`
	Meta  ListMeta          `json:"meta"`
}

// ChatBackupCleared reports how many backup entries were removed.
type ChatBackupCleared struct {
	Cleared int `json:"cleared"`
}

// ChatBackupAckRequest names the backup entries a boat has stored locally.
type ChatBackupAckRequest struct {
	MessageIDs []string `json:"messageIds"`
}

// ChatBackupAcked reports how many backup entries an acknowledgement removed.
type ChatBackupAcked struct {
	Acked int `json:"acked"`
}

// LinkStatus is the radio state of a boat.
type LinkStatus struct {
	BoatID         string    `json:"boatId"`
	Connected      bool      `json:"connected"`
	SignalStrength int       `json:"signalStrength"`
	NearbyNodes    int       `json:"nearbyNodes"`
	BatteryLevel   int       `json:"batteryLevel"`
	LastSeen       Timestamp `json:"lastSeen"`
}

// ChatStats summarises a boat's chat activity.
type ChatStats struct {
	BoatID         string `json:"boatId"`
	TotalMessages  int    `json:"totalMessages"`
	UnreadMessages int    `json:"unreadMessages"`
	ActiveThreads  int    `json:"activeThreads"`
	TotalThreads   int    `json:"totalThreads"`
}
