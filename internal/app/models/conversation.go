package models

import "time"

// Conversation defines a 1:1 thread between a student and a counsellor
// based on the 'conversations' table. Unique per (student, counsellor) pair.
type Conversation struct {
	ID            int64      `json:"id" db:"id"`
	CollegeID     int64      `json:"collegeId" db:"college_id"`
	StudentID     int64      `json:"studentId" db:"student_id"`
	CounsellorID  int64      `json:"counsellorId" db:"counsellor_id"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty" db:"last_message_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`

	// Related entities
	Student    *User `json:"student,omitempty"`
	Counsellor *User `json:"counsellor,omitempty"`
}

// OtherParticipant returns the participant that is not userID, or 0 when
// userID is not part of the conversation.
func (c *Conversation) OtherParticipant(userID int64) int64 {
	switch userID {
	case c.StudentID:
		return c.CounsellorID
	case c.CounsellorID:
		return c.StudentID
	}
	return 0
}

// HasParticipant reports whether userID is one of the two participants
func (c *Conversation) HasParticipant(userID int64) bool {
	return userID == c.StudentID || userID == c.CounsellorID
}

// Message defines a direct message based on the 'messages' table.
// Immutable once created except for the read-state transition.
type Message struct {
	ID             int64      `json:"id" db:"id"`
	ConversationID int64      `json:"conversationId" db:"conversation_id"`
	SenderID       int64      `json:"senderId" db:"sender_id"`
	ReceiverID     int64      `json:"receiverId" db:"receiver_id"`
	Content        string     `json:"content" db:"content"`
	IsRead         bool       `json:"isRead" db:"is_read"`
	ReadAt         *time.Time `json:"readAt,omitempty" db:"read_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}

// ConversationPreview is a conversation enriched with its latest message and
// the unread count for the requesting user, used for list ordering.
type ConversationPreview struct {
	Conversation
	LastMessage *Message `json:"lastMessage,omitempty"`
	UnreadCount int      `json:"unreadCount"`
}
