package models

import "time"

// Community defines a peer-support space based on the 'communities' table.
// Membership is open only to users of the same college.
type Community struct {
	ID          int64     `json:"id" db:"id"`
	CollegeID   int64     `json:"collegeId" db:"college_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	CreatedBy   int64     `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	// MemberCount is populated by list queries, not stored
	MemberCount int `json:"memberCount,omitempty"`
}

// CommunityMember pairs a user with a community based on the
// 'community_members' table. Unique per (user, community).
type CommunityMember struct {
	ID          int64     `json:"id" db:"id"`
	CommunityID int64     `json:"communityId" db:"community_id"`
	UserID      int64     `json:"userId" db:"user_id"`
	Role        string    `json:"role" db:"role"`
	JoinedAt    time.Time `json:"joinedAt" db:"joined_at"`
}

// CommunityMessage defines a message in a community room based on the
// 'community_messages' table. SenderRole is snapshotted at send time; the
// displayed name is resolved at broadcast time, never stored.
type CommunityMessage struct {
	ID          int64     `json:"id" db:"id"`
	CommunityID int64     `json:"communityId" db:"community_id"`
	SenderID    int64     `json:"senderId" db:"sender_id"`
	SenderRole  RoleType  `json:"senderRole" db:"sender_role"`
	Content     string    `json:"content" db:"content"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`

	// DisplayName is resolved per event: anonymous handle for students,
	// real name otherwise. Never persisted.
	DisplayName string `json:"displayName,omitempty"`
}
