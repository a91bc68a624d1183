package dto

// CreateCommunityRequest creates a peer-support community
type CreateCommunityRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// CommunityListQuery filters the college's communities by title
type CommunityListQuery struct {
	Search string `form:"search"`
}
