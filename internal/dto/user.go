package dto

// ChangeRoleRequest assigns a new role to a user.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin teacher student"`
}

// UpdateTeacherProfileRequest edits the caller's public teacher profile.
type UpdateTeacherProfileRequest struct {
	Phone        *string `json:"phone" validate:"omitempty,max=32"`
	Bio          *string `json:"bio" validate:"omitempty,max=2000"`
	ProfileImage *string `json:"profile_image" validate:"omitempty,url"`
}

// ListQuery carries the common paging parameters.
type ListQuery struct {
	Role     string `form:"role"`
	Search   string `form:"q"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
