package dto

import "github.com/campuspass/leave-api/internal/models"

// CreateUserRequest payload for provisioning an account.
type CreateUserRequest struct {
	Email          string          `json:"email" validate:"required,email"`
	Password       string          `json:"password" validate:"required,min=6"`
	FullName       string          `json:"full_name" validate:"required,min=2,max=128"`
	Role           models.UserRole `json:"role" validate:"required,oneof=ADMIN STUDENT MENTOR HOD PRINCIPAL WARDEN"`
	Department     string          `json:"department,omitempty" validate:"omitempty,max=64"`
	Year           string          `json:"year,omitempty" validate:"omitempty,max=16"`
	RollNumber     string          `json:"roll_number,omitempty" validate:"omitempty,max=32"`
	HostelResident bool            `json:"hostel_resident"`
	MentorID       string          `json:"mentor_id,omitempty" validate:"omitempty,uuid4"`
}

// UpdateUserRequest payload for patching account fields.
type UpdateUserRequest struct {
	FullName       *string          `json:"full_name,omitempty" validate:"omitempty,min=2,max=128"`
	Department     *string          `json:"department,omitempty" validate:"omitempty,max=64"`
	Year           *string          `json:"year,omitempty" validate:"omitempty,max=16"`
	RollNumber     *string          `json:"roll_number,omitempty" validate:"omitempty,max=32"`
	HostelResident *bool            `json:"hostel_resident,omitempty"`
	MentorID       *string          `json:"mentor_id,omitempty" validate:"omitempty,uuid4"`
	Role           *models.UserRole `json:"role,omitempty" validate:"omitempty,oneof=ADMIN STUDENT MENTOR HOD PRINCIPAL WARDEN"`
	Active         *bool            `json:"active,omitempty"`
}
