// AngelaMos | 2026
// dto.go

package identity

import (
	"time"
)

type UpdateIdentityRequest struct {
	Name  *string `json:"name,omitempty"  validate:"omitempty,min=1,max=100"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=verifying active suspended"`
}

type IdentityResponse struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Name               string    `json:"name"`
	UserType           string    `json:"user_type"`
	Status             string    `json:"status"`
	VerificationStatus string    `json:"verification_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type ListParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Status   string `json:"status"`
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToIdentityResponse(i *Identity) IdentityResponse {
	return IdentityResponse{
		ID:                 i.ID,
		Email:              i.Email,
		Phone:              i.Phone,
		Name:               i.Name,
		UserType:           i.Role.String(),
		Status:             string(i.Status),
		VerificationStatus: string(i.VerificationStatus),
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

func ToIdentityResponseList(identities []Identity) []IdentityResponse {
	responses := make([]IdentityResponse, 0, len(identities))
	for _, i := range identities {
		responses = append(responses, ToIdentityResponse(&i))
	}
	return responses
}
