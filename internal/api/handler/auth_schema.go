package handler

import (
	"time"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

type registerRequest struct {
	Email       string `json:"email"       validate:"required,email,max=255"`
	Password    string `json:"password"    validate:"required,min=8,max=72"`
	DisplayName string `json:"displayName" validate:"max=120"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type firebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type authResponse struct {
	Token string        `json:"token"`
	User  *userResponse `json:"user"`
}

// userResponse never exposes credentials or reset tokens.
type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Role        string     `json:"role"`
	AuthMethod  string     `json:"authMethod"`
	ProviderID  string     `json:"providerId,omitempty"`
	PhotoURL    string     `json:"photoUrl,omitempty"`
	OrphanedAt  *time.Time `json:"orphanedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toUserResponse(u *domain.User) *userResponse {
	resp := &userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		AuthMethod:  "password",
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if p, ok := u.Provider(); ok {
		resp.AuthMethod = "provider"
		resp.ProviderID = p.ProviderID
		resp.PhotoURL = p.PhotoURL
		resp.OrphanedAt = p.OrphanedAt
	}
	return resp
}

func toUserResponses(users []*domain.User) []*userResponse {
	out := make([]*userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}
