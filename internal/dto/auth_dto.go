package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	IntroducedBy string `json:"introducedBy"`
}

// LoginRequest accepts either the phone or the login id as identifier.
type LoginRequest struct {
	Phone    string `json:"phone"`
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	ID                        uuid.UUID     `json:"id"`
	Name                      string        `json:"name"`
	Phone                     string        `json:"phone"`
	Email                     string        `json:"email"`
	PersonCode                string        `json:"personCode"`
	LoginID                   string        `json:"loginId"`
	Role                      string        `json:"role"`
	Credits                   int           `json:"credits"`
	HasReceivedInitialCredits bool          `json:"hasReceivedInitialCredits"`
	IntroducedBy              string        `json:"introducedBy"`
	IntroducedCount           int           `json:"introducedCount"`
	PositionID                string        `json:"positionId"`
	Photo                     string        `json:"photo,omitempty"`
	Documents                 UserDocuments `json:"documents"`
	IsFirstLogin              bool          `json:"isFirstLogin"`
	IsVerified                bool          `json:"isVerified"`
}

type UserDocuments struct {
	PanCard     string `json:"panCard,omitempty"`
	AadhaarCard string `json:"aadhaarCard,omitempty"`
}

type UpdateProfileRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Photo       *string `json:"photo"`
	PanCard     *string `json:"panCard"`
	AadhaarCard *string `json:"aadhaarCard"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type RequestOTPRequest struct {
	Phone string `json:"phone"`
}

type VerifyOTPRequest struct {
	Phone       string `json:"phone"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
