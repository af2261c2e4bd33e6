package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService covers admin review of partner accounts and referral lookups.
type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, now: time.Now}
}

// PendingVerification lists unverified users, newest first.
func (s *UserService) PendingVerification(ctx context.Context) ([]dto.UserResponse, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("is_verified = ?", false).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list unverified users: %w", err)
	}
	out := make([]dto.UserResponse, len(users))
	for i := range users {
		out[i] = ToUserResponse(&users[i])
	}
	return out, nil
}

func (s *UserService) Documents(ctx context.Context, phone string) (*dto.UserDocumentsResponse, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, validationError("phone is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &dto.UserDocumentsResponse{User: dto.UserDocumentsView{
		ID:        user.ID,
		Name:      user.Name,
		Phone:     user.Phone,
		Email:     user.Email,
		Credits:   user.Credits,
		Documents: user.Documents.Data(),
		CreatedAt: user.CreatedAt,
	}}, nil
}

// SetVerified flips the user's verified flag and carries it onto their applications
// and the positions those applications hold.
func (s *UserService) SetVerified(ctx context.Context, userID uuid.UUID, verified bool) (*dto.UserResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("is_verified", verified).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		user.IsVerified = verified

		apps := tx.Model(&models.Application{}).Where("user_id = ? OR applicant_phone = ?", user.ID, user.Phone)
		if err := apps.Update("is_verified", verified).Error; err != nil {
			return fmt.Errorf("failed to update applications: %w", err)
		}

		var held []string
		if err := tx.Model(&models.Application{}).
			Where("(user_id = ? OR applicant_phone = ?) AND status <> ?", user.ID, user.Phone, models.ApplicationRejected).
			Distinct("position_id").
			Pluck("position_id", &held).Error; err != nil {
			return fmt.Errorf("failed to load held positions: %w", err)
		}
		now := s.now()
		for _, id := range held {
			if err := resyncPosition(tx, id, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user verification updated", "user_id", user.ID, "verified", verified)
	resp := ToUserResponse(&user)
	return &resp, nil
}

// IntroducedCount counts users who named personCode as their introducer.
func (s *UserService) IntroducedCount(ctx context.Context, personCode string) (*dto.IntroducedCountResponse, error) {
	personCode = strings.TrimSpace(personCode)
	if personCode == "" {
		return nil, validationError("person code is required")
	}
	resp := &dto.IntroducedCountResponse{PersonCode: personCode}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("introduced_by = ?", personCode).Count(&resp.Count).Error; err != nil {
		return nil, fmt.Errorf("failed to count introduced users: %w", err)
	}
	return resp, nil
}
