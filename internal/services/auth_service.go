package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/channelpartner/position-backend/internal/config"
	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/metrics"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/channelpartner/position-backend/internal/otp"
	"github.com/channelpartner/position-backend/internal/sms"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minPasswordLength = 4

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	otps     otp.Store
	sender   sms.Sender
	throttle *otp.Throttle
	newCode  CodeGenerator
	sends    sync.WaitGroup
}

func NewAuthService(db *gorm.DB, cfg *config.Config, otps otp.Store, sender sms.Sender, throttle *otp.Throttle) *AuthService {
	return &AuthService{
		db:       db,
		cfg:      cfg,
		otps:     otps,
		sender:   sender,
		throttle: throttle,
		newCode:  RandomPersonCode,
	}
}

// Register creates a user directly, without an application. The user starts with no
// credits and remains eligible for the initial bonus.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, validationError("name and phone are required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, validationError("password must be at least %d characters", minPasswordLength)
	}
	introducer := strings.TrimSpace(req.IntroducedBy)
	if introducer == "" {
		introducer = models.IntroducerSelf
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("phone = ? OR login_id = ?", phone, phone).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check phone: %w", err)
		}
		if n > 0 {
			return ErrPhoneTaken
		}

		code, err := uniquePersonCode(tx, s.newCode, s.cfg.PersonCodeAttempts)
		if err != nil {
			return err
		}
		user = models.User{
			Name:         name,
			Phone:        phone,
			Email:        strings.TrimSpace(req.Email),
			PersonCode:   code,
			LoginID:      phone,
			Password:     string(hash),
			Role:         "user",
			IntroducedBy: introducer,
			IsFirstLogin: true,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPhoneTaken
		}
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return s.authResponse(&user)
}

// Login accepts the phone number or the login id together with the password.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	identifier := strings.TrimSpace(req.Phone)
	if identifier == "" {
		identifier = strings.TrimSpace(req.LoginID)
	}
	if identifier == "" || req.Password == "" {
		return nil, validationError("phone or login id and password are required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("phone = ? OR login_id = ?", identifier, identifier).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.authResponse(&user)
}

func (s *AuthService) authResponse(user *models.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: token, ExpiresAt: expiresAt, User: ToUserResponse(user)}, nil
}

func (s *AuthService) generateToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.JWTExpiry)
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"phone": user.Phone,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyToken decodes a bearer token and loads its user. A bad or expired token is
// ErrInvalidToken; a valid token for a deleted user is ErrUserNotFound.
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return s.findUser(ctx, userID)
}

func (s *AuthService) findUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("name must not be empty")
		}
		updates["name"] = name
	}
	if req.Email != nil {
		updates["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Photo != nil {
		updates["photo"] = *req.Photo
	}
	if req.PanCard != nil || req.AadhaarCard != nil {
		docs := user.Documents.Data()
		if req.PanCard != nil {
			docs.PanCard = *req.PanCard
		}
		if req.AadhaarCard != nil {
			docs.AadhaarCard = *req.AadhaarCard
		}
		now := time.Now()
		docs.UploadedAt = &now
		updates["documents"] = datatypes.NewJSONType(docs)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return s.Profile(ctx, userID)
}

// ChangePassword requires the current password and clears the first-login flag.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req *dto.ChangePasswordRequest) error {
	if len(req.NewPassword) < minPasswordLength {
		return validationError("new password must be at least %d characters", minPasswordLength)
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("%w: current password is incorrect", ErrAuth)
	}
	return s.setPassword(ctx, user.ID, req.NewPassword)
}

func (s *AuthService) setPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"password":       string(hash),
		"is_first_login": false,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RequestPasswordReset stores a fresh code for a registered phone and texts it in the
// background. Unknown phones get the same answer and no code.
// A failed SMS is logged; the stored code stays valid.
func (s *AuthService) RequestPasswordReset(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return validationError("phone is required")
	}
	if s.throttle != nil && !s.throttle.Allow(phone) {
		metrics.RecordOTP("throttled")
		return ErrOTPThrottled
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("phone = ?", phone).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if n == 0 {
		metrics.RecordOTP("unknown_phone")
		slog.Info("password reset requested for unknown phone")
		return nil
	}

	code, err := otp.Generate()
	if err != nil {
		return err
	}
	if err := s.otps.Save(ctx, phone, code, s.cfg.OTPTTL); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	metrics.RecordOTP("issued")

	s.sends.Add(1)
	go func() {
		defer s.sends.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SMSTimeout)
		defer cancel()
		if err := s.sender.SendOTP(sendCtx, phone, code); err != nil {
			metrics.RecordOTP("sms_failed")
			slog.Warn("otp sms delivery failed", "error", fmt.Errorf("%w: %v", ErrUpstream, err))
		}
	}()
	return nil
}

// Wait blocks until every background SMS send has finished.
func (s *AuthService) Wait() {
	s.sends.Wait()
}

// ResetPassword consumes the code and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.VerifyOTPRequest) error {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" || req.OTP == "" {
		return validationError("phone and otp are required")
	}
	if len(req.NewPassword) < minPasswordLength {
		return validationError("new password must be at least %d characters", minPasswordLength)
	}

	if err := s.otps.Verify(ctx, phone, strings.TrimSpace(req.OTP)); err != nil {
		metrics.RecordOTP("rejected")
		switch {
		case errors.Is(err, otp.ErrNotFound), errors.Is(err, otp.ErrExpired):
			return ErrOTPExpired
		case errors.Is(err, otp.ErrMismatch):
			return ErrOTPMismatch
		case errors.Is(err, otp.ErrTooManyAttempts):
			return ErrOTPAttempts
		}
		return fmt.Errorf("failed to verify otp: %w", err)
	}
	metrics.RecordOTP("verified")

	var user models.User
	if err := s.db.WithContext(ctx).Select("id").Where("phone = ?", phone).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if err := s.setPassword(ctx, user.ID, req.NewPassword); err != nil {
		return err
	}
	slog.Info("password reset", "user_id", user.ID)
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (s *AuthService) IsAdmin(ctx context.Context, userID uuid.UUID) bool {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "role").First(&user, "id = ?", userID).Error; err != nil {
		return false
	}
	return user.Role == "admin"
}

func ToUserResponse(u *models.User) dto.UserResponse {
	docs := u.Documents.Data()
	return dto.UserResponse{
		ID:                        u.ID,
		Name:                      u.Name,
		Phone:                     u.Phone,
		Email:                     u.Email,
		PersonCode:                u.PersonCode,
		LoginID:                   u.LoginID,
		Role:                      u.Role,
		Credits:                   u.Credits,
		HasReceivedInitialCredits: u.HasReceivedInitialCredits,
		IntroducedBy:              u.IntroducedBy,
		IntroducedCount:           u.IntroducedCount,
		PositionID:                u.PositionID,
		Photo:                     u.Photo,
		Documents:                 dto.UserDocuments{PanCard: docs.PanCard, AadhaarCard: docs.AadhaarCard},
		IsFirstLogin:              u.IsFirstLogin,
		IsVerified:                u.IsVerified,
	}
}
