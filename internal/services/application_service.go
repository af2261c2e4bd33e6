package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/channelpartner/position-backend/internal/config"
	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/events"
	"github.com/channelpartner/position-backend/internal/metrics"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var paymentStatuses = map[string]bool{
	models.PaymentPending: true,
	models.PaymentPaid:    true,
	models.PaymentFailed:  true,
}

// ApplicationService drives pending -> approved | rejected. Approval side effects
// (user creation, initial bonus, referral bonus) commit together with the status change.
type ApplicationService struct {
	db        *gorm.DB
	cfg       *config.Config
	publisher events.Publisher
	newCode   CodeGenerator
	now       func() time.Time
}

func NewApplicationService(db *gorm.DB, cfg *config.Config, publisher events.Publisher) *ApplicationService {
	return &ApplicationService{
		db:        db,
		cfg:       cfg,
		publisher: publisher,
		newCode:   RandomPersonCode,
		now:       time.Now,
	}
}

func (s *ApplicationService) Submit(ctx context.Context, req *dto.SubmitApplicationRequest) (*models.Application, error) {
	info := req.ApplicantInfo
	info.Name = strings.TrimSpace(info.Name)
	info.Phone = strings.TrimSpace(info.Phone)
	info.Email = strings.TrimSpace(info.Email)
	if info.Name == "" || info.Phone == "" {
		return nil, validationError("applicant name and phone are required")
	}
	if info.Photo == "" {
		info.Photo = models.DefaultPhoto
	}

	path := req.Location.Normalized()
	if err := path.Validate(); err != nil {
		return nil, validationError("%v", err)
	}

	positionID, err := s.resolvePositionID(ctx, strings.TrimSpace(req.PositionID), path)
	if err != nil {
		return nil, err
	}
	introducer := strings.TrimSpace(req.IntroducedBy)
	if introducer == "" {
		introducer = models.IntroducerSelf
	}

	var app models.Application
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := hasActiveApplication(tx, info.Phone)
		if err != nil {
			return err
		}
		if active {
			return ErrDuplicateApplication
		}
		held, err := positionHeld(tx, positionID)
		if err != nil {
			return err
		}
		if held {
			return ErrPositionTaken
		}

		code, err := uniquePersonCode(tx, s.newCode, s.cfg.PersonCodeAttempts)
		if err != nil {
			return err
		}

		now := s.now()
		app = models.Application{
			PositionID:    positionID,
			Applicant:     info,
			Location:      path,
			PersonCode:    code,
			IntroducedBy:  introducer,
			Status:        models.ApplicationPending,
			AppliedDate:   now,
			PaymentStatus: models.PaymentPending,
			PaymentAmount: s.cfg.TemplateContribution,
		}
		if err := tx.Create(&app).Error; err != nil {
			return err
		}
		return syncPosition(tx, positionID, models.PositionPending, app.Snapshot(now))
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race on one of the unique indexes.
			db := s.db.WithContext(ctx)
			if active, cerr := hasActiveApplication(db, info.Phone); cerr == nil && active {
				return nil, ErrDuplicateApplication
			}
			if held, cerr := positionHeld(db, positionID); cerr == nil && held {
				return nil, ErrPositionTaken
			}
			return nil, fmt.Errorf("%w: person code was taken concurrently, please retry", ErrConflict)
		}
		if errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to submit application: %w", err)
	}

	metrics.RecordApplication("submitted")
	events.Emit(ctx, s.publisher, events.New(events.ApplicationSubmitted, app.ID.String(), map[string]interface{}{
		"application_id": app.ID,
		"position_id":    app.PositionID,
		"person_code":    app.PersonCode,
	}))
	slog.Info("application submitted", "application_id", app.ID, "position_id", app.PositionID)
	return &app, nil
}

func hasActiveApplication(db *gorm.DB, phone string) (bool, error) {
	var n int64
	err := db.Model(&models.Application{}).
		Where("applicant_phone = ? AND status <> ?", phone, models.ApplicationRejected).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing applications: %w", err)
	}
	return n > 0, nil
}

func positionHeld(db *gorm.DB, positionID string) (bool, error) {
	var n int64
	err := db.Model(&models.Application{}).
		Where("position_id = ? AND status <> ?", positionID, models.ApplicationRejected).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check position applications: %w", err)
	}
	return n > 0, nil
}

// resolvePositionID accepts the slot key derived from the location, or the id of a
// persisted position at that same location.
func (s *ApplicationService) resolvePositionID(ctx context.Context, requested string, path models.LocationPath) (string, error) {
	key := path.PositionKey()
	if requested == "" || requested == key {
		return key, nil
	}

	var p models.Position
	err := s.db.WithContext(ctx).First(&p, "id = ?", requested).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", validationError("position %q does not match the application location", requested)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up position: %w", err)
	}
	if !p.Location.Normalized().Equal(path) {
		return "", validationError("position %q does not match the application location", requested)
	}
	return requested, nil
}

// Decide applies an admin decision, "approved" or "rejected".
func (s *ApplicationService) Decide(ctx context.Context, id uuid.UUID, decision, notes string) (*models.Application, error) {
	switch decision {
	case models.ApplicationApproved:
		resp, err := s.Approve(ctx, id, notes)
		if err != nil {
			return nil, err
		}
		return &resp.Application, nil
	case models.ApplicationRejected:
		return s.Reject(ctx, id, notes)
	}
	return nil, validationError("decision must be %q or %q", models.ApplicationApproved, models.ApplicationRejected)
}

// Approve links the applicant to a user (creating one if needed), grants the one-time
// initial bonus and the introducer's referral bonus. Approving an already approved
// application returns it unchanged without granting anything.
func (s *ApplicationService) Approve(ctx context.Context, id uuid.UUID, notes string) (*dto.ApprovalResponse, error) {
	resp := &dto.ApprovalResponse{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := lockApplication(tx, id)
		if err != nil {
			return err
		}
		switch app.Status {
		case models.ApplicationApproved:
			resp.AlreadyApproved = true
			resp.Application = *app
			if app.UserID != nil {
				resp.UserID = app.UserID.String()
			}
			return nil
		case models.ApplicationRejected:
			return ErrInvalidTransition
		}

		now := s.now()
		updates := map[string]interface{}{
			"status":        models.ApplicationApproved,
			"approved_date": now,
		}
		if notes = strings.TrimSpace(notes); notes != "" {
			updates["admin_notes"] = notes
		}
		result := tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", app.ID, models.ApplicationPending).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to approve application: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		user, created, err := s.findOrCreateUser(tx, app, now)
		if err != nil {
			return err
		}

		granted, err := grantInitialBonus(tx, user.ID, s.cfg.InitialBonusCredits)
		if err != nil {
			return err
		}
		if granted {
			resp.InitialCredits = s.cfg.InitialBonusCredits
		}

		resp.ReferralCredits, err = grantReferralBonus(tx, app.IntroducedBy,
			s.cfg.ReferralBonusCredits, s.cfg.ReferralBonusCap, app.Applicant.Name)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Application{}).Where("id = ?", app.ID).
			Update("user_id", user.ID).Error; err != nil {
			return fmt.Errorf("failed to link user: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"position_id":   app.PositionID,
			"approved_date": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		app.Status = models.ApplicationApproved
		app.ApprovedDate = &now
		app.UserID = &user.ID
		if notes != "" {
			app.AdminNotes = notes
		}
		snap := app.Snapshot(now)
		snap.IntroducedCount = user.IntroducedCount
		if err := syncPosition(tx, app.PositionID, models.PositionApproved, snap); err != nil {
			return err
		}

		resp.Application = *app
		resp.UserID = user.ID.String()
		resp.UserCreated = created
		resp.LoginID = user.LoginID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if resp.AlreadyApproved {
		return resp, nil
	}

	metrics.RecordApplication(models.ApplicationApproved)
	if resp.InitialCredits > 0 {
		metrics.RecordCredits(models.CreditInitial, resp.InitialCredits)
	}
	if resp.ReferralCredits > 0 {
		metrics.RecordCredits(models.CreditReferral, resp.ReferralCredits)
	}
	events.Emit(ctx, s.publisher, events.New(events.ApplicationDecided, id.String(), map[string]interface{}{
		"application_id":   id,
		"decision":         models.ApplicationApproved,
		"user_id":          resp.UserID,
		"initial_credits":  resp.InitialCredits,
		"referral_credits": resp.ReferralCredits,
	}))
	slog.Info("application approved", "application_id", id, "user_id", resp.UserID, "user_created", resp.UserCreated)
	return resp, nil
}

func lockApplication(tx *gorm.DB, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	return &app, nil
}

func (s *ApplicationService) findOrCreateUser(tx *gorm.DB, app *models.Application, now time.Time) (*models.User, bool, error) {
	var user models.User
	err := tx.Where("phone = ?", app.Applicant.Phone).First(&user).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	code := app.PersonCode
	var taken int64
	if err := tx.Model(&models.User{}).Where("person_code = ?", code).Count(&taken).Error; err != nil {
		return nil, false, fmt.Errorf("failed to check person code: %w", err)
	}
	if taken > 0 {
		if code, err = uniquePersonCode(tx, s.newCode, s.cfg.PersonCodeAttempts); err != nil {
			return nil, false, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword(app.Applicant.Name)), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}

	applied := app.AppliedDate
	user = models.User{
		Name:          app.Applicant.Name,
		Phone:         app.Applicant.Phone,
		Email:         app.Applicant.Email,
		PersonCode:    code,
		LoginID:       app.Applicant.Phone,
		Password:      string(hash),
		Role:          "user",
		IntroducedBy:  app.IntroducedBy,
		PositionID:    app.PositionID,
		Photo:         app.Applicant.Photo,
		IsFirstLogin:  true,
		AppliedDate:   &applied,
		ApprovedDate:  &now,
		PaymentStatus: app.PaymentStatus,
		PaymentAmount: app.PaymentAmount,
		PaymentDate:   app.PaymentDate,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, true, nil
}

// Reject is terminal. Rejecting twice is a no-op; rejecting an approved application is refused.
func (s *ApplicationService) Reject(ctx context.Context, id uuid.UUID, notes string) (*models.Application, error) {
	var app *models.Application
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = lockApplication(tx, id)
		if err != nil {
			return err
		}
		switch app.Status {
		case models.ApplicationRejected:
			return nil
		case models.ApplicationApproved:
			return ErrInvalidTransition
		}

		updates := map[string]interface{}{"status": models.ApplicationRejected}
		if notes = strings.TrimSpace(notes); notes != "" {
			updates["admin_notes"] = notes
			app.AdminNotes = notes
		}
		result := tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", app.ID, models.ApplicationPending).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to reject application: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		app.Status = models.ApplicationRejected
		changed = true
		return resyncPosition(tx, app.PositionID, s.now())
	})
	if err != nil {
		return nil, err
	}

	if changed {
		metrics.RecordApplication(models.ApplicationRejected)
		events.Emit(ctx, s.publisher, events.New(events.ApplicationDecided, id.String(), map[string]interface{}{
			"application_id": id,
			"decision":       models.ApplicationRejected,
		}))
		slog.Info("application rejected", "application_id", id)
	}
	return app, nil
}

// Delete removes the application from any state. Its position is rebuilt from
// whatever active application remains on it.
// A user created by an earlier approval is kept.
func (s *ApplicationService) Delete(ctx context.Context, id uuid.UUID) error {
	var positionID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := lockApplication(tx, id)
		if err != nil {
			return err
		}
		positionID = app.PositionID
		if err := tx.Delete(&models.Application{}, "id = ?", app.ID).Error; err != nil {
			return fmt.Errorf("failed to delete application: %w", err)
		}
		return resyncPosition(tx, app.PositionID, s.now())
	})
	if err != nil {
		return err
	}

	metrics.RecordApplication("deleted")
	events.Emit(ctx, s.publisher, events.New(events.ApplicationDeleted, id.String(), map[string]interface{}{
		"application_id": id,
		"position_id":    positionID,
	}))
	slog.Info("application deleted", "application_id", id, "position_id", positionID)
	return nil
}

func (s *ApplicationService) Get(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &app, nil
}

// List returns applications newest first, optionally filtered by status.
func (s *ApplicationService) List(ctx context.Context, status string, page, limit int) (*dto.ApplicationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := s.db.WithContext(ctx).Model(&models.Application{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}

	var apps []models.Application
	if err := q.Order("applied_date DESC").Offset((page - 1) * limit).Limit(limit).Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return &dto.ApplicationListResponse{Applications: apps, Total: total, Page: page, Limit: limit}, nil
}

// ByPosition groups every application, newest first, under its position id.
func (s *ApplicationService) ByPosition(ctx context.Context) (*dto.ApplicationsByPosition, error) {
	var apps []models.Application
	if err := s.db.WithContext(ctx).Order("applied_date DESC").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	grouped := make(map[string][]dto.PositionApplication)
	for _, app := range apps {
		id := app.PositionID
		if id == "" {
			id = "no-position-id"
		}
		grouped[id] = append(grouped[id], dto.PositionApplication{
			ApplicationID: app.ID.String(),
			ApplicantName: app.Applicant.Name,
			Phone:         app.Applicant.Phone,
			Status:        app.Status,
			AppliedDate:   app.AppliedDate,
			Location:      app.Location,
		})
	}
	return &dto.ApplicationsByPosition{
		TotalApplications:         len(apps),
		PositionsWithApplications: len(grouped),
		ApplicationsByPosition:    grouped,
	}, nil
}

func (s *ApplicationService) Stats(ctx context.Context) (*dto.DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &dto.DashboardStats{}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := db.Model(&models.Application{}).Select("status, COUNT(*) AS count").Group("status").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	for _, c := range counts {
		stats.TotalApplications += c.Count
		switch c.Status {
		case models.ApplicationPending:
			stats.Pending = c.Count
		case models.ApplicationApproved:
			stats.Approved = c.Count
		case models.ApplicationRejected:
			stats.Rejected = c.Count
		}
	}

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.Model(&models.User{}).Select("COALESCE(SUM(credits), 0)").Scan(&stats.TotalCredits).Error; err != nil {
		return nil, fmt.Errorf("failed to sum credits: %w", err)
	}
	if err := db.Model(&models.Position{}).Count(&stats.TotalPositions).Error; err != nil {
		return nil, fmt.Errorf("failed to count positions: %w", err)
	}
	return stats, nil
}

// UpdatePayment records the applicant's contribution status. Marking it paid stamps the payment date.
func (s *ApplicationService) UpdatePayment(ctx context.Context, id uuid.UUID, req *dto.UpdatePaymentRequest) (*models.Application, error) {
	if !paymentStatuses[req.PaymentStatus] {
		return nil, validationError("payment status must be one of pending, paid, failed")
	}
	updates := map[string]interface{}{"payment_status": req.PaymentStatus}
	if req.PaymentAmount != nil {
		if *req.PaymentAmount <= 0 {
			return nil, validationError("payment amount must be positive")
		}
		updates["payment_amount"] = *req.PaymentAmount
	}
	if req.PaymentStatus == models.PaymentPaid {
		updates["payment_date"] = s.now()
	}

	result := s.db.WithContext(ctx).Model(&models.Application{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrApplicationNotFound
	}
	return s.Get(ctx, id)
}
