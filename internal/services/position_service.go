package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/channelpartner/position-backend/internal/config"
	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/models"
	"gorm.io/gorm"
)

// maxChildPositions caps the fan-out at high-cardinality levels such as pincode and village.
const maxChildPositions = 20

var positionStatuses = map[string]bool{
	models.PositionAvailable: true,
	models.PositionPending:   true,
	models.PositionApproved:  true,
	models.PositionOccupied:  true,
}

type PositionService struct {
	db  *gorm.DB
	cfg *config.Config
	now func() time.Time
}

func NewPositionService(db *gorm.DB, cfg *config.Config) *PositionService {
	return &PositionService{db: db, cfg: cfg, now: time.Now}
}

// Resolve lists the slots for a location filter: the head of the filter's own level
// followed by one slot per distinct child location. Persisted positions for the same
// listing take precedence over synthesized templates.
func (s *PositionService) Resolve(ctx context.Context, filter models.LocationPath) ([]models.Position, error) {
	filter = filter.Normalized()
	if err := filter.Validate(); err != nil {
		return nil, validationError("%v", err)
	}
	depth := filter.Depth()
	db := s.db.WithContext(ctx)

	persisted, err := s.persistedListing(db, filter, depth)
	if err != nil {
		return nil, err
	}
	if len(persisted) > 0 {
		if err := s.overlayApplications(db, persisted); err != nil {
			return nil, err
		}
		return resequence(persisted), nil
	}

	positions := []models.Position{s.template(filter)}
	if child, ok := depth.Child(); ok {
		values, err := s.childValues(db, filter, depth, child)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			positions = append(positions, s.template(filter.With(child, v)))
		}
	}

	if err := s.overlayApplications(db, positions); err != nil {
		return nil, err
	}
	return resequence(positions), nil
}

func (s *PositionService) template(path models.LocationPath) models.Position {
	return models.Position{
		ID:           path.PositionKey(),
		Post:         path.Depth().PostType(),
		Designation:  path.Designation(),
		Location:     path,
		Contribution: s.cfg.TemplateContribution,
		Credits:      s.cfg.TemplateCredits,
		Status:       models.PositionAvailable,
		IsTemplate:   true,
	}
}

// persistedListing returns stored positions at the filter's level or one below it
// that share the filter's prefix.
func (s *PositionService) persistedListing(db *gorm.DB, filter models.LocationPath, depth models.Level) ([]models.Position, error) {
	q := scopeToPrefix(db.Model(&models.Position{}), filter, depth)
	for l := depth + 2; l <= models.LevelVillage; l++ {
		q = q.Where(fmt.Sprintf("(%s = '' OR %s IS NULL)", l, l))
	}

	var positions []models.Position
	if err := q.Order("s_no ASC").Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	return positions, nil
}

func (s *PositionService) childValues(db *gorm.DB, filter models.LocationPath, depth, child models.Level) ([]string, error) {
	var values []string
	col := child.String()
	err := scopeToPrefix(db.Model(&models.Location{}), filter, depth).
		Where(fmt.Sprintf("%s <> '' AND %s IS NOT NULL", col, col)).
		Distinct(col).
		Order(col).
		Limit(maxChildPositions).
		Pluck(col, &values).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s values: %w", col, err)
	}
	return values, nil
}

// scopeToPrefix matches rows whose location equals filter on every level down to depth.
func scopeToPrefix(q *gorm.DB, filter models.LocationPath, depth models.Level) *gorm.DB {
	for l := models.LevelCountry; l <= depth; l++ {
		q = q.Where(fmt.Sprintf("%s = ?", l), filter.Get(l))
	}
	return q
}

// overlayApplications marks slots held by a pending or approved application.
func (s *PositionService) overlayApplications(db *gorm.DB, positions []models.Position) error {
	ids := make([]string, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}

	var apps []models.Application
	err := db.Where("position_id IN ? AND status <> ?", ids, models.ApplicationRejected).
		Order("applied_date ASC").
		Find(&apps).Error
	if err != nil {
		return fmt.Errorf("failed to load applications: %w", err)
	}
	if len(apps) == 0 {
		return nil
	}

	byPosition := make(map[string]*models.Application, len(apps))
	codes := make([]string, 0, len(apps))
	for i := range apps {
		if _, ok := byPosition[apps[i].PositionID]; ok {
			continue
		}
		byPosition[apps[i].PositionID] = &apps[i]
		codes = append(codes, apps[i].PersonCode)
	}

	var users []models.User
	if err := db.Select("person_code", "introduced_count").Where("person_code IN ?", codes).Find(&users).Error; err != nil {
		return fmt.Errorf("failed to load introducer counts: %w", err)
	}
	counts := make(map[string]int, len(users))
	for _, u := range users {
		counts[u.PersonCode] = u.IntroducedCount
	}

	now := s.now()
	for i := range positions {
		app, ok := byPosition[positions[i].ID]
		if !ok {
			continue
		}
		snap := app.Snapshot(now)
		snap.IntroducedCount = counts[app.PersonCode]
		positions[i].Status = app.PositionStatus()
		positions[i].Applicant = snap
		positions[i].IsVerified = app.IsVerified
	}
	return nil
}

func resequence(positions []models.Position) []models.Position {
	for i := range positions {
		positions[i].SNo = i + 1
	}
	return positions
}

// Status reports whether a position id is held by a pending or approved application.
func (s *PositionService) Status(ctx context.Context, positionID string) (*dto.PositionStatusResponse, error) {
	resp := &dto.PositionStatusResponse{PositionID: positionID, Status: "available"}

	var app models.Application
	err := s.db.WithContext(ctx).
		Where("position_id = ? AND status <> ?", positionID, models.ApplicationRejected).
		Order("applied_date ASC").
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check position status: %w", err)
	}

	snap := app.Snapshot(s.now())
	resp.Status = "occupied"
	resp.ApplicationStatus = &app.Status
	resp.Applicant = &dto.PositionStatusApplicant{
		Name:        snap.Name,
		Phone:       snap.Phone,
		AppliedDate: snap.AppliedDate,
		Days:        snap.Days,
	}
	return resp, nil
}

// List returns persisted positions. Empty filter fields do not constrain the query.
func (s *PositionService) List(ctx context.Context, filter models.LocationPath, status string, skip, limit int) (*dto.PositionListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	q := s.db.WithContext(ctx).Model(&models.Position{})
	for l := models.LevelCountry; l <= models.LevelVillage; l++ {
		if v := strings.TrimSpace(filter.Get(l)); v != "" {
			q = q.Where(fmt.Sprintf("%s = ?", l), v)
		}
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count positions: %w", err)
	}

	var positions []models.Position
	if err := q.Order("s_no ASC").Offset(skip).Limit(limit).Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	return &dto.PositionListResponse{Positions: positions, Total: total, Skip: skip, Limit: limit}, nil
}

func (s *PositionService) Get(ctx context.Context, id string) (*models.Position, error) {
	var p models.Position
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPositionNotFound
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &p, nil
}

func (s *PositionService) Create(ctx context.Context, req *dto.CreatePositionRequest) (*models.Position, error) {
	path := req.Location.Normalized()
	if err := path.Validate(); err != nil {
		return nil, validationError("%v", err)
	}
	depth := path.Depth()

	post := strings.TrimSpace(req.Post)
	if post == "" {
		post = depth.PostType()
	}
	if post != depth.PostType() {
		return nil, validationError("post %q does not match a location filled down to %s", post, depth)
	}

	status := req.Status
	if status == "" {
		status = models.PositionAvailable
	}
	if !positionStatuses[status] {
		return nil, validationError("unknown status %q", status)
	}

	p := models.Position{
		ID:           strings.TrimSpace(req.ID),
		SNo:          req.SNo,
		Post:         post,
		Designation:  strings.TrimSpace(req.Designation),
		Location:     path,
		Contribution: req.Contribution,
		Credits:      req.Credits,
		Status:       status,
	}
	if p.ID == "" {
		p.ID = path.PositionKey()
	}
	if p.Designation == "" {
		p.Designation = path.Designation()
	}
	if p.Contribution == 0 {
		p.Contribution = s.cfg.TemplateContribution
	}
	if p.Credits == 0 {
		p.Credits = s.cfg.TemplateCredits
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Position{}).Where("id = ?", p.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicatePosition
		}
		if p.SNo == 0 {
			var maxSNo int
			if err := tx.Model(&models.Position{}).Select("COALESCE(MAX(s_no), 0)").Scan(&maxSNo).Error; err != nil {
				return err
			}
			p.SNo = maxSNo + 1
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicatePosition) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicatePosition
		}
		return nil, fmt.Errorf("failed to create position: %w", err)
	}
	return &p, nil
}

func (s *PositionService) Update(ctx context.Context, id string, req *dto.UpdatePositionRequest) (*models.Position, error) {
	updates := map[string]interface{}{}
	if req.SNo != nil {
		updates["s_no"] = *req.SNo
	}
	if req.Designation != nil {
		updates["designation"] = strings.TrimSpace(*req.Designation)
	}
	if req.Contribution != nil {
		if *req.Contribution < 0 {
			return nil, validationError("contribution must not be negative")
		}
		updates["contribution"] = *req.Contribution
	}
	if req.Credits != nil {
		if *req.Credits < 0 {
			return nil, validationError("credits must not be negative")
		}
		updates["credits"] = *req.Credits
	}
	if req.Status != nil {
		if !positionStatuses[*req.Status] {
			return nil, validationError("unknown status %q", *req.Status)
		}
		updates["status"] = *req.Status
	}
	if req.IsVerified != nil {
		updates["is_verified"] = *req.IsVerified
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&models.Position{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update position: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrPositionNotFound
		}
	}
	return s.Get(ctx, id)
}

func (s *PositionService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Position{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete position: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPositionNotFound
	}
	return nil
}

// resyncPosition rebuilds a persisted position from the earliest application still
// holding it, or frees it when none remains.
func resyncPosition(tx *gorm.DB, positionID string, now time.Time) error {
	var app models.Application
	err := tx.Where("position_id = ? AND status <> ?", positionID, models.ApplicationRejected).
		Order("applied_date ASC").
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return syncPosition(tx, positionID, models.PositionAvailable, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to load position applications: %w", err)
	}

	snap := app.Snapshot(now)
	var user models.User
	err = tx.Select("introduced_count").Where("person_code = ?", app.PersonCode).First(&user).Error
	switch {
	case err == nil:
		snap.IntroducedCount = user.IntroducedCount
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to load introducer count: %w", err)
	}
	return syncPosition(tx, positionID, app.PositionStatus(), snap)
}

// syncPosition mirrors an application's state onto a persisted position, if one exists.
// A nil snapshot clears the applicant.
func syncPosition(tx *gorm.DB, positionID, status string, snap *models.ApplicantSnapshot) error {
	err := tx.Model(&models.Position{}).
		Where("id = ?", positionID).
		Select("status", "applicant", "is_verified").
		Updates(&models.Position{Status: status, Applicant: snap, IsVerified: snap != nil && snap.IsVerified}).Error
	if err != nil {
		return fmt.Errorf("failed to sync position: %w", err)
	}
	return nil
}
