package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocationService serves the reference table the resolver enumerates.
type LocationService struct {
	db *gorm.DB
}

func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{db: db}
}

// Values lists the distinct, sorted values of level under the non-empty ancestors in filter.
func (s *LocationService) Values(ctx context.Context, level models.Level, filter models.LocationPath) ([]string, error) {
	if level <= models.LevelCountry || level > models.LevelVillage {
		return nil, validationError("unknown location level %q", level)
	}
	col := level.String()
	q := s.db.WithContext(ctx).Model(&models.Location{}).
		Where(fmt.Sprintf("%s <> '' AND %s IS NOT NULL", col, col))
	for l := models.LevelZone; l < level; l++ {
		if v := strings.TrimSpace(filter.Get(l)); v != "" {
			q = q.Where(fmt.Sprintf("%s = ?", l), v)
		}
	}

	values := []string{}
	if err := q.Distinct(col).Order(col).Pluck(col, &values).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s values: %w", col, err)
	}
	return values, nil
}

// All returns every level's distinct values keyed by the plural level name ("zones", "states", ...).
func (s *LocationService) All(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string, 7)
	for l := models.LevelZone; l <= models.LevelVillage; l++ {
		values, err := s.Values(ctx, l, models.LocationPath{})
		if err != nil {
			return nil, err
		}
		out[l.String()+"s"] = values
	}
	return out, nil
}

// ReverseLookup finds the first location where any level equals value.
func (s *LocationService) ReverseLookup(ctx context.Context, value string) (*models.LocationPath, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, validationError("value is required")
	}

	q := s.db.WithContext(ctx).Model(&models.Location{})
	or := s.db.Where("zone = ?", value)
	for l := models.LevelState; l <= models.LevelVillage; l++ {
		or = or.Or(fmt.Sprintf("%s = ?", l), value)
	}

	var loc models.Location
	if err := q.Where(or).Order("zone, state, division, district, tehsil, pincode, village").First(&loc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to look up location: %w", err)
	}
	return &loc.Path, nil
}

// List pages through the table, matching search case-insensitively against every level.
func (s *LocationService) List(ctx context.Context, search string, page, limit int) (*dto.LocationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Model(&models.Location{})
	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		or := s.db.Where("LOWER(zone) LIKE ?", pattern)
		for l := models.LevelState; l <= models.LevelVillage; l++ {
			or = or.Or(fmt.Sprintf("LOWER(%s) LIKE ?", l), pattern)
		}
		q = q.Where(or)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count locations: %w", err)
	}

	var locations []models.Location
	if err := q.Order("zone, state, division, district").Offset((page - 1) * limit).Limit(limit).Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return &dto.LocationListResponse{Locations: locations, Total: total, Page: page, Limit: limit}, nil
}

// validateFull requires every level below country; reference rows always describe a village.
func validateFull(path models.LocationPath) (models.LocationPath, error) {
	path = path.Normalized()
	for l := models.LevelZone; l <= models.LevelVillage; l++ {
		if path.Get(l) == "" {
			return path, validationError("all location fields are required, %s is missing", l)
		}
	}
	return path, nil
}

func (s *LocationService) exists(db *gorm.DB, path models.LocationPath, exclude uuid.UUID) (bool, error) {
	q := scopeToPrefix(db.Model(&models.Location{}), path, models.LevelVillage)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check location: %w", err)
	}
	return n > 0, nil
}

func (s *LocationService) Create(ctx context.Context, path models.LocationPath) (*models.Location, error) {
	path, err := validateFull(path)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	dup, err := s.exists(db, path, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, ErrDuplicateLocation
	}

	loc := models.Location{Path: path}
	if err := db.Create(&loc).Error; err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return &loc, nil
}

func (s *LocationService) Update(ctx context.Context, id uuid.UUID, path models.LocationPath) (*models.Location, error) {
	path, err := validateFull(path)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var loc models.Location
	if err := db.First(&loc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to load location: %w", err)
	}
	dup, err := s.exists(db, path, id)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, ErrDuplicateLocation
	}

	loc.Path = path
	if err := db.Save(&loc).Error; err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	return &loc, nil
}

func (s *LocationService) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Location{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete location: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLocationNotFound
	}
	return nil
}

// BulkImport inserts each complete, unseen row. Existing rows and in-batch repeats are skipped;
// incomplete rows are counted as failed.
func (s *LocationService) BulkImport(ctx context.Context, rows []models.LocationPath) (*dto.BulkImportResponse, error) {
	if len(rows) == 0 {
		return nil, validationError("no locations to import")
	}

	resp := &dto.BulkImportResponse{}
	seen := make(map[models.LocationPath]bool, len(rows))
	db := s.db.WithContext(ctx)
	for i, row := range rows {
		path, err := validateFull(row)
		if err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if seen[path] {
			resp.Skipped++
			continue
		}
		seen[path] = true

		dup, err := s.exists(db, path, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if dup {
			resp.Skipped++
			continue
		}
		if err := db.Create(&models.Location{Path: path}).Error; err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		resp.Imported++
	}
	return resp, nil
}
