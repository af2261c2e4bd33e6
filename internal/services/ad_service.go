package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/channelpartner/position-backend/internal/config"
	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxAdImages = 5

// AdService pays for an ad with credits and forwards it to the ad backend.
// A rejected or failed forward is refunded.
type AdService struct {
	db      *gorm.DB
	credits *CreditService
	client  *resty.Client
	filter  *ContentFilter
	baseURL string
	cost    int
}

func NewAdService(db *gorm.DB, credits *CreditService, cfg *config.Config) *AdService {
	return &AdService{
		db:      db,
		credits: credits,
		client:  resty.New().SetTimeout(30 * time.Second),
		filter:  NewContentFilter(),
		baseURL: strings.TrimRight(cfg.AdBackendURL, "/"),
		cost:    cfg.AdCostCredits,
	}
}

type adPayload struct {
	Title         string   `json:"title"`
	PhoneNumber   string   `json:"phoneNumber"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	UploaderName  string   `json:"uploaderName"`
	UploaderPhone string   `json:"uploaderPhone"`
	Images        []string `json:"images"`
}

func (s *AdService) Create(ctx context.Context, userID uuid.UUID, req *dto.CreateAdRequest) (*dto.CreateAdResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || req.PhoneNumber == "" || req.StartDate == "" || req.EndDate == "" {
		return nil, validationError("title, phoneNumber, startDate and endDate are required")
	}
	if len(req.Images) == 0 {
		return nil, validationError("at least one image is required")
	}
	if len(req.Images) > maxAdImages {
		return nil, validationError("at most %d images are allowed", maxAdImages)
	}
	if reason := s.filter.Check(title); reason != "" {
		return nil, validationError("ad title rejected: %s", reason)
	}
	if s.baseURL == "" {
		return nil, fmt.Errorf("%w: ad backend is not configured", ErrUpstream)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "name", "phone").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	payload := adPayload{
		Title:         title,
		PhoneNumber:   req.PhoneNumber,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		UploaderName:  req.UploaderName,
		UploaderPhone: user.Phone,
		Images:        req.Images,
	}
	if payload.UploaderName == "" {
		payload.UploaderName = user.Name
	}

	var ad json.RawMessage
	balance, err := s.credits.Purchase(ctx, userID, s.cost, "Ad creation: "+title, func(ctx context.Context) error {
		resp, err := s.client.R().
			SetContext(ctx).
			SetBody(payload).
			Post(s.baseURL + "/channel-partner/ads")
		if err != nil {
			return fmt.Errorf("ad backend unreachable: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("ad backend returned status %d", resp.StatusCode())
		}

		var wrapped struct {
			Ad json.RawMessage `json:"ad"`
		}
		body := resp.Body()
		if json.Unmarshal(body, &wrapped) == nil && len(wrapped.Ad) > 0 {
			ad = wrapped.Ad
		} else if json.Valid(body) {
			ad = body
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.CreateAdResponse{
		Message:          fmt.Sprintf("Ad submitted successfully, %d credits deducted", s.cost),
		CreditsDeducted:  s.cost,
		RemainingCredits: balance,
		Ad:               ad,
	}, nil
}
