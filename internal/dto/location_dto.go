package dto

import "github.com/channelpartner/position-backend/internal/models"

type LocationListResponse struct {
	Locations []models.Location `json:"locations"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
}

type BulkImportRequest struct {
	Locations []models.LocationPath `json:"locations"`
}

type BulkImportResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}
