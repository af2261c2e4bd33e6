package dto

import "encoding/json"

type CreateAdRequest struct {
	Title         string   `json:"title"`
	PhoneNumber   string   `json:"phoneNumber"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	UploaderName  string   `json:"uploaderName"`
	UploaderPhone string   `json:"uploaderPhone"`
	Images        []string `json:"images"`
}

type CreateAdResponse struct {
	Message          string          `json:"message"`
	CreditsDeducted  int             `json:"creditsDeducted"`
	RemainingCredits int             `json:"remainingCredits"`
	Ad               json.RawMessage `json:"ad,omitempty"`
}
