package sms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Sender delivers one-time codes. Delivery is best-effort; callers treat errors as warnings.
type Sender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// Fast2SMS sends through the Fast2SMS bulk API.
type Fast2SMS struct {
	client *resty.Client
	url    string
}

func NewFast2SMS(apiKey, url string, timeout time.Duration) *Fast2SMS {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("authorization", apiKey).
		SetHeader("Content-Type", "application/json")
	return &Fast2SMS{client: client, url: url}
}

type fast2smsRequest struct {
	Route    string `json:"route"`
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
	Language string `json:"language"`
	Flash    int    `json:"flash"`
	Numbers  string `json:"numbers"`
}

type fast2smsResponse struct {
	Return    bool   `json:"return"`
	RequestID string `json:"request_id"`
	Message   any    `json:"message"`
}

func (s *Fast2SMS) SendOTP(ctx context.Context, phone, code string) error {
	var out fast2smsResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(fast2smsRequest{
			Route:    "v3",
			SenderID: "TXTIND",
			Message:  fmt.Sprintf("Your OTP for password reset is: %s. Valid for 5 minutes.", code),
			Language: "english",
			Numbers:  phone,
		}).
		SetResult(&out).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("failed to call sms gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode())
	}
	if !out.Return {
		return fmt.Errorf("sms gateway rejected message: %v", out.Message)
	}
	slog.Info("otp sms sent", "request_id", out.RequestID)
	return nil
}

// LogSender writes codes to the log instead of sending them. Used when no API key is configured.
type LogSender struct{}

func (LogSender) SendOTP(_ context.Context, phone, code string) error {
	slog.Info("otp generated (sms disabled)", "phone", phone, "code", code)
	return nil
}
