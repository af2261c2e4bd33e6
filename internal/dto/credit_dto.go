package dto

import (
	"time"

	"github.com/channelpartner/position-backend/internal/models"
	"github.com/google/uuid"
)

type TransferRequest struct {
	ReceiverID  string `json:"receiverId"`
	Amount      int    `json:"amount"`
	Description string `json:"description"`
}

type TransferResponse struct {
	Message         string `json:"message"`
	SenderBalance   int    `json:"senderBalance"`
	ReceiverBalance int    `json:"receiverBalance"`
}

type BalanceResponse struct {
	Balance      int                        `json:"balance"`
	Transactions []models.CreditTransaction `json:"transactions"`
}

type GrantCreditsRequest struct {
	Amount      int    `json:"amount"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type PaymentCreditsRequest struct {
	Amount int `json:"amount"`
}

type CreditsResponse struct {
	UserID  uuid.UUID `json:"userId"`
	Credits int       `json:"credits"`
	Added   int       `json:"added"`
}

type UserSearchRequest struct {
	Phone string `json:"phone"`
}

type UserSearchResult struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	PersonCode string    `json:"personCode"`
}

type ReconcileResponse struct {
	UserID       uuid.UUID `json:"userId"`
	Balance      int       `json:"balance"`
	HistoryTotal int       `json:"historyTotal"`
	Difference   int       `json:"difference"`
	Consistent   bool      `json:"consistent"`
}

// TransactionView is a ledger entry classified for display.
type TransactionView struct {
	ID           uuid.UUID `json:"id"`
	Kind         string    `json:"type"`
	Amount       int       `json:"amount"`
	BalanceAfter int       `json:"balanceAfter"`
	Description  string    `json:"description"`
	Counterparty string    `json:"counterparty,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
