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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	transferOutPrefix = "Transferred to "
	transferInPrefix  = "Received from "
	refundPrefix      = "Refund: "
)

var creditTypes = map[string]bool{
	models.CreditBonus:     true,
	models.CreditDeduction: true,
	models.CreditReferral:  true,
	models.CreditInitial:   true,
	models.CreditOther:     true,
}

// CreditService owns user balances. Every balance change happens in a transaction
// together with its ledger entry, and debits are conditional on sufficient funds.
type CreditService struct {
	db        *gorm.DB
	cfg       *config.Config
	publisher events.Publisher
}

func NewCreditService(db *gorm.DB, cfg *config.Config, publisher events.Publisher) *CreditService {
	return &CreditService{db: db, cfg: cfg, publisher: publisher}
}

// applyCredit adds delta to the user's balance and appends the matching ledger entry.
// Negative deltas only apply when the balance covers them.
func applyCredit(tx *gorm.DB, userID uuid.UUID, delta int, entryType, description string) (int, error) {
	q := tx.Model(&models.User{}).Where("id = ?", userID)
	if delta < 0 {
		q = q.Where("credits >= ?", -delta)
	}
	result := q.UpdateColumn("credits", gorm.Expr("credits + ?", delta))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return 0, fmt.Errorf("failed to check user: %w", err)
		}
		if n == 0 {
			return 0, ErrUserNotFound
		}
		return 0, ErrInsufficientFunds
	}

	balance, err := currentBalance(tx, userID)
	if err != nil {
		return 0, err
	}

	entry := models.CreditTransaction{
		UserID:       userID,
		Type:         entryType,
		Amount:       delta,
		BalanceAfter: balance,
		Description:  description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, fmt.Errorf("failed to record credit transaction: %w", err)
	}
	return balance, nil
}

func currentBalance(tx *gorm.DB, userID uuid.UUID) (int, error) {
	var u models.User
	if err := tx.Select("id", "credits").First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return u.Credits, nil
}

// grantInitialBonus credits amount once per user. The flag flip and the balance change
// are one conditional update, so repeated or concurrent calls grant at most once.
func grantInitialBonus(tx *gorm.DB, userID uuid.UUID, amount int) (bool, error) {
	result := tx.Model(&models.User{}).
		Where("id = ? AND has_received_initial_credits = ?", userID, false).
		UpdateColumns(map[string]interface{}{
			"credits":                      gorm.Expr("credits + ?", amount),
			"has_received_initial_credits": true,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to grant initial bonus: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	balance, err := currentBalance(tx, userID)
	if err != nil {
		return false, err
	}
	entry := models.CreditTransaction{
		UserID:       userID,
		Type:         models.CreditInitial,
		Amount:       amount,
		BalanceAfter: balance,
		Description:  "Initial bonus on approval",
	}
	if err := tx.Create(&entry).Error; err != nil {
		return false, fmt.Errorf("failed to record initial bonus: %w", err)
	}
	return true, nil
}

// grantReferralBonus counts a referral against the introducer and credits perReferral
// while the introducer's count stays within limit. It returns the amount credited.
// An unknown introducer code is logged and ignored.
func grantReferralBonus(tx *gorm.DB, introducerCode string, perReferral, limit int, referredName string) (int, error) {
	introducerCode = strings.TrimSpace(introducerCode)
	if introducerCode == "" || introducerCode == models.IntroducerSelf {
		return 0, nil
	}

	var introducer models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("person_code = ?", introducerCode).
		First(&introducer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Warn("introducer not found", "person_code", introducerCode)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load introducer: %w", err)
	}

	if err := tx.Model(&models.User{}).Where("id = ?", introducer.ID).
		UpdateColumn("introduced_count", gorm.Expr("introduced_count + 1")).Error; err != nil {
		return 0, fmt.Errorf("failed to increment introduced count: %w", err)
	}

	var counted models.User
	if err := tx.Select("id", "introduced_count").First(&counted, "id = ?", introducer.ID).Error; err != nil {
		return 0, fmt.Errorf("failed to read introduced count: %w", err)
	}
	if counted.IntroducedCount > limit {
		slog.Info("referral bonus cap reached", "introducer_id", introducer.ID, "introduced_count", counted.IntroducedCount)
		return 0, nil
	}

	desc := fmt.Sprintf("Referral bonus for introducing %s", referredName)
	if _, err := applyCredit(tx, introducer.ID, perReferral, models.CreditReferral, desc); err != nil {
		return 0, err
	}
	return perReferral, nil
}

// Transfer moves amount from sender to receiver and writes mirrored ledger entries.
func (s *CreditService) Transfer(ctx context.Context, senderID, receiverID uuid.UUID, amount int, description string) (*dto.TransferResponse, error) {
	if amount <= 0 {
		return nil, validationError("transfer amount must be a positive integer")
	}
	if senderID == receiverID {
		return nil, ErrSelfTransfer
	}
	description = strings.TrimSpace(description)

	var resp dto.TransferResponse
	var receiverName string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock in id order so two opposite transfers cannot deadlock.
		var users []models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", []uuid.UUID{senderID, receiverID}).
			Order("id").
			Find(&users).Error; err != nil {
			return fmt.Errorf("failed to load users: %w", err)
		}

		var sender, receiver *models.User
		for i := range users {
			switch users[i].ID {
			case senderID:
				sender = &users[i]
			case receiverID:
				receiver = &users[i]
			}
		}
		if sender == nil {
			return fmt.Errorf("%w: sender", ErrNotFound)
		}
		if receiver == nil {
			return fmt.Errorf("%w: receiver", ErrNotFound)
		}
		if sender.Credits < amount {
			return fmt.Errorf("%w: you have %d credits", ErrInsufficientFunds, sender.Credits)
		}

		outDesc := transferOutPrefix + receiver.Name
		inDesc := transferInPrefix + sender.Name
		if description != "" {
			outDesc += ": " + description
			inDesc += ": " + description
		}

		senderBalance, err := applyCredit(tx, sender.ID, -amount, models.CreditDeduction, outDesc)
		if err != nil {
			return err
		}
		receiverBalance, err := applyCredit(tx, receiver.ID, amount, models.CreditBonus, inDesc)
		if err != nil {
			return err
		}

		receiverName = receiver.Name
		resp.SenderBalance = senderBalance
		resp.ReceiverBalance = receiverBalance
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp.Message = fmt.Sprintf("Successfully transferred %d credits to %s", amount, receiverName)
	metrics.RecordCredits("transfer", amount)
	events.Emit(ctx, s.publisher, events.New(events.CreditsTransferred, senderID.String(), map[string]interface{}{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"amount":      amount,
	}))
	slog.Info("credits transferred", "sender_id", senderID, "receiver_id", receiverID, "amount", amount)
	return &resp, nil
}

// Balance returns the balance and up to limit entries, newest first. limit <= 0 returns all entries.
func (s *CreditService) Balance(ctx context.Context, userID uuid.UUID, limit int) (*dto.BalanceResponse, error) {
	db := s.db.WithContext(ctx)
	balance, err := currentBalance(db, userID)
	if err != nil {
		return nil, err
	}

	q := db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var history []models.CreditTransaction
	if err := q.Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to load credit history: %w", err)
	}
	return &dto.BalanceResponse{Balance: balance, Transactions: history}, nil
}

// Transactions classifies the latest entries for display: transfers in and out,
// referral and joining bonuses.
func (s *CreditService) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]dto.TransactionView, error) {
	if limit <= 0 {
		limit = 10
	}
	bal, err := s.Balance(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	views := make([]dto.TransactionView, 0, len(bal.Transactions))
	for _, t := range bal.Transactions {
		v := dto.TransactionView{
			ID:           t.ID,
			Kind:         "other",
			Amount:       t.Amount,
			BalanceAfter: t.BalanceAfter,
			Description:  t.Description,
			CreatedAt:    t.CreatedAt,
		}
		if v.Amount < 0 {
			v.Amount = -v.Amount
		}
		switch {
		case strings.HasPrefix(t.Description, transferOutPrefix):
			v.Kind = "transfer_sent"
			v.Counterparty = counterparty(t.Description, transferOutPrefix)
		case strings.HasPrefix(t.Description, transferInPrefix):
			v.Kind = "transfer_received"
			v.Counterparty = counterparty(t.Description, transferInPrefix)
		case t.Type == models.CreditReferral:
			v.Kind = "referral_bonus"
		case t.Type == models.CreditInitial:
			v.Kind = "joining_bonus"
		case strings.HasPrefix(t.Description, refundPrefix):
			v.Kind = "refund"
		case t.Type == models.CreditDeduction:
			v.Kind = "deduction"
		}
		views = append(views, v)
	}
	return views, nil
}

func counterparty(desc, prefix string) string {
	name := strings.TrimPrefix(desc, prefix)
	if i := strings.Index(name, ": "); i >= 0 {
		name = name[:i]
	}
	return name
}

// Deduct debits amount for a purchase. It fails with ErrInsufficientFunds before any change.
func (s *CreditService) Deduct(ctx context.Context, userID uuid.UUID, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, validationError("deduction amount must be a positive integer")
	}
	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = applyCredit(tx, userID, -amount, models.CreditDeduction, reason)
		return err
	})
	if err != nil {
		return 0, err
	}
	metrics.RecordCredits(models.CreditDeduction, amount)
	return balance, nil
}

// Refund compensates an earlier deduction with a new entry of the same magnitude.
func (s *CreditService) Refund(ctx context.Context, userID uuid.UUID, amount int, reason string) (int, error) {
	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = applyCredit(tx, userID, amount, models.CreditBonus, refundPrefix+reason)
		return err
	})
	if err != nil {
		return 0, err
	}
	metrics.RecordCredits("refund", amount)
	return balance, nil
}

// Purchase deducts amount, runs fn, and refunds if fn fails. On success it returns the
// balance after the deduction. A failed fn surfaces as ErrUpstream.
func (s *CreditService) Purchase(ctx context.Context, userID uuid.UUID, amount int, reason string, fn func(ctx context.Context) error) (int, error) {
	balance, err := s.Deduct(ctx, userID, amount, reason)
	if err != nil {
		return 0, err
	}

	if err := fn(ctx); err != nil {
		// The caller's context may already be cancelled; the refund must still land.
		refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, rerr := s.Refund(refundCtx, userID, amount, reason); rerr != nil {
			slog.Error("purchase refund failed", "user_id", userID, "amount", amount, "error", rerr)
			return 0, fmt.Errorf("%w: %v (refund failed: %v)", ErrUpstream, err, rerr)
		}
		events.Emit(refundCtx, s.publisher, events.New(events.CreditsPurchaseRefunds, userID.String(), map[string]interface{}{
			"user_id": userID,
			"amount":  amount,
			"reason":  reason,
		}))
		slog.Warn("purchase failed, credits refunded", "user_id", userID, "amount", amount, "error", err)
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return balance, nil
}

// Grant applies an administrative adjustment. Negative amounts are debits and respect the balance floor.
func (s *CreditService) Grant(ctx context.Context, userID uuid.UUID, req *dto.GrantCreditsRequest) (*dto.CreditsResponse, error) {
	if req.Amount == 0 {
		return nil, validationError("amount must not be zero")
	}
	entryType := req.Type
	if entryType == "" {
		entryType = models.CreditBonus
		if req.Amount < 0 {
			entryType = models.CreditDeduction
		}
	}
	if !creditTypes[entryType] {
		return nil, validationError("unknown credit type %q", entryType)
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = "Admin adjustment"
	}

	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = applyCredit(tx, userID, req.Amount, entryType, desc)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCredits(entryType, req.Amount)
	events.Emit(ctx, s.publisher, events.New(events.CreditsGranted, userID.String(), map[string]interface{}{
		"user_id": userID,
		"amount":  req.Amount,
		"type":    entryType,
	}))
	return &dto.CreditsResponse{UserID: userID, Credits: balance, Added: req.Amount}, nil
}

// PaymentCredits converts a cash payment into credits: the standard contribution buys
// the template credit award, anything else is multiplied by the configured rate.
func (s *CreditService) PaymentCredits(amount int) int {
	if amount == s.cfg.TemplateContribution {
		return s.cfg.TemplateCredits
	}
	return amount * s.cfg.PaymentCreditMultiplier
}

// ProcessPayment records a paid contribution on the user and credits the converted amount.
func (s *CreditService) ProcessPayment(ctx context.Context, userID uuid.UUID, amount int) (*dto.CreditsResponse, error) {
	if amount <= 0 {
		return nil, validationError("payment amount must be a positive integer")
	}
	credits := s.PaymentCredits(amount)

	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"payment_status": models.PaymentPaid,
			"payment_amount": amount,
			"payment_date":   now,
		})
		if result.Error != nil {
			return fmt.Errorf("failed to record payment: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}

		var err error
		balance, err = applyCredit(tx, userID, credits, models.CreditBonus, fmt.Sprintf("Payment of %d converted to credits", amount))
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCredits(models.CreditBonus, credits)
	return &dto.CreditsResponse{UserID: userID, Credits: balance, Added: credits}, nil
}

// SearchUsers finds transfer recipients by phone fragment, excluding the caller.
// Fragments shorter than two characters return nothing.
func (s *CreditService) SearchUsers(ctx context.Context, callerID uuid.UUID, phone string) ([]dto.UserSearchResult, error) {
	phone = strings.TrimSpace(phone)
	results := []dto.UserSearchResult{}
	if len(phone) < 2 {
		return results, nil
	}

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(phone)
	var users []models.User
	err := s.db.WithContext(ctx).
		Select("id", "name", "phone", "person_code").
		Where(`phone LIKE ? ESCAPE '\'`, "%"+escaped+"%").
		Where("id <> ?", callerID).
		Order("name").
		Limit(10).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	for _, u := range users {
		results = append(results, dto.UserSearchResult{ID: u.ID, Name: u.Name, Phone: u.Phone, PersonCode: u.PersonCode})
	}
	return results, nil
}

// Reconcile compares the stored balance with the sum of the user's ledger entries.
func (s *CreditService) Reconcile(ctx context.Context, userID uuid.UUID) (*dto.ReconcileResponse, error) {
	db := s.db.WithContext(ctx)
	balance, err := currentBalance(db, userID)
	if err != nil {
		return nil, err
	}

	var total int
	if err := db.Model(&models.CreditTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to sum credit history: %w", err)
	}

	resp := &dto.ReconcileResponse{
		UserID:       userID,
		Balance:      balance,
		HistoryTotal: total,
		Difference:   balance - total,
		Consistent:   balance == total,
	}
	if !resp.Consistent {
		slog.Warn("credit ledger out of balance", "user_id", userID, "balance", balance, "history_total", total)
	}
	return resp, nil
}
