package services

import (
	"context"
	"testing"
	"time"

	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/events"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	goaState       = models.LocationPath{Zone: "South India", State: "Goa"}
	karnatakaState = models.LocationPath{Zone: "South India", State: "Karnataka"}
	keralaState    = models.LocationPath{Zone: "South India", State: "Kerala"}
)

func newApplicationService(t *testing.T) (*ApplicationService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return NewApplicationService(newTestDB(t), testConfig(), pub), pub
}

func submit(t *testing.T, svc *ApplicationService, name, phone, introducer string) *models.Application {
	t.Helper()
	return submitAt(t, svc, goaState, name, phone, introducer)
}

func submitAt(t *testing.T, svc *ApplicationService, loc models.LocationPath, name, phone, introducer string) *models.Application {
	t.Helper()
	app, err := svc.Submit(context.Background(), &dto.SubmitApplicationRequest{
		ApplicantInfo: models.ApplicantInfo{Name: name, Phone: phone},
		Location:      loc,
		IntroducedBy:  introducer,
	})
	require.NoError(t, err)
	return app
}

func TestSubmitAndApproveNewApplicant(t *testing.T) {
	svc, pub := newApplicationService(t)
	ctx := context.Background()

	app := submit(t, svc, "Asha Verma", "9876543210", "")
	require.Equal(t, models.ApplicationPending, app.Status)
	require.Len(t, app.PersonCode, 6)
	require.Equal(t, models.DefaultPhoto, app.Applicant.Photo)
	require.Equal(t, models.IntroducerSelf, app.IntroducedBy)
	require.Equal(t, goaState.Normalized().PositionKey(), app.PositionID)
	require.Equal(t, 10000, app.PaymentAmount)

	resp, err := svc.Approve(ctx, app.ID, "verified")
	require.NoError(t, err)
	require.True(t, resp.UserCreated)
	require.False(t, resp.AlreadyApproved)
	require.Equal(t, 500, resp.InitialCredits)
	require.Zero(t, resp.ReferralCredits)
	require.Equal(t, "9876543210", resp.LoginID)
	require.Equal(t, models.ApplicationApproved, resp.Application.Status)

	var user models.User
	require.NoError(t, svc.db.Where("phone = ?", "9876543210").First(&user).Error)
	require.Equal(t, 500, user.Credits)
	require.True(t, user.HasReceivedInitialCredits)
	require.True(t, user.IsFirstLogin)
	require.Equal(t, app.PersonCode, user.PersonCode)
	require.Equal(t, app.PositionID, user.PositionID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("ASHA")))

	stored, err := svc.Get(ctx, app.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.UserID)
	require.Equal(t, user.ID, *stored.UserID)
	require.Equal(t, "verified", stored.AdminNotes)

	var entries []models.CreditTransaction
	require.NoError(t, svc.db.Where("user_id = ?", user.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, models.CreditInitial, entries[0].Type)
	require.Equal(t, 500, entries[0].BalanceAfter)

	require.Equal(t, []string{events.ApplicationSubmitted, events.ApplicationDecided}, pub.types())
}

func TestApproveTwiceGrantsOnce(t *testing.T) {
	svc, pub := newApplicationService(t)
	ctx := context.Background()
	app := submit(t, svc, "Asha Verma", "9876543210", "")

	_, err := svc.Approve(ctx, app.ID, "")
	require.NoError(t, err)
	again, err := svc.Approve(ctx, app.ID, "")
	require.NoError(t, err)
	require.True(t, again.AlreadyApproved)
	require.Zero(t, again.InitialCredits)

	var user models.User
	require.NoError(t, svc.db.Where("phone = ?", "9876543210").First(&user).Error)
	require.Equal(t, 500, user.Credits)

	var n int64
	require.NoError(t, svc.db.Model(&models.CreditTransaction{}).Where("user_id = ?", user.ID).Count(&n).Error)
	require.Equal(t, int64(1), n)
	require.Len(t, pub.types(), 2)
}

func TestApproveExistingUserKeepsBonusOnce(t *testing.T) {
	svc, _ := newApplicationService(t)
	ctx := context.Background()
	existing := createUser(t, svc.db, "Asha Verma", "9876543210", "222222", 0)
	require.NoError(t, svc.db.Model(existing).Update("has_received_initial_credits", true).Error)

	app := submit(t, svc, "Asha Verma", "9876543210", "")
	resp, err := svc.Approve(ctx, app.ID, "")
	require.NoError(t, err)
	require.False(t, resp.UserCreated)
	require.Zero(t, resp.InitialCredits)
	require.Equal(t, existing.ID.String(), resp.UserID)
	require.Equal(t, 0, reload(t, svc.db, existing.ID).Credits)
}

func TestReferralBonusRespectsCap(t *testing.T) {
	svc, _ := newApplicationService(t)
	ctx := context.Background()
	introducer := createUser(t, svc.db, "Kiran Shah", "9000000001", "111111", 0)
	require.NoError(t, svc.db.Model(introducer).Update("introduced_count", 19).Error)

	first := submit(t, svc, "Neha Joshi", "9000000002", "111111")
	resp, err := svc.Approve(ctx, first.ID, "")
	require.NoError(t, err)
	require.Equal(t, 100, resp.ReferralCredits)

	got := reload(t, svc.db, introducer.ID)
	require.Equal(t, 20, got.IntroducedCount)
	require.Equal(t, 100, got.Credits)

	second := submitAt(t, svc, karnatakaState, "Vikram Rao", "9000000003", "111111")
	resp, err = svc.Approve(ctx, second.ID, "")
	require.NoError(t, err)
	require.Zero(t, resp.ReferralCredits)

	got = reload(t, svc.db, introducer.ID)
	require.Equal(t, 21, got.IntroducedCount)
	require.Equal(t, 100, got.Credits)
}

func TestUnknownIntroducerIsIgnored(t *testing.T) {
	svc, _ := newApplicationService(t)
	app := submit(t, svc, "Neha Joshi", "9000000002", "999999")

	resp, err := svc.Approve(context.Background(), app.ID, "")
	require.NoError(t, err)
	require.Zero(t, resp.ReferralCredits)
	require.Equal(t, 500, resp.InitialCredits)
}

func TestSubmitRejectsDuplicatePhone(t *testing.T) {
	svc, _ := newApplicationService(t)
	ctx := context.Background()
	first := submit(t, svc, "Asha Verma", "9876543210", "")

	_, err := svc.Submit(ctx, &dto.SubmitApplicationRequest{
		ApplicantInfo: models.ApplicantInfo{Name: "Asha V", Phone: "9876543210"},
		Location:      models.LocationPath{Zone: "North India"},
	})
	require.ErrorIs(t, err, ErrDuplicateApplication)
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Reject(ctx, first.ID, "")
	require.NoError(t, err)
	again := submit(t, svc, "Asha Verma", "9876543210", "")
	require.NotEqual(t, first.ID, again.ID)
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newApplicationService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, &dto.SubmitApplicationRequest{
		ApplicantInfo: models.ApplicantInfo{Phone: "9876543210"},
		Location:      goaState,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Submit(ctx, &dto.SubmitApplicationRequest{
		ApplicantInfo: models.ApplicantInfo{Name: "Asha Verma", Phone: "9876543210"},
		Location:      models.LocationPath{State: "Goa"},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSubmitFailsWhenCodesExhausted(t *testing.T) {
	svc, _ := newApplicationService(t)
	svc.newCode = func() (string, error) { return "123456", nil }

	first := submit(t, svc, "Asha Verma", "9876543210", "")
	require.Equal(t, "123456", first.PersonCode)

	_, err := svc.Submit(context.Background(), &dto.SubmitApplicationRequest{
		ApplicantInfo: models.ApplicantInfo{Name: "Ravi Naik", Phone: "9000000101"},
		Location:      karnatakaState,
	})
	require.ErrorIs(t, err, ErrCodeGenerationExhausted)

	var n int64
	require.NoError(t, svc.db.Model(&models.Application{}).Count(&n).Error)
	require.Equal(t, int64(1), n)
}

func TestDecisionTransitions(t *testing.T) {
	svc, _ := newApplicationService(t)
	ctx := context.Background()

	approved := submit(t, svc, "Asha Verma", "9876543210", "")
	_, err := svc.Decide(ctx, approved.ID, models.ApplicationApproved, "")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, approved.ID, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	rejected := submitAt(t, svc, karnatakaState, "Ravi Naik", "9000000101", "")
	app, err := svc.Decide(ctx, rejected.ID, models.ApplicationRejected, "missing documents")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationRejected, app.Status)
	require.Equal(t, "missing documents", app.AdminNotes)

	app, err = svc.Reject(ctx, rejected.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationRejected, app.Status)

	_, err = svc.Approve(ctx, rejected.ID, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Decide(ctx, rejected.ID, "maybe", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestApplicationDrivesPersistedPosition(t *testing.T) {
	svc, _ := newApplicationService(t)
	positions := NewPositionService(svc.db, svc.cfg)
	ctx := context.Background()

	pos, err := positions.Create(ctx, &dto.CreatePositionRequest{Location: goaState})
	require.NoError(t, err)

	app := submit(t, svc, "Asha Verma", "9876543210", "")
	require.Equal(t, pos.ID, app.PositionID)

	got, err := positions.Get(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, models.PositionPending, got.Status)
	require.NotNil(t, got.Applicant)
	require.Equal(t, "Asha Verma", got.Applicant.Name)

	_, err = svc.Approve(ctx, app.ID, "")
	require.NoError(t, err)
	got, err = positions.Get(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, models.PositionApproved, got.Status)
	require.NotEmpty(t, got.Applicant.UserID)

	require.NoError(t, svc.Delete(ctx, app.ID))
	got, err = positions.Get(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, models.PositionAvailable, got.Status)
	require.Nil(t, got.Applicant)

	_, err = svc.Get(ctx, app.ID)
	require.ErrorIs(t, err, ErrApplicationNotFound)
	require.ErrorIs(t, svc.Delete(ctx, app.ID), ErrNotFound)

	var users int64
	require.NoError(t, svc.db.Model(&models.User{}).Count(&users).Error)
	require.Equal(t, int64(1), users)
}

func TestSubmitRejectsHeldPosition(t *testing.T) {
	svc, _ := newApplicationService(t)
	positions := NewPositionService(svc.db, svc.cfg)
	ctx := context.Background()

	pos, err := positions.Create(ctx, &dto.CreatePositionRequest{Location: goaState})
	require.NoError(t, err)
	asha := submit(t, svc, "Asha Verma", "9876543210", "")
	_, err = svc.Approve(ctx, asha.ID, "")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, &dto.SubmitApplicationRequest{
		PositionID:    pos.ID,
		ApplicantInfo: models.ApplicantInfo{Name: "Ravi Kumar", Phone: "9000000101"},
		Location:      goaState,
	})
	require.ErrorIs(t, err, ErrPositionTaken)
	require.ErrorIs(t, err, ErrConflict)

	got, err := positions.Get(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, models.PositionApproved, got.Status)
	require.Equal(t, "Asha Verma", got.Applicant.Name)

	status, err := positions.Status(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, "occupied", status.Status)
	require.Equal(t, "Asha Verma", status.Applicant.Name)

	// A phone already holding an application is reported ahead of the slot.
	_, err = svc.Submit(ctx, &dto.SubmitApplicationRequest{
		ApplicantInfo: models.ApplicantInfo{Name: "Asha Verma", Phone: "9876543210"},
		Location:      goaState,
	})
	require.ErrorIs(t, err, ErrDuplicateApplication)
}

func TestRemovingStaleApplicationKeepsHolder(t *testing.T) {
	svc, _ := newApplicationService(t)
	positions := NewPositionService(svc.db, svc.cfg)
	ctx := context.Background()

	pos, err := positions.Create(ctx, &dto.CreatePositionRequest{Location: goaState})
	require.NoError(t, err)

	asha := submit(t, svc, "Asha Verma", "9876543210", "")
	_, err = svc.Reject(ctx, asha.ID, "incomplete")
	require.NoError(t, err)
	got, err := positions.Get(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, models.PositionAvailable, got.Status)
	require.Nil(t, got.Applicant)

	ravi := submit(t, svc, "Ravi Kumar", "9000000101", "")
	_, err = svc.Approve(ctx, ravi.ID, "")
	require.NoError(t, err)

	_, err = svc.Reject(ctx, asha.ID, "")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, asha.ID))

	got, err = positions.Get(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, models.PositionApproved, got.Status)
	require.NotNil(t, got.Applicant)
	require.Equal(t, "Ravi Kumar", got.Applicant.Name)
	require.NotEmpty(t, got.Applicant.UserID)

	status, err := positions.Status(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, "occupied", status.Status)
	require.Equal(t, models.ApplicationApproved, *status.ApplicationStatus)
}

func TestSubmitValidatesPositionID(t *testing.T) {
	svc, _ := newApplicationService(t)
	positions := NewPositionService(svc.db, svc.cfg)
	ctx := context.Background()

	_, err := svc.Submit(ctx, &dto.SubmitApplicationRequest{
		PositionID:    "pos_zone-head_india_north-india",
		ApplicantInfo: models.ApplicantInfo{Name: "Asha Verma", Phone: "9876543210"},
		Location:      goaState,
	})
	require.ErrorIs(t, err, ErrValidation)

	custom, err := positions.Create(ctx, &dto.CreatePositionRequest{ID: "goa-coastal-head", Location: goaState})
	require.NoError(t, err)
	_, err = positions.Create(ctx, &dto.CreatePositionRequest{ID: "kerala-head", Location: keralaState})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, &dto.SubmitApplicationRequest{
		PositionID:    "kerala-head",
		ApplicantInfo: models.ApplicantInfo{Name: "Asha Verma", Phone: "9876543210"},
		Location:      goaState,
	})
	require.ErrorIs(t, err, ErrValidation)

	app, err := svc.Submit(ctx, &dto.SubmitApplicationRequest{
		PositionID:    custom.ID,
		ApplicantInfo: models.ApplicantInfo{Name: "Asha Verma", Phone: "9876543210"},
		Location:      goaState,
	})
	require.NoError(t, err)
	require.Equal(t, custom.ID, app.PositionID)

	got, err := positions.Get(ctx, custom.ID)
	require.NoError(t, err)
	require.Equal(t, models.PositionPending, got.Status)
}

func TestListStatsAndPayment(t *testing.T) {
	svc, _ := newApplicationService(t)
	ctx := context.Background()

	a := submit(t, svc, "Asha Verma", "9876543210", "")
	b := submitAt(t, svc, karnatakaState, "Ravi Naik", "9000000101", "")
	submitAt(t, svc, keralaState, "Meena Rao", "9000000102", "")
	_, err := svc.Approve(ctx, a.ID, "")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, b.ID, "")
	require.NoError(t, err)

	pending, err := svc.List(ctx, models.ApplicationPending, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), pending.Total)
	require.Equal(t, "Meena Rao", pending.Applications[0].Applicant.Name)

	all, err := svc.List(ctx, "", 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), all.Total)
	require.Len(t, all.Applications, 2)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.TotalApplications)
	require.Equal(t, int64(1), stats.Pending)
	require.Equal(t, int64(1), stats.Approved)
	require.Equal(t, int64(1), stats.Rejected)
	require.Equal(t, int64(1), stats.TotalUsers)
	require.Equal(t, int64(500), stats.TotalCredits)

	amount := 5000
	paid, err := svc.UpdatePayment(ctx, a.ID, &dto.UpdatePaymentRequest{PaymentStatus: models.PaymentPaid, PaymentAmount: &amount})
	require.NoError(t, err)
	require.Equal(t, models.PaymentPaid, paid.PaymentStatus)
	require.Equal(t, 5000, paid.PaymentAmount)
	require.NotNil(t, paid.PaymentDate)

	_, err = svc.UpdatePayment(ctx, a.ID, &dto.UpdatePaymentRequest{PaymentStatus: "refunded"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestApproveMissingApplication(t *testing.T) {
	svc, _ := newApplicationService(t)
	_, err := svc.Approve(context.Background(), uuid.New(), "")
	require.ErrorIs(t, err, ErrApplicationNotFound)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplicationsByPosition(t *testing.T) {
	svc, _ := newApplicationService(t)
	ctx := context.Background()

	asha := submit(t, svc, "Asha Verma", "9876543210", "")
	_, err := svc.Reject(ctx, asha.ID, "")
	require.NoError(t, err)
	svc.now = func() time.Time { return asha.AppliedDate.Add(time.Hour) }
	ravi := submit(t, svc, "Ravi Naik", "9000000101", "")
	submitAt(t, svc, karnatakaState, "Meena Rao", "9000000102", "")

	resp, err := svc.ByPosition(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, resp.TotalApplications)
	require.Equal(t, 2, resp.PositionsWithApplications)

	goa := resp.ApplicationsByPosition[goaState.Normalized().PositionKey()]
	require.Len(t, goa, 2)
	require.Equal(t, ravi.ID.String(), goa[0].ApplicationID)
	require.Equal(t, models.ApplicationPending, goa[0].Status)
	require.Equal(t, "Asha Verma", goa[1].ApplicantName)
	require.Equal(t, models.ApplicationRejected, goa[1].Status)
	require.Equal(t, "Goa", goa[1].Location.State)
	require.Len(t, resp.ApplicationsByPosition[karnatakaState.Normalized().PositionKey()], 1)
}
