package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func seedIndia(t *testing.T, svc *PositionService) {
	t.Helper()
	seedLocations(t, svc.db,
		village("North India", "Delhi", "New Delhi", "Central Delhi", "Karol Bagh", "110005", "Beadonpura"),
		village("North India", "Delhi", "New Delhi", "Central Delhi", "Karol Bagh", "110005", "Bapa Nagar"),
		village("North India", "Punjab", "Patiala", "Patiala", "Rajpura", "140401", "Jansui"),
		village("South India", "Goa", "North Goa", "North Goa", "Bardez", "403507", "Mapusa"),
		village("South India", "Karnataka", "Mysore", "Mysuru", "Hunsur", "571105", "Bilikere"),
		village("West India", "Maharashtra", "Konkan", "Mumbai", "Andheri", "400053", "Versova"),
	)
}

func assertSequenced(t *testing.T, positions []models.Position) {
	t.Helper()
	for i, p := range positions {
		require.Equal(t, i+1, p.SNo)
	}
}

func TestResolveTopLevel(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())
	seedIndia(t, svc)

	positions, err := svc.Resolve(context.Background(), models.LocationPath{})
	require.NoError(t, err)
	require.Len(t, positions, 4)
	assertSequenced(t, positions)

	require.Equal(t, "President", positions[0].Post)
	require.Equal(t, "President of India", positions[0].Designation)
	require.Equal(t, "pos_president_india", positions[0].ID)

	zones := []string{"North India", "South India", "West India"}
	for i, zone := range zones {
		p := positions[i+1]
		require.Equal(t, "Zone Head", p.Post)
		require.Equal(t, zone, p.Location.Zone)
		require.Empty(t, p.Location.State)
		require.True(t, p.IsTemplate)
		require.Equal(t, 10000, p.Contribution)
		require.Equal(t, 60000, p.Credits)
		require.Equal(t, models.PositionAvailable, p.Status)
	}
	require.Equal(t, "pos_zone-head_india_north-india", positions[1].ID)
}

func TestResolveIsDeterministic(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())
	seedIndia(t, svc)

	filter := models.LocationPath{Zone: "North India", State: "Delhi"}
	first, err := svc.Resolve(context.Background(), filter)
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), filter)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestResolveDistrictLevel(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())
	seedIndia(t, svc)

	filter := models.LocationPath{Zone: "North India", State: "Delhi", Division: "New Delhi", District: "Central Delhi"}
	positions, err := svc.Resolve(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assertSequenced(t, positions)

	require.Equal(t, "District Head", positions[0].Post)
	require.Equal(t, "Head of Central Delhi", positions[0].Designation)
	require.Equal(t, "Tehsil Head", positions[1].Post)
	require.Equal(t, "Karol Bagh", positions[1].Location.Tehsil)
}

func TestResolveVillageHasNoChildren(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())
	seedIndia(t, svc)

	positions, err := svc.Resolve(context.Background(),
		village("North India", "Delhi", "New Delhi", "Central Delhi", "Karol Bagh", "110005", "Bapa Nagar"))
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.Equal(t, "Village Head", positions[0].Post)
}

func TestResolveUnknownLocationYieldsHeadOnly(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())
	seedIndia(t, svc)

	positions, err := svc.Resolve(context.Background(), models.LocationPath{Zone: "Atlantis"})
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.Equal(t, "Zone Head", positions[0].Post)
}

func TestResolveRejectsGaps(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())

	_, err := svc.Resolve(context.Background(), models.LocationPath{Zone: "North India", District: "Patiala"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestResolveCapsChildren(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())
	for i := 0; i < 25; i++ {
		seedLocations(t, svc.db, village("North India", "Punjab", "Patiala", "Patiala", "Rajpura", "140401", fmt.Sprintf("Village %02d", i)))
	}

	positions, err := svc.Resolve(context.Background(), models.LocationPath{
		Zone: "North India", State: "Punjab", Division: "Patiala", District: "Patiala", Tehsil: "Rajpura", Pincode: "140401",
	})
	require.NoError(t, err)
	require.Len(t, positions, 1+maxChildPositions)
	require.Equal(t, "Pincode Head", positions[0].Post)
	require.Equal(t, "Village 00", positions[1].Location.Village)
	assertSequenced(t, positions)
}

func TestResolveOverlaysActiveApplications(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewPositionService(db, cfg)
	apps := NewApplicationService(db, cfg, &recordingPublisher{})
	seedIndia(t, svc)

	goa := models.LocationPath{Zone: "South India", State: "Goa"}
	karnataka := models.LocationPath{Zone: "South India", State: "Karnataka"}
	_, err := apps.Submit(context.Background(), &dto.SubmitApplicationRequest{
		PositionID:    goa.Normalized().PositionKey(),
		ApplicantInfo: models.ApplicantInfo{Name: "Ravi Naik", Phone: "9000000101"},
		Location:      goa,
	})
	require.NoError(t, err)
	rejected, err := apps.Submit(context.Background(), &dto.SubmitApplicationRequest{
		PositionID:    karnataka.Normalized().PositionKey(),
		ApplicantInfo: models.ApplicantInfo{Name: "Meena Rao", Phone: "9000000102"},
		Location:      karnataka,
	})
	require.NoError(t, err)
	_, err = apps.Reject(context.Background(), rejected.ID, "incomplete")
	require.NoError(t, err)

	positions, err := svc.Resolve(context.Background(), models.LocationPath{Zone: "South India"})
	require.NoError(t, err)
	require.Len(t, positions, 3)

	require.Equal(t, "Goa", positions[1].Location.State)
	require.Equal(t, models.PositionPending, positions[1].Status)
	require.NotNil(t, positions[1].Applicant)
	require.Equal(t, "Ravi Naik", positions[1].Applicant.Name)

	require.Equal(t, "Karnataka", positions[2].Location.State)
	require.Equal(t, models.PositionAvailable, positions[2].Status)
	require.Nil(t, positions[2].Applicant)
}

func TestResolvePrefersPersistedPositions(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())
	seedIndia(t, svc)

	_, err := svc.Create(context.Background(), &dto.CreatePositionRequest{
		SNo:      7,
		Location: models.LocationPath{Zone: "West India", State: "Maharashtra"},
	})
	require.NoError(t, err)

	positions, err := svc.Resolve(context.Background(), models.LocationPath{Zone: "West India"})
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.False(t, positions[0].IsTemplate)
	require.Equal(t, "State Head", positions[0].Post)
	require.Equal(t, 1, positions[0].SNo)
}

func TestCreatePositionValidation(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())
	ctx := context.Background()

	_, err := svc.Create(ctx, &dto.CreatePositionRequest{
		Post:     "Zone Head",
		Location: models.LocationPath{Zone: "North India", State: "Delhi"},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, &dto.CreatePositionRequest{Location: models.LocationPath{State: "Delhi"}})
	require.ErrorIs(t, err, ErrValidation)

	p, err := svc.Create(ctx, &dto.CreatePositionRequest{Location: models.LocationPath{Zone: "North India"}})
	require.NoError(t, err)
	require.Equal(t, "pos_zone-head_india_north-india", p.ID)
	require.Equal(t, 1, p.SNo)
	require.Equal(t, 60000, p.Credits)

	_, err = svc.Create(ctx, &dto.CreatePositionRequest{Location: models.LocationPath{Zone: "North India"}})
	require.ErrorIs(t, err, ErrDuplicatePosition)
}

func TestUpdateAndDeletePosition(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())
	ctx := context.Background()

	p, err := svc.Create(ctx, &dto.CreatePositionRequest{Location: models.LocationPath{Zone: "East India"}})
	require.NoError(t, err)

	status := models.PositionOccupied
	updated, err := svc.Update(ctx, p.ID, &dto.UpdatePositionRequest{Status: &status})
	require.NoError(t, err)
	require.Equal(t, models.PositionOccupied, updated.Status)

	bad := "Taken"
	_, err = svc.Update(ctx, p.ID, &dto.UpdatePositionRequest{Status: &bad})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(ctx, "missing", &dto.UpdatePositionRequest{Status: &status})
	require.ErrorIs(t, err, ErrPositionNotFound)

	require.NoError(t, svc.Delete(ctx, p.ID))
	require.ErrorIs(t, svc.Delete(ctx, p.ID), ErrPositionNotFound)
	_, err = svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListPositions(t *testing.T) {
	svc := NewPositionService(newTestDB(t), testConfig())
	ctx := context.Background()

	for _, zone := range []string{"North India", "South India", "East India"} {
		_, err := svc.Create(ctx, &dto.CreatePositionRequest{Location: models.LocationPath{Zone: zone}})
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, models.LocationPath{}, "", 0, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), all.Total)
	require.Len(t, all.Positions, 2)

	south, err := svc.List(ctx, models.LocationPath{Zone: "South India"}, models.PositionAvailable, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), south.Total)
}

func TestPositionStatus(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewPositionService(db, cfg)
	apps := NewApplicationService(db, cfg, &recordingPublisher{})
	ctx := context.Background()

	status, err := svc.Status(ctx, "pos_state-head_india_south-india_goa")
	require.NoError(t, err)
	require.Equal(t, "available", status.Status)
	require.Nil(t, status.Applicant)

	_, err = apps.Submit(ctx, &dto.SubmitApplicationRequest{
		PositionID:    "pos_state-head_india_south-india_goa",
		ApplicantInfo: models.ApplicantInfo{Name: "Ravi Naik", Phone: "9000000101"},
		Location:      models.LocationPath{Zone: "South India", State: "Goa"},
	})
	require.NoError(t, err)

	status, err = svc.Status(ctx, "pos_state-head_india_south-india_goa")
	require.NoError(t, err)
	require.Equal(t, "occupied", status.Status)
	require.Equal(t, models.ApplicationPending, *status.ApplicationStatus)
	require.Equal(t, "Ravi Naik", status.Applicant.Name)
}
