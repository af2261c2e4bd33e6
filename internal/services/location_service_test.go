package services

import (
	"context"
	"testing"

	"github.com/channelpartner/position-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLocationValuesCascade(t *testing.T) {
	svc := NewLocationService(newTestDB(t))
	seedIndia(t, NewPositionService(svc.db, testConfig()))
	ctx := context.Background()

	zones, err := svc.Values(ctx, models.LevelZone, models.LocationPath{})
	require.NoError(t, err)
	require.Equal(t, []string{"North India", "South India", "West India"}, zones)

	states, err := svc.Values(ctx, models.LevelState, models.LocationPath{Zone: "South India"})
	require.NoError(t, err)
	require.Equal(t, []string{"Goa", "Karnataka"}, states)

	villages, err := svc.Values(ctx, models.LevelVillage, models.LocationPath{Pincode: "110005"})
	require.NoError(t, err)
	require.Equal(t, []string{"Bapa Nagar", "Beadonpura"}, villages)

	_, err = svc.Values(ctx, models.LevelCountry, models.LocationPath{})
	require.ErrorIs(t, err, ErrValidation)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 7)
	require.Len(t, all["villages"], 6)
	require.Equal(t, zones, all["zones"])
}

func TestLocationReverseLookup(t *testing.T) {
	svc := NewLocationService(newTestDB(t))
	seedIndia(t, NewPositionService(svc.db, testConfig()))
	ctx := context.Background()

	path, err := svc.ReverseLookup(ctx, "Hunsur")
	require.NoError(t, err)
	require.Equal(t, "Karnataka", path.State)
	require.Equal(t, "571105", path.Pincode)

	_, err = svc.ReverseLookup(ctx, "Atlantis")
	require.ErrorIs(t, err, ErrLocationNotFound)
	_, err = svc.ReverseLookup(ctx, " ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestLocationCRUD(t *testing.T) {
	svc := NewLocationService(newTestDB(t))
	ctx := context.Background()
	mapusa := village("South India", "Goa", "North Goa", "North Goa", "Bardez", "403507", "Mapusa")

	loc, err := svc.Create(ctx, mapusa)
	require.NoError(t, err)
	require.Equal(t, models.DefaultCountry, loc.Path.Country)

	_, err = svc.Create(ctx, mapusa)
	require.ErrorIs(t, err, ErrDuplicateLocation)

	_, err = svc.Create(ctx, models.LocationPath{Zone: "South India", State: "Goa"})
	require.ErrorIs(t, err, ErrValidation)

	moved := mapusa
	moved.Village = "Anjuna"
	updated, err := svc.Update(ctx, loc.ID, moved)
	require.NoError(t, err)
	require.Equal(t, "Anjuna", updated.Path.Village)

	_, err = svc.Update(ctx, uuid.New(), moved)
	require.ErrorIs(t, err, ErrLocationNotFound)

	page, err := svc.List(ctx, "anj", 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	require.NoError(t, svc.Delete(ctx, loc.ID))
	require.ErrorIs(t, svc.Delete(ctx, loc.ID), ErrLocationNotFound)
}

func TestLocationBulkImport(t *testing.T) {
	svc := NewLocationService(newTestDB(t))
	ctx := context.Background()
	versova := village("West India", "Maharashtra", "Konkan", "Mumbai", "Andheri", "400053", "Versova")
	_, err := svc.Create(ctx, versova)
	require.NoError(t, err)

	mapusa := village("South India", "Goa", "North Goa", "North Goa", "Bardez", "403507", "Mapusa")
	resp, err := svc.BulkImport(ctx, []models.LocationPath{
		mapusa,
		mapusa,
		versova,
		{Zone: "South India"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Imported)
	require.Equal(t, 2, resp.Skipped)
	require.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Errors, 1)

	_, err = svc.BulkImport(ctx, nil)
	require.ErrorIs(t, err, ErrValidation)
}
