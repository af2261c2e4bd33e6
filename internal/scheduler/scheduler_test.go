package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/channelpartner/position-backend/internal/database"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/channelpartner/position-backend/internal/otp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	otp.Store
	calls int
}

func (c *countingSweeper) Sweep() int {
	c.calls++
	return 2
}

func TestSweepOTPs(t *testing.T) {
	store := &countingSweeper{Store: otp.NewMemoryStore(3)}
	throttle := otp.NewThrottle(time.Millisecond, 1)
	require.True(t, throttle.Allow("9000000001"))

	s := New(nil, store, throttle)
	time.Sleep(5 * time.Millisecond)
	s.SweepOTPs()

	require.Equal(t, 1, store.calls)
	require.Equal(t, 0, throttle.Prune())
}

func TestSweepWithoutSweeper(t *testing.T) {
	s := New(nil, nil, nil)
	require.Nil(t, s.sweeper)
	require.NotPanics(t, s.SweepOTPs)
}

func TestCleanupLogs(t *testing.T) {
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	require.NoError(t, db.Create(&models.SystemLog{
		Timestamp: time.Now().AddDate(0, 0, -45),
		Level:     "ERROR",
		Message:   "stale",
	}).Error)

	New(db, otp.NewMemoryStore(3), nil).CleanupLogs()

	var n int64
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestRegisterAndStop(t *testing.T) {
	s := New(nil, otp.NewMemoryStore(3), otp.NewThrottle(time.Second, 1))
	require.NoError(t, s.Register(30*time.Second))
	require.Len(t, s.cron.Entries(), 2)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
