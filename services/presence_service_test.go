package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"livebid/config"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var presenceTestNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func setupTestPresenceService() (*PresenceService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	cfg := &config.Config{
		PresenceTTL:          45 * time.Second,
		PresenceReapInterval: 15 * time.Second,
	}
	service := &PresenceService{
		Redis:  db,
		Config: cfg,
		now:    func() time.Time { return presenceTestNow },
	}
	return service, mock
}

func TestPresence_JoinAndHeartbeat(t *testing.T) {
	service, mock := setupTestPresenceService()
	defer mock.ClearExpect()

	member := redis.Z{Score: float64(presenceTestNow.Unix()), Member: "viewer1"}
	mock.ExpectZAdd("presence:reef", member).SetVal(1)
	mock.ExpectZAdd("presence:reef", member).SetVal(0)

	require.NoError(t, service.Join(context.Background(), "reef", "viewer1"))
	require.NoError(t, service.Heartbeat(context.Background(), "reef", "viewer1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresence_Leave(t *testing.T) {
	service, mock := setupTestPresenceService()
	defer mock.ClearExpect()

	mock.ExpectZRem("presence:reef", "viewer1").SetVal(1)

	require.NoError(t, service.Leave(context.Background(), "reef", "viewer1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresence_CountUsesLivenessWindow(t *testing.T) {
	service, mock := setupTestPresenceService()
	defer mock.ClearExpect()

	cutoff := presenceTestNow.Add(-45 * time.Second).Unix()
	mock.ExpectZCount("presence:reef", strconv.FormatInt(cutoff, 10), "+inf").SetVal(7)

	n, err := service.Count(context.Background(), "reef")

	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresence_ReapPrunesStaleViewers(t *testing.T) {
	service, mock := setupTestPresenceService()
	defer mock.ClearExpect()

	cutoff := strconv.FormatInt(presenceTestNow.Add(-45*time.Second).Unix(), 10)

	mock.ExpectScan(0, "presence:*", 100).SetVal([]string{"presence:reef", "presence:lagoon"}, 0)
	mock.ExpectZRemRangeByScore("presence:reef", "-inf", "("+cutoff).SetVal(2)
	mock.ExpectZRemRangeByScore("presence:lagoon", "-inf", "("+cutoff).SetVal(0)

	service.Reap(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresence_ClearOnStreamEnd(t *testing.T) {
	service, mock := setupTestPresenceService()
	defer mock.ClearExpect()

	mock.ExpectDel("presence:reef").SetVal(1)

	require.NoError(t, service.Clear(context.Background(), "reef"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
