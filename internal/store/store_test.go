package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatlink/internal/models"
	"chatlink/internal/types"
)

func openTestDB(t *testing.T) *SQLitePrefsRepo {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPrefsRepo(db)
}

func TestSoundEnabledDefaultsTrue(t *testing.T) {
	prefs := openTestDB(t)
	ctx := context.Background()

	enabled, err := prefs.SoundEnabled(ctx)
	require.NoError(t, err)
	require.True(t, enabled)

	require.NoError(t, prefs.SetSoundEnabled(ctx, false))
	enabled, err = prefs.SoundEnabled(ctx)
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestNotificationsEnabledDefaultsFalse(t *testing.T) {
	prefs := openTestDB(t)
	ctx := context.Background()

	enabled, err := prefs.NotificationsEnabled(ctx)
	require.NoError(t, err)
	require.False(t, enabled)

	require.NoError(t, prefs.SetNotificationsEnabled(ctx, true))
	enabled, err = prefs.NotificationsEnabled(ctx)
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestTokenRoundtripAndClear(t *testing.T) {
	prefs := openTestDB(t)
	ctx := context.Background()

	token, err := prefs.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, prefs.SaveToken(ctx, "first-token"))
	require.NoError(t, prefs.SaveToken(ctx, "second-token"))

	token, err = prefs.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "second-token", token)

	require.NoError(t, prefs.ClearToken(ctx))
	token, err = prefs.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestQueueRepoSaveAndLoadPreservesOrder(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewQueueRepo(db)
	ctx := context.Background()

	moderator := int64(5)
	messages := []models.QueuedMessage{
		{ID: "queue_a", Content: "first", ChatRoomID: 7, Type: types.TypeText, Timestamp: time.Now(), MaxRetries: 3},
		{ID: "queue_b", Content: "second", ChatRoomID: 7, Type: types.TypeText, ModeratorID: &moderator, Timestamp: time.Now(), RetryCount: 2, MaxRetries: 3},
	}
	require.NoError(t, repo.SaveRoom(ctx, 7, messages))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded[7], 2)
	require.Equal(t, "first", loaded[7][0].Content)
	require.Nil(t, loaded[7][0].ModeratorID)
	require.Equal(t, "second", loaded[7][1].Content)
	require.NotNil(t, loaded[7][1].ModeratorID)
	require.Equal(t, int64(5), *loaded[7][1].ModeratorID)
	require.Equal(t, 2, loaded[7][1].RetryCount)
}

func TestQueueRepoSaveRoomReplacesSnapshot(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewQueueRepo(db)
	ctx := context.Background()

	seed := []models.QueuedMessage{
		{ID: "queue_a", Content: "stale", ChatRoomID: 7, Type: types.TypeText, Timestamp: time.Now(), MaxRetries: 3},
	}
	require.NoError(t, repo.SaveRoom(ctx, 7, seed))
	require.NoError(t, repo.SaveRoom(ctx, 8, []models.QueuedMessage{
		{ID: "queue_other", Content: "untouched", ChatRoomID: 8, Type: types.TypeText, Timestamp: time.Now(), MaxRetries: 3},
	}))

	replacement := []models.QueuedMessage{
		{ID: "queue_b", Content: "fresh", ChatRoomID: 7, Type: types.TypeText, Timestamp: time.Now(), MaxRetries: 3},
	}
	require.NoError(t, repo.SaveRoom(ctx, 7, replacement))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded[7], 1)
	require.Equal(t, "queue_b", loaded[7][0].ID)
	require.Len(t, loaded[8], 1)
}

func TestQueueRepoClear(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewQueueRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveRoom(ctx, 7, []models.QueuedMessage{
		{ID: "queue_a", Content: "x", ChatRoomID: 7, Type: types.TypeText, Timestamp: time.Now(), MaxRetries: 3},
	}))
	require.NoError(t, repo.Clear(ctx))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded)
}
