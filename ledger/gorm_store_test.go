package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qZheng/CavityProof/payload"
	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

func setupGormStore(t *testing.T) *GormStore {
	t.Helper()

	db, err := ConnectToDatabase(filepath.Join(t.TempDir(), "ledger_test.db"))
	require.NoError(t, err, "Failed to open the test database")
	return NewGormStore(db)
}

func TestGormStoreInitUserIsIdempotent(t *testing.T) {
	store := setupGormStore(t)
	user := newTestUser(t)
	ctx := context.Background()

	first, err := store.InitUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, NeverClaimed, first.LastDayClaimed)

	// advance once, then re-init; the existing row must win
	updated, err := Advance(first, 100)
	require.NoError(t, err)
	require.NoError(t, store.CommitClaim(ctx, ReplayAddress(user, [payload.NonceLen]byte{1}), updated))

	again, err := store.InitUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, updated, again, "InitUser must not reset existing progress")
}

func TestGormStoreGetProgressMissingUser(t *testing.T) {
	store := setupGormStore(t)

	_, exists, err := store.GetProgress(context.Background(), newTestUser(t))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormStoreCommitClaimRoundTrip(t *testing.T) {
	store := setupGormStore(t)
	user := newTestUser(t)
	ctx := context.Background()

	initial, err := store.InitUser(ctx, user)
	require.NoError(t, err)

	updated, err := Advance(initial, 20301)
	require.NoError(t, err)
	require.NoError(t, store.CommitClaim(ctx, ReplayAddress(user, [payload.NonceLen]byte{1}), updated))

	got, exists, err := store.GetProgress(ctx, user)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, updated, got)
}

func TestGormStoreDuplicateReplayFailsWholeCommit(t *testing.T) {
	store := setupGormStore(t)
	user := newTestUser(t)
	ctx := context.Background()

	initial, err := store.InitUser(ctx, user)
	require.NoError(t, err)

	key := ReplayAddress(user, [payload.NonceLen]byte{1})
	dayOne, err := Advance(initial, 100)
	require.NoError(t, err)
	require.NoError(t, store.CommitClaim(ctx, key, dayOne))

	dayTwo, err := Advance(dayOne, 101)
	require.NoError(t, err)
	err = store.CommitClaim(ctx, key, dayTwo)
	assert.True(t, reasoncodes.Is(err, reasoncodes.ErrNonceAlreadyUsed), "expected NonceAlreadyUsed, got %v", err)

	// the rejected commit must not have touched progress
	got, exists, err := store.GetProgress(ctx, user)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, dayOne, got)
}

func TestGormStoreHasReplayTracksCommits(t *testing.T) {
	store := setupGormStore(t)
	user := newTestUser(t)
	ctx := context.Background()

	initial, err := store.InitUser(ctx, user)
	require.NoError(t, err)

	key := ReplayAddress(user, [payload.NonceLen]byte{7})
	used, err := store.HasReplay(ctx, key)
	require.NoError(t, err)
	assert.False(t, used)

	updated, err := Advance(initial, 100)
	require.NoError(t, err)
	require.NoError(t, store.CommitClaim(ctx, key, updated))

	used, err = store.HasReplay(ctx, key)
	require.NoError(t, err)
	assert.True(t, used)
}

func TestGormStoreReplayKeysAreScopedPerUser(t *testing.T) {
	store := setupGormStore(t)
	alice := newTestUser(t)
	bob := newTestUser(t)
	ctx := context.Background()

	nonce := [payload.NonceLen]byte{7}

	aliceProgress, err := Advance(NewProgress(alice), 100)
	require.NoError(t, err)
	require.NoError(t, store.CommitClaim(ctx, ReplayAddress(alice, nonce), aliceProgress))

	// the same nonce under a different user maps to a different address
	bobProgress, err := Advance(NewProgress(bob), 100)
	require.NoError(t, err)
	assert.NoError(t, store.CommitClaim(ctx, ReplayAddress(bob, nonce), bobProgress))
}

func TestGormStoreListProgress(t *testing.T) {
	store := setupGormStore(t)
	ctx := context.Background()

	users := []struct {
		nonce byte
		day   int64
	}{{1, 100}, {2, 101}, {3, 102}}
	for _, u := range users {
		user := newTestUser(t)
		p, err := Advance(NewProgress(user), u.day)
		require.NoError(t, err)
		require.NoError(t, store.CommitClaim(ctx, ReplayAddress(user, [payload.NonceLen]byte{u.nonce}), p))
	}

	all, err := store.ListProgress(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
