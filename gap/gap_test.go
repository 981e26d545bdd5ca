package gap_test

import (
	"context"
	"testing"
	"time"

	"github.com/michaellperry/gamehub-identity/gap"
	"github.com/michaellperry/gamehub-identity/storage"
	"github.com/michaellperry/gamehub-identity/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *gap.Engine {
	t.Helper()
	engine, err := gap.NewEngine(memory.NewStore().GAPs(),
		gap.WithNowTime(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }))
	require.NoError(t, err)
	return engine
}

func TestCreateAndGet(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	created, err := engine.Create(ctx, "event-42", gap.TypeOpen, gap.PolicyCookieBased)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := engine.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.EventID, got.EventID)
	require.Equal(t, gap.TypeOpen, got.Type)
	require.Equal(t, gap.PolicyCookieBased, got.Policy)
}

func TestCreateRequiresEvent(t *testing.T) {
	engine := newEngine(t)
	_, err := engine.Create(context.Background(), "", gap.TypeOpen, gap.PolicyCookieBased)
	require.Error(t, err)
}

func TestGetUnknownID(t *testing.T) {
	engine := newEngine(t)
	_, err := engine.Get(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAuthorizeOpenCookieBased(t *testing.T) {
	g := &gap.GAP{ID: "gap-1", EventID: "event-1", Type: gap.TypeOpen, Policy: gap.PolicyCookieBased}

	assert.True(t, gap.Authorize(g, gap.Identity{UserID: "user-1"}))
	assert.True(t, gap.Authorize(g, gap.Identity{CanEstablish: true}))
	assert.False(t, gap.Authorize(g, gap.Identity{}))
}

func TestAuthorizeDeniesByDefault(t *testing.T) {
	identity := gap.Identity{UserID: "user-1", CanEstablish: true}

	combos := []struct {
		gapType gap.Type
		policy  gap.Policy
	}{
		{gap.TypeRestricted, gap.PolicyCookieBased},
		{gap.TypeOpen, gap.PolicyInviteOnly},
		{gap.TypeRestricted, gap.PolicyInviteOnly},
		{gap.Type("SIGNED_LINK"), gap.PolicyCookieBased},
		{gap.TypeOpen, gap.Policy("MAGIC_WORD")},
		{gap.Type(""), gap.Policy("")},
	}
	for _, combo := range combos {
		g := &gap.GAP{ID: "gap-x", EventID: "event-1", Type: combo.gapType, Policy: combo.policy}
		assert.False(t, gap.Authorize(g, identity), "type=%q policy=%q must deny", combo.gapType, combo.policy)
	}

	assert.False(t, gap.Authorize(nil, identity))
}
