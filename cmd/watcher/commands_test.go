package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymerit/pkg/alerts"
)

func newTestManager() *alerts.Manager {
	return alerts.NewManager(alerts.NewMemoryStore(), nil)
}

func run(t *testing.T, m *alerts.Manager, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, runCommand(context.Background(), m, args, &out))
	return out.String()
}

func TestPriceAlertCommands(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	id := strings.TrimSpace(run(t, m, "alerts", "add", "-market", "m1", "-target", "0.7", "-direction", "below", "-title", "Rain?"))
	require.NotEmpty(t, id)

	priceAlerts, err := m.PriceAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, priceAlerts, 1)
	assert.Equal(t, "m1", priceAlerts[0].MarketID)
	assert.Equal(t, alerts.Below, priceAlerts[0].Direction)
	assert.Equal(t, "0.7", priceAlerts[0].TargetPrice.String())
	assert.True(t, priceAlerts[0].Active)

	listing := run(t, m, "alerts", "ls")
	assert.Contains(t, listing, id)
	assert.Contains(t, listing, "Rain?")

	run(t, m, "alerts", "rm", id)
	priceAlerts, err = m.PriceAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, priceAlerts)
}

func TestAddPriceAlertRejectsBadInput(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, runCommand(ctx, m, []string{"alerts", "add", "-market", "m1", "-target", "abc"}, &out))
	assert.ErrorIs(t, runCommand(ctx, m, []string{"alerts", "add", "-market", "m1", "-target", "2"}, &out), alerts.ErrInvalidTarget)
	assert.ErrorIs(t, runCommand(ctx, m, []string{"alerts", "add", "-target", "0.5"}, &out), alerts.ErrMissingMarket)
	assert.ErrorIs(t, runCommand(ctx, m, []string{"alerts", "add", "-bogus"}, &out), errUsage)
}

func TestWhaleCommands(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	run(t, m, "whales", "set", "-min", "2500")
	settings, err := m.WhaleSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2500", settings.MinSize.String())
	assert.True(t, settings.Active, "unset flags keep the saved value")

	run(t, m, "whales", "set", "-active=false")
	settings, err = m.WhaleSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2500", settings.MinSize.String())
	assert.False(t, settings.Active)

	assert.Equal(t, "min=2500 active=false\n", run(t, m, "whales", "show"))
}

func TestHistoryCommands(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	first, err := m.AddAlert(ctx, alerts.KindWhale, "Whale", "big trade", "0xc")
	require.NoError(t, err)
	_, err = m.AddAlert(ctx, alerts.KindPrice, "Rain?", "rose above 70%", "m1")
	require.NoError(t, err)

	assert.Contains(t, run(t, m, "history", "ls"), first.ID)

	run(t, m, "history", "read")
	unread, err := m.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, unread)

	run(t, m, "history", "rm", first.ID)
	history, err := m.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Rain?", history[0].Title)

	run(t, m, "history", "clear")
	history, err = m.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, runCommand(context.Background(), newTestManager(), []string{"alerts"}, &out), errUsage)
	assert.ErrorIs(t, runCommand(context.Background(), newTestManager(), []string{"alerts", "bogus"}, &out), errUsage)
}
