package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymerit/pkg/models"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (n *recordingNotifier) Notify(_ context.Context, alert Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

// countingPermission counts prompts and never changes state on its own
type countingPermission struct {
	state   Permission
	prompts int
}

func (p *countingPermission) State() Permission { return p.state }

func (p *countingPermission) Prompt(context.Context) (Permission, error) {
	p.prompts++
	return p.state, nil
}

func newManager(t *testing.T, perm PermissionProvider) (*Manager, *recordingNotifier) {
	t.Helper()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notifier := &recordingNotifier{}
	m := NewManager(NewMemoryStore(), perm,
		WithNotifier(notifier),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	return m, notifier
}

func TestRequestPermissionPromptsOnlyWhenDefault(t *testing.T) {
	ctx := context.Background()

	perm := &countingPermission{state: PermissionGranted}
	m, _ := newManager(t, perm)
	state, err := m.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, state)
	assert.Equal(t, 0, perm.prompts)

	perm = &countingPermission{state: PermissionDefault}
	m, _ = newManager(t, perm)
	_, err = m.RequestPermission(ctx)
	require.NoError(t, err)
	_, err = m.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, perm.prompts, "default state is asked again every time")
}

func TestPermissionIsNotCached(t *testing.T) {
	ctx := context.Background()
	perm := NewStaticPermission(PermissionDefault, PermissionGranted)
	m, _ := newManager(t, perm)

	state, err := m.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, state)

	perm.Revoke()
	state, err = m.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, state)
	assert.Equal(t, PermissionDenied, m.PermissionState())
}

func TestNilPermissionIsDenied(t *testing.T) {
	m, _ := newManager(t, nil)
	state, err := m.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, state)
}

func TestParsePermission(t *testing.T) {
	assert.Equal(t, PermissionGranted, ParsePermission(" Granted "))
	assert.Equal(t, PermissionDenied, ParsePermission("denied"))
	assert.Equal(t, PermissionDefault, ParsePermission("whatever"))
}

func TestHistoryOperations(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, nil)

	history, err := m.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	first, err := m.AddAlert(ctx, KindPrice, "first", "msg", "m1")
	require.NoError(t, err)
	second, err := m.AddAlert(ctx, KindWhale, "second", "msg", "m2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	history, err = m.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Title, "newest first")

	unread, err := m.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	require.NoError(t, m.MarkAllRead(ctx))
	unread, err = m.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, unread)

	require.NoError(t, m.DeleteAlert(ctx, first.ID))
	require.NoError(t, m.DeleteAlert(ctx, "missing"))
	history, err = m.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, second.ID, history[0].ID)

	require.NoError(t, m.ClearHistory(ctx))
	history, err = m.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryIsCapped(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, nil)

	for i := 0; i < MaxHistory+5; i++ {
		_, err := m.AddAlert(ctx, KindPrice, fmt.Sprintf("alert %d", i), "", "")
		require.NoError(t, err)
	}

	history, err := m.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, MaxHistory)
	assert.Equal(t, fmt.Sprintf("alert %d", MaxHistory+4), history[0].Title)
	assert.Equal(t, "alert 5", history[MaxHistory-1].Title)
}

func TestAddPriceAlertValidation(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, nil)

	_, err := m.AddPriceAlert(ctx, "", "t", decimal.RequireFromString("0.5"), Above)
	assert.ErrorIs(t, err, ErrMissingMarket)
	_, err = m.AddPriceAlert(ctx, "m1", "t", decimal.RequireFromString("0.5"), "sideways")
	assert.ErrorIs(t, err, ErrInvalidDirection)
	_, err = m.AddPriceAlert(ctx, "m1", "t", decimal.RequireFromString("1.5"), Above)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestPriceAlertsFireOnceAndDeactivate(t *testing.T) {
	ctx := context.Background()
	m, notifier := newManager(t, NewStaticPermission(PermissionGranted, PermissionGranted))

	above, err := m.AddPriceAlert(ctx, "m1", "Will it rain?", decimal.RequireFromString("0.6"), Above)
	require.NoError(t, err)
	_, err = m.AddPriceAlert(ctx, "m2", "Election", decimal.RequireFromString("0.3"), Below)
	require.NoError(t, err)

	fired, err := m.CheckPrices(ctx, map[string]float64{"m1": 0.55, "m2": 0.35})
	require.NoError(t, err)
	assert.Empty(t, fired)

	fired, err = m.CheckPrices(ctx, map[string]float64{"m1": 0.6, "m2": 0.31})
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, "m1", fired[0].MarketID)
	assert.Equal(t, KindPrice, fired[0].Kind)
	assert.Contains(t, fired[0].Message, "rose above 60%")
	assert.Equal(t, 1, notifier.count())

	fired, err = m.CheckPrices(ctx, map[string]float64{"m1": 0.9, "m2": 0.1})
	require.NoError(t, err)
	require.Len(t, fired, 1, "m1 is already deactivated")
	assert.Equal(t, "m2", fired[0].MarketID)
	assert.Contains(t, fired[0].Message, "fell below 30%")

	alerts, err := m.PriceAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.False(t, a.Active)
		assert.NotNil(t, a.TriggeredAt)
	}

	require.NoError(t, m.RemovePriceAlert(ctx, above.ID))
	alerts, err = m.PriceAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	history, err := m.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestNotificationsRequireGrantedPermission(t *testing.T) {
	ctx := context.Background()
	m, notifier := newManager(t, NewStaticPermission(PermissionDenied, PermissionDenied))

	_, err := m.AddPriceAlert(ctx, "m1", "t", decimal.RequireFromString("0.5"), Above)
	require.NoError(t, err)
	fired, err := m.CheckPrices(ctx, map[string]float64{"m1": 0.7})
	require.NoError(t, err)
	assert.Len(t, fired, 1)
	assert.Zero(t, notifier.count())
}

func whale(hash, size string) models.Trade {
	return models.Trade{
		TransactionHash: hash,
		MakerAddress:    "0x1234567890abcdef",
		Side:            models.SideBuy,
		Price:           decimal.RequireFromString("0.5"),
		Size:            decimal.RequireFromString(size),
		Title:           "Fed cuts rates?",
		Outcome:         "Yes",
		ConditionID:     "0xc",
	}
}

func TestWhaleSettingsDefaultsAndOverwrite(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, nil)

	settings, err := m.WhaleSettings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.MinSize.Equal(DefaultWhaleSettings.MinSize))

	require.NoError(t, m.SaveWhaleSettings(ctx, WhaleSettings{MinSize: decimal.NewFromInt(500), Active: false}))
	settings, err = m.WhaleSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "500", settings.MinSize.String())
	assert.False(t, settings.Active)

	assert.Error(t, m.SaveWhaleSettings(ctx, WhaleSettings{MinSize: decimal.NewFromInt(-1)}))
}

func TestCheckWhaleTrades(t *testing.T) {
	ctx := context.Background()
	m, notifier := newManager(t, NewStaticPermission(PermissionGranted, PermissionGranted))
	require.NoError(t, m.SaveWhaleSettings(ctx, WhaleSettings{MinSize: decimal.NewFromInt(1000), Active: true}))

	trades := []models.Trade{
		whale("0xa", "2000"),  // 1000, meets the minimum
		whale("0xb", "1999"),  // 999.5
		whale("0xc", "50000"), // 25000
	}

	fired, err := m.CheckWhaleTrades(ctx, trades)
	require.NoError(t, err)
	require.Len(t, fired, 2)
	assert.Equal(t, "Whale trade: Fed cuts rates?", fired[0].Title)
	assert.Equal(t, "0x1234…cdef bought $1,000 of Yes at 50.0¢", fired[0].Message)
	assert.Contains(t, fired[1].Message, "$25,000")
	assert.Equal(t, 2, notifier.count())

	fired, err = m.CheckWhaleTrades(ctx, trades)
	require.NoError(t, err)
	assert.Empty(t, fired, "trades already alerted are skipped")
}

func TestCheckWhaleTradesInactive(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, nil)
	require.NoError(t, m.SaveWhaleSettings(ctx, WhaleSettings{MinSize: decimal.NewFromInt(1), Active: false}))

	fired, err := m.CheckWhaleTrades(ctx, []models.Trade{whale("0xa", "100000")})
	require.NoError(t, err)
	assert.Empty(t, fired)
}

var errWriteFailed = errors.New("write failed")

// flakyStore fails writes to one key while failures is positive
type flakyStore struct {
	*MemoryStore
	key      string
	failures int
}

func (s *flakyStore) Set(ctx context.Context, key string, value interface{}) error {
	if key == s.key && s.failures > 0 {
		s.failures--
		return errWriteFailed
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func TestCheckPricesFailedHistoryWriteDoesNotRefire(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore(), key: KeyHistory}
	m := NewManager(store, nil)

	_, err := m.AddPriceAlert(ctx, "m1", "Rain?", decimal.RequireFromString("0.5"), Above)
	require.NoError(t, err)
	_, err = m.AddPriceAlert(ctx, "m2", "Snow?", decimal.RequireFromString("0.5"), Above)
	require.NoError(t, err)

	store.failures = 1
	_, err = m.CheckPrices(ctx, map[string]float64{"m1": 0.7, "m2": 0.7})
	require.ErrorIs(t, err, errWriteFailed)

	alerts, err := m.PriceAlerts(ctx)
	require.NoError(t, err)
	for _, a := range alerts {
		assert.False(t, a.Active, a.MarketID)
	}

	fired, err := m.CheckPrices(ctx, map[string]float64{"m1": 0.7, "m2": 0.7})
	require.NoError(t, err)
	assert.Empty(t, fired)
}

func TestCheckPricesFailedAlertWriteRecordsNothing(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore(), key: KeyPriceAlerts}
	m := NewManager(store, nil)

	_, err := m.AddPriceAlert(ctx, "m1", "Rain?", decimal.RequireFromString("0.5"), Above)
	require.NoError(t, err)

	store.failures = 1
	_, err = m.CheckPrices(ctx, map[string]float64{"m1": 0.7})
	require.ErrorIs(t, err, errWriteFailed)

	history, err := m.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	fired, err := m.CheckPrices(ctx, map[string]float64{"m1": 0.7})
	require.NoError(t, err)
	require.Len(t, fired, 1)

	history, err = m.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCheckPricesRecordsInFiringOrder(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, nil)

	_, err := m.AddPriceAlert(ctx, "m1", "First", decimal.RequireFromString("0.5"), Above)
	require.NoError(t, err)
	_, err = m.AddPriceAlert(ctx, "m2", "Second", decimal.RequireFromString("0.5"), Above)
	require.NoError(t, err)

	_, err = m.CheckPrices(ctx, map[string]float64{"m1": 0.6, "m2": 0.6})
	require.NoError(t, err)

	history, err := m.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Second", history[0].Title)
	assert.Equal(t, "First", history[1].Title)
}

func TestCheckWhaleTradesRetriedAfterFailedWrite(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore(), key: KeyHistory}
	m := NewManager(store, nil)
	trades := []models.Trade{whale("0xa", "50000")}

	store.failures = 1
	_, err := m.CheckWhaleTrades(ctx, trades)
	require.ErrorIs(t, err, errWriteFailed)

	fired, err := m.CheckWhaleTrades(ctx, trades)
	require.NoError(t, err)
	require.Len(t, fired, 1)

	fired, err = m.CheckWhaleTrades(ctx, trades)
	require.NoError(t, err)
	assert.Empty(t, fired)
}

func TestCheckWhaleTradesDedupesWithinBatch(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, nil)

	fired, err := m.CheckWhaleTrades(ctx, []models.Trade{whale("0xa", "50000"), whale("0xa", "50000")})
	require.NoError(t, err)
	assert.Len(t, fired, 1)
}
