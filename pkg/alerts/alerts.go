package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"polymerit/pkg/models"
)

// Preference keys
const (
	KeyHistory       = "alert_history"
	KeyPriceAlerts   = "price_alerts"
	KeyWhaleSettings = "whale_settings"
)

// MaxHistory caps the alert history; the oldest entries fall off
const MaxHistory = 100

const maxSeenTrades = 1000

// Kind of an alert history entry
type Kind string

const (
	KindPrice Kind = "price"
	KindWhale Kind = "whale"
)

// Direction of a price alert
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)

var (
	ErrInvalidDirection = errors.New("direction must be above or below")
	ErrInvalidTarget    = errors.New("target price must be between 0 and 1")
	ErrMissingMarket    = errors.New("market id is required")
)

// Alert is one entry of the history
type Alert struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	MarketID  string    `json:"marketId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// PriceAlert fires once when a market's YES price crosses TargetPrice
type PriceAlert struct {
	ID          string          `json:"id"`
	MarketID    string          `json:"marketId"`
	Title       string          `json:"title"`
	TargetPrice decimal.Decimal `json:"targetPrice"`
	Direction   Direction       `json:"direction"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	TriggeredAt *time.Time      `json:"triggeredAt,omitempty"`
}

// WhaleSettings is a single record overwritten on save
type WhaleSettings struct {
	MinSize decimal.Decimal `json:"minSize"`
	Active  bool            `json:"active"`
}

// DefaultWhaleSettings applies until settings are saved
var DefaultWhaleSettings = WhaleSettings{MinSize: decimal.NewFromInt(10000), Active: true}

// Notifier delivers a fired alert to the user
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the log
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, alert Alert) error {
	logrus.WithFields(logrus.Fields{
		"kind":      alert.Kind,
		"market_id": alert.MarketID,
	}).Infof("%s: %s", alert.Title, alert.Message)
	return nil
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithNotifier sets where fired alerts are delivered
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// Manager owns the alert preferences of one user
type Manager struct {
	store      PreferencesStore
	permission PermissionProvider
	notifier   Notifier
	now        func() time.Time

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewManager creates a manager over store. permission may be nil, in which
// case notifications are never shown.
func NewManager(store PreferencesStore, permission PermissionProvider, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		permission: permission,
		notifier:   LogNotifier{},
		now:        time.Now,
		seen:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PermissionState reports the platform's current permission
func (m *Manager) PermissionState() Permission {
	if m.permission == nil {
		return PermissionDenied
	}
	return m.permission.State()
}

// RequestPermission prompts only while the platform state is still default.
// Calling it again returns whatever the platform reports now.
func (m *Manager) RequestPermission(ctx context.Context) (Permission, error) {
	if m.permission == nil {
		return PermissionDenied, nil
	}
	if state := m.permission.State(); state != PermissionDefault {
		return state, nil
	}
	state, err := m.permission.Prompt(ctx)
	if err != nil {
		return PermissionDefault, fmt.Errorf("failed to request notification permission: %w", err)
	}
	return state, nil
}

// History returns the alert history, newest first
func (m *Manager) History(ctx context.Context) ([]Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadHistory(ctx)
}

// AddAlert prepends an entry to the history
func (m *Manager) AddAlert(ctx context.Context, kind Kind, title, message, marketID string) (Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addAlert(ctx, kind, title, message, marketID)
}

// UnreadCount counts unread entries
func (m *Manager) UnreadCount(ctx context.Context) (int, error) {
	history, err := m.History(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range history {
		if !a.Read {
			n++
		}
	}
	return n, nil
}

// MarkAllRead flags every entry as read
func (m *Manager) MarkAllRead(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	history, err := m.loadHistory(ctx)
	if err != nil {
		return err
	}
	for i := range history {
		history[i].Read = true
	}
	return m.store.Set(ctx, KeyHistory, history)
}

// DeleteAlert removes one entry; unknown ids are ignored
func (m *Manager) DeleteAlert(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	history, err := m.loadHistory(ctx)
	if err != nil {
		return err
	}
	kept := history[:0]
	for _, a := range history {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(history) {
		return nil
	}
	return m.store.Set(ctx, KeyHistory, kept)
}

// ClearHistory drops every entry
func (m *Manager) ClearHistory(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Clear(ctx, KeyHistory)
}

// PriceAlerts lists every price alert, active or not
func (m *Manager) PriceAlerts(ctx context.Context) ([]PriceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadPriceAlerts(ctx)
}

// AddPriceAlert registers an active price alert
func (m *Manager) AddPriceAlert(ctx context.Context, marketID, title string, target decimal.Decimal, direction Direction) (PriceAlert, error) {
	if strings.TrimSpace(marketID) == "" {
		return PriceAlert{}, ErrMissingMarket
	}
	if direction != Above && direction != Below {
		return PriceAlert{}, ErrInvalidDirection
	}
	if target.IsNegative() || target.GreaterThan(decimal.NewFromInt(1)) {
		return PriceAlert{}, ErrInvalidTarget
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	alerts, err := m.loadPriceAlerts(ctx)
	if err != nil {
		return PriceAlert{}, err
	}

	alert := PriceAlert{
		ID:          xid.New().String(),
		MarketID:    marketID,
		Title:       title,
		TargetPrice: target,
		Direction:   direction,
		Active:      true,
		CreatedAt:   m.now().UTC(),
	}
	alerts = append(alerts, alert)
	if err := m.store.Set(ctx, KeyPriceAlerts, alerts); err != nil {
		return PriceAlert{}, err
	}
	return alert, nil
}

// RemovePriceAlert deletes a price alert; unknown ids are ignored
func (m *Manager) RemovePriceAlert(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alerts, err := m.loadPriceAlerts(ctx)
	if err != nil {
		return err
	}
	kept := alerts[:0]
	for _, a := range alerts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(alerts) {
		return nil
	}
	return m.store.Set(ctx, KeyPriceAlerts, kept)
}

// CheckPrices evaluates active price alerts against the latest YES prices,
// keyed by market id. Each alert that fires is deactivated and recorded.
// The deactivated list is saved before the history so a failed write can
// never fire the same alert twice.
func (m *Manager) CheckPrices(ctx context.Context, prices map[string]float64) ([]Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alerts, err := m.loadPriceAlerts(ctx)
	if err != nil {
		return nil, err
	}

	var fired []Alert
	for i := range alerts {
		pa := &alerts[i]
		if !pa.Active {
			continue
		}
		price, ok := prices[pa.MarketID]
		if !ok {
			continue
		}

		current := decimal.NewFromFloat(price)
		hit := (pa.Direction == Above && current.GreaterThanOrEqual(pa.TargetPrice)) ||
			(pa.Direction == Below && current.LessThanOrEqual(pa.TargetPrice))
		if !hit {
			continue
		}

		triggered := m.now().UTC()
		pa.Active = false
		pa.TriggeredAt = &triggered

		verb := "rose above"
		if pa.Direction == Below {
			verb = "fell below"
		}
		message := fmt.Sprintf("YES %s %s%% (now %s%%)", verb, percent(pa.TargetPrice), percent(current))
		fired = append(fired, m.newAlert(KindPrice, pa.Title, message, pa.MarketID))
	}
	if len(fired) == 0 {
		return nil, nil
	}

	if err := m.store.Set(ctx, KeyPriceAlerts, alerts); err != nil {
		return nil, err
	}
	if err := m.recordAlerts(ctx, fired); err != nil {
		return nil, err
	}

	m.notify(ctx, fired)
	return fired, nil
}

// WhaleSettings returns the saved settings or the defaults
func (m *Manager) WhaleSettings(ctx context.Context) (WhaleSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadWhaleSettings(ctx)
}

// SaveWhaleSettings overwrites the settings
func (m *Manager) SaveWhaleSettings(ctx context.Context, settings WhaleSettings) error {
	if settings.MinSize.IsNegative() {
		return fmt.Errorf("minimum size must not be negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Set(ctx, KeyWhaleSettings, settings)
}

// CheckWhaleTrades records an alert for every trade whose value reaches the
// configured minimum. A trade is alerted at most once per manager.
func (m *Manager) CheckWhaleTrades(ctx context.Context, trades []models.Trade) ([]Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings, err := m.loadWhaleSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Active {
		return nil, nil
	}

	var (
		fired []Alert
		keys  []string
		batch = make(map[string]struct{})
	)
	for _, trade := range trades {
		value := trade.Value()
		if value.LessThan(settings.MinSize) {
			continue
		}
		key := tradeKey(trade)
		if _, dup := m.seen[key]; dup {
			continue
		}
		if _, dup := batch[key]; dup {
			continue
		}
		batch[key] = struct{}{}
		keys = append(keys, key)
		fired = append(fired, m.newAlert(KindWhale, whaleTitle(trade), whaleMessage(trade, value), trade.ConditionID))
	}
	if len(fired) == 0 {
		return nil, nil
	}

	// Unrecorded trades stay unseen and are retried on the next poll
	if err := m.recordAlerts(ctx, fired); err != nil {
		return nil, err
	}
	for _, key := range keys {
		m.markSeen(key)
	}

	m.notify(ctx, fired)
	return fired, nil
}

func (m *Manager) newAlert(kind Kind, title, message, marketID string) Alert {
	return Alert{
		ID:        xid.New().String(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		MarketID:  marketID,
		CreatedAt: m.now().UTC(),
	}
}

func (m *Manager) addAlert(ctx context.Context, kind Kind, title, message, marketID string) (Alert, error) {
	alert := m.newAlert(kind, title, message, marketID)
	if err := m.recordAlerts(ctx, []Alert{alert}); err != nil {
		return Alert{}, err
	}
	return alert, nil
}

// recordAlerts prepends entries to the history in a single write. The last
// entry ends up first.
func (m *Manager) recordAlerts(ctx context.Context, entries []Alert) error {
	history, err := m.loadHistory(ctx)
	if err != nil {
		return err
	}

	next := make([]Alert, 0, len(entries)+len(history))
	for i := len(entries) - 1; i >= 0; i-- {
		next = append(next, entries[i])
	}
	next = append(next, history...)
	if len(next) > MaxHistory {
		next = next[:MaxHistory]
	}
	return m.store.Set(ctx, KeyHistory, next)
}

func (m *Manager) notify(ctx context.Context, fired []Alert) {
	if len(fired) == 0 || m.notifier == nil || m.PermissionState() != PermissionGranted {
		return
	}
	for _, alert := range fired {
		if err := m.notifier.Notify(ctx, alert); err != nil {
			logrus.WithError(err).WithField("alert_id", alert.ID).Warn("Failed to deliver notification")
		}
	}
}

func (m *Manager) markSeen(key string) {
	if len(m.seen) >= maxSeenTrades {
		m.seen = make(map[string]struct{})
	}
	m.seen[key] = struct{}{}
}

func (m *Manager) loadHistory(ctx context.Context) ([]Alert, error) {
	history := []Alert{}
	if _, err := m.store.Get(ctx, KeyHistory, &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = []Alert{}
	}
	return history, nil
}

func (m *Manager) loadPriceAlerts(ctx context.Context) ([]PriceAlert, error) {
	alerts := []PriceAlert{}
	if _, err := m.store.Get(ctx, KeyPriceAlerts, &alerts); err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []PriceAlert{}
	}
	return alerts, nil
}

func (m *Manager) loadWhaleSettings(ctx context.Context) (WhaleSettings, error) {
	settings := DefaultWhaleSettings
	if _, err := m.store.Get(ctx, KeyWhaleSettings, &settings); err != nil {
		return WhaleSettings{}, err
	}
	return settings, nil
}

func tradeKey(t models.Trade) string {
	if t.TransactionHash != "" {
		return t.TransactionHash + ":" + t.Asset + ":" + t.MakerAddress
	}
	if t.ID != "" {
		return t.ID
	}
	return fmt.Sprintf("%s:%s:%d:%s:%s", t.MakerAddress, t.ConditionID, t.Timestamp, t.Price, t.Size)
}

func whaleTitle(t models.Trade) string {
	if t.Title != "" {
		return "Whale trade: " + t.Title
	}
	return "Whale trade"
}

func whaleMessage(t models.Trade, value decimal.Decimal) string {
	who := t.Name
	if who == "" {
		who = t.Pseudonym
	}
	if who == "" {
		who = shortAddress(t.MakerAddress)
	}

	usd, _ := value.Float64()
	side := "bought"
	if models.TradeSide(strings.ToUpper(string(t.Side))) == models.SideSell {
		side = "sold"
	}

	outcome := t.Outcome
	if outcome == "" {
		outcome = "shares"
	}
	return fmt.Sprintf("%s %s $%s of %s at %s¢",
		who, side, humanize.CommafWithDigits(usd, 0), outcome, t.Price.Mul(decimal.NewFromInt(100)).StringFixed(1))
}

func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func percent(p decimal.Decimal) string {
	return p.Mul(decimal.NewFromInt(100)).Round(1).String()
}
