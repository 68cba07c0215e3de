package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vendor-rewards-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventPurchaseRecorded is emitted after points are accrued for a purchase.
	EventPurchaseRecorded EventType = "purchase.recorded"
	// EventPointsRedeemed is emitted after a redemption is applied.
	EventPointsRedeemed EventType = "points.redeemed"
	// EventVendorChanged is emitted when a vendor, its menu or its deals change.
	EventVendorChanged EventType = "vendor.changed"
	// EventVendorDeleted is emitted after a vendor is removed.
	EventVendorDeleted EventType = "vendor.deleted"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      any
}

// PurchaseRecordedData contains data for purchase events.
type PurchaseRecordedData struct {
	ItemIDs []int64
	Earned  int64
	Created bool
	Balance models.RewardBalance
}

// PointsRedeemedData contains data for redemption events.
type PointsRedeemedData struct {
	DealID  int64
	Spent   int64
	Balance models.RewardBalance
}

// VendorData identifies the vendor a catalog event is about.
type VendorData struct {
	VendorID int64
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager fans events out to subscribed handlers on their own goroutines.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  func() bool
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewManager creates an event manager. Publishing is skipped whenever
// enabled reports false.
func NewManager(logger *slog.Logger, enabled func() bool) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
		logger:   logger,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// detached from the request: they get a context that is not cancelled
// when the request ends.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data any) {
	if !m.enabled() {
		return
	}

	m.mu.RLock()
	handlers := append([]Handler(nil), m.handlers[eventType]...)
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	hctx := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		m.wg.Add(1)
		go func(h Handler) {
			defer m.wg.Done()
			if err := h(hctx, event); err != nil {
				m.logger.Warn("event handler failed", "event", string(event.Type), "error", err)
			}
		}(handler)
	}
}

// PublishPurchaseRecorded publishes a purchase event.
func (m *Manager) PublishPurchaseRecorded(ctx context.Context, data PurchaseRecordedData) {
	m.Publish(ctx, EventPurchaseRecorded, data)
}

// PublishPointsRedeemed publishes a redemption event.
func (m *Manager) PublishPointsRedeemed(ctx context.Context, data PointsRedeemedData) {
	m.Publish(ctx, EventPointsRedeemed, data)
}

// PublishVendorChanged publishes a catalog change for a vendor.
func (m *Manager) PublishVendorChanged(ctx context.Context, vendorID int64) {
	m.Publish(ctx, EventVendorChanged, VendorData{VendorID: vendorID})
}

// PublishVendorDeleted publishes a vendor removal.
func (m *Manager) PublishVendorDeleted(ctx context.Context, vendorID int64) {
	m.Publish(ctx, EventVendorDeleted, VendorData{VendorID: vendorID})
}

// Shutdown drops all handlers and waits for running ones to finish.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.wg.Wait()
}
