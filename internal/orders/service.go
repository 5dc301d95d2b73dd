package orders

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"impulse-backend/internal/models"
	"impulse-backend/internal/phone"
	"impulse-backend/internal/store"
	"impulse-backend/internal/token"
)

// OrderStore is the persistence surface the service needs for orders.
// Implemented by *store.Store; tests substitute in-memory fakes.
type OrderStore interface {
	FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateOrderDetails(ctx context.Context, id primitive.ObjectID, details store.OrderDetails) (*models.Order, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) error
	UpdateLastLocation(ctx context.Context, id primitive.ObjectID, lat, lng, accuracy float64, at time.Time) error
	ListRecentOrders(ctx context.Context, limit int64) ([]models.Order, error)
	ListKitchenOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	CountOrdersByStatus(ctx context.Context, status models.OrderStatus) (int64, error)
}

type PingStore interface {
	CreatePing(ctx context.Context, orderID primitive.ObjectID, lat, lng, accuracy float64) (*models.LocationPing, error)
	CountPings(ctx context.Context, orderID primitive.ObjectID) (int64, error)
	LatestPing(ctx context.Context, orderID primitive.ObjectID) (*models.LocationPing, error)
}

type EventLedger interface {
	LedgerHas(ctx context.Context, orderID primitive.ObjectID, eventType models.EventType) (bool, error)
	LedgerMark(ctx context.Context, orderID primitive.ObjectID, eventType models.EventType) error
}

type Notifier interface {
	EnqueueConfirmation(order *models.Order)
	EnqueueOnTheWay(order *models.Order)
}

type Service struct {
	orders   OrderStore
	pings    PingStore
	ledger   EventLedger
	notifier Notifier
}

func NewService(orders OrderStore, pings PingStore, ledger EventLedger, notifier Notifier) *Service {
	return &Service{orders: orders, pings: pings, ledger: ledger, notifier: notifier}
}

// CreateOrderData is the payload of the "order paid" webhook.
type CreateOrderData struct {
	OrderNumber   string
	CustomerName  string
	CustomerPhone string
	Items         []models.OrderItem
	Total         string
	PaymentStatus string
	PaymentMethod string
	Address       string
}

// CreateOrUpdateOrder upserts by order number. A new order gets freshly
// issued customer and courier tokens and starts at CONFIRMED. Re-submission
// of a known order number updates details and replaces the item list but
// never touches tokens or order status.
func (s *Service) CreateOrUpdateOrder(ctx context.Context, data CreateOrderData) (*models.Order, error) {
	normalizedPhone := phone.Normalize(data.CustomerPhone)
	paymentStatus := strings.ToUpper(data.PaymentStatus)

	existing, err := s.orders.FindOrderByNumber(ctx, data.OrderNumber)
	if err == nil {
		return s.orders.UpdateOrderDetails(ctx, existing.ID, store.OrderDetails{
			CustomerName:  data.CustomerName,
			CustomerPhone: normalizedPhone,
			Total:         data.Total,
			PaymentStatus: paymentStatus,
			PaymentMethod: data.PaymentMethod,
			Address:       data.Address,
			Items:         data.Items,
		})
	}
	if !errors.Is(err, models.ErrOrderNotFound) {
		return nil, err
	}

	customerToken, err := token.New()
	if err != nil {
		return nil, err
	}
	courierToken, err := token.New()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &models.Order{
		OrderNumber:   data.OrderNumber,
		CustomerName:  data.CustomerName,
		CustomerPhone: normalizedPhone,
		CustomerToken: customerToken,
		CourierToken:  courierToken,
		PaymentStatus: paymentStatus,
		OrderStatus:   models.StatusConfirmed,
		Total:         data.Total,
		PaymentMethod: data.PaymentMethod,
		Address:       data.Address,
		Items:         data.Items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// QueueConfirmationIfNeeded enqueues the confirmation message unless the
// ledger already has CONFIRM_SENT. The worker marks the ledger after a
// successful send, so a failed send leaves the next webhook retry free to
// try again.
func (s *Service) QueueConfirmationIfNeeded(ctx context.Context, order *models.Order) {
	sent, err := s.ledger.LedgerHas(ctx, order.ID, models.EventConfirmSent)
	if err != nil {
		log.Printf("[ORDER] [ERROR] checking CONFIRM_SENT for order %s: %v", order.OrderNumber, err)
		return
	}
	if sent {
		return
	}
	s.notifier.EnqueueConfirmation(order)
}

// IngestLocation appends a courier ping and updates the order's last-location
// cache; both are the operation's primary contract and their failures
// propagate. The first ping additionally triggers the automatic ON_THE_WAY
// transition, whose failures are contained and logged.
func (s *Service) IngestLocation(ctx context.Context, orderID primitive.ObjectID, lat, lng, accuracy float64) (*models.LocationPing, error) {
	ping, err := s.pings.CreatePing(ctx, orderID, lat, lng, accuracy)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateLastLocation(ctx, orderID, lat, lng, accuracy, ping.CreatedAt); err != nil {
		return nil, err
	}

	s.maybeTriggerOnTheWay(ctx, orderID)

	return ping, nil
}

// maybeTriggerOnTheWay drives the single automatic status transition. It
// fires only when the ping just saved is the order's first ever; the ledger
// is marked before the dispatch attempt so a crash between the two can lose
// a message but never duplicate one.
func (s *Service) maybeTriggerOnTheWay(ctx context.Context, orderID primitive.ObjectID) {
	count, err := s.pings.CountPings(ctx, orderID)
	if err != nil {
		log.Printf("[LOCATION] [ERROR] counting pings for order %s: %v", orderID.Hex(), err)
		return
	}
	if count != 1 {
		return
	}

	sent, err := s.ledger.LedgerHas(ctx, orderID, models.EventOnTheWaySent)
	if err != nil {
		log.Printf("[LOCATION] [ERROR] checking ON_THE_WAY_SENT for order %s: %v", orderID.Hex(), err)
		return
	}
	if sent {
		return
	}

	order, err := s.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		log.Printf("[LOCATION] [ERROR] loading order %s: %v", orderID.Hex(), err)
		return
	}

	if err := models.ValidateTransition(order.OrderStatus, models.StatusOnTheWay); err != nil {
		log.Printf("[LOCATION] [WARN] first ping for order %s arrived at status %s: %v", order.OrderNumber, order.OrderStatus, err)
		return
	}

	if order.OrderStatus != models.StatusOnTheWay {
		if err := s.orders.TransitionStatus(ctx, order.ID, order.OrderStatus, models.StatusOnTheWay); err != nil {
			log.Printf("[LOCATION] [ERROR] transitioning order %s to ON_THE_WAY: %v", order.OrderNumber, err)
			return
		}
		order.OrderStatus = models.StatusOnTheWay
	}

	if err := s.ledger.LedgerMark(ctx, orderID, models.EventOnTheWaySent); err != nil {
		log.Printf("[LOCATION] [ERROR] marking ON_THE_WAY_SENT for order %s: %v", order.OrderNumber, err)
		return
	}

	s.notifier.EnqueueOnTheWay(order)
}

// AdvanceOrderStatus applies a manual (kitchen) status change. Re-applying
// the current status is an idempotent success; anything but the single legal
// successor fails with InvalidTransitionError.
func (s *Service) AdvanceOrderStatus(ctx context.Context, orderNumber string, target models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.FindOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateTransition(order.OrderStatus, target); err != nil {
		return nil, err
	}

	if order.OrderStatus == target {
		return order, nil
	}

	if err := s.orders.TransitionStatus(ctx, order.ID, order.OrderStatus, target); err != nil {
		return nil, err
	}

	log.Printf("[KITCHEN] [INFO] order %s status updated to %s", orderNumber, target)
	return s.orders.FindOrderByID(ctx, order.ID)
}

// FindByCustomerToken authorizes customer tracking access. Token mismatch is
// indistinguishable from a missing order on purpose.
func (s *Service) FindByCustomerToken(ctx context.Context, orderNumber, tok string) (*models.Order, error) {
	order, err := s.orders.FindOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if tok == "" || order.CustomerToken != tok {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

// FindByCourierToken authorizes courier location submission.
func (s *Service) FindByCourierToken(ctx context.Context, orderNumber, tok string) (*models.Order, error) {
	order, err := s.orders.FindOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if tok == "" || order.CourierToken != tok {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) LatestLocation(ctx context.Context, orderID primitive.ObjectID) (*models.LocationPing, error) {
	return s.pings.LatestPing(ctx, orderID)
}

func (s *Service) ListRecentOrders(ctx context.Context, limit int64) ([]models.Order, error) {
	return s.orders.ListRecentOrders(ctx, limit)
}

func (s *Service) ListKitchenOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	return s.orders.ListKitchenOrders(ctx, status)
}

// KitchenStats summarizes the active board for the dashboard.
type KitchenStats struct {
	Pending            int64 `json:"pending"`
	Preparing          int64 `json:"preparing"`
	Ready              int64 `json:"ready"`
	OnTheWay           int64 `json:"onTheWay"`
	AveragePrepMinutes int64 `json:"averagePrepTime"`
}

func (s *Service) GetKitchenStats(ctx context.Context) (*KitchenStats, error) {
	stats := &KitchenStats{}

	counts := []struct {
		status models.OrderStatus
		dest   *int64
	}{
		{models.StatusConfirmed, &stats.Pending},
		{models.StatusPreparing, &stats.Preparing},
		{models.StatusReady, &stats.Ready},
		{models.StatusOnTheWay, &stats.OnTheWay},
	}
	for _, c := range counts {
		n, err := s.orders.CountOrdersByStatus(ctx, c.status)
		if err != nil {
			return nil, err
		}
		*c.dest = n
	}

	// Average prep time: createdAt -> updatedAt over orders currently READY.
	ready, err := s.orders.ListKitchenOrders(ctx, models.StatusReady)
	if err != nil {
		return nil, err
	}
	if len(ready) > 0 {
		var total time.Duration
		for _, o := range ready {
			total += o.UpdatedAt.Sub(o.CreatedAt)
		}
		stats.AveragePrepMinutes = int64((total / time.Duration(len(ready))).Minutes())
	}

	return stats, nil
}
