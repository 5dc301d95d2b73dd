package orders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"impulse-backend/internal/models"
	"impulse-backend/internal/store"
)

/* =========================
   IN-MEMORY FAKES
========================= */

type fakeOrderStore struct {
	mu     sync.Mutex
	byID   map[primitive.ObjectID]*models.Order
	number map[string]primitive.ObjectID
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		byID:   make(map[primitive.ObjectID]*models.Order),
		number: make(map[string]primitive.ObjectID),
	}
}

func (f *fakeOrderStore) clone(o *models.Order) *models.Order {
	copied := *o
	copied.Items = append([]models.OrderItem(nil), o.Items...)
	return &copied
}

func (f *fakeOrderStore) FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.number[orderNumber]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return f.clone(f.byID[id]), nil
}

func (f *fakeOrderStore) FindOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.byID[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return f.clone(order), nil
}

func (f *fakeOrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = primitive.NewObjectID()
	f.byID[order.ID] = f.clone(order)
	f.number[order.OrderNumber] = order.ID
	return nil
}

func (f *fakeOrderStore) UpdateOrderDetails(ctx context.Context, id primitive.ObjectID, details store.OrderDetails) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.byID[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	order.CustomerName = details.CustomerName
	order.CustomerPhone = details.CustomerPhone
	order.Total = details.Total
	order.PaymentStatus = details.PaymentStatus
	order.PaymentMethod = details.PaymentMethod
	order.Address = details.Address
	order.Items = append([]models.OrderItem(nil), details.Items...)
	order.UpdatedAt = time.Now().UTC()
	return f.clone(order), nil
}

func (f *fakeOrderStore) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.byID[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	if order.OrderStatus != from {
		return models.ErrStatusConflict
	}
	order.OrderStatus = to
	order.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeOrderStore) UpdateLastLocation(ctx context.Context, id primitive.ObjectID, lat, lng, accuracy float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.byID[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	order.LastLatitude = &lat
	order.LastLongitude = &lng
	order.LastLocationAccuracy = &accuracy
	order.LastLocationUpdatedAt = &at
	return nil
}

func (f *fakeOrderStore) ListRecentOrders(ctx context.Context, limit int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	orders := []models.Order{}
	for _, o := range f.byID {
		orders = append(orders, *f.clone(o))
	}
	return orders, nil
}

func (f *fakeOrderStore) ListKitchenOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	orders := []models.Order{}
	for _, o := range f.byID {
		if status == "" || o.OrderStatus == status {
			orders = append(orders, *f.clone(o))
		}
	}
	return orders, nil
}

func (f *fakeOrderStore) CountOrdersByStatus(ctx context.Context, status models.OrderStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, o := range f.byID {
		if o.OrderStatus == status {
			n++
		}
	}
	return n, nil
}

type fakePingStore struct {
	mu    sync.Mutex
	pings map[primitive.ObjectID][]models.LocationPing
}

func newFakePingStore() *fakePingStore {
	return &fakePingStore{pings: make(map[primitive.ObjectID][]models.LocationPing)}
}

func (f *fakePingStore) CreatePing(ctx context.Context, orderID primitive.ObjectID, lat, lng, accuracy float64) (*models.LocationPing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ping := models.LocationPing{
		ID:        primitive.NewObjectID(),
		OrderID:   orderID,
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  accuracy,
		CreatedAt: time.Now().UTC(),
	}
	f.pings[orderID] = append(f.pings[orderID], ping)
	return &ping, nil
}

func (f *fakePingStore) CountPings(ctx context.Context, orderID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.pings[orderID])), nil
}

func (f *fakePingStore) LatestPing(ctx context.Context, orderID primitive.ObjectID) (*models.LocationPing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := f.pings[orderID]
	if len(history) == 0 {
		return nil, nil
	}
	latest := history[len(history)-1]
	return &latest, nil
}

// fakeLedger mimics the unique-index semantics: first Mark per key wins,
// later Marks are benign no-ops.
type fakeLedger struct {
	mu   sync.Mutex
	rows map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[string]int)}
}

func (f *fakeLedger) key(orderID primitive.ObjectID, eventType models.EventType) string {
	return orderID.Hex() + "/" + string(eventType)
}

func (f *fakeLedger) LedgerHas(ctx context.Context, orderID primitive.ObjectID, eventType models.EventType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[f.key(orderID, eventType)] > 0, nil
}

func (f *fakeLedger) LedgerMark(ctx context.Context, orderID primitive.ObjectID, eventType models.EventType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[f.key(orderID, eventType)]++
	return nil
}

func (f *fakeLedger) rowCount(orderID primitive.ObjectID, eventType models.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[f.key(orderID, eventType)] == 0 {
		return 0
	}
	return 1
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []string
	onTheWay      []string
}

func (f *fakeNotifier) EnqueueConfirmation(order *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, order.OrderNumber)
}

func (f *fakeNotifier) EnqueueOnTheWay(order *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTheWay = append(f.onTheWay, order.OrderNumber)
}

/* =========================
   HELPERS
========================= */

type testEnv struct {
	svc      *Service
	orders   *fakeOrderStore
	pings    *fakePingStore
	ledger   *fakeLedger
	notifier *fakeNotifier
}

func newTestEnv() *testEnv {
	env := &testEnv{
		orders:   newFakeOrderStore(),
		pings:    newFakePingStore(),
		ledger:   newFakeLedger(),
		notifier: &fakeNotifier{},
	}
	env.svc = NewService(env.orders, env.pings, env.ledger, env.notifier)
	return env
}

func sampleOrderData() CreateOrderData {
	return CreateOrderData{
		OrderNumber:   "A100",
		CustomerName:  "Ana López",
		CustomerPhone: "55 1234 5678",
		Items: []models.OrderItem{
			{Name: "Tacos al pastor", Quantity: 3},
			{Name: "Agua de horchata", Quantity: 1},
		},
		Total:         "250.00",
		PaymentStatus: "paid",
		PaymentMethod: "card",
		Address:       "Av. Insurgentes 100",
	}
}

func isHexToken(s string) bool {
	return len(s) == 64 && strings.Trim(s, "0123456789abcdef") == ""
}

/* =========================
   TESTS
========================= */

func TestCreateOrderIssuesTokensAndStartsConfirmed(t *testing.T) {
	env := newTestEnv()

	order, err := env.svc.CreateOrUpdateOrder(context.Background(), sampleOrderData())
	if err != nil {
		t.Fatalf("CreateOrUpdateOrder returned error: %v", err)
	}

	if order.OrderStatus != models.StatusConfirmed {
		t.Fatalf("expected status CONFIRMED, got %s", order.OrderStatus)
	}
	if !isHexToken(order.CustomerToken) || !isHexToken(order.CourierToken) {
		t.Fatalf("expected 64-char hex tokens, got %q / %q", order.CustomerToken, order.CourierToken)
	}
	if order.CustomerToken == order.CourierToken {
		t.Fatal("customer and courier tokens must differ")
	}
	if order.PaymentStatus != "PAID" {
		t.Fatalf("expected payment status PAID, got %s", order.PaymentStatus)
	}
	if order.CustomerPhone != "+525512345678" {
		t.Fatalf("expected normalized phone, got %s", order.CustomerPhone)
	}
}

func TestResubmissionUpdatesDetailsPreservesTokensAndStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateOrUpdateOrder(ctx, sampleOrderData())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.svc.AdvanceOrderStatus(ctx, "A100", models.StatusPreparing); err != nil {
		t.Fatalf("advance: %v", err)
	}

	resubmitted := sampleOrderData()
	resubmitted.Total = "300.00"
	resubmitted.Items = []models.OrderItem{{Name: "Quesadillas", Quantity: 2}}

	updated, err := env.svc.CreateOrUpdateOrder(ctx, resubmitted)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.ID != created.ID {
		t.Fatal("re-submission must update, not duplicate")
	}
	if updated.CustomerToken != created.CustomerToken || updated.CourierToken != created.CourierToken {
		t.Fatal("tokens must be byte-identical across updates")
	}
	if updated.OrderStatus != models.StatusPreparing {
		t.Fatalf("update must not reset status, got %s", updated.OrderStatus)
	}
	if len(updated.Items) != 1 || updated.Items[0].Name != "Quesadillas" {
		t.Fatalf("expected item list to be replaced, got %+v", updated.Items)
	}
	if updated.Total != "300.00" {
		t.Fatalf("expected updated total, got %s", updated.Total)
	}
}

func TestAdvanceOrderStatusRejectsSkip(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.svc.CreateOrUpdateOrder(ctx, sampleOrderData()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.AdvanceOrderStatus(ctx, "A100", models.StatusPreparing); err != nil {
		t.Fatalf("CONFIRMED -> PREPARING should succeed: %v", err)
	}

	_, err := env.svc.AdvanceOrderStatus(ctx, "A100", models.StatusDelivered)
	var invalid *models.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != models.StatusPreparing || invalid.To != models.StatusDelivered {
		t.Fatalf("unexpected detail: %+v", invalid)
	}

	order, err := env.svc.AdvanceOrderStatus(ctx, "A100", models.StatusPreparing)
	if err != nil {
		t.Fatalf("no-op re-application should succeed: %v", err)
	}
	if order.OrderStatus != models.StatusPreparing {
		t.Fatalf("status must be unchanged, got %s", order.OrderStatus)
	}
}

func TestAdvanceOrderStatusUnknownOrder(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.AdvanceOrderStatus(context.Background(), "NOPE", models.StatusPreparing)
	if !errors.Is(err, models.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestFirstPingTriggersOnTheWayExactlyOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, err := env.svc.CreateOrUpdateOrder(ctx, sampleOrderData())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, s := range []models.OrderStatus{models.StatusPreparing, models.StatusReady} {
		if _, err := env.svc.AdvanceOrderStatus(ctx, "A100", s); err != nil {
			t.Fatalf("advance to %s: %v", s, err)
		}
	}

	if _, err := env.svc.IngestLocation(ctx, order.ID, 19.4, -99.1, 5.0); err != nil {
		t.Fatalf("first ping: %v", err)
	}

	after, _ := env.orders.FindOrderByID(ctx, order.ID)
	if after.OrderStatus != models.StatusOnTheWay {
		t.Fatalf("expected ON_THE_WAY after first ping, got %s", after.OrderStatus)
	}
	if env.ledger.rowCount(order.ID, models.EventOnTheWaySent) != 1 {
		t.Fatal("expected exactly one ON_THE_WAY_SENT ledger row")
	}
	if len(env.notifier.onTheWay) != 1 {
		t.Fatalf("expected one on-the-way notification, got %d", len(env.notifier.onTheWay))
	}

	if _, err := env.svc.IngestLocation(ctx, order.ID, 19.41, -99.11, 4.0); err != nil {
		t.Fatalf("second ping: %v", err)
	}

	after, _ = env.orders.FindOrderByID(ctx, order.ID)
	if after.OrderStatus != models.StatusOnTheWay {
		t.Fatalf("second ping must not change status, got %s", after.OrderStatus)
	}
	if env.ledger.rowCount(order.ID, models.EventOnTheWaySent) != 1 {
		t.Fatal("second ping must not add ledger rows")
	}
	if len(env.notifier.onTheWay) != 1 {
		t.Fatalf("second ping must not re-notify, got %d", len(env.notifier.onTheWay))
	}
	if after.LastLatitude == nil || *after.LastLatitude != 19.41 || *after.LastLongitude != -99.11 {
		t.Fatalf("last-location cache must follow the newest ping, got %+v", after)
	}
	if after.LastLocationAccuracy == nil || *after.LastLocationAccuracy != 4.0 {
		t.Fatalf("expected accuracy cache 4.0, got %+v", after.LastLocationAccuracy)
	}
}

func TestPrematurePingIsPersistedButSwallowed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, err := env.svc.CreateOrUpdateOrder(ctx, sampleOrderData())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ping, err := env.svc.IngestLocation(ctx, order.ID, 19.4, -99.1, 5.0)
	if err != nil {
		t.Fatalf("ping while CONFIRMED must not fail the request: %v", err)
	}
	if ping == nil {
		t.Fatal("ping must be persisted")
	}

	after, _ := env.orders.FindOrderByID(ctx, order.ID)
	if after.OrderStatus != models.StatusConfirmed {
		t.Fatalf("premature ping must not advance status, got %s", after.OrderStatus)
	}
	if after.LastLatitude == nil || *after.LastLatitude != 19.4 {
		t.Fatal("last-location cache must update even for premature pings")
	}
	if env.ledger.rowCount(order.ID, models.EventOnTheWaySent) != 0 {
		t.Fatal("premature ping must not create a ledger entry")
	}
	if len(env.notifier.onTheWay) != 0 {
		t.Fatal("premature ping must not notify")
	}
}

func TestFirstPingSkippedWhenLedgerAlreadyMarked(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, err := env.svc.CreateOrUpdateOrder(ctx, sampleOrderData())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.ledger.LedgerMark(ctx, order.ID, models.EventOnTheWaySent); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	if _, err := env.svc.IngestLocation(ctx, order.ID, 19.4, -99.1, 5.0); err != nil {
		t.Fatalf("ping: %v", err)
	}

	after, _ := env.orders.FindOrderByID(ctx, order.ID)
	if after.OrderStatus != models.StatusConfirmed {
		t.Fatalf("marked ledger must suppress the transition, got %s", after.OrderStatus)
	}
	if len(env.notifier.onTheWay) != 0 {
		t.Fatal("marked ledger must suppress the notification")
	}
}

func TestQueueConfirmationIfNeeded(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, err := env.svc.CreateOrUpdateOrder(ctx, sampleOrderData())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	env.svc.QueueConfirmationIfNeeded(ctx, order)
	if len(env.notifier.confirmations) != 1 {
		t.Fatalf("expected one confirmation enqueue, got %d", len(env.notifier.confirmations))
	}

	if err := env.ledger.LedgerMark(ctx, order.ID, models.EventConfirmSent); err != nil {
		t.Fatalf("mark: %v", err)
	}
	env.svc.QueueConfirmationIfNeeded(ctx, order)
	if len(env.notifier.confirmations) != 1 {
		t.Fatal("marked CONFIRM_SENT must suppress re-enqueue")
	}
}

func TestFindByTokens(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, err := env.svc.CreateOrUpdateOrder(ctx, sampleOrderData())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.svc.FindByCustomerToken(ctx, "A100", order.CustomerToken); err != nil {
		t.Fatalf("valid customer token rejected: %v", err)
	}
	if _, err := env.svc.FindByCustomerToken(ctx, "A100", order.CourierToken); !errors.Is(err, models.ErrOrderNotFound) {
		t.Fatal("courier token must not grant customer access")
	}
	if _, err := env.svc.FindByCourierToken(ctx, "A100", order.CourierToken); err != nil {
		t.Fatalf("valid courier token rejected: %v", err)
	}
	if _, err := env.svc.FindByCourierToken(ctx, "A100", ""); !errors.Is(err, models.ErrOrderNotFound) {
		t.Fatal("empty token must be rejected")
	}
}

func TestConcurrentFirstPingSingleNotification(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, err := env.svc.CreateOrUpdateOrder(ctx, sampleOrderData())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, s := range []models.OrderStatus{models.StatusPreparing, models.StatusReady} {
		if _, err := env.svc.AdvanceOrderStatus(ctx, "A100", s); err != nil {
			t.Fatalf("advance to %s: %v", s, err)
		}
	}

	// Seed one ping so every concurrent evaluation sees count >= 1; only the
	// trigger path guarded by the ledger may fire.
	if _, err := env.svc.IngestLocation(ctx, order.ID, 19.4, -99.1, 5.0); err != nil {
		t.Fatalf("first ping: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := env.svc.IngestLocation(ctx, order.ID, 19.4+float64(i)/1000, -99.1, 5.0); err != nil {
				t.Errorf("ping %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if env.ledger.rowCount(order.ID, models.EventOnTheWaySent) != 1 {
		t.Fatal("expected exactly one ON_THE_WAY_SENT ledger row after concurrent pings")
	}
	if len(env.notifier.onTheWay) != 1 {
		t.Fatalf("expected exactly one on-the-way notification, got %d", len(env.notifier.onTheWay))
	}
}

func TestGetKitchenStats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for _, n := range []string{"A100", "A101", "A102"} {
		data := sampleOrderData()
		data.OrderNumber = n
		if _, err := env.svc.CreateOrUpdateOrder(ctx, data); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}
	if _, err := env.svc.AdvanceOrderStatus(ctx, "A101", models.StatusPreparing); err != nil {
		t.Fatalf("advance: %v", err)
	}

	stats, err := env.svc.GetKitchenStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 2 || stats.Preparing != 1 || stats.Ready != 0 || stats.OnTheWay != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
