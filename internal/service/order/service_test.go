package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	"github.com/abasto-labs/abasto/internal/cache"
	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/entity"
	"github.com/abasto-labs/abasto/internal/messaging"
	"github.com/abasto-labs/abasto/internal/notifier"
	assignmentrepo "github.com/abasto-labs/abasto/internal/repository/assignment"
	orderrepo "github.com/abasto-labs/abasto/internal/repository/order"
	productrepo "github.com/abasto-labs/abasto/internal/repository/product"
	schoolrepo "github.com/abasto-labs/abasto/internal/repository/school"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

// missStore never holds anything; every read is a miss.
type missStore struct{}

func (missStore) Get(context.Context, string) ([]byte, error) { return nil, cache.ErrCacheMiss }
func (missStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (missStore) Delete(context.Context, string) error { return nil }

// captureClient records published event envelopes.
type captureClient struct {
	mu     sync.Mutex
	events []messaging.Envelope
}

func (c *captureClient) Publish(_ context.Context, _ []byte, value []byte) error {
	var env messaging.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, env)
	return nil
}

func (c *captureClient) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *captureClient) Topic() string { return "test" }

func (c *captureClient) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, env := range c.events {
		out = append(out, env.Type)
	}
	return out
}

type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *captureMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+": "+subject)
	return nil
}

type fixture struct {
	svc       *Service
	conns     *database.Connections
	orders    *orderrepo.Repository
	publisher *captureClient
	school    *entity.School
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	models := []any{
		(*entity.Warehouse)(nil),
		(*entity.Product)(nil),
		(*entity.School)(nil),
		(*entity.Supervisor)(nil),
		(*entity.Assignment)(nil),
		(*entity.Order)(nil),
		(*entity.OrderLine)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	conns := &database.Connections{Writer: db, Reader: db}

	cfg := config.Config{
		Cache:    config.Cache{DefaultTTL: time.Minute},
		Notifier: config.Notifier{LowStockThreshold: 10, AdminEmail: "ops@localhost"},
		Orders:   config.Orders{SchoolWindowLimit: 2, Window: 7 * 24 * time.Hour, MaxQtyPerProduct: 3},
	}

	logger := zap.NewNop()
	publisher := &captureClient{}
	products := productrepo.NewRepository(conns)
	lowStock := notifier.NewLowStock(products, &captureMailer{}, publisher, cfg, logger)

	svc := NewService(Params{
		Orders:      orderrepo.NewRepository(conns),
		Products:    products,
		Schools:     schoolrepo.NewRepository(conns),
		Assignments: assignmentrepo.NewRepository(conns),
		LowStock:    lowStock,
		Cache:       missStore{},
		Config:      cfg,
		Logger:      logger,
		Publisher:   publisher,
	})

	now := time.Now().UTC()
	school := &entity.School{Name: "Escuela Norte", Token: "school-token", CreatedAt: now}
	if _, err := db.NewInsert().Model(school).Exec(ctx); err != nil {
		t.Fatalf("seed school: %v", err)
	}
	supervisor := &entity.Supervisor{Name: "Rosa", Surname: "Diaz", Email: "rosa@localhost", Token: "sup-token", CreatedAt: now}
	if _, err := db.NewInsert().Model(supervisor).Exec(ctx); err != nil {
		t.Fatalf("seed supervisor: %v", err)
	}
	assignment := &entity.Assignment{SupervisorID: supervisor.ID, SchoolID: school.ID, Primary: true, CreatedAt: now}
	if _, err := db.NewInsert().Model(assignment).Exec(ctx); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}

	return &fixture{
		svc:       svc,
		conns:     conns,
		orders:    orderrepo.NewRepository(conns),
		publisher: publisher,
		school:    school,
	}
}

func (f *fixture) seedProduct(t *testing.T, name, code string, quantity int) *entity.Product {
	t.Helper()
	product := &entity.Product{Name: name, Code: code, Quantity: quantity, CreatedAt: time.Now().UTC()}
	if _, err := f.conns.Writer.NewInsert().Model(product).Exec(context.Background()); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func errKind(t *testing.T, err error) errorbank.Kind {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	return errorbank.From(err).Kind()
}

func TestSubmitCreatesPendingOrder(t *testing.T) {
	f := newFixture(t)
	product := f.seedProduct(t, "Notebook", "NB-1", 50)

	order, err := f.svc.Submit(context.Background(), SubmitRequest{
		SchoolToken: f.school.Token,
		Requester:   "Ana",
		Items:       []SubmitItem{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if order.Status != entity.OrderPending {
		t.Errorf("status = %q, want pending", order.Status)
	}
	if len(order.Lines) != 1 || order.Lines[0].Quantity != 2 {
		t.Errorf("lines = %+v, want one line of quantity 2", order.Lines)
	}

	// Submission never touches stock.
	reloaded := new(entity.Product)
	if err := f.conns.Reader.NewSelect().Model(reloaded).Where("id = ?", product.ID).Scan(context.Background()); err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.Quantity != 50 {
		t.Errorf("quantity = %d, want 50", reloaded.Quantity)
	}

	types := f.publisher.types()
	if len(types) == 0 || types[0] != messaging.EventOrderSubmitted {
		t.Errorf("published events = %v, want order.submitted first", types)
	}
}

func TestSubmitEnforcesWindowLimit(t *testing.T) {
	f := newFixture(t)
	product := f.seedProduct(t, "Pencil", "PC-1", 50)

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Submit(context.Background(), SubmitRequest{
			SchoolToken: f.school.Token,
			Requester:   "Ana",
			Items:       []SubmitItem{{ProductID: product.ID, Quantity: 1}},
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		SchoolToken: f.school.Token,
		Requester:   "Ana",
		Items:       []SubmitItem{{ProductID: product.ID, Quantity: 1}},
	})
	if kind := errKind(t, err); kind != errorbank.KindUnprocessableEntity {
		t.Errorf("kind = %q, want unprocessable_entity", kind)
	}
}

func TestSubmitRejectsQuantityAboveCap(t *testing.T) {
	f := newFixture(t)
	product := f.seedProduct(t, "Backpack", "BP-1", 50)

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		SchoolToken: f.school.Token,
		Requester:   "Ana",
		Items:       []SubmitItem{{ProductID: product.ID, Quantity: 4}},
	})
	if kind := errKind(t, err); kind != errorbank.KindUnprocessableEntity {
		t.Errorf("kind = %q, want unprocessable_entity", kind)
	}

	// The whole submission is refused, not truncated.
	count, err := f.orders.CountByStatus(context.Background(), entity.OrderPending)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("pending orders = %d, want 0", count)
	}
}

func TestSubmitDropsZeroQuantities(t *testing.T) {
	f := newFixture(t)
	skipped := f.seedProduct(t, "Eraser", "ER-1", 50)
	wanted := f.seedProduct(t, "Ruler", "RL-1", 50)

	order, err := f.svc.Submit(context.Background(), SubmitRequest{
		SchoolToken: f.school.Token,
		Requester:   "Ana",
		Items: []SubmitItem{
			{ProductID: skipped.ID, Quantity: 0},
			{ProductID: wanted.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(order.Lines) != 1 || order.Lines[0].ProductID != wanted.ID {
		t.Errorf("lines = %+v, want only the non-zero line", order.Lines)
	}
}

func TestSubmitAllZeroQuantities(t *testing.T) {
	f := newFixture(t)
	product := f.seedProduct(t, "Glue", "GL-1", 50)

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		SchoolToken: f.school.Token,
		Requester:   "Ana",
		Items:       []SubmitItem{{ProductID: product.ID, Quantity: 0}},
	})
	if kind := errKind(t, err); kind != errorbank.KindUnprocessableEntity {
		t.Errorf("kind = %q, want unprocessable_entity", kind)
	}
}

func TestSubmitUnknownToken(t *testing.T) {
	f := newFixture(t)
	product := f.seedProduct(t, "Marker", "MK-1", 50)

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		SchoolToken: "no-such-token",
		Requester:   "Ana",
		Items:       []SubmitItem{{ProductID: product.ID, Quantity: 1}},
	})
	if kind := errKind(t, err); kind != errorbank.KindNotFound {
		t.Errorf("kind = %q, want not_found", kind)
	}
}

func TestSubmitRequiresAssignment(t *testing.T) {
	f := newFixture(t)
	product := f.seedProduct(t, "Crayons", "CR-1", 50)

	orphan := &entity.School{Name: "Escuela Sur", Token: "orphan-token", CreatedAt: time.Now().UTC()}
	if _, err := f.conns.Writer.NewInsert().Model(orphan).Exec(context.Background()); err != nil {
		t.Fatalf("seed school: %v", err)
	}

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		SchoolToken: orphan.Token,
		Requester:   "Ana",
		Items:       []SubmitItem{{ProductID: product.ID, Quantity: 1}},
	})
	if kind := errKind(t, err); kind != errorbank.KindUnprocessableEntity {
		t.Errorf("kind = %q, want unprocessable_entity", kind)
	}
}

func TestSubmitDuplicateProduct(t *testing.T) {
	f := newFixture(t)
	product := f.seedProduct(t, "Scissors", "SC-1", 50)

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		SchoolToken: f.school.Token,
		Requester:   "Ana",
		Items: []SubmitItem{
			{ProductID: product.ID, Quantity: 1},
			{ProductID: product.ID, Quantity: 2},
		},
	})
	if kind := errKind(t, err); kind != errorbank.KindBadRequest {
		t.Errorf("kind = %q, want bad_request", kind)
	}
}

func TestApproveReportsShortfalls(t *testing.T) {
	f := newFixture(t)
	product := f.seedProduct(t, "Notebook", "NB-2", 1)

	order, err := f.svc.Submit(context.Background(), SubmitRequest{
		SchoolToken: f.school.Token,
		Requester:   "Ana",
		Items:       []SubmitItem{{ProductID: product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = f.svc.Approve(context.Background(), order.ID)
	appErr := errorbank.From(err)
	if appErr.Kind() != errorbank.KindUnprocessableEntity {
		t.Fatalf("kind = %q, want unprocessable_entity", appErr.Kind())
	}
	if _, ok := appErr.Details()["shortfalls"]; !ok {
		t.Errorf("details = %v, want shortfalls entry", appErr.Details())
	}
}

func TestApproveThenRejectConflicts(t *testing.T) {
	f := newFixture(t)
	product := f.seedProduct(t, "Folder", "FD-1", 10)

	order, err := f.svc.Submit(context.Background(), SubmitRequest{
		SchoolToken: f.school.Token,
		Requester:   "Ana",
		Items:       []SubmitItem{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.Approve(context.Background(), order.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = f.svc.Reject(context.Background(), order.ID)
	if kind := errKind(t, err); kind != errorbank.KindConflict {
		t.Errorf("kind = %q, want conflict", kind)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), "shipped")
	if kind := errKind(t, err); kind != errorbank.KindBadRequest {
		t.Errorf("kind = %q, want bad_request", kind)
	}
}
