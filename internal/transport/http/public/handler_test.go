package public

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
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
	ordersvc "github.com/abasto-labs/abasto/internal/service/order"
)

type noCache struct{}

func (noCache) Get(context.Context, string) ([]byte, error) { return nil, cache.ErrCacheMiss }
func (noCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (noCache) Delete(context.Context, string) error { return nil }

type silentClient struct{}

func (silentClient) Publish(context.Context, []byte, []byte) error { return nil }
func (silentClient) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}
func (silentClient) Topic() string { return "test" }

type silentMailer struct{}

func (silentMailer) Send(context.Context, string, string, string) error { return nil }

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Requester string `json:"requester"`
	} `json:"data"`
	Error *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func newServer(t *testing.T) (*echo.Echo, *entity.Product) {
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

	now := time.Now().UTC()
	school := &entity.School{Name: "Escuela Demo", Token: "demo-token", CreatedAt: now}
	if _, err := db.NewInsert().Model(school).Exec(ctx); err != nil {
		t.Fatalf("seed school: %v", err)
	}
	supervisor := &entity.Supervisor{Name: "Maria", Surname: "Lopez", Email: "maria@localhost", Token: "sup-token", CreatedAt: now}
	if _, err := db.NewInsert().Model(supervisor).Exec(ctx); err != nil {
		t.Fatalf("seed supervisor: %v", err)
	}
	link := &entity.Assignment{SupervisorID: supervisor.ID, SchoolID: school.ID, Primary: true, CreatedAt: now}
	if _, err := db.NewInsert().Model(link).Exec(ctx); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	product := &entity.Product{Name: "Notebook", Code: "NB-100", Quantity: 50, CreatedAt: now}
	if _, err := db.NewInsert().Model(product).Exec(ctx); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	cfg := config.Config{
		Orders:   config.Orders{SchoolWindowLimit: 2, Window: 7 * 24 * time.Hour, MaxQtyPerProduct: 3},
		Notifier: config.Notifier{LowStockThreshold: 10, AdminEmail: "ops@localhost"},
	}
	svc := ordersvc.NewService(ordersvc.Params{
		Orders:      orderrepo.NewRepository(conns),
		Products:    productrepo.NewRepository(conns),
		Schools:     schoolrepo.NewRepository(conns),
		Assignments: assignmentrepo.NewRepository(conns),
		LowStock:    notifier.NewLowStock(productrepo.NewRepository(conns), silentMailer{}, silentClient{}, cfg, zap.NewNop()),
		Cache:       noCache{},
		Config:      cfg,
		Logger:      zap.NewNop(),
		Publisher:   silentClient{},
	})

	e := echo.New()
	Register(e, NewHandler(svc))
	return e, product
}

func postJSON(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/public/orders", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSubmitRoundTrip(t *testing.T) {
	e, product := newServer(t)

	rec := postJSON(e, fmt.Sprintf(`{"school_token":"demo-token","requester":"Ana","items":[{"product_id":%d,"quantity":2}]}`, product.ID))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !env.Success {
		t.Error("success flag not set")
	}
	if env.Data.ID == 0 {
		t.Error("order id missing from response")
	}
	if env.Data.Status != string(entity.OrderPending) {
		t.Errorf("status = %q, want pending", env.Data.Status)
	}
	if env.Data.Requester != "Ana" {
		t.Errorf("requester = %q, want Ana", env.Data.Requester)
	}
}

func TestSubmitUnknownSchoolToken(t *testing.T) {
	e, product := newServer(t)

	rec := postJSON(e, fmt.Sprintf(`{"school_token":"nope","requester":"Ana","items":[{"product_id":%d,"quantity":1}]}`, product.ID))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404, body %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitQuantityOverCap(t *testing.T) {
	e, product := newServer(t)

	rec := postJSON(e, fmt.Sprintf(`{"school_token":"demo-token","requester":"Ana","items":[{"product_id":%d,"quantity":4}]}`, product.ID))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	e, _ := newServer(t)

	rec := postJSON(e, `{"school_token":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
