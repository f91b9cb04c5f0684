package order

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/entity"
)

func newTestDB(t *testing.T) *database.Connections {
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
	return &database.Connections{Writer: db, Reader: db}
}

func seedSchool(t *testing.T, conns *database.Connections, name, token string) *entity.School {
	t.Helper()
	school := &entity.School{Name: name, Token: token, CreatedAt: time.Now().UTC()}
	if _, err := conns.Writer.NewInsert().Model(school).Exec(context.Background()); err != nil {
		t.Fatalf("seed school: %v", err)
	}
	return school
}

func seedProduct(t *testing.T, conns *database.Connections, name, code string, quantity int) *entity.Product {
	t.Helper()
	product := &entity.Product{Name: name, Code: code, Quantity: quantity, CreatedAt: time.Now().UTC()}
	if _, err := conns.Writer.NewInsert().Model(product).Exec(context.Background()); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func productQuantity(t *testing.T, conns *database.Connections, id int64) int {
	t.Helper()
	product := new(entity.Product)
	if err := conns.Reader.NewSelect().Model(product).Where("id = ?", id).Scan(context.Background()); err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Quantity
}

func TestApproveDecrementsStock(t *testing.T) {
	conns := newTestDB(t)
	repo := NewRepository(conns)
	ctx := context.Background()

	school := seedSchool(t, conns, "Escuela Uno", "tok-1")
	notebook := seedProduct(t, conns, "Notebook", "NB-1", 5)
	pencil := seedProduct(t, conns, "Pencil", "PC-1", 3)

	order := &entity.Order{SchoolID: school.ID, Requester: "Ana", Status: entity.OrderPending, CreatedAt: time.Now().UTC()}
	lines := []*entity.OrderLine{
		{ProductID: notebook.ID, Quantity: 2},
		{ProductID: pencil.ID, Quantity: 1},
	}
	if err := repo.Create(ctx, order, lines); err != nil {
		t.Fatalf("create order: %v", err)
	}

	approved, err := repo.Approve(ctx, order.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != entity.OrderApproved {
		t.Errorf("status = %q, want %q", approved.Status, entity.OrderApproved)
	}
	if approved.ApprovedAt == nil {
		t.Error("approved_at not set")
	}
	if got := productQuantity(t, conns, notebook.ID); got != 3 {
		t.Errorf("notebook quantity = %d, want 3", got)
	}
	if got := productQuantity(t, conns, pencil.ID); got != 2 {
		t.Errorf("pencil quantity = %d, want 2", got)
	}
}

func TestApproveAllOrNothing(t *testing.T) {
	conns := newTestDB(t)
	repo := NewRepository(conns)
	ctx := context.Background()

	school := seedSchool(t, conns, "Escuela Dos", "tok-2")
	stocked := seedProduct(t, conns, "Notebook", "NB-2", 5)
	empty := seedProduct(t, conns, "Backpack", "BP-2", 0)

	order := &entity.Order{SchoolID: school.ID, Requester: "Luis", Status: entity.OrderPending, CreatedAt: time.Now().UTC()}
	lines := []*entity.OrderLine{
		{ProductID: stocked.ID, Quantity: 2},
		{ProductID: empty.ID, Quantity: 1},
	}
	if err := repo.Create(ctx, order, lines); err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err := repo.Approve(ctx, order.ID, time.Now().UTC())
	var short *InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("approve error = %v, want InsufficientStockError", err)
	}
	if len(short.Shortfalls) != 1 || short.Shortfalls[0].ProductID != empty.ID {
		t.Errorf("shortfalls = %+v, want single entry for backpack", short.Shortfalls)
	}

	// Nothing may have been consumed by the failed approval.
	if got := productQuantity(t, conns, stocked.ID); got != 5 {
		t.Errorf("stocked quantity = %d, want 5", got)
	}
	reloaded, err := repo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.Status != entity.OrderPending {
		t.Errorf("status = %q, want pending after failed approval", reloaded.Status)
	}
}

func TestApproveTwiceConflicts(t *testing.T) {
	conns := newTestDB(t)
	repo := NewRepository(conns)
	ctx := context.Background()

	school := seedSchool(t, conns, "Escuela Tres", "tok-3")
	product := seedProduct(t, conns, "Eraser", "ER-3", 10)

	order := &entity.Order{SchoolID: school.ID, Requester: "Eva", Status: entity.OrderPending, CreatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, order, []*entity.OrderLine{{ProductID: product.ID, Quantity: 3}}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := repo.Approve(ctx, order.ID, time.Now().UTC()); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if _, err := repo.Approve(ctx, order.ID, time.Now().UTC()); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("second approve error = %v, want ErrAlreadyProcessed", err)
	}

	// Stock is consumed exactly once.
	if got := productQuantity(t, conns, product.ID); got != 7 {
		t.Errorf("quantity = %d, want 7", got)
	}
}

func TestRejectLeavesStockUntouched(t *testing.T) {
	conns := newTestDB(t)
	repo := NewRepository(conns)
	ctx := context.Background()

	school := seedSchool(t, conns, "Escuela Cuatro", "tok-4")
	product := seedProduct(t, conns, "Ruler", "RL-4", 6)

	order := &entity.Order{SchoolID: school.ID, Requester: "Sol", Status: entity.OrderPending, CreatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, order, []*entity.OrderLine{{ProductID: product.ID, Quantity: 2}}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	rejected, err := repo.Reject(ctx, order.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != entity.OrderRejected {
		t.Errorf("status = %q, want rejected", rejected.Status)
	}
	if got := productQuantity(t, conns, product.ID); got != 6 {
		t.Errorf("quantity = %d, want 6", got)
	}

	// A resolved order stays resolved.
	if _, err := repo.Approve(ctx, order.ID, time.Now().UTC()); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("approve after reject error = %v, want ErrAlreadyProcessed", err)
	}
}

func TestApproveMissingOrder(t *testing.T) {
	conns := newTestDB(t)
	repo := NewRepository(conns)

	if _, err := repo.Approve(context.Background(), 9999, time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCountBySchoolSince(t *testing.T) {
	conns := newTestDB(t)
	repo := NewRepository(conns)
	ctx := context.Background()

	school := seedSchool(t, conns, "Escuela Cinco", "tok-5")
	product := seedProduct(t, conns, "Glue", "GL-5", 20)

	now := time.Now().UTC()
	ages := []time.Duration{8 * 24 * time.Hour, 3 * 24 * time.Hour, time.Hour}
	for _, age := range ages {
		order := &entity.Order{SchoolID: school.ID, Requester: "Rio", Status: entity.OrderPending, CreatedAt: now.Add(-age)}
		if err := repo.Create(ctx, order, []*entity.OrderLine{{ProductID: product.ID, Quantity: 1}}); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	count, err := repo.CountBySchoolSince(ctx, school.ID, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 inside the window", count)
	}
}
