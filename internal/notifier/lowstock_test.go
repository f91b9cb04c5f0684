package notifier

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/entity"
	"github.com/abasto-labs/abasto/internal/messaging"
	productrepo "github.com/abasto-labs/abasto/internal/repository/product"
)

type recordingMailer struct {
	mu     sync.Mutex
	bodies []string
	fail   bool
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

type dropClient struct{}

func (dropClient) Publish(context.Context, []byte, []byte) error { return nil }
func (dropClient) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}
func (dropClient) Topic() string { return "test" }

func newChecker(t *testing.T, mailer Mailer, quantities map[string]int) *LowStock {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if _, err := db.NewCreateTable().Model((*entity.Product)(nil)).IfNotExists().Exec(ctx); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for code, qty := range quantities {
		product := &entity.Product{Name: code, Code: code, Quantity: qty, CreatedAt: time.Now().UTC()}
		if _, err := db.NewInsert().Model(product).Exec(ctx); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}

	cfg := config.Config{Notifier: config.Notifier{LowStockThreshold: 10, AdminEmail: "ops@localhost"}}
	conns := &database.Connections{Writer: db, Reader: db}
	return NewLowStock(productrepo.NewRepository(conns), mailer, dropClient{}, cfg, zap.NewNop())
}

func TestCheckMailsOneSummary(t *testing.T) {
	mailer := &recordingMailer{}
	checker := newChecker(t, mailer, map[string]int{"LOW-1": 5, "LOW-2": 3, "OK-1": 40})

	checker.Check(context.Background())

	if len(mailer.bodies) != 1 {
		t.Fatalf("sent = %d mails, want one summary", len(mailer.bodies))
	}
	body := mailer.bodies[0]
	if !strings.Contains(body, "LOW-1") || !strings.Contains(body, "LOW-2") {
		t.Errorf("summary missing low products:\n%s", body)
	}
	if strings.Contains(body, "OK-1") {
		t.Errorf("summary lists healthy product:\n%s", body)
	}
}

func TestCheckIsStateless(t *testing.T) {
	mailer := &recordingMailer{}
	checker := newChecker(t, mailer, map[string]int{"LOW-1": 2})

	checker.Check(context.Background())
	checker.Check(context.Background())

	if len(mailer.bodies) != 2 {
		t.Fatalf("sent = %d mails, want 2", len(mailer.bodies))
	}
	if mailer.bodies[0] != mailer.bodies[1] {
		t.Error("repeated checks against unchanged stock should compose the same summary")
	}
}

func TestCheckQuietWhenStockHealthy(t *testing.T) {
	mailer := &recordingMailer{}
	checker := newChecker(t, mailer, map[string]int{"OK-1": 40, "OK-2": 11})

	checker.Check(context.Background())

	if len(mailer.bodies) != 0 {
		t.Errorf("sent = %d mails, want none", len(mailer.bodies))
	}
}

func TestCheckSwallowsMailerFailure(t *testing.T) {
	mailer := &recordingMailer{fail: true}
	checker := newChecker(t, mailer, map[string]int{"LOW-1": 2})

	// Must not panic or propagate; callers in the order workflow rely on it.
	checker.Check(context.Background())
}

func TestScanIncludesThresholdBoundary(t *testing.T) {
	checker := newChecker(t, &recordingMailer{}, map[string]int{"AT-10": 10, "AT-11": 11})

	products, err := checker.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(products) != 1 || products[0].Code != "AT-10" {
		t.Errorf("scan = %+v, want only the product at the threshold", products)
	}
}
