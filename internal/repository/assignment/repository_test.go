package assignment

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

func newTestRepo(t *testing.T) (*Repository, *database.Connections) {
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
		(*entity.School)(nil),
		(*entity.Supervisor)(nil),
		(*entity.Assignment)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	conns := &database.Connections{Writer: db, Reader: db}
	return NewRepository(conns), conns
}

func seedPair(t *testing.T, conns *database.Connections, schoolToken, supervisorEmail string) (*entity.Supervisor, *entity.School) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	school := &entity.School{Name: "Escuela " + schoolToken, Token: schoolToken, CreatedAt: now}
	if _, err := conns.Writer.NewInsert().Model(school).Exec(ctx); err != nil {
		t.Fatalf("seed school: %v", err)
	}
	supervisor := &entity.Supervisor{Name: "Sup", Surname: "Ervisor", Email: supervisorEmail, Token: supervisorEmail, CreatedAt: now}
	if _, err := conns.Writer.NewInsert().Model(supervisor).Exec(ctx); err != nil {
		t.Fatalf("seed supervisor: %v", err)
	}
	return supervisor, school
}

func TestCreateRejectsDuplicatePair(t *testing.T) {
	repo, conns := newTestRepo(t)
	supervisor, school := seedPair(t, conns, "tok-a", "a@localhost")
	ctx := context.Background()

	first := &entity.Assignment{SupervisorID: supervisor.ID, SchoolID: school.ID, CreatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &entity.Assignment{SupervisorID: supervisor.ID, SchoolID: school.ID, CreatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicatePair) {
		t.Errorf("error = %v, want ErrDuplicatePair", err)
	}
}

func TestCreateDemotesPreviousPrimary(t *testing.T) {
	repo, conns := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, school := seedPair(t, conns, "tok-b", "b1@localhost")
	second := &entity.Supervisor{Name: "Otro", Surname: "Sup", Email: "b2@localhost", Token: "b2@localhost", CreatedAt: now}
	if _, err := conns.Writer.NewInsert().Model(second).Exec(ctx); err != nil {
		t.Fatalf("seed supervisor: %v", err)
	}

	if err := repo.Create(ctx, &entity.Assignment{SupervisorID: first.ID, SchoolID: school.ID, Primary: true, CreatedAt: now}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if err := repo.Create(ctx, &entity.Assignment{SupervisorID: second.ID, SchoolID: school.ID, Primary: true, CreatedAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	var primaries []*entity.Assignment
	err := conns.Reader.NewSelect().Model(&primaries).
		Where("school_id = ?", school.ID).
		Where("is_primary = ?", true).
		Scan(ctx)
	if err != nil {
		t.Fatalf("select primaries: %v", err)
	}
	if len(primaries) != 1 || primaries[0].SupervisorID != second.ID {
		t.Errorf("primaries = %+v, want exactly the newest one", primaries)
	}
}

func TestRoutingPrefersPrimary(t *testing.T) {
	repo, conns := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	older, school := seedPair(t, conns, "tok-c", "c1@localhost")
	newer := &entity.Supervisor{Name: "Prim", Surname: "Aria", Email: "c2@localhost", Token: "c2@localhost", CreatedAt: now}
	if _, err := conns.Writer.NewInsert().Model(newer).Exec(ctx); err != nil {
		t.Fatalf("seed supervisor: %v", err)
	}

	if err := repo.Create(ctx, &entity.Assignment{SupervisorID: older.ID, SchoolID: school.ID, CreatedAt: now}); err != nil {
		t.Fatalf("create older: %v", err)
	}
	if err := repo.Create(ctx, &entity.Assignment{SupervisorID: newer.ID, SchoolID: school.ID, Primary: true, CreatedAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("create newer: %v", err)
	}

	routing, err := repo.RoutingForSchool(ctx, school.ID)
	if err != nil {
		t.Fatalf("routing: %v", err)
	}
	if routing.SupervisorID != newer.ID {
		t.Errorf("routing supervisor = %d, want the primary %d", routing.SupervisorID, newer.ID)
	}
}

func TestRoutingFallsBackToOldest(t *testing.T) {
	repo, conns := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	oldest, school := seedPair(t, conns, "tok-d", "d1@localhost")
	later := &entity.Supervisor{Name: "Tarde", Surname: "Sup", Email: "d2@localhost", Token: "d2@localhost", CreatedAt: now}
	if _, err := conns.Writer.NewInsert().Model(later).Exec(ctx); err != nil {
		t.Fatalf("seed supervisor: %v", err)
	}

	if err := repo.Create(ctx, &entity.Assignment{SupervisorID: oldest.ID, SchoolID: school.ID, CreatedAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("create oldest: %v", err)
	}
	if err := repo.Create(ctx, &entity.Assignment{SupervisorID: later.ID, SchoolID: school.ID, CreatedAt: now}); err != nil {
		t.Fatalf("create later: %v", err)
	}

	routing, err := repo.RoutingForSchool(ctx, school.ID)
	if err != nil {
		t.Fatalf("routing: %v", err)
	}
	if routing.SupervisorID != oldest.ID {
		t.Errorf("routing supervisor = %d, want the oldest %d", routing.SupervisorID, oldest.ID)
	}
}

func TestRoutingMissingSchool(t *testing.T) {
	repo, _ := newTestRepo(t)

	if _, err := repo.RoutingForSchool(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
