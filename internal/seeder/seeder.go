package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/entity"
	"github.com/abasto-labs/abasto/pkg/token"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// All runs every seeder in dependency order.
func (s *Seeder) All(ctx context.Context) error {
	if err := s.Admin(ctx, "admin", "admin@localhost", "changeme123"); err != nil {
		return err
	}
	return s.Catalog(ctx)
}

// Admin provisions an administrator account if the username is free. The
// password is expected to be rotated immediately on a real deployment.
func (s *Seeder) Admin(ctx context.Context, username, email, password string) error {
	exists, err := s.db.NewSelect().Model((*entity.User)(nil)).
		Where("username = ?", username).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("admin user already present", zap.String("username", username))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(admin).Exec(ctx); err != nil {
		return err
	}

	s.logger.Info("seeded admin user", zap.String("username", username))
	return nil
}

// Catalog seeds a small sample inventory: one warehouse, a handful of
// products, one school and one supervisor linked to it.
func (s *Seeder) Catalog(ctx context.Context) error {
	now := time.Now().UTC()

	warehouse := &entity.Warehouse{Name: "Central", Location: "Main depot", CreatedAt: now}
	count, err := s.db.NewSelect().Model((*entity.Warehouse)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		s.logger.Info("catalog already seeded")
		return nil
	}
	if _, err := s.db.NewInsert().Model(warehouse).Exec(ctx); err != nil {
		return err
	}

	products := []*entity.Product{
		{Name: "Notebook", Code: "NB-100", Quantity: 120, WarehouseID: &warehouse.ID, CreatedAt: now},
		{Name: "Pencil box", Code: "PB-200", Quantity: 80, WarehouseID: &warehouse.ID, CreatedAt: now},
		{Name: "Backpack", Code: "BP-300", Quantity: 40, WarehouseID: &warehouse.ID, CreatedAt: now},
		{Name: "Eraser pack", Code: "ER-400", Quantity: 8, WarehouseID: &warehouse.ID, CreatedAt: now},
	}
	if _, err := s.db.NewInsert().Model(&products).Exec(ctx); err != nil {
		return err
	}

	schoolToken, err := token.New()
	if err != nil {
		return err
	}
	school := &entity.School{Name: "Escuela Demo", Token: schoolToken, Address: "Av. Principal 1", CreatedAt: now}
	if _, err := s.db.NewInsert().Model(school).Exec(ctx); err != nil {
		return err
	}

	supervisorToken, err := token.New()
	if err != nil {
		return err
	}
	supervisor := &entity.Supervisor{Name: "Maria", Surname: "Lopez", Email: "maria.lopez@localhost", Token: supervisorToken, CreatedAt: now}
	if _, err := s.db.NewInsert().Model(supervisor).Exec(ctx); err != nil {
		return err
	}

	assignment := &entity.Assignment{SupervisorID: supervisor.ID, SchoolID: school.ID, Primary: true, CreatedAt: now}
	if _, err := s.db.NewInsert().Model(assignment).Exec(ctx); err != nil {
		return err
	}

	s.logger.Info("seeded catalog",
		zap.Int("products", len(products)),
		zap.Int64("school_id", school.ID),
		zap.Int64("supervisor_id", supervisor.ID),
	)
	return nil
}
