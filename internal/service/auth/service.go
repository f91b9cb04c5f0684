package auth

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/abasto-labs/abasto/internal/auth"
	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/entity"
	repo "github.com/abasto-labs/abasto/internal/repository/user"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/abasto-labs/abasto/service/auth")

// Service handles operator login and account provisioning.
type Service struct {
	users  *repo.Repository
	cfg    config.Auth
	logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(users *repo.Repository, cfg config.Config, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		cfg:    cfg.Auth,
		logger: logger,
	}
}

// Login verifies credentials and returns a signed session token. Unknown
// usernames and wrong passwords produce the same error so the endpoint
// does not leak which accounts exist.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", errorbank.BadRequest("username and password are required")
	}
	ctx, span := serviceTracer.Start(ctx, "AuthService.Login", trace.WithAttributes(attribute.String("auth.username", username)))
	defer span.End()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", errorbank.Unauthorized("invalid credentials")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return "", errorbank.Internal("failed to load user", errorbank.WithCause(err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("rejected login attempt", zap.String("username", username))
		return "", errorbank.Unauthorized("invalid credentials")
	}

	token, err := auth.NewToken(s.cfg, user, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token signing failed")
		return "", errorbank.Internal("failed to sign token", errorbank.WithCause(err))
	}
	return token, nil
}

// CreateUser provisions an operator account. Used by the CLI and the seeder,
// not exposed over HTTP.
func (s *Service) CreateUser(ctx context.Context, username, email, password string, isAdmin bool) (*entity.User, error) {
	if username == "" || email == "" {
		return nil, errorbank.BadRequest("username and email are required")
	}
	if len(password) < 8 {
		return nil, errorbank.BadRequest("password must be at least 8 characters")
	}
	ctx, span := serviceTracer.Start(ctx, "AuthService.CreateUser", trace.WithAttributes(attribute.String("auth.username", username)))
	defer span.End()

	taken, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to check user identity", errorbank.WithCause(err))
	}
	if taken {
		return nil, errorbank.Conflict("username or email already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errorbank.Internal("failed to hash password", errorbank.WithCause(err))
	}

	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errorbank.Conflict("username or email already in use")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, errorbank.Internal("failed to create user", errorbank.WithCause(err))
	}
	return user, nil
}
