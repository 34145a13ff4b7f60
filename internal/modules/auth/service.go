package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pcbooking/internal/domain"
	"pcbooking/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"
)

// Principal is the identity resolved for a request. Role always comes from
// the stored user, never from the token or the request.
type Principal struct {
	UserID    int64
	Role      domain.UserRole
	JTI       string
	ExpiresAt time.Time
}

func (p Principal) IsAdmin() bool { return p.Role == domain.RoleAdmin }

// Service contains all business logic for authentication
type Service struct {
	users   UserRepositoryInterface
	revoked RevokedTokenRepositoryInterface
	jwt     jwtService
	cost    int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(users UserRepositoryInterface, revoked RevokedTokenRepositoryInterface, jwt jwtService) *Service {
	return &Service{
		users:   users,
		revoked: revoked,
		jwt:     jwt,
		cost:    bcrypt.DefaultCost,
	}
}

// SignUp creates a regular user and signs them in.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*SessionResult, error) {
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, domain.RoleUser, nil)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// SignIn never tells apart an unknown email from a wrong password.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*SessionResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// keep timing close to a real comparison
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// CreateAdmin creates an admin account. createdBy is nil only for the
// operator CLI bootstrap.
func (s *Service) CreateAdmin(ctx context.Context, createdBy *int64, req CreateAdminRequest) (*domain.User, error) {
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, domain.RoleAdmin, createdBy)
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{zap.Int64("user_id", user.ID), zap.String("email", user.Email)}
	if createdBy != nil {
		fields = append(fields, zap.Int64("created_by", *createdBy))
	}
	zap.L().Info("admin account created", fields...)
	return user, nil
}

// Authenticate resolves a bearer token to a principal.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*Principal, error) {
	token := strings.TrimSpace(bearer)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	p := &Principal{UserID: user.ID, Role: user.Role, JTI: claims.ID}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// RequireAdmin authenticates and additionally demands the admin role.
func (s *Service) RequireAdmin(ctx context.Context, bearer string) (*Principal, error) {
	p, err := s.Authenticate(ctx, bearer)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Service) Session(ctx context.Context, p Principal) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// SignOut revokes the token the principal was authenticated with.
func (s *Service) SignOut(ctx context.Context, p Principal) error {
	if p.JTI == "" {
		return ErrUnauthorized
	}
	return s.revoked.Revoke(ctx, p.JTI, p.UserID, p.ExpiresAt)
}

func (s *Service) createUser(ctx context.Context, name, email, password string, role domain.UserRole, createdBy *int64) (*domain.User, error) {
	email = normalizeEmail(email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
		Role:         role,
		CreatedBy:    createdBy,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) issue(user *domain.User) (*SessionResult, error) {
	issued, err := s.jwt.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{User: user, Token: issued.Token, ExpiresAt: issued.ExpiresAt}, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
