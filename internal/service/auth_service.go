package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clausewise/clausewise/internal/model"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
	"github.com/clausewise/clausewise/internal/pkg/jwt"
	"github.com/clausewise/clausewise/internal/pkg/password"
	"github.com/clausewise/clausewise/internal/repo"
)

// AuthService exchanges a tenant API key for a short-lived JWT that the
// middleware uses to scope every request to one tenant.
type AuthService struct {
	tenants   *repo.TenantRepo
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(tenants *repo.TenantRepo, jwtSecret []byte, tokenTTL time.Duration) *AuthService {
	return &AuthService{tenants: tenants, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

func (s *AuthService) Token(ctx context.Context, tenantID, apiKey string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" || apiKey == "" {
		return "", appErr.ErrInvalid
	}
	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return "", appErr.ErrUnauthorized
		}
		return "", err
	}
	if tenant.State != model.TenantStateActive {
		return "", appErr.ErrForbidden
	}
	if err := password.Compare(tenant.APIKeyHash, apiKey); err != nil {
		logutil.GetLogger(ctx).Warn("api key rejected", zap.String("tenant_id", tenantID))
		return "", appErr.ErrUnauthorized
	}
	return jwt.GenerateToken(tenant.ID, tenant.Name, s.jwtSecret, s.tokenTTL)
}

// CreateTenant provisions a tenant with a fresh API key. The plaintext
// key is returned exactly once; only its hash is stored.
func (s *AuthService) CreateTenant(ctx context.Context, name string) (*model.Tenant, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", appErr.ErrInvalid
	}
	apiKey := newAPIKey()
	hash, err := password.Hash(apiKey)
	if err != nil {
		return nil, "", err
	}
	tenant := &model.Tenant{
		ID:         newID(),
		Name:       name,
		APIKeyHash: hash,
		State:      model.TenantStateActive,
		Ctime:      time.Now().UnixMilli(),
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, "", err
	}
	return tenant, apiKey, nil
}
