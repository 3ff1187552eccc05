package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/spark-support/internal/auth"
	"github.com/spec-kit/spark-support/internal/config"
	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/repository"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// AuthService enrolls devices with the shared enrollment secret and issues
// their tokens.
type AuthService struct {
	devices    repository.DeviceRepository
	tokenMgr   *auth.TokenManager
	secretHash string
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	DeviceRepo repository.DeviceRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		devices:    deps.DeviceRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.DeviceTokenTTL()),
		secretHash: cfg.Auth.EnrollmentSecretHash,
		now:        time.Now,
	}
}

// TokenManager exposes the manager for the auth middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// EnrollDevice verifies secret and records the device, returning a fresh
// token for it. Re-enrolling an existing device keeps its enrollment time.
func (s *AuthService) EnrollDevice(ctx context.Context, deviceID, label, secret string) (*domain.Device, domain.DeviceToken, error) {
	if s.secretHash == "" {
		return nil, domain.DeviceToken{}, apperrors.NewConfigurationMissing("device enrollment", "AUTH_ENROLLMENT_SECRET_HASH")
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, domain.DeviceToken{}, apperrors.NewValidationError("device_id required", map[string]any{"field": "device_id"})
	}
	if err := auth.CompareSecret(s.secretHash, secret); err != nil {
		if errors.Is(err, auth.ErrSecretMismatch) {
			return nil, domain.DeviceToken{}, apperrors.NewUnauthorized("invalid enrollment secret")
		}
		return nil, domain.DeviceToken{}, apperrors.NewInternalError(err)
	}

	now := s.now()
	device := &domain.Device{ID: deviceID, Label: strings.TrimSpace(label), EnrolledAt: now, LastSeenAt: now}
	existing, err := s.devices.GetByID(ctx, deviceID)
	switch {
	case err == nil:
		device.EnrolledAt = existing.EnrolledAt
		if device.Label == "" {
			device.Label = existing.Label
		}
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, domain.DeviceToken{}, err
	}
	if err := s.devices.Upsert(ctx, device); err != nil {
		return nil, domain.DeviceToken{}, err
	}

	token, err := s.tokenMgr.GenerateToken(deviceID)
	if err != nil {
		return nil, domain.DeviceToken{}, err
	}
	return device, token, nil
}

// Device returns an enrolled device.
func (s *AuthService) Device(ctx context.Context, deviceID string) (*domain.Device, error) {
	device, err := s.devices.GetByID(ctx, deviceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("device", map[string]any{"id": deviceID})
	}
	return device, err
}
