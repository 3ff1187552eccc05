package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/spark-support/internal/auth"
	"github.com/spec-kit/spark-support/internal/config"
	"github.com/spec-kit/spark-support/internal/repository"
	"github.com/spec-kit/spark-support/internal/translate"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

func newAuthService(t *testing.T, secret string) *AuthService {
	t.Helper()
	var cfg config.Config
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.DeviceTokenTTLMinutes = 5
	if secret != "" {
		hash, err := auth.HashSecret(secret, 4)
		if err != nil {
			t.Fatal(err)
		}
		cfg.Auth.EnrollmentSecretHash = hash
	}
	return NewAuthService(cfg, AuthDependencies{DeviceRepo: repository.NewMemoryDeviceRepository()})
}

func TestEnrollDevice(t *testing.T) {
	svc := newAuthService(t, "s3cret")
	ctx := context.Background()

	if _, _, err := svc.EnrollDevice(ctx, "tablet-1", "Empfang", "wrong"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("wrong secret: %v", err)
	}
	if _, _, err := svc.EnrollDevice(ctx, "  ", "", "s3cret"); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("blank id: %v", err)
	}

	device, token, err := svc.EnrollDevice(ctx, "tablet-1", "Empfang", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if device.Label != "Empfang" || token.DeviceID != "tablet-1" || token.Token == "" {
		t.Fatalf("device=%+v token=%+v", device, token)
	}
	if time.Until(token.ExpiresAt) > 5*time.Minute {
		t.Fatalf("token ttl too long: %v", token.ExpiresAt)
	}

	claims, err := svc.TokenManager().ParseToken(token.Token)
	if err != nil || claims.DeviceID != "tablet-1" {
		t.Fatalf("claims=%+v err=%v", claims, err)
	}

	again, _, err := svc.EnrollDevice(ctx, "tablet-1", "", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if again.Label != "Empfang" || !again.EnrolledAt.Equal(device.EnrolledAt) {
		t.Fatalf("re-enrollment lost data: %+v", again)
	}

	if _, err := svc.Device(ctx, "tablet-9"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("unknown device: %v", err)
	}
}

func TestEnrollDeviceWithoutSecretHash(t *testing.T) {
	svc := newAuthService(t, "")
	_, _, err := svc.EnrollDevice(context.Background(), "tablet-1", "", "anything")
	if !apperrors.HasCode(err, apperrors.CodeConfigurationMissing) {
		t.Fatalf("expected configuration missing, got %v", err)
	}
}

type fakeTranslator struct{ subject, description string }

func (f *fakeTranslator) Translate(_ context.Context, subject, description string) (translate.Result, error) {
	f.subject, f.description = subject, description
	return translate.Result{Subject: "Anmeldung", Description: "Geht nicht"}, nil
}

func TestTranslateService(t *testing.T) {
	client := &fakeTranslator{}
	svc := NewTranslateService(client, nil)

	if _, err := svc.Translate(context.Background(), " ", ""); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("blank input: %v", err)
	}
	res, err := svc.Translate(context.Background(), " Login ", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Subject != "Anmeldung" || client.subject != "Login" {
		t.Fatalf("res=%+v sent=%q", res, client.subject)
	}
}

type fakeAdvisor struct{ from, to, addon string }

func (f *fakeAdvisor) UpgradePath(_ context.Context, from, to, addon string) (string, error) {
	f.from, f.to, f.addon = from, to, addon
	return "1. Backup\n2. Update", nil
}

func TestUpgradeService(t *testing.T) {
	client := &fakeAdvisor{}
	svc := NewUpgradeService(client, nil)

	if _, err := svc.Recommend(context.Background(), UpgradeInput{From: "7.1"}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("missing target: %v", err)
	}
	ans, err := svc.Recommend(context.Background(), UpgradeInput{From: " 7.1 ", To: "8.0", Addon: "HA"})
	if err != nil {
		t.Fatal(err)
	}
	if client.from != "7.1" || client.addon != "HA" {
		t.Fatalf("sent %+v", client)
	}
	if ans.Text != "1. Backup\n2. Update" || ans.HTML == "" {
		t.Fatalf("answer = %+v", ans)
	}
}
