package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/spark-support/internal/translate"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// Translator is the endpoint call behind TranslateService.
type Translator interface {
	Translate(ctx context.Context, subject, description string) (translate.Result, error)
}

// TranslateService asks for German renditions of ticket texts.
type TranslateService struct {
	client Translator
	logger *zap.Logger
}

// NewTranslateService constructs the service.
func NewTranslateService(client Translator, logger *zap.Logger) *TranslateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranslateService{client: client, logger: logger}
}

// Translate requires at least one of subject and description.
func (s *TranslateService) Translate(ctx context.Context, subject, description string) (translate.Result, error) {
	subject = strings.TrimSpace(subject)
	description = strings.TrimSpace(description)
	if subject == "" && description == "" {
		return translate.Result{}, apperrors.NewValidationError("subject or description required", nil)
	}
	res, err := s.client.Translate(ctx, subject, description)
	if err != nil {
		if !apperrors.IsCancelled(err) {
			s.logger.Warn("translate call failed", zap.Error(err))
		}
		return translate.Result{}, err
	}
	return res, nil
}
