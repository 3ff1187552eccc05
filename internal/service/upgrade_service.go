package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/spark-support/internal/render"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// UpgradeAdvisor is the endpoint call behind UpgradeService.
type UpgradeAdvisor interface {
	UpgradePath(ctx context.Context, from, to, addon string) (string, error)
}

// UpgradeInput is the composed upgrade form.
type UpgradeInput struct {
	From  string
	To    string
	Addon string
}

// UpgradeService recommends migration paths between product versions.
type UpgradeService struct {
	client UpgradeAdvisor
	logger *zap.Logger
}

// NewUpgradeService constructs the service.
func NewUpgradeService(client UpgradeAdvisor, logger *zap.Logger) *UpgradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpgradeService{client: client, logger: logger}
}

// Recommend returns the answer text and its HTML rendition. Upgrade answers
// are step lists, so they are always rendered.
func (s *UpgradeService) Recommend(ctx context.Context, in UpgradeInput) (Answer, error) {
	from := strings.TrimSpace(in.From)
	to := strings.TrimSpace(in.To)
	if from == "" || to == "" {
		return Answer{}, apperrors.NewValidationError("from and to versions required", map[string]any{
			"from": from,
			"to":   to,
		})
	}
	text, err := s.client.UpgradePath(ctx, from, to, strings.TrimSpace(in.Addon))
	if err != nil {
		if !apperrors.IsCancelled(err) {
			s.logger.Warn("upgrade path call failed", zap.String("from", from), zap.String("to", to), zap.Error(err))
		}
		return Answer{}, err
	}
	ans := Answer{Text: text}
	if html, err := render.HTML(text); err == nil {
		ans.HTML = html
	} else {
		s.logger.Warn("upgrade answer markdown not rendered", zap.Error(err))
	}
	return ans, nil
}
