package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/storage"
)

type SplitConfigService struct {
	deps Deps
}

func NewSplitConfigService(deps Deps) *SplitConfigService {
	return &SplitConfigService{deps: deps}
}

// Get returns the owner's stored config, or 65/35 USD when none was saved.
func (s *SplitConfigService) Get(ctx context.Context, ownerID string) (core.SplitConfig, error) {
	return splitConfigOrDefault(ctx, s.deps.Store.Queries(), ownerID)
}

// Update stores the split, creating the row on first use. An empty currency
// keeps the current one. The percentages must add up to exactly 100.
func (s *SplitConfigService) Update(ctx context.Context, ownerID string, selfPercent, partnerPercent decimal.Decimal, currency string) (core.SplitConfig, error) {
	var cfg core.SplitConfig
	err := s.deps.Store.WithTx(ctx, func(q *storage.Queries) error {
		current, err := splitConfigOrDefault(ctx, q, ownerID)
		if err != nil {
			return err
		}
		cfg = core.SplitConfig{
			OwnerID:         ownerID,
			SelfPercent:     selfPercent,
			PartnerPercent:  partnerPercent,
			DefaultCurrency: current.DefaultCurrency,
			UpdatedAt:       s.deps.now(),
		}
		if c := strings.ToUpper(strings.TrimSpace(currency)); c != "" {
			cfg.DefaultCurrency = c
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return q.UpsertSplitConfig(ctx, cfg)
	})
	if err != nil {
		return core.SplitConfig{}, err
	}

	slog.InfoContext(ctx, "Split config updated",
		log.FieldOwnerID, ownerID,
		"self_percent", cfg.SelfPercent.String(),
		"partner_percent", cfg.PartnerPercent.String(),
		"currency", cfg.DefaultCurrency)
	s.deps.publish(ctx, amqp.SplitConfigUpdated, ownerID, 0, "")
	return cfg, nil
}
