package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/veloretail/velo/internal/plan/domain"
	"github.com/veloretail/velo/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	repo repository.Repository[plandomain.Plan]
	log  *zap.Logger
}

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

func NewService(p ServiceParam) plandomain.Service {
	return &Service{
		repo: repository.ProvideStore[plandomain.Plan](p.DB),
		log:  p.Log.Named("plan.service"),
	}
}

func (s *Service) ListActive(ctx context.Context) ([]plandomain.Plan, error) {
	rows, err := s.repo.Find(ctx, &plandomain.Plan{Active: true}, repository.OrderBy("price_amount"))
	if err != nil {
		return nil, err
	}
	plans := make([]plandomain.Plan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, *row)
	}
	return plans, nil
}

func (s *Service) Get(ctx context.Context, planID snowflake.ID) (*plandomain.Plan, error) {
	plan, err := s.repo.FindOne(ctx, &plandomain.Plan{ID: planID})
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrPlanNotFound
	}
	return plan, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*plandomain.Plan, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, plandomain.ErrInvalidPlan
	}

	plan, err := s.repo.FindOne(ctx, &plandomain.Plan{Code: code})
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrPlanNotFound
	}
	return plan, nil
}
