package api

import (
	"context"

	"github.com/hazuki802/bukkaku/internal/store"
)

// defaultListLimit bounds /api/checks responses when no limit is given.
const defaultListLimit = 20

// CaseReader abstracts case persistence interactions needed for API queries.
type CaseReader interface {
	ListCases(ctx context.Context, limit int) ([]*store.Case, error)
	GetCase(ctx context.Context, id int64) (*store.Case, error)
}

// CheckService exposes read-only case operations returning API DTOs.
type CheckService struct {
	store CaseReader
}

// NewCheckService constructs a CheckService around the provided reader.
func NewCheckService(store CaseReader) *CheckService {
	if store == nil {
		return nil
	}
	return &CheckService{store: store}
}

// List returns recent checks, newest first.
func (s *CheckService) List(ctx context.Context, limit int) ([]CheckSummary, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	cases, err := s.store.ListCases(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromCases(cases), nil
}

// Describe fetches a single check. Missing ids return nil.
func (s *CheckService) Describe(ctx context.Context, id int64) (*Check, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	c, err := s.store.GetCase(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}
	dto := FromCase(c)
	return &dto, nil
}
