package audit

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidInput = errors.New("invalid input")

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type Page struct {
	Records []Record
	Total   int
	Limit   int
	Offset  int
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) (Page, error) {
	if strings.TrimSpace(userID) == "" {
		return Page{}, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.repo.List(ctx, userID, limit, offset)
	if err != nil {
		return Page{}, err
	}
	total, err := s.repo.Count(ctx, userID)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Records: records,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}
