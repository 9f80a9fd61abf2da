package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/prediction-pool/internal/domain/championship"
	"github.com/riskibarqy/prediction-pool/internal/domain/user"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 500
)

type LeaderboardEntry struct {
	Rank        int
	UserID      string
	DisplayName string
	TotalPoints int
}

type LeaderboardService struct {
	championshipRepo championship.Repository
	userRepo         user.Repository
}

func NewLeaderboardService(championshipRepo championship.Repository, userRepo user.Repository) *LeaderboardService {
	return &LeaderboardService{
		championshipRepo: championshipRepo,
		userRepo:         userRepo,
	}
}

// List ranks participants by total points. Equal totals share a rank.
func (s *LeaderboardService) List(ctx context.Context, championshipID string, limit int) ([]LeaderboardEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.List")
	defer span.End()

	championshipID = strings.TrimSpace(championshipID)
	if championshipID == "" {
		return nil, fmt.Errorf("%w: championship id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	_, exists, err := s.championshipRepo.GetByID(ctx, championshipID)
	if err != nil {
		return nil, fmt.Errorf("get championship=%s: %w", championshipID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: championship=%s", ErrNotFound, championshipID)
	}

	users, err := s.userRepo.ListLeaderboard(ctx, championshipID, limit)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard championship=%s: %w", championshipID, err)
	}

	out := make([]LeaderboardEntry, 0, len(users))
	rank := 0
	for i, item := range users {
		if i == 0 || item.TotalPoints != users[i-1].TotalPoints {
			rank = i + 1
		}
		out = append(out, LeaderboardEntry{
			Rank:        rank,
			UserID:      item.ID,
			DisplayName: item.DisplayName,
			TotalPoints: item.TotalPoints,
		})
	}
	return out, nil
}
