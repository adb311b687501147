package reviewsvc

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/cheese-review/internal/domain"
)

// memrepo is an in-memory Repository used when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	byGameID map[string]*domain.GameReview
	byPlayer map[string][]*domain.GameReview // lower(player name) -> reviews, latest last
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byGameID: make(map[string]*domain.GameReview),
		byPlayer: make(map[string][]*domain.GameReview),
	}
}

func (m *memrepo) SaveReview(ctx context.Context, rv *domain.GameReview) (int64, error) {
	if rv == nil {
		return 0, ErrDuplicateReview
	}
	key := strings.TrimSpace(rv.GameID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byGameID[key]; exists {
		return 0, ErrDuplicateReview
	}

	m.nextID++
	stored := cloneReview(rv)
	stored.ID = m.nextID

	m.byGameID[key] = stored
	player := playerKey(rv.Player.Name)
	m.byPlayer[player] = append(m.byPlayer[player], stored)
	return stored.ID, nil
}

func (m *memrepo) GetReview(ctx context.Context, gameID string) (*domain.GameReview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rv, ok := m.byGameID[strings.TrimSpace(gameID)]; ok && rv != nil {
		return cloneReview(rv), nil
	}
	return nil, nil
}

func (m *memrepo) RecentReviews(ctx context.Context, playerName string, limit int) ([]*domain.GameReview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.byPlayer[playerKey(playerName)]
	if len(list) == 0 {
		return []*domain.GameReview{}, nil
	}
	items := make([]*domain.GameReview, 0, len(list))
	for _, rv := range list {
		items = append(items, cloneReview(rv))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AnalyzedAt.Equal(items[j].AnalyzedAt) {
			return items[i].AnalyzedAt.After(items[j].AnalyzedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func playerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func cloneReview(rv *domain.GameReview) *domain.GameReview {
	out := *rv
	out.CriticalMoments = append([]byte(nil), rv.CriticalMoments...)
	return &out
}
