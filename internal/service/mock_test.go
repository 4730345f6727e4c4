package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"linkly/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateLink(ctx context.Context, link *model.Link) error {
	return m.Called(ctx, link).Error(0)
}

func (m *mockStore) GetLinkByKey(ctx context.Context, shortKey string) (*model.Link, error) {
	args := m.Called(ctx, shortKey)
	link, _ := args.Get(0).(*model.Link)
	return link, args.Error(1)
}

func (m *mockStore) IncrementClick(ctx context.Context, shortKey string, meta model.ClickMeta) (int64, error) {
	args := m.Called(ctx, shortKey, meta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) FindByOwnerAndTarget(ctx context.Context, ownerID uint64, targetURL string) (*model.Link, error) {
	args := m.Called(ctx, ownerID, targetURL)
	link, _ := args.Get(0).(*model.Link)
	return link, args.Error(1)
}

func (m *mockStore) ListByOwner(ctx context.Context, ownerID uint64, page, size int) ([]model.Link, int64, error) {
	args := m.Called(ctx, ownerID, page, size)
	links, _ := args.Get(0).([]model.Link)
	return links, args.Get(1).(int64), args.Error(2)
}

func (m *mockStore) DeleteLink(ctx context.Context, shortKey string) error {
	return m.Called(ctx, shortKey).Error(0)
}

func (m *mockStore) DeleteClicksBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, shortKey string) (string, bool, error) {
	args := m.Called(ctx, shortKey)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, shortKey, targetURL string, ttl time.Duration) error {
	return m.Called(ctx, shortKey, targetURL, ttl).Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context, shortKey string) error {
	return m.Called(ctx, shortKey).Error(0)
}

// seqKeys 按顺序返回预设短码
type seqKeys struct {
	mu   sync.Mutex
	keys []string
	i    int
}

func (s *seqKeys) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.keys[s.i%len(s.keys)]
	s.i++
	return k, nil
}
