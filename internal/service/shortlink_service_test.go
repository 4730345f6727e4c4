package service

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linkly/internal/apperrors"
	"linkly/internal/cache"
	"linkly/internal/config"
	"linkly/internal/keygen"
	"linkly/internal/model"
	"linkly/internal/repository"
)

func newService(store LinkStore, keys KeyGenerator, c cache.Cache, opts ShortLinkOptions) *ShortLinkService {
	if opts.MaxKeyAttempts == 0 {
		opts.MaxKeyAttempts = 5
	}
	if opts.MaxURLLength == 0 {
		opts.MaxURLLength = 2048
	}
	logger := zap.NewNop()
	resolver := newResolver(store, c, 0)
	clicks := NewClickCounter(store, config.ClickConfig{}, logger)
	return NewShortLinkService(store, keys, resolver, clicks, opts, logger)
}

func uid(v uint64) *uint64 { return &v }

func TestCreateLink_RetriesOnCollision(t *testing.T) {
	store := new(mockStore)
	store.On("CreateLink", mock.Anything, mock.MatchedBy(func(l *model.Link) bool { return l.ShortKey != "ccc" })).
		Return(apperrors.ErrDuplicateKey).Twice()
	store.On("CreateLink", mock.Anything, mock.MatchedBy(func(l *model.Link) bool { return l.ShortKey == "ccc" })).
		Return(nil).Once()
	c := cache.NewMemoryCache(time.Minute)

	svc := newService(store, &seqKeys{keys: []string{"aaa", "bbb", "ccc"}}, c, ShortLinkOptions{})
	link, err := svc.CreateLink(context.Background(), "https://example.com/page", nil)
	require.NoError(t, err)
	assert.Equal(t, "ccc", link.ShortKey)
	assert.Equal(t, model.HashTarget("https://example.com/page"), link.TargetHash)
	store.AssertNumberOfCalls(t, "CreateLink", 3)

	cached, ok, _ := c.Get(context.Background(), "ccc")
	assert.True(t, ok, "creation populates the cache")
	assert.Equal(t, "https://example.com/page", cached)
}

func TestCreateLink_KeySpaceExhausted(t *testing.T) {
	store := new(mockStore)
	store.On("CreateLink", mock.Anything, mock.Anything).Return(apperrors.ErrDuplicateKey)

	svc := newService(store, &seqKeys{keys: []string{"aaa"}}, cache.Noop{}, ShortLinkOptions{MaxKeyAttempts: 5})
	_, err := svc.CreateLink(context.Background(), "https://example.com", nil)
	assert.ErrorIs(t, err, apperrors.ErrKeySpaceExhausted)
	store.AssertNumberOfCalls(t, "CreateLink", 5)
}

func TestCreateLink_StoreErrorPropagates(t *testing.T) {
	store := new(mockStore)
	store.On("CreateLink", mock.Anything, mock.Anything).Return(errUnavailable)

	svc := newService(store, &seqKeys{keys: []string{"aaa"}}, cache.Noop{}, ShortLinkOptions{})
	_, err := svc.CreateLink(context.Background(), "https://example.com", nil)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	store.AssertNumberOfCalls(t, "CreateLink", 1)
}

func TestCreateLink_CacheFailureDoesNotFailCreation(t *testing.T) {
	store := new(mockStore)
	store.On("CreateLink", mock.Anything, mock.Anything).Return(nil)
	c := new(mockCache)
	c.On("Set", mock.Anything, "aaa", "https://example.com", time.Hour).Return(apperrors.ErrCacheUnavailable)

	svc := newService(store, &seqKeys{keys: []string{"aaa"}}, c, ShortLinkOptions{})
	link, err := svc.CreateLink(context.Background(), "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "aaa", link.ShortKey)
	c.AssertExpectations(t)
}

func TestCreateLink_InvalidURL(t *testing.T) {
	store := new(mockStore)
	svc := newService(store, &seqKeys{keys: []string{"aaa"}}, cache.Noop{}, ShortLinkOptions{
		BlockedDomains: []string{"evil.example"},
	})

	for _, target := range []string{"", "not a url", "ftp://example.com", "https://evil.example/x"} {
		_, err := svc.CreateLink(context.Background(), target, nil)
		require.Error(t, err, target)
		assert.ErrorIs(t, err, apperrors.ErrInvalidURL, target)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
	}
	store.AssertNotCalled(t, "CreateLink", mock.Anything, mock.Anything)
}

func TestCreateLink_ReuseExisting(t *testing.T) {
	store := new(mockStore)
	existing := &model.Link{ShortKey: "old", TargetURL: "https://example.com", OwnerID: uid(7)}
	store.On("FindByOwnerAndTarget", mock.Anything, uint64(7), "https://example.com").Return(existing, nil)
	store.On("FindByOwnerAndTarget", mock.Anything, uint64(8), "https://example.com").Return(nil, apperrors.ErrNotFound)
	store.On("CreateLink", mock.Anything, mock.Anything).Return(nil)

	svc := newService(store, &seqKeys{keys: []string{"new"}}, cache.Noop{}, ShortLinkOptions{ReuseExisting: true})

	link, err := svc.CreateLink(context.Background(), "https://example.com", uid(7))
	require.NoError(t, err)
	assert.Equal(t, "old", link.ShortKey)

	link, err = svc.CreateLink(context.Background(), "https://example.com", uid(8))
	require.NoError(t, err)
	assert.Equal(t, "new", link.ShortKey)

	// 匿名创建不复用
	_, err = svc.CreateLink(context.Background(), "https://example.com", nil)
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "FindByOwnerAndTarget", 2)
	store.AssertNumberOfCalls(t, "CreateLink", 2)
}

func TestResolve_ClickFailureDoesNotFailRedirect(t *testing.T) {
	store := new(mockStore)
	store.On("GetLinkByKey", mock.Anything, "abc").
		Return(&model.Link{ShortKey: "abc", TargetURL: "https://example.com"}, nil)
	store.On("IncrementClick", mock.Anything, "abc", mock.Anything).Return(int64(0), errUnavailable)

	svc := newService(store, &seqKeys{keys: []string{"x"}}, cache.Noop{}, ShortLinkOptions{})
	target, err := svc.Resolve(context.Background(), "abc", model.ClickMeta{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)
	store.AssertCalled(t, "IncrementClick", mock.Anything, "abc", mock.Anything)
}

func TestResolve_NotFoundRecordsNoClick(t *testing.T) {
	store := new(mockStore)
	store.On("GetLinkByKey", mock.Anything, "nope").Return(nil, apperrors.ErrNotFound)

	svc := newService(store, &seqKeys{keys: []string{"x"}}, cache.Noop{}, ShortLinkOptions{})
	_, err := svc.Resolve(context.Background(), "nope", model.ClickMeta{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	store.AssertNotCalled(t, "IncrementClick", mock.Anything, mock.Anything, mock.Anything)
}

func TestLookup_RecordsNoClick(t *testing.T) {
	store := new(mockStore)
	store.On("GetLinkByKey", mock.Anything, "abc").
		Return(&model.Link{ShortKey: "abc", TargetURL: "https://example.com"}, nil)

	svc := newService(store, &seqKeys{keys: []string{"x"}}, cache.Noop{}, ShortLinkOptions{})
	target, err := svc.Lookup(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)
	store.AssertNotCalled(t, "IncrementClick", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteLink(t *testing.T) {
	store := new(mockStore)
	store.On("GetLinkByKey", mock.Anything, "mine").
		Return(&model.Link{ShortKey: "mine", TargetURL: "https://example.com", OwnerID: uid(1)}, nil)
	store.On("GetLinkByKey", mock.Anything, "anon").
		Return(&model.Link{ShortKey: "anon", TargetURL: "https://example.com"}, nil)
	store.On("DeleteLink", mock.Anything, "mine").Return(nil)
	c := cache.NewMemoryCache(time.Minute)
	require.NoError(t, c.Set(context.Background(), "mine", "https://example.com", time.Hour))

	svc := newService(store, &seqKeys{keys: []string{"x"}}, c, ShortLinkOptions{})

	assert.ErrorIs(t, svc.DeleteLink(context.Background(), "mine", 2), apperrors.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteLink(context.Background(), "anon", 1), apperrors.ErrForbidden)
	store.AssertNotCalled(t, "DeleteLink", mock.Anything, mock.Anything)

	require.NoError(t, svc.DeleteLink(context.Background(), "mine", 1))
	_, ok, _ := c.Get(context.Background(), "mine")
	assert.False(t, ok, "cache entry is invalidated")
}

func TestListLinks_NormalizesPaging(t *testing.T) {
	store := new(mockStore)
	store.On("ListByOwner", mock.Anything, uint64(1), 1, 10).
		Return([]model.Link{{ShortKey: "a"}, {ShortKey: "b"}}, int64(12), nil)

	svc := newService(store, &seqKeys{keys: []string{"x"}}, cache.Noop{}, ShortLinkOptions{})
	page, err := svc.ListLinks(context.Background(), 1, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Size)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.TotalPage)
	assert.Len(t, page.List, 2)
}

func TestPurgeClickEvents(t *testing.T) {
	store := new(mockStore)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.On("DeleteClicksBefore", mock.Anything, now.AddDate(0, 0, -30)).Return(int64(4), nil)

	svc := newService(store, &seqKeys{keys: []string{"x"}}, cache.Noop{}, ShortLinkOptions{RetentionDays: 30})
	svc.now = func() time.Time { return now }

	n, err := svc.PurgeClickEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	disabled := newService(store, &seqKeys{keys: []string{"x"}}, cache.Noop{}, ShortLinkOptions{})
	n, err = disabled.PurgeClickEvents(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	store.AssertNumberOfCalls(t, "DeleteClicksBefore", 1)
}

// 以下用 sqlite 和真实组件跑完整流程

func newIntegrationService(t *testing.T, c cache.Cache) *ShortLinkService {
	t.Helper()

	db, err := repository.OpenDB(config.DBConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "linkly.db") + "?_busy_timeout=5000",
		MaxOpenConns: 1,
	}, zap.NewNop(), zap.NewAtomicLevelAt(zap.WarnLevel))
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	t.Cleanup(func() { _ = repository.CloseDB(db) })

	gen, err := keygen.New(6, config.DefaultAlphabet)
	require.NoError(t, err)

	return newService(repository.NewLinkStore(db, 0), gen, c, ShortLinkOptions{})
}

func TestIntegration_CreateResolveStats(t *testing.T) {
	svc := newIntegrationService(t, cache.NewMemoryCache(time.Minute))
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, "https://example.com/page", nil)
	require.NoError(t, err)
	assert.Len(t, link.ShortKey, 6)

	stats, err := svc.GetStats(ctx, link.ShortKey)
	require.NoError(t, err)
	assert.Zero(t, stats.ClickCount)

	for i := 0; i < 3; i++ {
		target, err := svc.Resolve(ctx, link.ShortKey, model.ClickMeta{})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/page", target)
	}

	stats, err = svc.GetStats(ctx, link.ShortKey)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.ClickCount)
	assert.Equal(t, "https://example.com/page", stats.TargetURL)

	_, err = svc.Resolve(ctx, "zzzzzz", model.ClickMeta{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestIntegration_CacheOutage(t *testing.T) {
	c := new(mockCache)
	c.On("Get", mock.Anything, mock.Anything).Return("", false, apperrors.ErrCacheUnavailable)
	c.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(apperrors.ErrCacheUnavailable)
	svc := newIntegrationService(t, c)
	ctx := context.Background()

	urls := []string{"https://example.com/a", "http://example.org/b?c=d", "https://example.net/path#frag"}
	keys := make([]string, len(urls))
	for i, u := range urls {
		link, err := svc.CreateLink(ctx, u, nil)
		require.NoError(t, err)
		keys[i] = link.ShortKey
	}
	for i, k := range keys {
		target, err := svc.Resolve(ctx, k, model.ClickMeta{})
		require.NoError(t, err)
		assert.Equal(t, urls[i], target)
	}
}

func TestIntegration_ConcurrentResolve(t *testing.T) {
	svc := newIntegrationService(t, cache.NewMemoryCache(time.Minute))
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, "https://example.com/hot", nil)
	require.NoError(t, err)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Resolve(ctx, link.ShortKey, model.ClickMeta{})
		}()
	}
	wg.Wait()

	stats, err := svc.GetStats(ctx, link.ShortKey)
	require.NoError(t, err)
	assert.Equal(t, int64(n), stats.ClickCount)
}
