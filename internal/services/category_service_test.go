package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

func TestCategoryService_Create(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCategoryRepository)
	mockCache := new(MockCategoryCache)
	mockPublisher := new(MockPublisher)
	service := services.NewCategoryService(mockRepo, mockCache, mockPublisher)

	mockRepo.On("GetByName", ctx, "Books").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.Category")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Category).ID = "cat-1"
	}).Return(nil).Once()
	mockCache.On("InvalidateCategories", ctx).Return(nil).Once()
	mockPublisher.On("Publish", services.EventCategoryCreated, mock.Anything).Return(nil).Once()

	category, err := service.Create(ctx, "  Books ")
	require.NoError(t, err)
	assert.Equal(t, "cat-1", category.ID)
	assert.Equal(t, "Books", category.Name)

	// Test blank name
	_, err = service.Create(ctx, "   ")
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Equal(t, "Name is required", err.Error())

	// Test existing name
	mockRepo.On("GetByName", ctx, "Books").Return(&models.Category{ID: "cat-1", Name: "Books"}, nil).Once()
	_, err = service.Create(ctx, "Books")
	assert.ErrorIs(t, err, services.ErrConflict)

	// Test race lost to the unique index
	mockRepo.On("GetByName", ctx, "Games").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.Category")).Return(repositories.ErrDuplicate).Once()
	_, err = service.Create(ctx, "Games")
	assert.ErrorIs(t, err, services.ErrConflict)

	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestCategoryService_Rename(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCategoryRepository)
	service := services.NewCategoryService(mockRepo, nil, nil)

	mockRepo.On("GetByID", ctx, "missing").Return(nil, repositories.ErrNotFound).Once()
	_, err := service.Rename(ctx, "missing", "Name")
	assert.ErrorIs(t, err, services.ErrNotFound)

	mockRepo.On("GetByID", ctx, "cat-1").Return(&models.Category{ID: "cat-1", Name: "Books"}, nil).Once()
	_, err = service.Rename(ctx, "cat-1", "")
	assert.ErrorIs(t, err, services.ErrValidation)

	mockRepo.On("GetByID", ctx, "cat-1").Return(&models.Category{ID: "cat-1", Name: "Books"}, nil).Once()
	mockRepo.On("Update", ctx, &models.Category{ID: "cat-1", Name: "Novels"}).Return(nil).Once()
	category, err := service.Rename(ctx, "cat-1", "Novels")
	require.NoError(t, err)
	assert.Equal(t, "Novels", category.Name)

	mockRepo.On("GetByID", ctx, "cat-1").Return(&models.Category{ID: "cat-1", Name: "Novels"}, nil).Once()
	mockRepo.On("Update", ctx, mock.Anything).Return(repositories.ErrDuplicate).Once()
	_, err = service.Rename(ctx, "cat-1", "Games")
	assert.ErrorIs(t, err, services.ErrConflict)

	mockRepo.AssertExpectations(t)
}

func TestCategoryService_RemoveAndGet(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCategoryRepository)
	service := services.NewCategoryService(mockRepo, nil, nil)

	mockRepo.On("Delete", ctx, "cat-1").Return(&models.Category{ID: "cat-1", Name: "Books"}, nil).Once()
	deleted, err := service.Remove(ctx, "cat-1")
	require.NoError(t, err)
	assert.Equal(t, "Books", deleted.Name)

	mockRepo.On("Delete", ctx, "cat-1").Return(nil, repositories.ErrNotFound).Once()
	deleted, err = service.Remove(ctx, "cat-1")
	assert.NoError(t, err)
	assert.Nil(t, deleted)

	mockRepo.On("GetByID", ctx, "cat-1").Return(nil, repositories.ErrNotFound).Once()
	category, err := service.GetByID(ctx, "cat-1")
	assert.NoError(t, err)
	assert.Nil(t, category)

	mockRepo.On("GetByID", ctx, "cat-2").Return(nil, errors.New("connection reset")).Once()
	_, err = service.GetByID(ctx, "cat-2")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, services.ErrNotFound))

	mockRepo.AssertExpectations(t)
}

func TestCategoryService_ListUsesCache(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCategoryRepository)
	mockCache := new(MockCategoryCache)
	service := services.NewCategoryService(mockRepo, mockCache, nil)

	stored := []models.Category{{ID: "cat-1", Name: "Books"}}

	// miss: read the store and fill the cache under the generation seen
	mockCache.On("GetCategories", ctx).Return(nil, int64(7), false, nil).Once()
	mockRepo.On("List", ctx).Return(stored, nil).Once()
	mockCache.On("SetCategories", ctx, int64(7), stored).Return(nil).Once()
	categories, err := service.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, categories)

	// hit: the store is not consulted
	mockCache.On("GetCategories", ctx).Return(stored, int64(7), true, nil).Once()
	categories, err = service.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, categories)

	// broken cache falls back to the store and is not written
	mockCache.On("GetCategories", ctx).Return(nil, int64(0), false, errors.New("redis down")).Once()
	mockRepo.On("List", ctx).Return(stored, nil).Once()
	categories, err = service.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, categories)

	// a failed write is only logged
	mockCache.On("GetCategories", ctx).Return(nil, int64(8), false, nil).Once()
	mockRepo.On("List", ctx).Return(stored, nil).Once()
	mockCache.On("SetCategories", ctx, int64(8), stored).Return(errors.New("redis down")).Once()
	_, err = service.List(ctx)
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

// generationCache keeps cache entries in process, keyed by generation.
type generationCache struct {
	mu         sync.Mutex
	generation int64
	entries    map[int64][]models.Category
}

func newGenerationCache() *generationCache {
	return &generationCache{entries: map[int64][]models.Category{}}
}

func (c *generationCache) GetCategories(_ context.Context) ([]models.Category, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	categories, ok := c.entries[c.generation]
	return categories, c.generation, ok, nil
}

func (c *generationCache) SetCategories(_ context.Context, generation int64, categories []models.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[generation] = categories
	return nil
}

func (c *generationCache) InvalidateCategories(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return nil
}

// pausingCategoryRepository holds the first List call after it has read the
// store until resume is closed.
type pausingCategoryRepository struct {
	repositories.CategoryRepository
	once   sync.Once
	read   chan struct{}
	resume chan struct{}
}

func (r *pausingCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	categories, err := r.CategoryRepository.List(ctx)
	r.once.Do(func() {
		close(r.read)
		<-r.resume
	})
	return categories, err
}

func TestCategoryService_ListReadBeforeCreateIsNotCached(t *testing.T) {
	ctx := context.Background()
	repo := &pausingCategoryRepository{
		CategoryRepository: repositories.NewMemoryCategoryRepository(),
		read:               make(chan struct{}),
		resume:             make(chan struct{}),
	}
	service := services.NewCategoryService(repo, newGenerationCache(), nil)

	done := make(chan []models.Category, 1)
	go func() {
		categories, err := service.List(ctx)
		assert.NoError(t, err)
		done <- categories
	}()

	<-repo.read
	_, err := service.Create(ctx, "Shoes")
	require.NoError(t, err)
	close(repo.resume)
	assert.Empty(t, <-done, "the paused listing was read before the create")

	categories, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Shoes", categories[0].Name)
}
