package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"myretail/internal/catalog"
	"myretail/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCatalogClient is a mock implementation of catalog.Client.
type MockCatalogClient struct {
	mock.Mock
}

func (m *MockCatalogClient) FetchDisplayName(ctx context.Context, productID int) (string, error) {
	args := m.Called(ctx, productID)
	return args.String(0), args.Error(1)
}

// MockPriceRepository is a mock implementation of PriceRepository.
type MockPriceRepository struct {
	mock.Mock
}

func (m *MockPriceRepository) FindByProductID(ctx context.Context, productID int) ([]model.Price, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Price), args.Error(1)
}

func (m *MockPriceRepository) SaveAll(ctx context.Context, prices []model.Price) ([]model.Price, error) {
	args := m.Called(ctx, prices)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Price), args.Error(1)
}

// memoryPriceRepository is an in-memory price store that counts writes.
type memoryPriceRepository struct {
	mu     sync.Mutex
	prices map[uuid.UUID]model.Price
	writes int
}

func newMemoryPriceRepository(prices ...model.Price) *memoryPriceRepository {
	repo := &memoryPriceRepository{prices: make(map[uuid.UUID]model.Price)}
	for _, p := range prices {
		repo.prices[p.ID] = p
	}
	return repo
}

func (r *memoryPriceRepository) FindByProductID(_ context.Context, productID int) ([]model.Price, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := []model.Price{}
	for _, p := range r.prices {
		if p.ProductID == productID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *memoryPriceRepository) SaveAll(_ context.Context, prices []model.Price) ([]model.Price, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writes++
	saved := make([]model.Price, len(prices))
	for i, p := range prices {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		r.prices[p.ID] = p
		saved[i] = p
	}
	return saved, nil
}

func (r *memoryPriceRepository) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func newPrice(value, currency string, productID int) model.Price {
	return model.Price{
		ID:           uuid.New(),
		Value:        decimal.RequireFromString(value),
		CurrencyCode: currency,
		ProductID:    productID,
	}
}

func TestProductService_GetProduct(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	widgetPrice := newPrice("9.99", "USD", 42)

	tests := []struct {
		name          string
		catalogName   string
		catalogErr    error
		storePrices   []model.Price
		storeErr      error
		expected      *model.Product
		expectedErr   error
		storeOptional bool
	}{
		{
			name:        "Composes catalog name and stored prices",
			catalogName: "Widget",
			storePrices: []model.Price{widgetPrice},
			expected:    &model.Product{ID: 42, Name: "Widget", CurrentPrice: []model.Price{widgetPrice}},
		},
		{
			name:        "Empty price set is valid",
			catalogName: "Widget",
			storePrices: []model.Price{},
			expected:    &model.Product{ID: 42, Name: "Widget", CurrentPrice: []model.Price{}},
		},
		{
			name:        "Nil price set becomes empty",
			catalogName: "Widget",
			storePrices: nil,
			expected:    &model.Product{ID: 42, Name: "Widget", CurrentPrice: []model.Price{}},
		},
		{
			name:          "Catalog not found",
			catalogErr:    fmt.Errorf("%w: productId 42", catalog.ErrNotFound),
			storePrices:   []model.Price{widgetPrice},
			expectedErr:   model.ErrProductNotFound,
			storeOptional: true,
		},
		{
			name:          "Catalog not found wins over store failure",
			catalogErr:    catalog.ErrNotFound,
			storeErr:      errors.New("connection refused"),
			expectedErr:   model.ErrProductNotFound,
			storeOptional: true,
		},
		{
			name:          "Catalog parse error",
			catalogErr:    &catalog.ParseError{ProductID: 42, Body: "{}", Err: errors.New(`missing "product"`)},
			expectedErr:   model.ErrCatalogParse,
			storeOptional: true,
		},
		{
			name:          "Catalog transport error",
			catalogErr:    &catalog.TransportError{ProductID: 42, StatusCode: 500},
			expectedErr:   model.ErrCatalogTransport,
			storeOptional: true,
		},
		{
			name:        "Store unavailable",
			catalogName: "Widget",
			storeErr:    errors.New("connection refused"),
			expectedErr: model.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCatalog := new(MockCatalogClient)
			mockRepo := new(MockPriceRepository)
			service := NewProductService(mockCatalog, mockRepo, logger)

			mockCatalog.On("FetchDisplayName", mock.Anything, 42).Return(tt.catalogName, tt.catalogErr)
			call := mockRepo.On("FindByProductID", mock.Anything, 42).Return(tt.storePrices, tt.storeErr)
			if tt.storeOptional {
				call.Maybe()
			}

			product, err := service.GetProduct(ctx, 42)

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, product)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, product)
			}

			mockCatalog.AssertExpectations(t)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestProductService_GetProduct_PreservesCause(t *testing.T) {
	mockCatalog := new(MockCatalogClient)
	mockRepo := new(MockPriceRepository)
	service := NewProductService(mockCatalog, mockRepo, zerolog.Nop())

	cause := &catalog.ParseError{ProductID: 7, Body: "<html/>", Err: errors.New("invalid character")}
	mockCatalog.On("FetchDisplayName", mock.Anything, 7).Return("", cause)
	mockRepo.On("FindByProductID", mock.Anything, 7).Return([]model.Price{}, nil).Maybe()

	_, err := service.GetProduct(context.Background(), 7)

	var parseErr *catalog.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "<html/>", parseErr.Body)
	assert.Equal(t, model.ErrCodeCatalogParse, model.CodeOf(err))
}

// slowCatalog answers after a delay unless its context ends first.
type slowCatalog struct {
	delay time.Duration
	name  string
}

func (c slowCatalog) FetchDisplayName(ctx context.Context, productID int) (string, error) {
	select {
	case <-time.After(c.delay):
		return c.name, nil
	case <-ctx.Done():
		return "", &catalog.TransportError{ProductID: productID, Err: ctx.Err()}
	}
}

func TestProductService_GetProduct_StoreFailureDoesNotCancelCatalog(t *testing.T) {
	mockRepo := new(MockPriceRepository)
	mockRepo.On("FindByProductID", mock.Anything, 42).Return(nil, errors.New("connection refused"))

	service := NewProductService(slowCatalog{delay: 50 * time.Millisecond, name: "Widget"}, mockRepo, zerolog.Nop())

	_, err := service.GetProduct(context.Background(), 42)

	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	mockRepo.AssertExpectations(t)
}

func TestProductService_UpdateProduct(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	current := newPrice("13.49", "USD", 42)
	existing := &model.Product{ID: 42, Name: "Widget", CurrentPrice: []model.Price{current}}

	repriced := current
	repriced.Value = decimal.RequireFromString("11.99")
	updated := &model.Product{ID: 42, Name: "Widget", CurrentPrice: []model.Price{repriced}}

	t.Run("No-op update returns submission without writing", func(t *testing.T) {
		mockCatalog := new(MockCatalogClient)
		mockRepo := new(MockPriceRepository)
		service := NewProductService(mockCatalog, mockRepo, logger)

		mockCatalog.On("FetchDisplayName", mock.Anything, 42).Return("Widget", nil).Once()
		mockRepo.On("FindByProductID", mock.Anything, 42).Return([]model.Price{current}, nil).Once()

		submitted := &model.Product{ID: 42, Name: "Widget", CurrentPrice: []model.Price{current}}
		result, err := service.UpdateProduct(ctx, 42, submitted)

		require.NoError(t, err)
		assert.Same(t, submitted, result)
		mockRepo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
		mockCatalog.AssertExpectations(t)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Changed price is saved and re-read", func(t *testing.T) {
		mockCatalog := new(MockCatalogClient)
		mockRepo := new(MockPriceRepository)
		service := NewProductService(mockCatalog, mockRepo, logger)

		mockCatalog.On("FetchDisplayName", mock.Anything, 42).Return("Widget", nil).Twice()
		mockRepo.On("FindByProductID", mock.Anything, 42).Return([]model.Price{current}, nil).Once()
		mockRepo.On("SaveAll", mock.Anything, []model.Price{repriced}).Return([]model.Price{repriced}, nil).Once()
		mockRepo.On("FindByProductID", mock.Anything, 42).Return([]model.Price{repriced}, nil).Once()

		result, err := service.UpdateProduct(ctx, 42, updated)

		require.NoError(t, err)
		assert.True(t, updated.Equal(result))
		assert.False(t, existing.Equal(result))
		mockCatalog.AssertExpectations(t)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Mismatched price owner is rejected before writing", func(t *testing.T) {
		mockCatalog := new(MockCatalogClient)
		mockRepo := new(MockPriceRepository)
		service := NewProductService(mockCatalog, mockRepo, logger)

		mockCatalog.On("FetchDisplayName", mock.Anything, 42).Return("Widget", nil).Once()
		mockRepo.On("FindByProductID", mock.Anything, 42).Return([]model.Price{current}, nil).Once()

		stolen := newPrice("1.00", "USD", 99)
		submitted := &model.Product{ID: 42, Name: "Widget", CurrentPrice: []model.Price{repriced, stolen}}

		result, err := service.UpdateProduct(ctx, 42, submitted)

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, model.ErrInvalidUpdateRequest)
		assert.Contains(t, err.Error(), stolen.ID.String())
		assert.Contains(t, err.Error(), "expected 42, got 99")
		mockRepo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
	})

	t.Run("Mismatched body id is rejected before writing", func(t *testing.T) {
		mockCatalog := new(MockCatalogClient)
		mockRepo := new(MockPriceRepository)
		service := NewProductService(mockCatalog, mockRepo, logger)

		mockCatalog.On("FetchDisplayName", mock.Anything, 42).Return("Widget", nil).Once()
		mockRepo.On("FindByProductID", mock.Anything, 42).Return([]model.Price{current}, nil).Once()

		submitted := &model.Product{ID: 43, Name: "Widget", CurrentPrice: []model.Price{repriced}}

		_, err := service.UpdateProduct(ctx, 42, submitted)

		assert.ErrorIs(t, err, model.ErrInvalidUpdateRequest)
		assert.Contains(t, err.Error(), "body id 43")
		mockRepo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
	})

	t.Run("Repeated price id is rejected before writing", func(t *testing.T) {
		mockCatalog := new(MockCatalogClient)
		mockRepo := new(MockPriceRepository)
		service := NewProductService(mockCatalog, mockRepo, logger)

		mockCatalog.On("FetchDisplayName", mock.Anything, 42).Return("Widget", nil).Once()
		mockRepo.On("FindByProductID", mock.Anything, 42).Return([]model.Price{current}, nil).Once()

		// The conflicting entry comes first so a last-wins index would see the stored view
		submitted := &model.Product{ID: 42, Name: "Widget", CurrentPrice: []model.Price{repriced, current}}

		result, err := service.UpdateProduct(ctx, 42, submitted)

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, model.ErrInvalidUpdateRequest)
		assert.Contains(t, err.Error(), current.ID.String())
		mockRepo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
	})

	t.Run("Unknown product is not found and never written", func(t *testing.T) {
		mockCatalog := new(MockCatalogClient)
		mockRepo := new(MockPriceRepository)
		service := NewProductService(mockCatalog, mockRepo, logger)

		mockCatalog.On("FetchDisplayName", mock.Anything, 42).Return("", catalog.ErrNotFound).Once()
		mockRepo.On("FindByProductID", mock.Anything, 42).Return([]model.Price{}, nil).Maybe()

		_, err := service.UpdateProduct(ctx, 42, updated)

		assert.ErrorIs(t, err, model.ErrProductNotFound)
		mockRepo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
	})

	t.Run("Store failure on save", func(t *testing.T) {
		mockCatalog := new(MockCatalogClient)
		mockRepo := new(MockPriceRepository)
		service := NewProductService(mockCatalog, mockRepo, logger)

		mockCatalog.On("FetchDisplayName", mock.Anything, 42).Return("Widget", nil).Once()
		mockRepo.On("FindByProductID", mock.Anything, 42).Return([]model.Price{current}, nil).Once()
		mockRepo.On("SaveAll", mock.Anything, mock.Anything).Return(nil, errors.New("deadlock detected")).Once()

		_, err := service.UpdateProduct(ctx, 42, updated)

		assert.ErrorIs(t, err, model.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "deadlock detected")
		mockRepo.AssertExpectations(t)
	})

	t.Run("Nil submission is rejected", func(t *testing.T) {
		mockCatalog := new(MockCatalogClient)
		mockRepo := new(MockPriceRepository)
		service := NewProductService(mockCatalog, mockRepo, logger)

		_, err := service.UpdateProduct(ctx, 42, nil)

		assert.ErrorIs(t, err, model.ErrInvalidUpdateRequest)
		mockCatalog.AssertNotCalled(t, "FetchDisplayName", mock.Anything, mock.Anything)
	})
}

func TestProductService_OwnershipInvariant(t *testing.T) {
	ctx := context.Background()

	for _, foreignID := range []int{0, -1, 41, 43, 1 << 30} {
		t.Run(fmt.Sprintf("foreign productId %d", foreignID), func(t *testing.T) {
			mockCatalog := new(MockCatalogClient)
			mockCatalog.On("FetchDisplayName", mock.Anything, 42).Return("Widget", nil)
			repo := newMemoryPriceRepository(newPrice("5.00", "USD", 42))
			service := NewProductService(mockCatalog, repo, zerolog.Nop())

			submitted := &model.Product{
				ID:           42,
				Name:         "Widget",
				CurrentPrice: []model.Price{newPrice("4.00", "USD", 42), newPrice("3.00", "USD", foreignID)},
			}

			_, err := service.UpdateProduct(ctx, 42, submitted)

			assert.ErrorIs(t, err, model.ErrInvalidUpdateRequest)
			assert.Zero(t, repo.writeCount())
		})
	}
}

func TestProductService_RepeatedPriceIDLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()

	mockCatalog := new(MockCatalogClient)
	mockCatalog.On("FetchDisplayName", mock.Anything, 42).Return("Widget", nil)

	stored := newPrice("9.99", "USD", 42)
	repo := newMemoryPriceRepository(stored)
	service := NewProductService(mockCatalog, repo, zerolog.Nop())

	conflicting := stored
	conflicting.Value = decimal.RequireFromString("5.00")

	for _, order := range [][]model.Price{{conflicting, stored}, {stored, conflicting}} {
		_, err := service.UpdateProduct(ctx, 42, &model.Product{ID: 42, Name: "Widget", CurrentPrice: order})
		assert.ErrorIs(t, err, model.ErrInvalidUpdateRequest)
	}

	assert.Zero(t, repo.writeCount())
	product, err := service.GetProduct(ctx, 42)
	require.NoError(t, err)
	require.Len(t, product.CurrentPrice, 1)
	assert.True(t, stored.Equal(product.CurrentPrice[0]))
}

func TestProductService_RoundTrip(t *testing.T) {
	ctx := context.Background()

	mockCatalog := new(MockCatalogClient)
	mockCatalog.On("FetchDisplayName", mock.Anything, 13860428).Return("The Big Lebowski (Blu-ray)", nil)

	repo := newMemoryPriceRepository(newPrice("13.49", "USD", 13860428))
	service := NewProductService(mockCatalog, repo, zerolog.Nop())

	current, err := service.GetProduct(ctx, 13860428)
	require.NoError(t, err)

	// Submitting the current view is idempotent and writes nothing.
	same, err := service.UpdateProduct(ctx, 13860428, current)
	require.NoError(t, err)
	assert.True(t, current.Equal(same))
	assert.Zero(t, repo.writeCount())

	next := &model.Product{
		ID:   13860428,
		Name: current.Name,
		CurrentPrice: []model.Price{
			{ID: current.CurrentPrice[0].ID, Value: decimal.RequireFromString("10.99"), CurrencyCode: "USD", ProductID: 13860428},
		},
	}

	updated, err := service.UpdateProduct(ctx, 13860428, next)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.writeCount())
	assert.True(t, next.Equal(updated))

	reread, err := service.GetProduct(ctx, 13860428)
	require.NoError(t, err)
	assert.True(t, next.Equal(reread))
}

func TestProductService_ConcurrentReads(t *testing.T) {
	mockCatalog := new(MockCatalogClient)
	mockCatalog.On("FetchDisplayName", mock.Anything, mock.AnythingOfType("int")).Return("Widget", nil)

	repo := newMemoryPriceRepository(newPrice("1.00", "USD", 1), newPrice("2.00", "USD", 2))
	service := NewProductService(mockCatalog, repo, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			product, err := service.GetProduct(context.Background(), id)
			if assert.NoError(t, err) {
				assert.Equal(t, id, product.ID)
				assert.Len(t, product.CurrentPrice, 1)
			}
		}(i%2 + 1)
	}
	wg.Wait()
}
