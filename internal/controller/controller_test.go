package controller_test

import (
	"context"
	"testing"

	"github.com/huyndq/phonecart/internal/controller"
	apperrors "github.com/huyndq/phonecart/internal/errors"
	"github.com/huyndq/phonecart/internal/events"
	"github.com/huyndq/phonecart/internal/guestcart"
	"github.com/huyndq/phonecart/internal/kv"
	"github.com/huyndq/phonecart/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCartAPI struct {
	mock.Mock
}

func (m *mockCartAPI) GetCart(ctx context.Context) (*models.ServerCart, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ServerCart), args.Error(1)
}

func (m *mockCartAPI) UpdateQuantity(ctx context.Context, itemID int64, quantity int) (*models.ServerCart, error) {
	args := m.Called(ctx, itemID, quantity)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ServerCart), args.Error(1)
}

func (m *mockCartAPI) UpdateColor(ctx context.Context, itemID, colorID int64) (*models.ServerCart, error) {
	args := m.Called(ctx, itemID, colorID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ServerCart), args.Error(1)
}

func (m *mockCartAPI) RemoveItem(ctx context.Context, itemID int64) (*models.ServerCart, error) {
	args := m.Called(ctx, itemID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ServerCart), args.Error(1)
}

func (m *mockCartAPI) ClearCart(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockCartAPI) Validate(ctx context.Context) (*models.CartValidation, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.CartValidation), args.Error(1)
}

type stubCreds struct {
	authed bool
}

func (s *stubCreds) IsAuthenticated() bool { return s.authed }

func serverCartFixture() *models.ServerCart {
	return &models.ServerCart{
		Items: []models.ServerCartItem{
			{
				ID:          1,
				Product:     models.Product{ID: 5, Name: "Phone A", StockQuantity: 10},
				Color:       models.Color{ID: 2, Name: "Đen"},
				Quantity:    1,
				UnitPrice:   100000,
				LineTotal:   100000,
				IsAvailable: true,
			},
			{
				ID:          2,
				Product:     models.Product{ID: 7, Name: "Phone B", StockQuantity: 3},
				Color:       models.Color{ID: 1, Name: "Trắng"},
				Quantity:    1,
				UnitPrice:   50000,
				LineTotal:   50000,
				IsAvailable: true,
			},
			{
				ID:          3,
				Product:     models.Product{ID: 9, Name: "Phone C", StockQuantity: 0},
				Color:       models.Color{ID: 1, Name: "Trắng"},
				Quantity:    1,
				UnitPrice:   75000,
				LineTotal:   75000,
				IsAvailable: false,
				StockStatus: "out_of_stock",
			},
		},
		TotalItems:          3,
		TotalQuantity:       3,
		HasUnavailableItems: true,
	}
}

func setup(t *testing.T, authed bool) (*controller.Controller, *mockCartAPI, *guestcart.Store, *events.Bus) {
	t.Helper()

	fileStore, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() { fileStore.Close() })

	guest := guestcart.NewStore(fileStore, nil)
	api := &mockCartAPI{}
	bus := events.NewBus()

	return controller.New(api, guest, &stubCreds{authed: authed}, bus, nil), api, guest, bus
}

func TestRefreshGuestBuildsSnapshotFromStore(t *testing.T) {
	ctx := t.Context()
	ctrl, api, guest, _ := setup(t, false)

	guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
	guest.Add(ctx, models.GuestCartItem{ProductID: 7, ColorID: 1, Quantity: 1})

	require.NoError(t, ctrl.Refresh(ctx))

	snap, ok := ctrl.Snapshot().(controller.GuestSnapshot)
	require.True(t, ok)
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, int64(5), snap.Lines[0].ProductID)
	assert.Equal(t, 5, snap.TotalQuantity())
	api.AssertNotCalled(t, "GetCart", mock.Anything)
}

func TestRefreshAuthenticatedFetchesServerCart(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, _ := setup(t, true)

	api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()

	require.NoError(t, ctrl.Refresh(ctx))

	snap, ok := ctrl.Snapshot().(controller.AuthenticatedSnapshot)
	require.True(t, ok)
	assert.Len(t, snap.Cart.Items, 3)
	api.AssertExpectations(t)
}

func TestRefreshSanitizesDisplayStrings(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, _ := setup(t, true)

	cart := serverCartFixture()
	cart.Items[0].Product.Name = `Phone <script>alert("x")</script>A`

	api.On("GetCart", ctx).Return(cart, nil).Once()

	require.NoError(t, ctrl.Refresh(ctx))

	snap := ctrl.Snapshot().(controller.AuthenticatedSnapshot)
	assert.Equal(t, "Phone A", snap.Cart.Items[0].Product.Name)
}

func TestUpdateQuantityBelowOneNeverReachesBackend(t *testing.T) {
	ctx := t.Context()
	ctrl, api, guest, _ := setup(t, false)

	guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
	require.NoError(t, ctrl.Refresh(ctx))

	err := ctrl.UpdateQuantity(ctx, 1, 0)

	require.Error(t, err)
	assert.Equal(t, "Số lượng phải lớn hơn 0", ctrl.Err())
	assert.Equal(t, 4, guest.Get(ctx)[0].Quantity, "store untouched")
	api.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestGuestUpdateQuantityIsSynchronous(t *testing.T) {
	ctx := t.Context()
	ctrl, api, guest, bus := setup(t, false)

	guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
	require.NoError(t, ctrl.Refresh(ctx))

	emitted := 0
	bus.Subscribe(events.SignalCartChanged, func() { emitted++ })

	require.NoError(t, ctrl.UpdateQuantity(ctx, 1, 9))

	snap := ctrl.Snapshot().(controller.GuestSnapshot)
	assert.Equal(t, 9, snap.Lines[0].Quantity)
	assert.Equal(t, 9, guest.Get(ctx)[0].Quantity)
	assert.Equal(t, 1, emitted)
	assert.Empty(t, ctrl.Err())
	api.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "GetCart", mock.Anything)
}

func TestAuthenticatedUpdateQuantityRefetches(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, bus := setup(t, true)

	api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
	require.NoError(t, ctrl.Refresh(ctx))

	emitted := 0
	bus.Subscribe(events.SignalCartChanged, func() { emitted++ })

	updated := serverCartFixture()
	updated.Items[0].Quantity = 2
	updated.Items[0].LineTotal = 200000

	api.On("UpdateQuantity", ctx, int64(1), 2).Return(serverCartFixture(), nil).Once()
	api.On("GetCart", ctx).Return(updated, nil).Once()

	require.NoError(t, ctrl.UpdateQuantity(ctx, 1, 2))

	snap := ctrl.Snapshot().(controller.AuthenticatedSnapshot)
	assert.Equal(t, float64(200000), snap.Cart.Items[0].LineTotal, "view follows the refetch, not a local patch")
	assert.Equal(t, 1, emitted)
	assert.False(t, ctrl.IsUpdating(1), "in-flight marker released")
	api.AssertExpectations(t)
}

func TestAuthenticatedUpdateQuantityStockGuard(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, _ := setup(t, true)

	api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
	require.NoError(t, ctrl.Refresh(ctx))

	err := ctrl.UpdateQuantity(ctx, 2, 4) // stock is 3

	require.Error(t, err)
	assert.Equal(t, "Số lượng vượt quá số lượng tồn kho", ctrl.Err())
	api.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthenticatedUpdateQuantityReleasesMarkerOnError(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, _ := setup(t, true)

	api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
	require.NoError(t, ctrl.Refresh(ctx))

	api.On("UpdateQuantity", ctx, int64(1), 2).
		Return(nil, apperrors.ServerRejectedError("Sản phẩm đã hết hàng", 409)).Once()

	err := ctrl.UpdateQuantity(ctx, 1, 2)

	require.Error(t, err)
	assert.Equal(t, "Sản phẩm đã hết hàng", ctrl.Err())
	assert.False(t, ctrl.IsUpdating(1))
	api.AssertExpectations(t)
}

func TestGuestUpdateColorRequiresAuthentication(t *testing.T) {
	ctx := t.Context()
	ctrl, api, guest, _ := setup(t, false)

	guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
	require.NoError(t, ctrl.Refresh(ctx))

	err := ctrl.UpdateColor(ctx, 1, 3)

	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAuthRequired, appErr.Code)
	assert.Equal(t, "Vui lòng đăng nhập để đổi màu sản phẩm", ctrl.Err())
	assert.Equal(t, int64(2), guest.Get(ctx)[0].ColorID, "guest line keeps its color")
	api.AssertNotCalled(t, "UpdateColor", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthenticatedUpdateColorRefetches(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, bus := setup(t, true)

	api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
	require.NoError(t, ctrl.Refresh(ctx))

	emitted := 0
	bus.Subscribe(events.SignalCartChanged, func() { emitted++ })

	recolored := serverCartFixture()
	recolored.Items[0].Color = models.Color{ID: 3, Name: "Xanh"}

	api.On("UpdateColor", ctx, int64(1), int64(3)).Return(serverCartFixture(), nil).Once()
	api.On("GetCart", ctx).Return(recolored, nil).Once()

	require.NoError(t, ctrl.UpdateColor(ctx, 1, 3))

	snap := ctrl.Snapshot().(controller.AuthenticatedSnapshot)
	assert.Equal(t, "Xanh", snap.Cart.Items[0].Color.Name, "view follows the refetch, not a local patch")
	assert.Equal(t, 1, emitted)
	assert.False(t, ctrl.IsUpdating(1))
	assert.Empty(t, ctrl.Err())
	api.AssertExpectations(t)
}

func TestRemoveItemRequiresConfirmation(t *testing.T) {
	ctx := t.Context()
	ctrl, api, guest, _ := setup(t, false)

	guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
	require.NoError(t, ctrl.Refresh(ctx))

	require.NoError(t, ctrl.RemoveItem(ctx, 1, func() bool { return false }))

	assert.Len(t, guest.Get(ctx), 1, "declined confirmation removes nothing")
	api.AssertNotCalled(t, "RemoveItem", mock.Anything, mock.Anything)
}

func TestGuestRemoveItem(t *testing.T) {
	ctx := t.Context()
	ctrl, _, guest, bus := setup(t, false)

	guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
	guest.Add(ctx, models.GuestCartItem{ProductID: 7, ColorID: 1, Quantity: 1})
	require.NoError(t, ctrl.Refresh(ctx))

	emitted := 0
	bus.Subscribe(events.SignalCartChanged, func() { emitted++ })

	require.NoError(t, ctrl.RemoveItem(ctx, 1, func() bool { return true }))

	items := guest.Get(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].ProductID)
	assert.Equal(t, 1, emitted)
}

func TestAuthenticatedRemovePrunesSelection(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, _ := setup(t, true)

	api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
	require.NoError(t, ctrl.Refresh(ctx))

	ctrl.ToggleSelect(1)
	ctrl.ToggleSelect(2)
	require.Equal(t, []int64{1, 2}, ctrl.SelectedIDs())

	afterRemove := serverCartFixture()
	afterRemove.Items = afterRemove.Items[1:]

	api.On("RemoveItem", ctx, int64(1)).Return(afterRemove, nil).Once()
	api.On("GetCart", ctx).Return(afterRemove, nil).Once()

	require.NoError(t, ctrl.RemoveItem(ctx, 1, nil))

	assert.Equal(t, []int64{2}, ctrl.SelectedIDs(), "removed id leaves the selection in the same operation")
	assert.False(t, ctrl.IsRemoving(1))
	api.AssertExpectations(t)
}

func TestSelectionNeverHoldsAbsentIDs(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, _ := setup(t, true)

	api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
	require.NoError(t, ctrl.Refresh(ctx))

	ctrl.ToggleSelect(1)
	ctrl.ToggleSelect(2)

	shrunk := serverCartFixture()
	shrunk.Items = shrunk.Items[:1] // only id 1 remains

	api.On("GetCart", ctx).Return(shrunk, nil).Once()
	require.NoError(t, ctrl.Refresh(ctx))

	assert.Equal(t, []int64{1}, ctrl.SelectedIDs())
}

func TestGuestItemsAreNeverSelectable(t *testing.T) {
	ctx := t.Context()
	ctrl, _, guest, _ := setup(t, false)

	guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
	require.NoError(t, ctrl.Refresh(ctx))

	ctrl.ToggleSelect(1)

	assert.Empty(t, ctrl.SelectedIDs())
	assert.NotEmpty(t, ctrl.Err())
}

func TestUnavailableItemsAreNeverSelectable(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, _ := setup(t, true)

	api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
	require.NoError(t, ctrl.Refresh(ctx))

	ctrl.ToggleSelect(3) // out of stock

	assert.Empty(t, ctrl.SelectedIDs())
}

func TestToggleSelectAll(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, _ := setup(t, true)

	api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
	require.NoError(t, ctrl.Refresh(ctx))

	ctrl.ToggleSelectAll()
	assert.Equal(t, []int64{1, 2}, ctrl.SelectedIDs(), "selects every selectable item, skipping unavailable ones")

	ctrl.ToggleSelectAll()
	assert.Empty(t, ctrl.SelectedIDs(), "second toggle clears a full selection")

	ctrl.ToggleSelect(1)
	ctrl.ToggleSelectAll()
	assert.Equal(t, []int64{1, 2}, ctrl.SelectedIDs(), "partial selection toggles to full")
}

func TestTotalSumsLineTotalOverSelection(t *testing.T) {
	ctx := t.Context()
	ctrl, api, _, _ := setup(t, true)

	api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
	require.NoError(t, ctrl.Refresh(ctx))

	assert.Zero(t, ctrl.Total(), "nothing selected, nothing summed")

	ctrl.ToggleSelect(1)
	assert.Equal(t, float64(100000), ctrl.Total())

	// changing selection changes the total without any network call
	ctrl.ToggleSelect(1)
	ctrl.ToggleSelect(2)
	assert.Equal(t, float64(50000), ctrl.Total())

	api.AssertNumberOfCalls(t, "GetCart", 1)
}

func TestGuestTotalIsUnknown(t *testing.T) {
	ctx := t.Context()
	ctrl, _, guest, _ := setup(t, false)

	guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
	require.NoError(t, ctrl.Refresh(ctx))

	assert.Zero(t, ctrl.Total())
}

func TestCheckout(t *testing.T) {
	ctx := t.Context()

	t.Run("guest branch refuses and asks for authentication", func(t *testing.T) {
		ctrl, _, guest, _ := setup(t, false)

		guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
		require.NoError(t, ctrl.Refresh(ctx))

		_, err := ctrl.Checkout()

		require.Error(t, err)

		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeAuthRequired, appErr.Code)
	})

	t.Run("authenticated branch needs a selection", func(t *testing.T) {
		ctrl, api, _, _ := setup(t, true)

		api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
		require.NoError(t, ctrl.Refresh(ctx))

		_, err := ctrl.Checkout()

		require.Error(t, err)
		assert.NotEmpty(t, ctrl.Err())
	})

	t.Run("authenticated branch hands over selected ids", func(t *testing.T) {
		ctrl, api, _, _ := setup(t, true)

		api.On("GetCart", ctx).Return(serverCartFixture(), nil).Once()
		require.NoError(t, ctrl.Refresh(ctx))

		ctrl.ToggleSelect(2)
		ctrl.ToggleSelect(1)

		ids, err := ctrl.Checkout()

		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids)
		assert.Empty(t, ctrl.Err())
	})
}

func TestClearCartGuest(t *testing.T) {
	ctx := t.Context()
	ctrl, _, guest, bus := setup(t, false)

	guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
	require.NoError(t, ctrl.Refresh(ctx))

	emitted := 0
	bus.Subscribe(events.SignalCartChanged, func() { emitted++ })

	require.NoError(t, ctrl.ClearCart(ctx))

	assert.Empty(t, guest.Get(ctx))
	assert.Equal(t, 1, emitted)

	snap, ok := ctrl.Snapshot().(controller.GuestSnapshot)
	require.True(t, ok)
	assert.Empty(t, snap.Lines)
}

func TestErrorSlotLastWinsAndClearsOnSuccess(t *testing.T) {
	ctx := t.Context()
	ctrl, _, guest, _ := setup(t, false)

	guest.Add(ctx, models.GuestCartItem{ProductID: 5, ColorID: 2, Quantity: 4})
	require.NoError(t, ctrl.Refresh(ctx))

	_ = ctrl.UpdateQuantity(ctx, 1, 0)
	assert.Equal(t, "Số lượng phải lớn hơn 0", ctrl.Err())

	require.NoError(t, ctrl.UpdateQuantity(ctx, 1, 2))
	assert.Empty(t, ctrl.Err(), "next successful action clears the slot")
}
