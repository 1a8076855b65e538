package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropmart/dropmart-backend/api/middleware"
	internalorders "github.com/dropmart/dropmart-backend/internal/orders"
	"github.com/dropmart/dropmart-backend/pkg/enums"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/pagination"
)

type stubOrders struct {
	internalorders.Service
	mineUser   uuid.UUID
	mineParams pagination.Params
	getMineErr error
	adminInput internalorders.AdminListInput
	update     internalorders.UpdateStatusInput
	updateErr  error
}

func (s *stubOrders) ListMine(_ context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	s.mineUser, s.mineParams = userID, params
	return &internalorders.OrderList{Items: []internalorders.OrderDTO{}}, nil
}

func (s *stubOrders) GetMine(_ context.Context, userID, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	if s.getMineErr != nil {
		return nil, s.getMineErr
	}
	return &internalorders.OrderDTO{ID: orderID, UserID: userID}, nil
}

func (s *stubOrders) ListAll(_ context.Context, input internalorders.AdminListInput) (*internalorders.OrderList, error) {
	s.adminInput = input
	return &internalorders.OrderList{Items: []internalorders.OrderDTO{}}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, input internalorders.UpdateStatusInput) (*internalorders.OrderDTO, error) {
	s.update = input
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &internalorders.OrderDTO{ID: input.OrderID, Status: input.Status}, nil
}

func router(svc internalorders.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/orders", List(svc, nil))
	r.Get("/orders/{orderId}", Detail(svc, nil))
	r.Get("/admin/orders", AdminList(svc, nil))
	r.Post("/admin/orders/{orderId}/status", AdminUpdateStatus(svc, nil))
	return r
}

func serve(h http.Handler, method, path, body string, user uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != uuid.Nil {
		req = req.WithContext(middleware.WithUserID(req.Context(), user.String()))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListUsesCallerAndPagination(t *testing.T) {
	svc := &stubOrders{}
	user := uuid.New()
	rec := serve(router(svc), http.MethodGet, "/orders?limit=5&cursor=abc", "", user)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user, svc.mineUser)
	assert.Equal(t, pagination.Params{Limit: 5, Cursor: "abc"}, svc.mineParams)
}

func TestListRequiresCaller(t *testing.T) {
	rec := serve(router(&stubOrders{}), http.MethodGet, "/orders", "", uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDetailMapsErrors(t *testing.T) {
	svc := &stubOrders{getMineErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	rec := serve(router(svc), http.MethodGet, "/orders/"+uuid.NewString(), "", uuid.New())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router(svc), http.MethodGet, "/orders/nope", "", uuid.New())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminListStatusFilter(t *testing.T) {
	svc := &stubOrders{}
	rec := serve(router(svc), http.MethodGet, "/admin/orders?status=paid", "", uuid.New())
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.adminInput.Status)
	assert.Equal(t, enums.OrderStatusPaid, *svc.adminInput.Status)

	rec = serve(router(svc), http.MethodGet, "/admin/orders?status=lost", "", uuid.New())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUpdateStatus(t *testing.T) {
	svc := &stubOrders{}
	actor := uuid.New()
	orderID := uuid.New()

	rec := serve(router(svc), http.MethodPost, "/admin/orders/"+orderID.String()+"/status", `{"status":"shipped","reason":"  tracking 123 "}`, actor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orderID, svc.update.OrderID)
	assert.Equal(t, enums.OrderStatusShipped, svc.update.Status)
	assert.Equal(t, "tracking 123", svc.update.Reason)
	assert.Equal(t, actor, svc.update.ActorUserID)

	rec = serve(router(svc), http.MethodPost, "/admin/orders/"+orderID.String()+"/status", `{"status":"paid"}`, actor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.updateErr = pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed")
	rec = serve(router(svc), http.MethodPost, "/admin/orders/"+orderID.String()+"/status", `{"status":"delivered"}`, actor)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
