package handler

import (
	"net/http"
	"strconv"

	"supplychain/internal/domain/model"
	"supplychain/internal/middleware"
	"supplychain/internal/usecase"
	"supplychain/internal/validator"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderCreateRequest struct {
	ProductID       int64  `json:"product_id"`
	InventoryID     int64  `json:"inventory_id"`
	SellerID        int64  `json:"seller_id"`
	Quantity        int64  `json:"quantity"`
	DeliveryAddress string `json:"delivery_address"`
}

type OrderActionRequest struct {
	Action string `json:"action"`
}

type OrderStatusRequest struct {
	Status        model.OrderStatus `json:"status"`
	TransporterID *int64            `json:"transporter_id"`
	Description   string            `json:"description"`
}

type TrackingNoteRequest struct {
	Description string `json:"description"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, jwtSecret string) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(jwtSecret))

	buyer := middleware.BuyerRoleGuard()
	seller := middleware.SellerRoleGuard()

	g.POST("", h.create, buyer)
	g.GET("/buyer", h.listBuyer, buyer)
	g.GET("/seller", h.listSeller, seller)
	g.GET("/:id", h.detail)

	g.PATCH("/:id/cancel", h.cancel, buyer)
	g.PATCH("/:id/delivery", h.delivery, buyer)
	g.PATCH("/:id/process", h.process, seller)
	g.PATCH("/:id/status", h.updateStatus, seller)

	g.GET("/:id/tracking", h.tracking)
	g.POST("/:id/tracking", h.addTracking, seller)
}

func (h *OrderHandler) create(c echo.Context) error {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	in := usecase.PlaceOrderInput{
		ProductID:       req.ProductID,
		InventoryID:     req.InventoryID,
		SellerID:        req.SellerID,
		Quantity:        req.Quantity,
		DeliveryAddress: req.DeliveryAddress,
	}
	if err := validator.ValidatePlaceOrder(in); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), ident, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) listBuyer(c echo.Context) error {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	page, limit, err := parsePaging(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListBuyerOrders(c.Request().Context(), ident, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) listSeller(c echo.Context) error {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	page, limit, err := parsePaging(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListSellerOrders(c.Request().Context(), ident, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	ident, id, ok, resp := identityAndID(c)
	if !ok {
		return resp
	}

	out, err := h.uc.GetOrder(c.Request().Context(), ident, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	ident, id, ok, resp := identityAndID(c)
	if !ok {
		return resp
	}

	out, err := h.uc.CancelOrder(c.Request().Context(), ident, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// APPROVE / REJECT
func (h *OrderHandler) process(c echo.Context) error {
	ident, id, ok, resp := identityAndID(c)
	if !ok {
		return resp
	}

	var req OrderActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	decision, err := validator.ValidateProcessDecision(req.Action)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ProcessOrder(c.Request().Context(), ident, id, decision)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	ident, id, ok, resp := identityAndID(c)
	if !ok {
		return resp
	}

	var req OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	in := usecase.UpdateStatusInput{
		Status:        req.Status,
		TransporterID: req.TransporterID,
		Description:   req.Description,
	}
	if err := validator.ValidateUpdateStatus(in); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), ident, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CONFIRM / REJECT
func (h *OrderHandler) delivery(c echo.Context) error {
	ident, id, ok, resp := identityAndID(c)
	if !ok {
		return resp
	}

	var req OrderActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	decision, err := validator.ValidateDeliveryDecision(req.Action)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ConfirmDelivery(c.Request().Context(), ident, id, decision)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) tracking(c echo.Context) error {
	ident, id, ok, resp := identityAndID(c)
	if !ok {
		return resp
	}

	out, err := h.uc.ListTrackingEvents(c.Request().Context(), ident, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) addTracking(c echo.Context) error {
	ident, id, ok, resp := identityAndID(c)
	if !ok {
		return resp
	}

	var req TrackingNoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := validator.ValidateTrackingNote(req.Description); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AddTrackingNote(c.Request().Context(), ident, id, req.Description)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// 認証情報と :id をまとめて取る。失敗時はレスポンスを書いて ok=false
func identityAndID(c echo.Context) (model.Identity, int64, bool, error) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return model.Identity{}, 0, false, c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return model.Identity{}, 0, false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	return ident, id, true, nil
}

// page（default 1）, limit（default 20）
func parsePaging(c echo.Context) (int, int, error) {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, usecase.NewError(usecase.KindInvalidInput, "invalid page")
		}
		page = n
	}
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, usecase.NewError(usecase.KindInvalidInput, "invalid limit")
		}
		limit = n
	}
	if err := validator.ValidatePage(page, limit); err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}
