package handler

import (
	"net/http"
	"strconv"

	"supplychain/internal/middleware"
	"supplychain/internal/usecase"
	"supplychain/internal/validator"

	"github.com/labstack/echo/v4"
)

// /inventory（ストア閲覧は公開、管理は売り手だけ）
type InventoryHandler struct {
	uc *usecase.InventoryUsecase
}

// DI
func NewInventoryHandler(uc *usecase.InventoryUsecase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

type AddStockRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity *int64 `json:"quantity"`
}

func (h *InventoryHandler) RegisterRoutes(e *echo.Echo, jwtSecret string) {
	g := e.Group("/inventory")

	//公開
	g.GET("/stores", h.listStores)
	g.GET("/stores/:sellerId", h.getStore)

	//売り手
	auth := middleware.AuthJWT(jwtSecret)
	seller := middleware.SellerRoleGuard()
	g.GET("/my", h.mine, auth, seller)
	g.POST("", h.add, auth, seller)
	g.PATCH("/:id", h.setQuantity, auth, seller)
	g.DELETE("/:id", h.remove, auth, seller)
}

func (h *InventoryHandler) listStores(c echo.Context) error {
	out, err := h.uc.ListStores(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /inventory/stores/:sellerId?role=RETAILER
func (h *InventoryHandler) getStore(c echo.Context) error {
	sellerID, err := strconv.ParseInt(c.Param("sellerId"), 10, 64)
	if err != nil || sellerID <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid seller id"})
	}
	role, err := validator.ValidateStoreRole(c.QueryParam("role"))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.GetStore(c.Request().Context(), sellerID, role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) mine(c echo.Context) error {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.ListMine(c.Request().Context(), ident)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) add(c echo.Context) error {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req AddStockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	in := usecase.AddStockInput{ProductID: req.ProductID, Quantity: req.Quantity}
	if err := validator.ValidateAddStock(in); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AddStock(c.Request().Context(), ident, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *InventoryHandler) setQuantity(c echo.Context) error {
	ident, id, ok, resp := identityAndID(c)
	if !ok {
		return resp
	}

	var req SetQuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if req.Quantity == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "quantity is required"})
	}
	if err := validator.ValidateSetQuantity(*req.Quantity); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.SetQuantity(c.Request().Context(), ident, id, *req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) remove(c echo.Context) error {
	ident, id, ok, resp := identityAndID(c)
	if !ok {
		return resp
	}

	if err := h.uc.Remove(c.Request().Context(), ident, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
