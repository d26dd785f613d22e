package middleware

import (
	"net/http"

	"supplychain/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// contextに入っているactive_roleが売り手のロールかどうかを確認します。
func SellerRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//SUPPLIER/DISTRIBUTOR/RETAILERだけ許可
			if !ident.ActiveRole.IsSeller() {
				return c.JSON(http.StatusForbidden, errorJSON("seller role required"))
			}

			return next(c)
		}
	}
}

// ADMINは注文できない
func BuyerRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if ident.ActiveRole == model.RoleAdmin {
				return c.JSON(http.StatusForbidden, errorJSON("buyer role required"))
			}
			return next(c)
		}
	}
}
