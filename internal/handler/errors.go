package handler

import (
	"net/http"

	"supplychain/internal/domain/model"
	"supplychain/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string            `json:"error"`
	Kind  string            `json:"kind,omitempty"`
	From  model.OrderStatus `json:"from,omitempty"`
	To    model.OrderStatus `json:"to,omitempty"`
}

// SuccessResponse は { message: string } の形
type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := usecase.AsError(err); ok {
		status := StatusForKind(ue.Kind)
		//500は中身を出さない
		if status == http.StatusInternalServerError {
			return c.JSON(status, ErrorResponse{Error: "internal error", Kind: string(ue.Kind)})
		}
		return c.JSON(status, ErrorResponse{
			Error: ue.Message,
			Kind:  string(ue.Kind),
			From:  ue.From,
			To:    ue.To,
		})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func StatusForKind(k usecase.ErrorKind) int {
	switch k {
	case usecase.KindNotFound, usecase.KindTransporterNotFound:
		return http.StatusNotFound
	case usecase.KindUnauthorized:
		return http.StatusForbidden
	case usecase.KindConflictingOpenOrders:
		return http.StatusConflict
	case usecase.KindInvalidTransition,
		usecase.KindInsufficientStock,
		usecase.KindInvalidSeller,
		usecase.KindInvalidQuantity,
		usecase.KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
