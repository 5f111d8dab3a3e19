package handler

import (
	"net/http"

	"orderhub/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var kindStatus = map[usecase.ErrorKind]int{
	usecase.KindCustomerNotFound:  http.StatusNotFound,
	usecase.KindProductNotFound:   http.StatusNotFound,
	usecase.KindOrderNotFound:     http.StatusNotFound,
	usecase.KindInsufficientStock: http.StatusConflict,
	usecase.KindInvalidStatus:     http.StatusBadRequest,
	usecase.KindInvalidInput:      http.StatusBadRequest,
	usecase.KindStorageFailure:    http.StatusInternalServerError,
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := usecase.AsAppError(err); ok {
		status, known := kindStatus[ae.Kind]
		if !known {
			status = http.StatusInternalServerError
		}
		//中身(DBエラー等)は外に出さない
		msg := ae.Message
		if ae.Kind == usecase.KindStorageFailure {
			msg = "internal error"
		}
		return c.JSON(status, ErrorResponse{Error: string(ae.Kind), Message: msg})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: string(usecase.KindStorageFailure), Message: "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(usecase.KindInvalidInput), Message: msg})
}
