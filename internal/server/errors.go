package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/position"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/storage"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 400, etc.)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// errorStatus maps domain errors to an HTTP status, a message and a metrics reason
func errorStatus(err error) (code int, msg, reason string) {
	switch {
	case errors.Is(err, storage.ErrSnapshotNotFound):
		return http.StatusNotFound, "pool not found", "not_found"
	case errors.Is(err, amm.ErrPoolUninitialized):
		return http.StatusConflict, "pool uninitialized", "uninitialized"
	case errors.Is(err, amm.ErrInsufficientLiquidity):
		return http.StatusUnprocessableEntity, "insufficient liquidity", "insufficient_liquidity"
	case errors.Is(err, amm.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid amount", "invalid_amount"
	case errors.Is(err, position.ErrMalformedAttributes):
		return http.StatusBadRequest, "malformed attributes", "malformed_attributes"
	default:
		return http.StatusInternalServerError, "internal server error", "internal"
	}
}
