package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SuccessResponse is the webhook wire format for accepted deliveries.
// Message is set when a delivery was acknowledged but deliberately skipped.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func respondSuccess(c echo.Context) error {
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func respondSkipped(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: message})
}
