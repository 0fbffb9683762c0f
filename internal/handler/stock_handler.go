package handler

import (
	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type StockHandler struct {
	service service.LedgerService
}

func NewStockHandler(s service.LedgerService) *StockHandler {
	return &StockHandler{service: s}
}

func (h *StockHandler) Record(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	var req service.RecordMovementInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(err)
	}

	movement, stock, err := h.service.Record(c.UserContext(), middleware.UserID(c), id, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Stock movement recorded",
		"movement":      movement,
		"current_stock": stock,
	})
}

func (h *StockHandler) History(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	movements, err := h.service.History(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"movements": movements})
}

func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	rec, err := h.service.Reconcile(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"reconciliation": rec})
}
