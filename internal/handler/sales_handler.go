package handler

import (
	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SalesHandler struct {
	service service.SalesService
}

func NewSalesHandler(s service.SalesService) *SalesHandler {
	return &SalesHandler{service: s}
}

func (h *SalesHandler) Record(c *fiber.Ctx) error {
	var req service.RecordSaleInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(err)
	}

	order, err := h.service.RecordSale(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Sale recorded", "order": order})
}

func (h *SalesHandler) List(c *fiber.Ctx) error {
	orders, err := h.service.ListSales(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"orders": orders})
}

func (h *SalesHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return apperror.Validation("Invalid sale ID", map[string]string{"id": "numeric"})
	}
	order, err := h.service.GetSale(c.UserContext(), middleware.UserID(c), uint(id))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"order": order})
}
