package handler

import (
	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

func productID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("Invalid product ID", map[string]string{"id": "uuid"})
	}
	return id, nil
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.service.ListActive(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"products": model.ToProductResponses(products)})
}

func (h *ProductHandler) Upsert(c *fiber.Ctx) error {
	var req service.UpsertProductInput
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(err)
	}

	product, err := h.service.Upsert(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product saved successfully",
		"product": product.ToResponse(),
	})
}

// Search looks a product up by barcode.
// GET /api/v1/products/search?barcode=...
func (h *ProductHandler) Search(c *fiber.Ctx) error {
	product, err := h.service.FindByBarcode(c.UserContext(), middleware.UserID(c), c.Query("barcode"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"product": product.ToResponse()})
}

func (h *ProductHandler) ListByCategory(c *fiber.Ctx) error {
	categoryID, err := c.ParamsInt("categoryId")
	if err != nil || categoryID <= 0 {
		return apperror.Validation("Invalid category ID", map[string]string{"categoryId": "numeric"})
	}
	products, err := h.service.ListByCategory(c.UserContext(), middleware.UserID(c), uint(categoryID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"products": model.ToProductResponses(products)})
}

func (h *ProductHandler) Deactivate(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	if err := h.service.Deactivate(c.UserContext(), middleware.UserID(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product deactivated"})
}
