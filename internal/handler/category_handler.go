package handler

import (
	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CategoryHandler struct {
	service service.CategoryService
}

func NewCategoryHandler(s service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: s}
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) List(c *fiber.Ctx) error {
	categories, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// Create answers 201 for a new category and 200 when the name already exists.
func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req createCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(err)
	}

	category, created, err := h.service.Create(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	if !created {
		return c.JSON(fiber.Map{"message": "Category already exists", "category": category})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Category created", "category": category})
}

func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return apperror.Validation("Invalid category ID", map[string]string{"id": "numeric"})
	}
	if err := h.service.Delete(c.UserContext(), uint(id)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Category deleted"})
}
