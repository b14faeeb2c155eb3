package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/services"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes. auth authenticates the caller.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	admin := middleware.AdminOnly()
	validID := middleware.ValidID("id")

	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Post("/", auth, admin, h.HandleCreateProduct)
	productRoutes.Get("/allProducts", h.HandleFeaturedProducts)
	productRoutes.Get("/top", h.HandleTopProducts)
	productRoutes.Get("/new", h.HandleNewProducts)
	productRoutes.Get("/:id", validID, h.HandleGetProductByID)
	productRoutes.Put("/:id", auth, admin, validID, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", auth, admin, validID, h.HandleDeleteProduct)
	productRoutes.Post("/:id/review", auth, validID, h.HandleAddReview)
}

// HandleListProducts returns one page of products matching ?keyword.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), c.Query("keyword"), c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// HandleFeaturedProducts returns the newest products with their categories.
func (h *ProductHandler) HandleFeaturedProducts(c *fiber.Ctx) error {
	products, err := h.service.ListFeatured(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// HandleTopProducts returns the best rated products.
func (h *ProductHandler) HandleTopProducts(c *fiber.Ctx) error {
	products, err := h.service.TopRated(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// HandleNewProducts returns the latest products.
func (h *ProductHandler) HandleNewProducts(c *fiber.Ctx) error {
	products, err := h.service.Newest(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// HandleGetProductByID returns a single product with its reviews.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var input services.ProductInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c, err)
	}
	product, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces the editable fields of a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var input services.ProductInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c, err)
	}
	product, err := h.service.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product and returns it, or null.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	product, err := h.service.Remove(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleAddReview adds the caller's review to a product.
func (h *ProductHandler) HandleAddReview(c *fiber.Ctx) error {
	var input services.ReviewInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c, err)
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return respondError(c, services.ErrAuth)
	}
	if _, err := h.service.AddReview(c.UserContext(), c.Params("id"), user, input); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Review added",
	})
}
