package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
)

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	IssueToken(userID string) (string, error)
	TokenTTL() time.Duration
}

// UserHandler handles HTTP requests for accounts and sessions.
type UserHandler struct {
	service      *services.UserService
	tokens       TokenIssuer
	secureCookie bool
}

// NewUserHandler creates a new UserHandler. secureCookie marks the session
// cookie as HTTPS only.
func NewUserHandler(service *services.UserService, tokens TokenIssuer, secureCookie bool) *UserHandler {
	return &UserHandler{
		service:      service,
		tokens:       tokens,
		secureCookie: secureCookie,
	}
}

// RegisterRoutes registers the user routes. auth authenticates the caller.
func (h *UserHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	admin := middleware.AdminOnly()
	validID := middleware.ValidID("id")

	userRoutes := router.Group("/users")
	userRoutes.Post("/", h.HandleRegister)
	userRoutes.Get("/", auth, admin, h.HandleListUsers)
	userRoutes.Post("/auth", h.HandleLogin)
	userRoutes.Post("/logout", h.HandleLogout)
	userRoutes.Get("/profile", auth, h.HandleGetProfile)
	userRoutes.Put("/profile", auth, h.HandleUpdateProfile)
	userRoutes.Get("/:id", auth, admin, validID, h.HandleGetUser)
	userRoutes.Put("/:id", auth, admin, validID, h.HandleUpdateUser)
	userRoutes.Delete("/:id", auth, admin, validID, h.HandleDeleteUser)
}

func (h *UserHandler) startSession(c *fiber.Ctx, user models.UserProfile) error {
	token, err := h.tokens.IssueToken(user.ID)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.tokens.TokenTTL()),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return nil
}

// HandleRegister opens an account and starts a session for it.
func (h *UserHandler) HandleRegister(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c, err)
	}
	user, err := h.service.Register(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.startSession(c, user); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleLogin checks credentials and starts a session.
func (h *UserHandler) HandleLogin(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c, err)
	}
	user, err := h.service.Login(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.startSession(c, user); err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleLogout ends the session by expiring its cookie.
func (h *UserHandler) HandleLogout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// HandleListUsers returns every account.
func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListAll(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// HandleGetProfile returns the caller's account.
func (h *UserHandler) HandleGetProfile(c *fiber.Ctx) error {
	current, _ := middleware.CurrentUser(c)
	user, err := h.service.GetSelf(c.UserContext(), current.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleUpdateProfile updates the caller's account.
func (h *UserHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var input services.ProfileInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c, err)
	}
	current, _ := middleware.CurrentUser(c)
	user, err := h.service.UpdateSelf(c.UserContext(), current.ID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleGetUser returns any account.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	user, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleUpdateUser lets an administrator change any account.
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	var input services.AdminUserInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c, err)
	}
	user, err := h.service.UpdateByID(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleDeleteUser deletes a non-admin account.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	if err := h.service.DeleteByID(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "User removed",
	})
}
