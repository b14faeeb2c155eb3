// Package app assembles the HTTP application from its dependencies.
package app

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

// Repositories groups the record store of every entity.
type Repositories struct {
	Categories repositories.CategoryRepository
	Products   repositories.ProductRepository
	Users      repositories.UserRepository
}

// NewGORMRepositories returns repositories backed by db.
func NewGORMRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Categories: repositories.NewGORMCategoryRepository(db),
		Products:   repositories.NewGORMProductRepository(db),
		Users:      repositories.NewGORMUserRepository(db),
	}
}

// NewMemoryRepositories returns repositories that keep everything in memory.
func NewMemoryRepositories() Repositories {
	categories := repositories.NewMemoryCategoryRepository()
	return Repositories{
		Categories: categories,
		Products:   repositories.NewMemoryProductRepository(categories),
		Users:      repositories.NewMemoryUserRepository(),
	}
}

// Dependencies are the collaborators of the application. Everything but
// Repos is optional.
type Dependencies struct {
	Repos  Repositories
	Events services.EventPublisher
	Cache  services.CategoryCache
	Images handlers.ImageStore
	// Checks are reported by /health; a failing check marks the service degraded.
	Checks map[string]func(ctx context.Context) error
}

// Services holds the business services built from Dependencies.
type Services struct {
	Auth       *services.AuthService
	Categories *services.CategoryService
	Products   *services.ProductService
	Users      *services.UserService
}

// NewServices builds the business services.
func NewServices(cfg *config.Config, deps Dependencies) Services {
	return Services{
		Auth:       services.NewAuthService(cfg.JWTSecret, cfg.JWTTTL),
		Categories: services.NewCategoryService(deps.Repos.Categories, deps.Cache, deps.Events),
		Products:   services.NewProductService(deps.Repos.Products, deps.Repos.Categories, deps.Events),
		Users:      services.NewUserService(deps.Repos.Users, services.NewBcryptHasher(0), deps.Events),
	}
}

// NewApp builds the fiber application with every route registered.
func NewApp(cfg *config.Config, deps Dependencies) *fiber.App {
	svc := NewServices(cfg, deps)

	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		Output: log.StandardLogger().WriterLevel(log.InfoLevel),
	}))
	app.Use(cors.New())

	app.Get("/health", healthHandler(deps.Checks))

	api := app.Group("/api")
	auth := middleware.AuthRequired(svc.Auth, svc.Users)

	handlers.NewUserHandler(svc.Users, svc.Auth, cfg.CookieSecure || cfg.IsProduction()).RegisterRoutes(api, auth)
	handlers.NewCategoryHandler(svc.Categories).RegisterRoutes(api, auth)
	handlers.NewProductHandler(svc.Products).RegisterRoutes(api, auth)
	handlers.NewUploadHandler(deps.Images).RegisterRoutes(api, auth)

	return app
}

func healthHandler(checks map[string]func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := "healthy"
		components := fiber.Map{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.WithError(err).WithField("component", name).Warn("health check failed")
				components[name] = "down"
				status = "degraded"
				continue
			}
			components[name] = "up"
		}

		code := fiber.StatusOK
		if status != "healthy" {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":     status,
			"time":       time.Now().Format(time.RFC3339),
			"components": components,
		})
	}
}
