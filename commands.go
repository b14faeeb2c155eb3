package main

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"storefront/internal/app"
	"storefront/internal/models"
	"storefront/internal/services"
)

// withServices loads the config, connects the record store and hands the
// business services to fn.
func withServices(fn func(ctx context.Context, svc app.Services) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		res, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer res.Close()
		return fn(cmd.Context(), app.NewServices(cfg, res.deps))
	}
}

func newCreateAdminCmd() *cobra.Command {
	var input services.RegisterInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: withServices(func(ctx context.Context, svc app.Services) error {
			profile, err := svc.Users.CreateAdmin(ctx, input)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"id":    profile.ID,
				"email": profile.Email,
			}).Info("Administrator created")
			return nil
		}),
	}
	cmd.Flags().StringVar(&input.Username, "username", "admin", "display name of the administrator")
	cmd.Flags().StringVar(&input.Email, "email", "", "login email of the administrator")
	cmd.Flags().StringVar(&input.Password, "password", "", "login password of the administrator")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog",
		RunE: withServices(func(ctx context.Context, svc app.Services) error {
			created, err := seedCatalog(ctx, svc)
			if err != nil {
				return err
			}
			log.WithField("products", created).Info("Demo catalog seeded")
			return nil
		}),
	}
}

type seedProduct struct {
	name, description, brand, image, category string
	price                                     float64
	quantity                                  int
}

var demoCatalog = []seedProduct{
	{"Laptop", "High performance laptop", "Lenovo", "/images/laptop.jpg", "Electronics", 1200.00, 10},
	{"Keyboard", "Mechanical keyboard", "Keychron", "/images/keyboard.jpg", "Accessories", 75.00, 25},
	{"Mouse", "Ergonomic wireless mouse", "Logitech", "/images/mouse.jpg", "Accessories", 25.00, 50},
	{"Airpods Wireless Bluetooth Headphones", "Bluetooth technology lets you connect it with compatible devices wirelessly", "Apple", "/images/airpods.jpg", "Electronics", 89.99, 10},
}

// seedCatalog creates the demo categories and products. Entries that already
// exist are skipped, so seeding twice is harmless. It returns the number of
// products created.
func seedCatalog(ctx context.Context, svc app.Services) (int, error) {
	categoryIDs := map[string]string{}
	for _, p := range demoCatalog {
		if _, ok := categoryIDs[p.category]; ok {
			continue
		}
		id, err := ensureCategory(ctx, svc.Categories, p.category)
		if err != nil {
			return 0, err
		}
		categoryIDs[p.category] = id
	}

	created := 0
	for _, p := range demoCatalog {
		exists, err := productExists(ctx, svc.Products, p.name)
		if err != nil {
			return created, err
		}
		if exists {
			log.WithField("product", p.name).Debug("Already seeded")
			continue
		}

		price, quantity := p.price, p.quantity
		product, err := svc.Products.Create(ctx, services.ProductInput{
			Name:        p.name,
			Description: p.description,
			Quantity:    &quantity,
			Price:       &price,
			Category:    categoryIDs[p.category],
			Brand:       p.brand,
			Image:       p.image,
		})
		if err != nil {
			return created, fmt.Errorf("seeding product %s: %w", p.name, err)
		}
		log.WithFields(log.Fields{"product": product.Name, "id": product.ID}).Info("Seeded product")
		created++
	}
	return created, nil
}

func ensureCategory(ctx context.Context, categories *services.CategoryService, name string) (string, error) {
	category, err := categories.Create(ctx, name)
	if err == nil {
		return category.ID, nil
	}
	if !errors.Is(err, services.ErrConflict) {
		return "", fmt.Errorf("seeding category %s: %w", name, err)
	}

	all, err := categories.List(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range all {
		if c.Name == name {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("category %s reported as existing but not listed", name)
}

func productExists(ctx context.Context, products *services.ProductService, name string) (bool, error) {
	for page := 1; ; page++ {
		result, err := products.List(ctx, name, page)
		if err != nil {
			return false, err
		}
		if containsProduct(result.Products, name) {
			return true, nil
		}
		if !result.HasMore {
			return false, nil
		}
	}
}

func containsProduct(products []models.Product, name string) bool {
	for _, p := range products {
		if p.Name == name {
			return true
		}
	}
	return false
}
