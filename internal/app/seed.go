package app

import (
	"context"
	"fmt"

	"rfq/internal/models"

	gofakeit "github.com/brianvoe/gofakeit/v6"
)

type SeedResult struct {
	Users    []models.User
	Products []models.Product
}

// Seed fills an empty development database with fake users of every role
// and a small product catalog.
func (app *App) Seed(ctx context.Context, usersPerRole, products int) (SeedResult, error) {
	var result SeedResult

	for _, role := range []models.Role{models.RoleBuyer, models.RoleSupplier, models.RoleAdmin} {
		for i := 0; i < usersPerRole; i++ {
			user, err := app.repo.AddUser(ctx, models.User{
				Username: fmt.Sprintf("%s_%s_%d", role, gofakeit.Username(), i),
				Role:     role,
			})
			if err != nil {
				return result, fmt.Errorf("app.App.Seed: %w", err)
			}
			result.Users = append(result.Users, user)
		}
	}

	for i := 0; i < products; i++ {
		product, err := app.repo.AddProduct(ctx, models.Product{
			Name:  gofakeit.ProductName(),
			Image: gofakeit.URL(),
		})
		if err != nil {
			return result, fmt.Errorf("app.App.Seed: %w", err)
		}
		result.Products = append(result.Products, product)
	}

	return result, nil
}
