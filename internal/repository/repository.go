package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rfq/internal/config"
	"rfq/internal/models"

	postgres "rfq/internal/repository/db"
)

type Repository struct {
	db  *sql.DB
	cfg *config.PostgresConfig
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewRepository(db *sql.DB, cfg *config.PostgresConfig) (*Repository, error) {
	var err error

	repo := &Repository{
		db:  db,
		cfg: cfg,
	}

	if repo.cfg == nil {
		repo.cfg, err = config.NewPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("repository.NewRepository: could not load postgres config: %w", err)
		}
	}

	if repo.db == nil {
		repo.db, err = postgres.NewPostgresDB(repo.cfg)
		if err != nil {
			return nil, fmt.Errorf("repository.NewRepository: could not open postgres db: %w", err)
		}
	}

	if repo.cfg.AutoMigrateUp == "true" {
		err = repo.MigrateUp()
		if err != nil {
			return nil, err
		}
	}

	return repo, nil
}

func (repo *Repository) MigrateUp() error {
	err := postgres.MigrateUp(repo.db, repo.cfg.MigrationsURL)
	if err != nil {
		return fmt.Errorf("repository.Repository.MigrateUp: %w", err)
	}
	return nil
}

func (repo *Repository) MigrateDown() error {
	err := postgres.MigrateDown(repo.db, repo.cfg.MigrationsURL)
	if err != nil {
		return fmt.Errorf("repository.Repository.MigrateDown: %w", err)
	}
	return nil
}

func (repo *Repository) Close() error {
	var migErr error
	if repo.cfg.AutoMigrateDown == "true" {
		migErr = repo.MigrateDown()
	}

	err := repo.db.Close()
	return errors.Join(migErr, err)
}

func (repo *Repository) conn(tx *sql.Tx) querier {
	if tx == nil {
		return repo.db
	}
	return tx
}

//// Identity

func (repo *Repository) UserByUUID(ctx context.Context, UUID string) (models.User, bool, error) {
	return repo.userBy(ctx, "id", UUID)
}

func (repo *Repository) UserByUsername(ctx context.Context, username string) (models.User, bool, error) {
	return repo.userBy(ctx, "username", username)
}

func (repo *Repository) userBy(ctx context.Context, column, value string) (models.User, bool, error) {
	var user models.User
	query := `
	SELECT
		id,
		username,
		role,
		created_at,
		updated_at
	FROM users
	WHERE ` + column + ` = $1
	LIMIT 1
	`
	row := repo.db.QueryRowContext(ctx, query, value)
	err := row.Scan(&user.Id, &user.Username, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user, false, nil
	} else if err != nil {
		return user, false, fmt.Errorf("repository.Repository.userBy(%s): %w", column, err)
	}

	return user, true, nil
}

func (repo *Repository) AddUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
	INSERT INTO users (username, role)
	VALUES ($1, $2)
	RETURNING id, created_at, updated_at
	`
	row := repo.db.QueryRowContext(ctx, query, user.Username, user.Role)
	err := row.Scan(&user.Id, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return user, fmt.Errorf("repository.Repository.AddUser: %w", err)
	}
	return user, nil
}

//// Catalog

func (repo *Repository) ProductByUUID(ctx context.Context, UUID string) (models.Product, bool, error) {
	var product models.Product
	query := `
	SELECT
		id, name, image
	FROM products
	WHERE id = $1
	`
	row := repo.db.QueryRowContext(ctx, query, UUID)
	err := row.Scan(&product.Id, &product.Name, &product.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return product, false, nil
	} else if err != nil {
		return product, false, fmt.Errorf("repository.Repository.ProductByUUID: %w", err)
	}
	return product, true, nil
}

func (repo *Repository) AddProduct(ctx context.Context, product models.Product) (models.Product, error) {
	query := `
	INSERT INTO products (name, image)
	VALUES ($1, $2)
	RETURNING id
	`
	row := repo.db.QueryRowContext(ctx, query, product.Name, product.Image)
	err := row.Scan(&product.Id)
	if err != nil {
		return product, fmt.Errorf("repository.Repository.AddProduct: %w", err)
	}
	return product, nil
}

func (repo *Repository) UpdateProduct(ctx context.Context, product models.Product) error {
	_, err := repo.db.ExecContext(ctx, "UPDATE products SET (name, image, updated_at) = ($1, $2, CURRENT_TIMESTAMP) WHERE id = $3", product.Name, product.Image, product.Id)
	if err != nil {
		return fmt.Errorf("repository.Repository.UpdateProduct: %w", err)
	}
	return nil
}

//// Service

func wrapRollbackErr(tx *sql.Tx, err error) error {
	rollerr := tx.Rollback()
	if rollerr == nil {
		return err
	}
	return fmt.Errorf("failed to rollback transaction after previous error: %w, %w", rollerr, err)
}

func statusStrings(statuses []models.RFQStatus) []string {
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, string(s))
	}
	return parts
}

//// Test utils

func (repo *Repository) TestGetDB() *sql.DB {
	return repo.db
}
