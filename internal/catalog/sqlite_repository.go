package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const productColumns = `id, name, description, price, category, stock, image_url, active, created_at`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var (
		where []string
		args  []interface{}
	)
	if c := strings.ToLower(strings.TrimSpace(filter.Category)); c != "" && c != "all" {
		where = append(where, "category = ?")
		args = append(args, c)
	}
	if filter.ActiveOnly {
		where = append(where, "active = 1")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// Create assigns an id and creation time when they are unset.
func (r *SQLiteRepository) Create(ctx context.Context, p *domain.Product) error {
	if err := Validate(*p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		p.Stock,
		p.ImageURL,
		p.Active,
		p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, p *domain.Product) error {
	if err := Validate(*p); err != nil {
		return err
	}

	query := `UPDATE products
	          SET name = ?, description = ?, price = ?, category = ?, stock = ?, image_url = ?, active = ?
	          WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		p.Stock,
		p.ImageURL,
		p.Active,
		p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(s scanner) (domain.Product, error) {
	var (
		p       domain.Product
		created int64
	)
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Category,
		&p.Stock,
		&p.ImageURL,
		&p.Active,
		&created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return p, err
	}
	if err != nil {
		return p, fmt.Errorf("failed to scan product: %w", err)
	}
	p.CreatedAt = time.Unix(created, 0).UTC()
	return p, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}
