// Package catalog is the read side of the product catalog plus the admin
// operations that maintain it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/DNLCodess/ReezBlank/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Filter narrows List. An empty or "all" category matches every category.
type Filter struct {
	Category   string
	ActiveOnly bool
}

type Repository interface {
	List(ctx context.Context, filter Filter) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
}

// ValidationError lists invalid product fields by name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("invalid product: %s", strings.Join(keys, ", "))
}

// Validate checks a product before it is created or updated.
func Validate(p domain.Product) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = "Name is required"
	}
	if strings.TrimSpace(p.Description) == "" {
		fields["description"] = "Description is required"
	}
	if !p.Price.IsPositive() {
		fields["price"] = "Valid price is required"
	}
	if p.Stock < 0 {
		fields["stock"] = "Valid stock quantity is required"
	}
	if p.ImageURL == "" {
		fields["image_url"] = "Product image is required"
	}
	if !domain.IsKnownCategory(p.Category) {
		fields["category"] = "Unknown category"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
