// Package session drives the multi-step data-entry flows owners use to add
// categories and products. Each draft is an explicit state machine over a
// fixed step sequence; unknown step values are rejected rather than
// silently ignored.
package session

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shoplinkhq/chatstore/internal/models"
)

// ErrUnknownStep is returned when a draft carries a step value outside its
// flow's sequence. It indicates a corrupted session, not bad user input.
var ErrUnknownStep = errors.New("session: unknown flow step")

// SkipKeyword advances past an optional step when typed, matched
// case-insensitively.
const SkipKeyword = "skip"

// Result describes what consuming one input did to a draft.
type Result struct {
	// Done is true when the draft collected its final field and is ready to
	// commit.
	Done bool
	// Invalid is true when the input was rejected; the draft is unchanged
	// and the same step must be re-prompted.
	Invalid bool
	// Hint is the user-facing validation message when Invalid.
	Hint string
}

func invalid(hint string) Result { return Result{Invalid: true, Hint: hint} }

// CategoryStep is the position within the category creation flow.
type CategoryStep string

const (
	CategoryStepName        CategoryStep = "name"
	CategoryStepDescription CategoryStep = "description"
	CategoryStepIcon        CategoryStep = "icon"
)

// CategoryDraft is an in-progress category creation for one shop.
type CategoryDraft struct {
	ShopID      string
	Step        CategoryStep
	Name        string
	Description string
	Icon        string
}

// NewCategoryDraft starts a category flow for the shop.
func NewCategoryDraft(shopID string) *CategoryDraft {
	return &CategoryDraft{ShopID: shopID, Step: CategoryStepName}
}

// Advance consumes one text input at the current step.
func (d *CategoryDraft) Advance(text string) (Result, error) {
	text = strings.TrimSpace(text)
	switch d.Step {
	case CategoryStepName:
		if text == "" {
			return invalid("Category name cannot be empty."), nil
		}
		d.Name = text
		d.Step = CategoryStepDescription
		return Result{}, nil
	case CategoryStepDescription:
		if !strings.EqualFold(text, SkipKeyword) {
			d.Description = text
		}
		d.Step = CategoryStepIcon
		return Result{}, nil
	case CategoryStepIcon:
		if strings.EqualFold(text, SkipKeyword) {
			d.Icon = models.DefaultCategoryIcon
		} else {
			d.Icon = text
		}
		return Result{Done: true}, nil
	default:
		return Result{}, ErrUnknownStep
	}
}

// Skip short-circuits the current step without requiring the keyword. Only
// the optional steps can be skipped; elsewhere the draft is left untouched.
func (d *CategoryDraft) Skip() (Result, error) {
	switch d.Step {
	case CategoryStepDescription, CategoryStepIcon:
		return d.Advance(SkipKeyword)
	case CategoryStepName:
		return invalid("Category name cannot be skipped."), nil
	default:
		return Result{}, ErrUnknownStep
	}
}

// Category assembles the collected fields. Valid only after Done.
func (d *CategoryDraft) Category(order int, createdBy string) models.Category {
	icon := d.Icon
	if icon == "" {
		icon = models.DefaultCategoryIcon
	}
	return models.Category{
		ShopID:      d.ShopID,
		Name:        d.Name,
		Description: d.Description,
		Icon:        icon,
		Order:       order,
		CreatedBy:   createdBy,
	}
}

// ProductStep is the position within the product creation flow.
type ProductStep string

const (
	ProductStepName        ProductStep = "name"
	ProductStepDescription ProductStep = "description"
	ProductStepPrice       ProductStep = "price"
	ProductStepStock       ProductStep = "stock"
)

// ProductDraft is an in-progress product creation. CategoryName is the
// denormalized category linkage carried into the stored product.
type ProductDraft struct {
	ShopID       string
	CategoryID   string
	CategoryName string
	Step         ProductStep
	Name         string
	Description  string
	Price        float64
	Stock        int
}

// NewProductDraft starts a product flow targeting one category of a shop.
func NewProductDraft(shopID, categoryID, categoryName string) *ProductDraft {
	return &ProductDraft{
		ShopID:       shopID,
		CategoryID:   categoryID,
		CategoryName: categoryName,
		Step:         ProductStepName,
	}
}

// Advance consumes one text input at the current step. Price and stock
// validation failures are recoverable: the step does not move.
func (d *ProductDraft) Advance(text string) (Result, error) {
	text = strings.TrimSpace(text)
	switch d.Step {
	case ProductStepName:
		if text == "" {
			return invalid("Product name cannot be empty."), nil
		}
		d.Name = text
		d.Step = ProductStepDescription
		return Result{}, nil
	case ProductStepDescription:
		if !strings.EqualFold(text, SkipKeyword) {
			d.Description = text
		}
		d.Step = ProductStepPrice
		return Result{}, nil
	case ProductStepPrice:
		// ParseFloat accepts "nan" and "inf"; those must re-prompt too,
		// a non-finite price would only blow up later at commit.
		price, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			return invalid("Invalid price. Please send a valid number (e.g., 25.99):"), nil
		}
		d.Price = price
		d.Step = ProductStepStock
		return Result{}, nil
	case ProductStepStock:
		stock, err := strconv.Atoi(text)
		if err != nil || stock < 0 {
			return invalid("Invalid stock quantity. Please send a whole number (e.g., 50):"), nil
		}
		d.Stock = stock
		return Result{Done: true}, nil
	default:
		return Result{}, ErrUnknownStep
	}
}

// Skip short-circuits the description step; price and stock are required.
func (d *ProductDraft) Skip() (Result, error) {
	switch d.Step {
	case ProductStepDescription:
		return d.Advance(SkipKeyword)
	case ProductStepName, ProductStepPrice, ProductStepStock:
		return invalid("This step cannot be skipped."), nil
	default:
		return Result{}, ErrUnknownStep
	}
}

// Product assembles the collected fields. Valid only after Done.
func (d *ProductDraft) Product() models.Product {
	return models.Product{
		ShopID:        d.ShopID,
		Name:          d.Name,
		Description:   d.Description,
		Price:         d.Price,
		Stock:         d.Stock,
		Category:      d.CategoryName,
		Images:        []string{},
		IsActive:      true,
		LowStockAlert: 5,
	}
}
