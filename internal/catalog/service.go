package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/pkg/db"
	"github.com/angelmondragon/cafe-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
)

const (
	maxNameLen  = 255
	maxIconLen  = 10
	maxImageLen = 2048
)

// Service exposes storefront reads and admin management of the menu.
type Service interface {
	GetItem(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	ListAvailableCategories(ctx context.Context) ([]CategoryDTO, error)

	CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategoriesWithItemCounts(ctx context.Context) ([]CategoryDTO, error)

	CreateItem(ctx context.Context, input ItemInput) (*ItemDTO, error)
	UpdateItem(ctx context.Context, id uuid.UUID, input ItemInput) (*ItemDTO, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context) ([]ItemDTO, error)
}

// CategoryInput carries a create or update payload. Nil Icon/IsAvailable
// mean "default" on create and "unchanged" on update.
type CategoryInput struct {
	Name        string
	Icon        *string
	IsAvailable *bool
}

// ItemInput carries a create or update payload. CategoryID is required on
// create and optional on update.
type ItemInput struct {
	CategoryID  *uuid.UUID
	Name        string
	Price       decimal.Decimal
	Description *string
	Image       *string
}

type service struct {
	repo *Repository
}

// NewService builds the catalog service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := s.repo.FindItemByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "item not found", "db: load item")
	}
	dto := FromItemModel(item)
	return &dto, nil
}

func (s *service) ListAvailableCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListAvailableCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list menu")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		dto := FromCategoryModel(&rows[i])
		if dto.Items == nil {
			dto.Items = []ItemDTO{}
		}
		out = append(out, dto)
	}
	return out, nil
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	name, icon, err := validateCategory(input)
	if err != nil {
		return nil, err
	}
	category := &models.Category{
		Name:        name,
		Icon:        models.DefaultCategoryIcon,
		IsAvailable: true,
	}
	if icon != nil {
		category.Icon = *icon
	}
	if input.IsAvailable != nil {
		category.IsAvailable = *input.IsAvailable
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, categoryWriteError(err, "db: insert category")
	}
	dto := FromCategoryModel(category)
	return &dto, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error) {
	name, icon, err := validateCategory(input)
	if err != nil {
		return nil, err
	}
	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "db: load category")
	}
	category.Name = name
	if icon != nil {
		category.Icon = *icon
	}
	if input.IsAvailable != nil {
		category.IsAvailable = *input.IsAvailable
	}
	if err := s.repo.SaveCategory(ctx, category); err != nil {
		return nil, categoryWriteError(err, "db: update category")
	}
	dto := FromCategoryModel(category)
	return &dto, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindCategoryByID(ctx, id); err != nil {
		return notFoundOr(err, "category not found", "db: load category")
	}
	count, err := s.repo.CountItemsInCategory(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count category items")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot delete category with existing items").
			WithDetails(map[string]any{"items_count": count})
	}
	if _, err := s.repo.DeleteCategory(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete category")
	}
	return nil
}

func (s *service) ListCategoriesWithItemCounts(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list categories")
	}
	counts, err := s.repo.ItemCountsByCategory(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count items")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		dto := FromCategoryModel(&rows[i])
		count := counts[rows[i].ID]
		dto.ItemCount = &count
		out = append(out, dto)
	}
	return out, nil
}

func (s *service) CreateItem(ctx context.Context, input ItemInput) (*ItemDTO, error) {
	if input.CategoryID == nil || *input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item").
			WithDetails(map[string]string{"category_id": "is required"})
	}
	item := &models.Item{}
	if err := s.applyItemInput(ctx, item, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert item")
	}
	return s.GetItem(ctx, item.ID)
}

func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, input ItemInput) (*ItemDTO, error) {
	item, err := s.repo.FindItemByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "item not found", "db: load item")
	}
	if err := s.applyItemInput(ctx, item, input); err != nil {
		return nil, err
	}
	item.Category = nil
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update item")
	}
	return s.GetItem(ctx, item.ID)
}

// DeleteItem removes the item. Cart lines holding it cascade away; orders
// keep their name and price snapshot.
func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.DeleteItem(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete item")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return nil
}

func (s *service) ListItems(ctx context.Context) ([]ItemDTO, error) {
	rows, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list items")
	}
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromItemModel(&rows[i]))
	}
	return out, nil
}

func (s *service) applyItemInput(ctx context.Context, item *models.Item, input ItemInput) error {
	details := map[string]string{}
	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		details["name"] = "is required"
	case utf8.RuneCountInString(name) > maxNameLen:
		details["name"] = fmt.Sprintf("must be at most %d characters", maxNameLen)
	}
	if input.Price.IsNegative() {
		details["price"] = "must be zero or greater"
	}
	image := trimmedOrNil(input.Image)
	if image != nil && len(*image) > maxImageLen {
		details["image"] = fmt.Sprintf("must be at most %d characters", maxImageLen)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid item").WithDetails(details)
	}

	if input.CategoryID != nil && *input.CategoryID != uuid.Nil {
		if _, err := s.repo.FindCategoryByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid item").
					WithDetails(map[string]string{"category_id": "does not exist"})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
		}
		item.CategoryID = *input.CategoryID
	}
	item.Name = name
	item.Price = input.Price.Round(2)
	item.Description = trimmedOrNil(input.Description)
	item.Image = image
	return nil
}

func validateCategory(input CategoryInput) (string, *string, error) {
	details := map[string]string{}
	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		details["name"] = "is required"
	case utf8.RuneCountInString(name) > maxNameLen:
		details["name"] = fmt.Sprintf("must be at most %d characters", maxNameLen)
	}
	icon := trimmedOrNil(input.Icon)
	if icon != nil && utf8.RuneCountInString(*icon) > maxIconLen {
		details["icon"] = fmt.Sprintf("must be at most %d characters", maxIconLen)
	}
	if len(details) > 0 {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category").WithDetails(details)
	}
	return name, icon, nil
}

func categoryWriteError(err error, msg string) error {
	if db.IsUniqueViolation(err, "name") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category name already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func notFoundOr(err error, notFoundMsg, dbMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, dbMsg)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
