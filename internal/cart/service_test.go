package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/internal/catalog"
	"github.com/angelmondragon/cafe-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cafe-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
)

type fixture struct {
	conn *gorm.DB
	svc  Service
	a    *models.Item
	b    *models.Item
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	category := &models.Category{Name: "Coffee", Icon: models.DefaultCategoryIcon, IsAvailable: true}
	require.NoError(t, conn.Create(category).Error)
	a := &models.Item{CategoryID: category.ID, Name: "A", Price: decimal.RequireFromString("5.00")}
	b := &models.Item{CategoryID: category.ID, Name: "B", Price: decimal.RequireFromString("3.50")}
	require.NoError(t, conn.Create(a).Error)
	require.NoError(t, conn.Create(b).Error)

	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn))
	require.NoError(t, err)
	return fixture{conn: conn, svc: svc, a: a, b: b}
}

func TestAddAndListExampleCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Add(ctx, user, AddInput{ItemID: f.a.ID, Quantity: quantity(2)})
	require.NoError(t, err)
	line, err := f.svc.Add(ctx, user, AddInput{ItemID: f.b.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	summary, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 2)
	assert.Equal(t, "13.50", summary.CartTotal.StringFixed(2))
	assert.Equal(t, 3, summary.CartCount)
	assert.Equal(t, "10.00", summary.Lines[0].Total.StringFixed(2))
	require.NotNil(t, summary.Lines[0].Item)
	require.NotNil(t, summary.Lines[0].Item.Category)
	assert.Equal(t, "Coffee", summary.Lines[0].Item.Category.Name)
}

func TestAddSameItemSumsQuantityAndRefreshesPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	first, err := f.svc.Add(ctx, user, AddInput{ItemID: f.a.ID, Quantity: quantity(2)})
	require.NoError(t, err)

	require.NoError(t, f.conn.Model(&models.Item{}).Where("id = ?", f.a.ID).
		Update("price", decimal.RequireFromString("6.25")).Error)

	second, err := f.svc.Add(ctx, user, AddInput{ItemID: f.a.ID, Quantity: quantity(3)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	assert.True(t, second.Price.Equal(decimal.RequireFromString("6.25")), "price %s", second.Price)

	var count int64
	require.NoError(t, f.conn.Model(&models.CartLine{}).Where("user_id = ? AND item_id = ?", user, f.a.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConcurrentAddsKeepOneLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Add(ctx, user, AddInput{ItemID: f.b.ID, Quantity: quantity(1)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	summary, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, 5, summary.Lines[0].Quantity)
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Add(ctx, user, AddInput{ItemID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	for _, qty := range []int{-1, 0, 100} {
		_, err := f.svc.Add(ctx, user, AddInput{ItemID: f.a.ID, Quantity: quantity(qty)})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "qty %d", qty)
	}
	_, err = f.svc.Add(ctx, user, AddInput{ItemID: f.a.ID, Quantity: quantity(99)})
	assert.NoError(t, err)
}

func TestUpdateQuantityOwnershipAndRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	line, err := f.svc.Add(ctx, owner, AddInput{ItemID: f.a.ID, Quantity: quantity(2)})
	require.NoError(t, err)

	_, err = f.svc.UpdateQuantity(ctx, other, line.ID, 4)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.True(t, pkgerrors.IsCode(f.svc.Remove(ctx, other, line.ID), pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateQuantity(ctx, owner, line.ID, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.UpdateQuantity(ctx, owner, uuid.New(), 3)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	summary, err := f.svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, 2, summary.Lines[0].Quantity)

	updated, err := f.svc.UpdateQuantity(ctx, owner, line.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("5")))
	assert.Equal(t, "35.00", updated.Total.StringFixed(2))
}

func TestRemoveAndClearAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	other := uuid.New()

	line, err := f.svc.Add(ctx, user, AddInput{ItemID: f.a.ID})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, user, AddInput{ItemID: f.b.ID})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, other, AddInput{ItemID: f.b.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, user, line.ID))
	summary, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Len(t, summary.Lines, 1)

	require.NoError(t, f.svc.ClearAll(ctx, user))
	require.NoError(t, f.svc.ClearAll(ctx, user))
	summary, err = f.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, summary.Lines)
	assert.True(t, summary.CartTotal.IsZero())

	otherSummary, err := f.svc.List(ctx, other)
	require.NoError(t, err)
	assert.Len(t, otherSummary.Lines, 1)
}

func TestDeletingItemCascadesCartLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Add(ctx, user, AddInput{ItemID: f.a.ID})
	require.NoError(t, err)
	require.NoError(t, f.conn.Delete(&models.Item{}, "id = ?", f.a.ID).Error)

	summary, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, summary.Lines)
}

func TestSummarizeSkipsMissingItems(t *testing.T) {
	lines := []models.CartLine{
		{Quantity: 2, Price: decimal.RequireFromString("1.25"), Item: &models.Item{Name: "X"}},
		{Quantity: 4, Price: decimal.RequireFromString("9.99")},
	}
	summary := Summarize(lines)
	assert.Len(t, summary.Lines, 1)
	assert.Equal(t, "2.50", summary.CartTotal.StringFixed(2))
	assert.Equal(t, 2, summary.CartCount)
}

func quantity(n int) *int { return &n }

func TestAddRejectsExplicitZeroButDefaultsMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Add(ctx, user, AddInput{ItemID: f.a.ID, Quantity: quantity(0)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	summary, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, summary.Lines)

	line, err := f.svc.Add(ctx, user, AddInput{ItemID: f.a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
}
