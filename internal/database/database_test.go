package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendor-rewards-api/internal/ledger"
	"vendor-rewards-api/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "rewards.db"))
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { db.Close() })
	return db
}

type fixture struct {
	vendor models.Vendor
	other  models.Vendor
	user   models.User
	taco   models.MenuItem
	burger models.MenuItem
	deal   models.Deal
}

func seedFixture(t *testing.T, db *DB) fixture {
	t.Helper()
	ctx := context.Background()

	var f fixture
	var err error
	f.vendor, err = db.CreateVendor(ctx, models.Vendor{
		Name: "Taco Stand", PurchaseToPoints: 2, Category: models.CategoryCounter,
	})
	require.NoError(t, err)
	f.other, err = db.CreateVendor(ctx, models.Vendor{
		Name: "Burger Barn", PurchaseToPoints: 1, Category: models.CategoryDriveThru,
	})
	require.NoError(t, err)
	f.user, err = db.CreateUser(ctx, models.User{Username: "alice", Favorites: []int64{f.vendor.ID}})
	require.NoError(t, err)
	f.taco, err = db.CreateMenuItem(ctx, models.MenuItem{VendorID: f.vendor.ID, Item: "Taco", Price: 3})
	require.NoError(t, err)
	f.burger, err = db.CreateMenuItem(ctx, models.MenuItem{VendorID: f.other.ID, Item: "Burger", Price: 8})
	require.NoError(t, err)
	f.deal, err = db.CreateDeal(ctx, models.Deal{VendorID: f.vendor.ID, Item: "Free taco", PointsRequired: 15})
	require.NoError(t, err)
	return f
}

func TestVendorCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)

	got, err := db.GetVendor(ctx, f.vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, f.vendor, got)

	recent, err := db.ListVendors(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, f.other.ID, recent[0].ID, "newest vendor first")

	f.vendor.Cuisine = "Mexican"
	require.NoError(t, db.UpdateVendor(ctx, f.vendor))
	got, err = db.GetVendor(ctx, f.vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mexican", got.Cuisine)

	require.NoError(t, db.DeleteVendor(ctx, f.vendor.ID))
	_, err = db.GetVendor(ctx, f.vendor.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = db.DeleteVendor(ctx, f.vendor.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch_CaseInsensitiveSubstring(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedFixture(t, db)

	_, err := db.CreateVendor(ctx, models.Vendor{Name: "100% Juice", Category: models.CategoryCounter})
	require.NoError(t, err)

	res, err := db.SearchVendors(ctx, "TACO")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Taco Stand", res[0].Name)

	res, err = db.SearchVendors(ctx, "%")
	require.NoError(t, err)
	require.Len(t, res, 1, "wildcards are matched literally")
	assert.Equal(t, "100% Juice", res[0].Name)

	users, err := db.SearchUsers(ctx, "LIC")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Name)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	seedFixture(t, db)

	_, err := db.CreateUser(context.Background(), models.User{Username: "alice"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateUser_UnknownFavoriteRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.CreateUser(ctx, models.User{Username: "bob", Favorites: []int64{404}})
	require.ErrorIs(t, err, ErrNotFound)

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFavorites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)

	require.NoError(t, db.AddFavorite(ctx, f.user.ID, f.other.ID))
	require.NoError(t, db.AddFavorite(ctx, f.user.ID, f.other.ID), "marking twice is a no-op")

	u, err := db.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.vendor.ID, f.other.ID}, u.Favorites)

	require.NoError(t, db.RemoveFavorite(ctx, f.user.ID, f.vendor.ID))
	assert.ErrorIs(t, db.RemoveFavorite(ctx, f.user.ID, f.vendor.ID), ErrNotFound)
}

func TestMenuAndDealsScopedToVendor(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)

	menu, err := db.ListMenuItems(ctx, f.vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.MenuItem{f.taco}, menu)

	err = db.DeleteMenuItem(ctx, f.vendor.ID, f.burger.ID)
	assert.ErrorIs(t, err, ErrNotFound, "cannot delete another vendor's item")

	err = db.DeleteDeal(ctx, f.other.ID, f.deal.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.DeleteDeal(ctx, f.vendor.ID, f.deal.ID))
	deals, err := db.ListDeals(ctx, f.vendor.ID)
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestLedgerAgainstSQLite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)
	l := ledger.New(db)

	// Scenario D: no balance yet.
	_, err := l.Redeem(ctx, f.vendor.ID, f.user.ID, f.deal.ID, models.RedemptionModePoints)
	require.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = db.GetBalance(ctx, f.user.ID, f.vendor.ID)
	require.ErrorIs(t, err, ErrNotFound, "redeem must not open a balance")

	acc, err := l.Accrue(ctx, f.vendor.ID, f.user.ID, []int64{f.taco.ID, f.taco.ID})
	require.NoError(t, err)
	assert.True(t, acc.Created)
	assert.Equal(t, int64(12), acc.Balance.Points)

	_, err = l.Redeem(ctx, f.vendor.ID, f.user.ID, f.deal.ID, models.RedemptionModePoints)
	require.ErrorIs(t, err, ledger.ErrInsufficientPoints)

	acc, err = l.Accrue(ctx, f.vendor.ID, f.user.ID, []int64{f.taco.ID})
	require.NoError(t, err)
	assert.False(t, acc.Created)
	assert.Equal(t, int64(18), acc.Balance.Points)

	red, err := l.Redeem(ctx, f.vendor.ID, f.user.ID, f.deal.ID, models.RedemptionModePoints)
	require.NoError(t, err)
	assert.Equal(t, int64(3), red.Balance.Points)

	balances, err := db.ListBalances(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.RewardBalance{{UserID: f.user.ID, VendorID: f.vendor.ID, Points: 3}}, balances)

	entries, err := db.ListEntries(ctx, f.user.ID, f.vendor.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int64{12, 6, -15}, []int64{entries[0].Delta, entries[1].Delta, entries[2].Delta})
	require.NotNil(t, entries[2].DealID)
	assert.Equal(t, f.deal.ID, *entries[2].DealID)
	assert.NotEmpty(t, entries[0].ID)
}

func TestConcurrentAccrualsAreSerialized(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)
	l := ledger.New(db)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Accrue(ctx, f.vendor.ID, f.user.ID, []int64{f.taco.ID}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	b, err := db.GetBalance(ctx, f.user.ID, f.vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*6), b.Points, "no lost updates")

	entries, err := db.ListEntries(ctx, f.user.ID, f.vendor.ID)
	require.NoError(t, err)
	assert.Len(t, entries, workers)
}

func TestDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)

	_, err := ledger.New(db).Accrue(ctx, f.vendor.ID, f.user.ID, []int64{f.taco.ID})
	require.NoError(t, err)

	require.NoError(t, db.DeleteVendor(ctx, f.vendor.ID))

	_, err = db.GetBalance(ctx, f.user.ID, f.vendor.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetMenuItem(ctx, f.taco.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetDeal(ctx, f.deal.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := db.ListEntries(ctx, f.user.ID, f.vendor.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	u, err := db.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, u.Favorites)
}

func TestGetOrCreateBalance(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)

	err := db.WithinTx(ctx, func(ctx context.Context, uow ledger.UnitOfWork) error {
		first, err := uow.GetOrCreateBalance(ctx, f.user.ID, f.vendor.ID)
		require.NoError(t, err)
		assert.True(t, first.Created)
		assert.Zero(t, first.Balance.Points)

		second, err := uow.GetOrCreateBalance(ctx, f.user.ID, f.vendor.ID)
		require.NoError(t, err)
		assert.False(t, second.Created)
		return nil
	})
	require.NoError(t, err)

	err = db.WithinTx(ctx, func(ctx context.Context, uow ledger.UnitOfWork) error {
		_, err := uow.GetOrCreateBalance(ctx, 404, f.vendor.ID)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveBalance_RejectsNegativePoints(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seedFixture(t, db)

	err := db.WithinTx(ctx, func(ctx context.Context, uow ledger.UnitOfWork) error {
		if _, err := uow.GetOrCreateBalance(ctx, f.user.ID, f.vendor.ID); err != nil {
			return err
		}
		return uow.SaveBalance(ctx, models.RewardBalance{UserID: f.user.ID, VendorID: f.vendor.ID, Points: -1})
	})
	require.Error(t, err)

	_, err = db.GetBalance(ctx, f.user.ID, f.vendor.ID)
	assert.ErrorIs(t, err, ErrNotFound, "failed unit of work is rolled back")
}

func TestWithinTx_CommitFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := NewFromConn(conn)
	commitErr := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT points FROM rewards").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(20))
	mock.ExpectQuery("SELECT id, vendor_id, item, price, points_required FROM deals").
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "vendor_id", "item", "price", "points_required"}).
			AddRow(30, 1, "Free taco", 0, 15))
	mock.ExpectExec("UPDATE rewards SET points").
		WithArgs(int64(5), sqlmock.AnyArg(), int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reward_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(commitErr)

	_, err = ledger.New(db).Redeem(context.Background(), 1, 7, 30, models.RedemptionModePoints)
	require.ErrorIs(t, err, ledger.ErrPersistence)
	assert.ErrorIs(t, err, commitErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := NewFromConn(conn)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT points FROM rewards").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	_, err = ledger.New(db).Redeem(context.Background(), 1, 7, 30, models.RedemptionModePoints)
	require.ErrorIs(t, err, ledger.ErrPersistence)

	assert.NoError(t, mock.ExpectationsWereMet())
}
