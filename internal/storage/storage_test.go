package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/pricewise/internal/models"
)

var now = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestStorage(t *testing.T, maxProducts, maxPrices int) *Storage {
	t.Helper()
	s, err := New(maxProducts, maxPrices, ":memory:")
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testOffer(id, platform string, price float64) models.Offer {
	return models.Offer{
		ProductID: id,
		Name:      "Phone " + id,
		Platform:  platform,
		Price:     price,
		InStock:   true,
		Rating:    4.3,
		URL:       "https://example.com/" + id,
	}
}

func TestStorage_SaveOfferAndHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, 100, 100)

	original := 1200.0
	offer := testOffer("p-1", "amazon", 999)
	offer.OriginalPrice = &original
	offer.DiscountPercent = 16.75

	require.NoError(t, s.SaveOffer(ctx, offer, now.Add(-2*time.Hour)))
	offer.Price = 949
	require.NoError(t, s.SaveOffer(ctx, offer, now.Add(-1*time.Hour)))

	history, err := s.HistoryFor(ctx, "p-1", "amazon", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, 999.0, history[0].Price, "oldest first")
	assert.Equal(t, 949.0, history[1].Price)
	assert.Equal(t, now.Add(-2*time.Hour), history[0].Timestamp)
	assert.Equal(t, "amazon", history[0].Platform)
	require.NotNil(t, history[0].OriginalPrice)
	assert.Equal(t, 1200.0, *history[0].OriginalPrice)
	assert.True(t, history[0].IsSale)
	assert.Nil(t, history[0].SaleName)

	product, err := s.GetProduct(ctx, "p-1", "amazon")
	require.NoError(t, err)
	assert.Equal(t, "Phone p-1", product.Name)
	assert.Equal(t, now.Add(-1*time.Hour), product.UpdatedAt)
}

func TestStorage_HistoryWindowAndIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, 100, 100)

	require.NoError(t, s.SaveOffer(ctx, testOffer("p-1", "amazon", 100), now.AddDate(0, 0, -40)))
	require.NoError(t, s.SaveOffer(ctx, testOffer("p-1", "amazon", 90), now.AddDate(0, 0, -10)))
	require.NoError(t, s.SaveOffer(ctx, testOffer("p-1", "flipkart", 80), now.AddDate(0, 0, -5)))

	history, err := s.HistoryFor(ctx, "p-1", "amazon", 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 90.0, history[0].Price)

	all, err := s.HistoryFor(ctx, "p-1", "amazon", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := s.HistoryFor(ctx, "unknown", "amazon", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStorage_SaveOfferRejectsInvalid(t *testing.T) {
	s := newTestStorage(t, 100, 100)
	err := s.SaveOffer(context.Background(), models.Offer{Platform: "amazon", Price: 10}, now)
	assert.Error(t, err)
}

func TestStorage_LatestSeller(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, 100, 100)

	_, err := s.LatestSeller(ctx, "p-1", "amazon")
	assert.ErrorIs(t, err, ErrNotFound)

	offer := testOffer("p-1", "amazon", 100)
	offer.Seller = &models.SellerInfo{Name: "Old Name", Rating: 4.0, TotalRatings: 10, PositivePercent: 90, OnTimeShipPercent: 80}
	require.NoError(t, s.SaveOffer(ctx, offer, now.Add(-2*time.Hour)))
	offer.Seller = &models.SellerInfo{Name: "Acme Retail", Rating: 4.6, TotalRatings: 1200, PositivePercent: 97, Verified: true, OnTimeShipPercent: 95}
	require.NoError(t, s.SaveOffer(ctx, offer, now.Add(-time.Hour)))

	seller, err := s.LatestSeller(ctx, "p-1", "amazon")
	require.NoError(t, err)
	assert.Equal(t, *offer.Seller, *seller)
}

func TestStorage_CleanupOlderThan(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, 100, 100)

	for _, daysAgo := range []int{100, 50, 10} {
		require.NoError(t, s.SaveOffer(ctx, testOffer("p-1", "amazon", float64(daysAgo)), now.AddDate(0, 0, -daysAgo)))
	}

	removed, err := s.CleanupOlderThan(ctx, 60*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	history, err := s.HistoryFor(ctx, "p-1", "amazon", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestStorage_RotatePrices(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, 100, 3)

	for i := 0; i < 6; i++ {
		require.NoError(t, s.SaveOffer(ctx, testOffer("p-1", "amazon", float64(100+i)), now.Add(time.Duration(i-10)*time.Hour)))
	}
	require.NoError(t, s.SaveOffer(ctx, testOffer("p-2", "amazon", 50), now))

	require.NoError(t, s.RotatePrices(ctx))

	history, err := s.HistoryFor(ctx, "p-1", "amazon", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []float64{103, 104, 105}, []float64{history[0].Price, history[1].Price, history[2].Price})

	other, err := s.HistoryFor(ctx, "p-2", "amazon", 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestStorage_RotateProducts(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, 2, 100)

	require.NoError(t, s.SaveOffer(ctx, testOffer("oldest", "amazon", 10), now.Add(-3*time.Hour)))
	require.NoError(t, s.SaveOffer(ctx, testOffer("middle", "amazon", 20), now.Add(-2*time.Hour)))
	require.NoError(t, s.SaveOffer(ctx, testOffer("newest", "amazon", 30), now.Add(-1*time.Hour)))

	require.NoError(t, s.RotateProducts(ctx))

	products, err := s.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "newest", products[0].ProductID)
	assert.Equal(t, "middle", products[1].ProductID)

	_, err = s.GetProduct(ctx, "oldest", "amazon")
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := s.HistoryFor(ctx, "oldest", "amazon", 0)
	require.NoError(t, err)
	assert.Empty(t, history, "prices go with the product")

	require.NoError(t, s.RotateProducts(ctx), "no-op under the limit")
}
