package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/pricewise/internal/models"
	"github.com/rewired-gh/pricewise/internal/watch"
)

type fakeBot struct {
	failures int
	calls    int
	last     tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.calls++
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.last = msg
	}
	if f.calls <= f.failures {
		return tgbotapi.Message{}, errors.New("429 too many requests")
	}
	return tgbotapi.Message{}, nil
}

func testRecommendation() *models.Recommendation {
	original := 1299.0
	best := models.Offer{
		ProductID: "B0C1", Name: "Apple iPhone 15", Platform: "amazon",
		Price: 999.5, OriginalPrice: &original, URL: "https://example.com/p/B0C1",
	}
	return &models.Recommendation{
		Query:     "iphone 15 (128GB)",
		BestOffer: &best,
		AllOffers: []models.Offer{
			best,
			{ProductID: "F-77", Name: "Apple iPhone 15", Platform: "flipkart", Price: 1049.5},
		},
		Savings:  models.Savings{Amount: 50, Percentage: 4.76, VsHighest: 1049.5},
		Analysis: &models.PriceAnalysis{CurrentPrice: 999.5, MinPrice: 950, MaxPrice: 1100, AvgPrice: 1020, DaysAnalyzed: 29, Trend: models.TrendDecreasing},
		Prediction: &models.PricePrediction{
			PredictedPrice: 970, Confidence: 72.4,
			UpcomingSale:   &models.UpcomingSale{Name: "Prime Day", DaysUntil: 9},
			Recommendation: "WAIT — Prime Day in 9 days",
		},
		Insights: models.Insights{Summary: "Best price found on amazon at ₹999.50"},
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"plain text", "plain text"},
		{"1.5%", `1\.5%`},
		{"a_b*c", `a\_b\*c`},
		{"(x) [y] {z}", `\(x\) \[y\] \{z\}`},
		{"WAIT — sale!", `WAIT — sale\!`},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, escapeMarkdownV2(tt.in), "input %q", tt.in)
	}
}

func TestFormatRecommendation(t *testing.T) {
	msg := formatRecommendation(testRecommendation())

	assert.Contains(t, msg, `iphone 15 \(128GB\)`)
	assert.Contains(t, msg, `[Apple iPhone 15](https://example.com/p/B0C1)`)
	assert.Contains(t, msg, `*₹999\.50*`)
	assert.Contains(t, msg, `~₹1299\.00~`)
	assert.Contains(t, msg, `You save: ₹50\.00 \(4\.8%\)`)
	assert.Contains(t, msg, `Prices: amazon ₹999\.50 · flipkart ₹1049\.50`)
	assert.Contains(t, msg, "Trend: decreasing")
	assert.Contains(t, msg, "Next sale: Prime Day in 9 days")
	assert.Contains(t, msg, "WAIT — Prime Day in 9 days")
}

func TestFormatRecommendation_NoOffers(t *testing.T) {
	msg := formatRecommendation(&models.Recommendation{
		Query:    "unobtainium",
		Insights: models.Insights{Summary: "No products found for your search query."},
	})
	assert.Contains(t, msg, `No products found for your search query\.`)
	assert.NotContains(t, msg, "Best deal")
}

func TestFormatAlert(t *testing.T) {
	rec := testRecommendation()

	drop := formatAlert(watch.Alert{Query: "iphone", Reason: watch.ReasonPriceDrop, Recommendation: rec, ReferencePrice: 1100, DropPercent: 9.14})
	assert.True(t, strings.HasPrefix(drop, "📉 *Price drop*"))
	assert.Contains(t, drop, `₹1100\.00 → ₹999\.50 \(\-9\.1%\) on amazon`)

	buy := formatAlert(watch.Alert{Query: "iphone", Reason: watch.ReasonBuyNow, Recommendation: rec})
	assert.True(t, strings.HasPrefix(buy, "✅ *Good time to buy*"))
	assert.Contains(t, buy, "Query: iphone")
}

func TestOfferLink(t *testing.T) {
	assert.Equal(t, "B0C1", offerLink(models.Offer{ProductID: "B0C1"}))
	assert.Equal(t, `[Kurta \(Blue\)](https://x.test/a_(b\))`,
		offerLink(models.Offer{Name: "Kurta (Blue)", URL: "https://x.test/a_(b)"}))
}

func TestSend_RetriesThenSucceeds(t *testing.T) {
	bot := &fakeBot{failures: 2}
	c, err := newClient(bot, "12345", 3, time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, c.SendRecommendation(testRecommendation()))
	assert.Equal(t, 3, bot.calls)
	assert.Equal(t, int64(12345), bot.last.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, bot.last.ParseMode)
}

func TestSend_GivesUp(t *testing.T) {
	bot := &fakeBot{failures: 10}
	c, err := newClient(bot, "12345", 2, time.Millisecond)
	require.NoError(t, err)

	err = c.SendError(errors.New("feed down"))
	assert.ErrorContains(t, err, "after 2 retries")
	assert.Equal(t, 2, bot.calls)
}

func TestNewClient_InvalidChatID(t *testing.T) {
	_, err := newClient(&fakeBot{}, "not-a-number", 3, time.Second)
	assert.Error(t, err)
}
