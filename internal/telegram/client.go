// Package telegram sends recommendations and watch alerts through the Telegram
// Bot API. Messages use MarkdownV2 and delivery is retried with linear backoff.
package telegram

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/pricewise/internal/models"
	"github.com/rewired-gh/pricewise/internal/watch"
)

// sender is the subset of the bot API used for delivery.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendRecommendation sends a full recommendation report
func (c *Client) SendRecommendation(rec *models.Recommendation) error {
	return c.send(formatRecommendation(rec))
}

// SendAlert sends a watch alert
func (c *Client) SendAlert(a watch.Alert) error {
	return c.send(formatAlert(a))
}

// SendError reports a failed watch cycle
func (c *Client) SendError(err error) error {
	return c.send(fmt.Sprintf("⚠️ *Watch cycle failed*\n\n%s", escapeMarkdownV2(err.Error())))
}

// SendRecovery reports that watch cycles succeed again
func (c *Client) SendRecovery(failures int) error {
	return c.send(escapeMarkdownV2(fmt.Sprintf("✅ Watch recovered after %d failed cycle(s).", failures)))
}

func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatRecommendation formats a recommendation into a Telegram message
func formatRecommendation(rec *models.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 *Results for* %s\n\n", escapeMarkdownV2(rec.Query))

	if rec.BestOffer == nil {
		b.WriteString(escapeMarkdownV2(rec.Insights.Summary))
		return b.String()
	}

	best := rec.BestOffer
	fmt.Fprintf(&b, "🎯 *Best deal:* %s\n", offerLink(*best))
	fmt.Fprintf(&b, "   Platform: %s\n", escapeMarkdownV2(strings.ToUpper(best.Platform)))
	fmt.Fprintf(&b, "   Price: *%s*", escapeMarkdownV2(formatPrice(best.Price)))
	if best.OriginalPrice != nil && *best.OriginalPrice > best.Price {
		fmt.Fprintf(&b, " ~%s~", escapeMarkdownV2(formatPrice(*best.OriginalPrice)))
	}
	b.WriteString("\n")
	if rec.Savings.Amount > 0 {
		fmt.Fprintf(&b, "   You save: %s\n",
			escapeMarkdownV2(fmt.Sprintf("%s (%.1f%%)", formatPrice(rec.Savings.Amount), rec.Savings.Percentage)))
	}

	if prices := rec.PriceComparison(); len(prices) > 1 {
		platforms := make([]string, 0, len(prices))
		for p := range prices {
			platforms = append(platforms, p)
		}
		sort.Strings(platforms)
		parts := make([]string, len(platforms))
		for i, p := range platforms {
			parts[i] = p + " " + formatPrice(prices[p])
		}
		fmt.Fprintf(&b, "   Prices: %s\n", escapeMarkdownV2(strings.Join(parts, " · ")))
	}

	if a := rec.Analysis; a != nil {
		fmt.Fprintf(&b, "\n📊 *History* \\(%d days\\)\n", a.DaysAnalyzed)
		fmt.Fprintf(&b, "   %s\n", escapeMarkdownV2(fmt.Sprintf("Min %s · Avg %s · Max %s",
			formatPrice(a.MinPrice), formatPrice(a.AvgPrice), formatPrice(a.MaxPrice))))
		fmt.Fprintf(&b, "   Trend: %s, position: %s\n", escapeMarkdownV2(string(a.Trend)), escapeMarkdownV2(string(a.Position())))
	}

	if p := rec.Prediction; p != nil {
		fmt.Fprintf(&b, "\n🔮 *Forecast:* %s\n", escapeMarkdownV2(formatPrice(p.PredictedPrice)))
		fmt.Fprintf(&b, "   Confidence: %s\n", escapeMarkdownV2(fmt.Sprintf("%.0f%%", p.Confidence)))
		if p.UpcomingSale != nil {
			fmt.Fprintf(&b, "   Next sale: %s in %d days\n", escapeMarkdownV2(p.UpcomingSale.Name), p.UpcomingSale.DaysUntil)
		}
		fmt.Fprintf(&b, "   👉 *%s*\n", escapeMarkdownV2(p.Recommendation))
	}

	if rec.Insights.Summary != "" {
		fmt.Fprintf(&b, "\n💡 %s\n", escapeMarkdownV2(rec.Insights.Summary))
	}
	return b.String()
}

// formatAlert formats a watch alert into a Telegram message
func formatAlert(a watch.Alert) string {
	best := a.Recommendation.BestOffer
	var b strings.Builder

	switch a.Reason {
	case watch.ReasonPriceDrop:
		b.WriteString("📉 *Price drop*\n\n")
		fmt.Fprintf(&b, "%s\n", offerLink(*best))
		fmt.Fprintf(&b, "   %s\n", escapeMarkdownV2(fmt.Sprintf("%s → %s (-%.1f%%) on %s",
			formatPrice(a.ReferencePrice), formatPrice(best.Price), a.DropPercent, best.Platform)))
	case watch.ReasonBuyNow:
		b.WriteString("✅ *Good time to buy*\n\n")
		fmt.Fprintf(&b, "%s\n", offerLink(*best))
		fmt.Fprintf(&b, "   %s\n", escapeMarkdownV2(fmt.Sprintf("%s on %s", formatPrice(best.Price), best.Platform)))
	}

	if p := a.Recommendation.Prediction; p != nil {
		fmt.Fprintf(&b, "   👉 %s\n", escapeMarkdownV2(p.Recommendation))
	}
	fmt.Fprintf(&b, "\n🔎 Query: %s", escapeMarkdownV2(a.Query))
	return b.String()
}

func offerLink(o models.Offer) string {
	name := o.Name
	if name == "" {
		name = o.ProductID
	}
	if o.URL == "" {
		return escapeMarkdownV2(name)
	}
	// MarkdownV2 link targets only need ) and \ escaped
	target := strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(o.URL)
	return fmt.Sprintf("[%s](%s)", escapeMarkdownV2(name), target)
}

func formatPrice(v float64) string {
	return fmt.Sprintf("₹%.2f", v)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
