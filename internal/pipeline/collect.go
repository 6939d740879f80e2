package pipeline

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/bamit99/whatsapp-bot/internal/message"
	"github.com/bamit99/whatsapp-bot/internal/store"
)

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s]+`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+[0-9]{7,15}`)
)

// collectData extracts URLs, email addresses, and phone numbers from the
// message text and stores them as data points.
func (c *Coordinator) collectData(ctx context.Context, msg *message.NormalizedMessage) {
	if msg.Text == "" {
		return
	}

	save := func(kind string, values []string) {
		for _, v := range values {
			dp := store.DataPoint{
				Kind:      kind,
				Value:     v,
				SourceID:  msg.SenderID,
				MessageID: msg.ID,
			}
			if err := c.stores.Data.SaveDataPoint(ctx, dp); err != nil {
				slog.Error("save data point failed", "kind", kind, "error", err)
			}
		}
	}

	save("url", urlPattern.FindAllString(msg.Text, -1))
	save("email", emailPattern.FindAllString(msg.Text, -1))
	save("phone", phonePattern.FindAllString(msg.Text, -1))
}
