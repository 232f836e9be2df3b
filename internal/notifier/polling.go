package notifier

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CommandHandler answers one bot command; an empty reply sends nothing.
type CommandHandler func(command string) string

// pollRetry is the pause after a failed getUpdates call.
const pollRetry = 5 * time.Second

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat *struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// command returns the trimmed command text and the chat to reply to. Plain
// text and messages from chats other than the configured one are skipped.
func (t *TelegramNotifier) command(u update) (text, chatID string, ok bool) {
	if u.Message == nil {
		return "", "", false
	}
	text = strings.TrimSpace(u.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	chatID = t.ChatID
	if u.Message.Chat != nil {
		chatID = strconv.FormatInt(u.Message.Chat.ID, 10)
		if t.ChatID != "" && chatID != t.ChatID {
			log.Printf("[WARN] ignoring command from chat %s", chatID)
			return "", "", false
		}
	}
	return text, chatID, true
}

// StartPolling long-polls getUpdates and answers commands through handler.
// It returns when ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	wait := max(t.PollSeconds, 0)
	client := &http.Client{Timeout: time.Duration(wait+5) * time.Second}
	if t.Client != nil {
		client.Transport = t.Client.Transport
	}

	var offset int64
	for ctx.Err() == nil {
		var updates []update
		q := url.Values{
			"offset":  {strconv.FormatInt(offset, 10)},
			"timeout": {strconv.Itoa(wait)},
		}
		if err := t.call(ctx, client, "getUpdates", q, nil, &updates); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[WARN] polling request failed: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(pollRetry):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			text, chatID, ok := t.command(u)
			if !ok {
				continue
			}
			log.Printf("[INFO] received command: %s", text)
			if reply := handler(text); reply != "" {
				if err := t.sendTo(ctx, chatID, reply); err != nil {
					log.Printf("[ERROR] send reply: %v", err)
				}
			}
		}
	}
	log.Println("[INFO] Telegram polling stopped")
}
