package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/vmkteam/embedlog"
)

// telegramAPI is the slice of the bot client the handlers use.
// *bot.Bot implements it; tests plug in a fake.
type telegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	Token() string
}

type Bot struct {
	api    telegramAPI
	tg     *bot.Bot
	logger embedlog.Logger
	fin    Ledger
	ocr    TextExtractor
	debug  bool

	webhookURL string
	routes     []route
	now        func() time.Time
}

type Config struct {
	Token string
	Debug bool

	// WebhookURL switches the bot from long polling to webhook mode.
	WebhookURL string
}

// New creates a new Telegram bot instance
func New(cfg Config, fin Ledger, extractor TextExtractor, logger embedlog.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}

	var opts []bot.Option
	if cfg.Debug {
		opts = append(opts, bot.WithDebug())
	}

	b := &Bot{
		logger:     logger,
		fin:        fin,
		ocr:        extractor,
		debug:      cfg.Debug,
		webhookURL: cfg.WebhookURL,
		now:        time.Now,
	}
	opts = append(opts, bot.WithDefaultHandler(func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		b.HandleUpdate(ctx, update)
	}))

	api, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	b.api = api
	b.tg = api
	b.registerRoutes()

	return b, nil
}

// Start runs the update loop until ctx is canceled: webhook mode when
// a public URL is configured, long polling otherwise.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}

	if b.webhookURL != "" {
		if _, err := b.tg.SetWebhook(ctx, &bot.SetWebhookParams{URL: b.webhookURL}); err != nil {
			return fmt.Errorf("failed to set webhook: %w", err)
		}
		b.logger.Print(ctx, "telegram bot started", "username", me.Username, "id", me.ID, "mode", "webhook")
		b.tg.StartWebhook(ctx)
		return nil
	}

	b.logger.Print(ctx, "telegram bot started", "username", me.Username, "id", me.ID, "mode", "polling")
	b.tg.Start(ctx)

	return nil
}

// WebhookHandler exposes the HTTP endpoint Telegram posts updates to.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return b.tg.WebhookHandler()
}

// Stop gracefully stops the bot
func (b *Bot) Stop(ctx context.Context) {
	b.logger.Print(ctx, "stopping telegram bot")
}

// inbound is one normalized incoming message.
type inbound struct {
	chatID     int64
	telegramID int64
	messageID  int64
	text       string
	hasMedia   bool
	fileID     string
	fileName   string
}

// HandleUpdate is the single entry point for updates. It never
// panics past this boundary; a handler crash is logged and the user
// gets a generic retry message.
func (b *Bot) HandleUpdate(ctx context.Context, update *models.Update) {
	m := update.Message
	if m == nil {
		m = update.EditedMessage
	}
	if m == nil || m.From == nil || m.Chat.ID == 0 || m.ID == 0 {
		return
	}

	in := &inbound{
		chatID:     m.Chat.ID,
		telegramID: m.From.ID,
		messageID:  int64(m.ID),
		text:       m.Text,
	}
	if in.text == "" {
		in.text = m.Caption
	}
	if len(m.Photo) > 0 {
		in.hasMedia = true
		in.fileID = m.Photo[len(m.Photo)-1].FileID
		in.fileName = "photo.jpg"
	} else if m.Document != nil {
		in.hasMedia = true
		in.fileID = m.Document.FileID
		in.fileName = m.Document.FileName
	}

	defer func() {
		if r := recover(); r != nil {
			errorsTotal.WithLabelValues("panic").Inc()
			b.logger.Error(ctx, "panic in update handler", "panic", r, "chat_id", in.chatID)
			b.send(ctx, in.chatID, msg(LangES, "tx_try_again", nil))
		}
	}()

	if in.hasMedia {
		messagesProcessed.WithLabelValues("media").Inc()
	} else {
		messagesProcessed.WithLabelValues("text").Inc()
	}

	b.dispatch(ctx, in)
}

// downloadTgFile fetches a telegram file's bytes by file id.
func (b *Bot) downloadTgFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	fileURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.api.Token(), file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
