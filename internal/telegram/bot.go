package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"ai-diet-planner/internal/app"
	"ai-diet-planner/internal/diet"
	"ai-diet-planner/internal/metrics"
	"ai-diet-planner/internal/prefs"
	"ai-diet-planner/internal/render"
	"ai-diet-planner/internal/shared"
)

const usageText = "🥗 *AI Diet Planner*\n\n" +
	"`/key <gemini api key>` stores your key.\n" +
	"`/plan` followed by one `field: value` per line generates a plan, for example:\n\n" +
	"```\n/plan\nage: 30\ngender: female\nweight: 65\nheight: 170\nactivityLevel: moderate\ngoal: maintain\ndietaryPreference: none\nmealsPerDay: 3\ncookingSkill: intermediate\n```"

const (
	msgBusy = "⏳ A diet plan is already being generated. Please wait."

	// maxMessageLen stays under Telegram's 4096 character limit, leaving room
	// for escapes.
	maxMessageLen = 4000
)

// sender is the part of the Telegram API the bot talks through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot serves the diet planner over a Telegram webhook.
type Bot struct {
	api *tgbotapi.BotAPI
	out sender
	app *app.App
	cfg botConfig
	db  string

	mu   sync.Mutex
	busy map[int64]bool
}

type botConfig struct {
	allowed []int64
	adminID int64
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(a *app.App) (*Bot, error) {
	cfg := a.Config()
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info().Str("account", api.Self.UserName).Msg("Authorized on Telegram")

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info().Str("response", resp.Description).Msg("Webhook set")

	b := newBot(a, api)
	b.api = api
	return b, nil
}

func newBot(a *app.App, out sender) *Bot {
	cfg := a.Config()
	return &Bot{
		out:  out,
		app:  a,
		cfg:  botConfig{allowed: cfg.TelegramAllowedUserIDs, adminID: cfg.AdminTelegramID},
		db:   cfg.DatabasePath,
		busy: make(map[int64]bool),
	}
}

// RegisterHandlers registers the webhook and health handlers on r.
func (b *Bot) RegisterHandlers(r *mux.Router) {
	r.HandleFunc("/webhook", b.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Warn().Err(err).Msg("Error parsing update")
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if !b.allowed(update.Message.From.ID) {
		log.Warn().Int64("user_id", update.Message.From.ID).Str("username", update.Message.From.UserName).Msg("Unauthorized access attempt")
		return
	}

	go b.processMessage(context.Background(), update.Message)
}

// allowed reports whether userID may use the bot. An empty allow list lets
// everyone in.
func (b *Bot) allowed(userID int64) bool {
	if len(b.cfg.allowed) == 0 {
		return true
	}
	for _, id := range b.cfg.allowed {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "metrics":
		b.handleMetricsRequest(ctx, msg)
	case "key":
		b.handleKey(ctx, msg)
	case "plan":
		b.handlePlanRequest(ctx, msg)
	default:
		b.reply(msg.Chat.ID, usageText)
	}
}

// clientID keys a Telegram user's preferences.
func clientID(userID int64) string {
	return fmt.Sprintf("telegram:%d", userID)
}

func (b *Bot) handleKey(ctx context.Context, msg *tgbotapi.Message) {
	err := b.app.Prefs().SaveAPIKey(ctx, clientID(msg.From.ID), msg.CommandArguments())
	switch {
	case errors.Is(err, prefs.ErrEmptyAPIKey):
		b.reply(msg.Chat.ID, "❌ Please enter an API key: `/key <key>`")
	case err != nil:
		log.Error().Err(err).Msg("Failed to save API key")
		b.reply(msg.Chat.ID, "❌ Could not save your API key.")
	default:
		b.reply(msg.Chat.ID, "✅ API key saved successfully!")
	}
}

// beginPlan marks userID busy. It fails if a plan is already running for
// that user.
func (b *Bot) beginPlan(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.busy[userID] {
		return false
	}
	b.busy[userID] = true
	return true
}

func (b *Bot) endPlan(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.busy, userID)
}

func (b *Bot) handlePlanRequest(ctx context.Context, msg *tgbotapi.Message) {
	if !b.beginPlan(msg.From.ID) {
		b.reply(msg.Chat.ID, msgBusy)
		return
	}
	defer b.endPlan(msg.From.ID)

	profile := parseProfile(msg.CommandArguments())

	key, err := b.app.Prefs().APIKey(ctx, clientID(msg.From.ID))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load API key")
	}
	if key == "" {
		key = b.app.Config().GeminiAPIKey
	}

	sent, err := b.out.Send(markdown(tgbotapi.NewMessage(msg.Chat.ID, "🥗 *Thinking...* \n(Generating your diet plan)")))
	if err != nil {
		log.Error().Err(err).Msg("Failed to send initial reply")
		return
	}

	plan, err := b.app.GeneratePlan(ctx, app.SurfaceTelegram, profile, key)
	if err != nil {
		b.edit(msg.Chat.ID, sent.MessageID, "❌ "+escape(failureText(err)))
		var sErr *shared.Error
		if errors.As(err, &sErr) && sErr.Kind == shared.KindRateLimited {
			b.sendAdminAlert(fmt.Sprintf("⚠️ *Rate Limit Alert*\nUser: %d", msg.From.ID))
		}
		return
	}

	planText, shoppingText := formatPlanMarkdownParts(plan)
	parts := splitMessage(planText, maxMessageLen)
	b.edit(msg.Chat.ID, sent.MessageID, parts[0])
	for _, part := range parts[1:] {
		b.reply(msg.Chat.ID, part)
	}
	if shoppingText != "" {
		for _, part := range splitMessage(shoppingText, maxMessageLen) {
			b.reply(msg.Chat.ID, part)
		}
	}
}

// parseProfile reads one "field: value" pair per line. Unknown fields are
// ignored and missing ones are reported by validation.
func parseProfile(text string) diet.UserProfile {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return diet.ProfileFromFields(func(key string) string { return fields[key] })
}

func failureText(err error) string {
	var vErr *diet.ValidationError
	if errors.As(err, &vErr) {
		return "Please complete all required fields: " + strings.Join(vErr.Missing, ", ")
	}
	var sErr *shared.Error
	if errors.As(err, &sErr) {
		return sErr.Message()
	}
	return "Something went wrong. Please try again."
}

func formatPlanMarkdownParts(plan *diet.Plan) (string, string) {
	split := render.NewMacroSplit(plan.DailyTotals)
	t := plan.DailyTotals

	var pb strings.Builder
	pb.WriteString(fmt.Sprintf("🥗 *%s*\n", escape(plan.DisplayName())))
	if plan.Overview != "" {
		pb.WriteString(fmt.Sprintf("_%s_\n", escape(string(plan.Overview))))
	}
	pb.WriteString(fmt.Sprintf("\n🔥 *Daily:* %s kcal\n", t.Calories))
	pb.WriteString(fmt.Sprintf("💪 P %sg (%d%%) · C %sg (%d%%) · F %sg (%d%%)\n\n",
		t.Protein, split.Percents[0], t.Carbs, split.Percents[1], t.Fat, split.Percents[2]))

	if !plan.HasMeals() {
		pb.WriteString(render.EmptyMessage + "\n")
	}
	for _, m := range render.DayList(plan.Meals).Meals {
		pb.WriteString(fmt.Sprintf("*%s*", escape(m.Name)))
		if m.Time != "" {
			pb.WriteString(fmt.Sprintf(" (%s)", escape(m.Time)))
		}
		pb.WriteString(fmt.Sprintf(": %s kcal\n", m.Totals.Calories))
		for _, f := range m.Foods {
			pb.WriteString(fmt.Sprintf("• %s, %s\n", escape(f.Item), escape(f.Portion)))
		}
		pb.WriteString("\n")
	}

	if len(plan.Tips) > 0 {
		pb.WriteString("💡 *Tips*\n")
		for _, tip := range plan.Tips {
			pb.WriteString(fmt.Sprintf("• %s\n", escape(string(tip))))
		}
	}

	if len(plan.ShoppingList) == 0 {
		return pb.String(), ""
	}
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	for _, item := range plan.ShoppingList {
		sb.WriteString(fmt.Sprintf("• %s\n", escape(string(item))))
	}
	return pb.String(), sb.String()
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.adminID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, err := b.app.Metrics().GetDailyUsage(ctx, 7)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch metrics")
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	b.reply(msg.Chat.ID, formatMetricsReport(usage, metrics.GetSysHealth(b.db)))
}

func formatMetricsReport(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Plan Generations*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs, %d failed)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Failures))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.adminID == 0 {
		return
	}
	b.reply(b.cfg.adminID, text)
}

// reply sends text as Markdown, falling back to plain text when Telegram
// rejects the formatting.
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.out.Send(markdown(tgbotapi.NewMessage(chatID, text))); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
		b.sendPlain(chatID, text)
	}
}

// edit replaces a status message. When the edit is rejected the text is sent
// as a new plain message so the user is never left on the status.
func (b *Bot) edit(chatID int64, messageID int, text string) {
	e := tgbotapi.NewEditMessageText(chatID, messageID, text)
	e.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.out.Send(e); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to edit message")
		b.sendPlain(chatID, text)
	}
}

func (b *Bot) sendPlain(chatID int64, text string) {
	if _, err := b.out.Send(tgbotapi.NewMessage(chatID, unescape.Replace(text))); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send plain message")
	}
}

// escape protects generated text inside Markdown messages.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

var unescape = strings.NewReplacer(`\_`, "_", `\*`, "*", "\\`", "`", `\[`, "[")

// splitMessage cuts text into chunks of at most limit runes, breaking at line
// ends where it can.
func splitMessage(text string, limit int) []string {
	var parts []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > limit {
			flush()
		}
		for n > limit {
			r := []rune(line)
			parts = append(parts, string(r[:limit]))
			line = string(r[limit:])
			n -= limit
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()

	if len(parts) == 0 {
		return []string{""}
	}
	return parts
}

func markdown(m tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	m.ParseMode = tgbotapi.ModeMarkdown
	return m
}
