package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/ton-energy/internal/config"
	"github.com/suspectuso/ton-energy/internal/ledger"
	"github.com/suspectuso/ton-energy/internal/storage"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

var addrRegex = regexp.MustCompile(`(0:[0-9A-Fa-f]{64}|[UEk0]Q[0-9A-Za-z_-]{46})`)

// Accounts reads player accounts
type Accounts interface {
	GetOrCreate(ctx context.Context, address string) (*storage.Account, error)
}

// Credits lists the energy purchases credited to a wallet
type Credits interface {
	ListCredits(ctx context.Context, address string) ([]storage.Credit, error)
}

// WalletLinks remembers which wallet a Telegram user plays with
type WalletLinks interface {
	LinkWallet(ctx context.Context, userID int64, address string) error
	GetWalletLink(ctx context.Context, userID int64) (*storage.WalletLink, error)
}

// Bot wraps the telegram bot with handlers
type Bot struct {
	bot      *bot.Bot
	cfg      *config.Config
	accounts Accounts
	links    WalletLinks
	credits  Credits
	states   *StateManager
	log      *slog.Logger
}

// New creates a new telegram bot
func New(cfg *config.Config, accounts Accounts, links WalletLinks, credits Credits, log *slog.Logger) (*Bot, error) {
	b := &Bot{
		cfg:      cfg,
		accounts: accounts,
		links:    links,
		credits:  credits,
		states:   NewStateManager(),
		log:      log,
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithCallbackQueryDataHandler("", bot.MatchTypePrefix, b.callbackHandler),
	}

	tgBot, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.bot = tgBot

	// Register command handlers
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start ", bot.MatchTypePrefix, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/game", bot.MatchTypeExact, b.gameHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, b.statsHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, b.helpHandler)

	return b, nil
}

// Start starts the bot polling
func (b *Bot) Start(ctx context.Context) {
	b.log.Info("telegram bot started", "username", b.cfg.BotUsername)
	b.bot.Start(ctx)
}

// --- Handlers ---

func (b *Bot) startHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From
	if referrer, ok := parseReferral(update.Message.Text); ok && referrer != from.ID {
		b.log.Info("referred user joined", "user_id", from.ID, "referrer_id", referrer)
	}

	b.sendMessage(ctx, update.Message.Chat.ID, welcomeText(displayName(from)), MainKeyboard(b.cfg.WebAppURL))
}

func (b *Bot) gameHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	b.sendMessage(ctx, update.Message.Chat.ID,
		"🎮 <b>SECCO Tap Game</b>\n\nTap the button below to start mining SECCO tokens!",
		GameKeyboard(b.cfg.WebAppURL),
	)
}

func (b *Bot) statsHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	text, keyboard := b.statsView(ctx, update.Message.From.ID)
	b.sendMessage(ctx, update.Message.Chat.ID, text, keyboard)
}

func (b *Bot) helpHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	b.sendMessage(ctx, update.Message.Chat.ID, helpText, HelpKeyboard(b.cfg.WebAppURL))
}

func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	userID := update.Message.From.ID
	text := strings.TrimSpace(update.Message.Text)

	state := b.states.Get(userID)
	if state == nil {
		return
	}

	switch state.State {
	case StateWaitAddress:
		b.handleWaitAddress(ctx, update.Message, text)
	}
}

func (b *Bot) handleWaitAddress(ctx context.Context, msg *models.Message, text string) {
	userID := msg.From.ID

	addr := extractAddress(text)
	if addr == "" {
		b.sendMessage(ctx, msg.Chat.ID, "❌ That does not look like a TON address. Try again.", BackKeyboard())
		return
	}

	if err := b.links.LinkWallet(ctx, userID, toncenter.NormalizeAddress(addr)); err != nil {
		b.log.Error("link wallet", "error", err, "user_id", userID)
		b.sendMessage(ctx, msg.Chat.ID, "❌ Could not save the wallet. Try again later.", nil)
		return
	}
	b.states.Clear(userID)

	b.log.Info("wallet linked", "user_id", userID, "address", toncenter.ShortAddr(addr, 6))

	text, keyboard := b.statsView(ctx, userID)
	b.sendMessage(ctx, msg.Chat.ID, text, keyboard)
}

func (b *Bot) callbackHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	cb := update.CallbackQuery
	userID := cb.From.ID
	data := cb.Data

	// Answer callback to remove loading state
	tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	switch data {
	case "back":
		b.states.Clear(userID)
		b.editMessage(ctx, cb.Message, welcomeText(displayName(&cb.From)), MainKeyboard(b.cfg.WebAppURL))
	case "stats":
		text, keyboard := b.statsView(ctx, userID)
		b.editMessage(ctx, cb.Message, text, keyboard)
	case "wallet":
		b.askWallet(ctx, cb)
	case "referral":
		link := referralLink(b.cfg.BotUsername, userID)
		b.editMessage(ctx, cb.Message, referralText(link), ReferralKeyboard(link))
	case "help":
		b.editMessage(ctx, cb.Message, helpText, HelpKeyboard(b.cfg.WebAppURL))
	default:
		b.log.Warn("unknown callback", "data", data, "user_id", userID)
	}
}

func (b *Bot) askWallet(ctx context.Context, cb *models.CallbackQuery) {
	b.states.Set(cb.From.ID, StateWaitAddress)
	b.editMessage(ctx, cb.Message,
		"👛 Send the TON wallet address you play with:",
		BackKeyboard(),
	)
}

// statsView renders the stats of the user's linked wallet, or asks for one
func (b *Bot) statsView(ctx context.Context, userID int64) (string, *models.InlineKeyboardMarkup) {
	link, err := b.links.GetWalletLink(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		b.states.Set(userID, StateWaitAddress)
		return "📊 <b>Your SECCO Mining Stats</b>\n\nSend the TON wallet address you play with to see your stats.", BackKeyboard()
	}
	if err != nil {
		b.log.Error("get wallet link", "error", err, "user_id", userID)
		return "❌ Could not load your stats. Try again later.", BackKeyboard()
	}

	acc, err := b.accounts.GetOrCreate(ctx, link.Address)
	if err != nil {
		b.log.Error("get account", "error", err, "user_id", userID)
		return "❌ Could not load your stats. Try again later.", BackKeyboard()
	}

	credits, err := b.credits.ListCredits(ctx, acc.Address)
	if err != nil {
		b.log.Warn("list credits", "error", err, "user_id", userID)
	}

	return statsText(link.Address, acc, credits), StatsKeyboard(b.cfg.WebAppURL)
}

// --- Texts ---

const helpText = "❓ <b>SECCO Tap Game Help</b>\n\n" +
	"<b>How to Play:</b>\n" +
	"🎯 Tap the SECCO logo to earn tokens\n" +
	"⚡ Each tap costs 1 energy\n" +
	"🔋 Energy refills to 100 every 12 hours\n" +
	"💎 Buy 25, 50 or 100 energy for 0.5, 1 or 2 TON\n\n" +
	"<b>Commands:</b>\n" +
	"/start - Welcome message\n" +
	"/game - Launch the game\n" +
	"/stats - View your statistics\n" +
	"/help - Show this help\n\n" +
	"<b>Need Support?</b>\n" +
	"Contact: @secco_support"

func welcomeText(name string) string {
	return fmt.Sprintf(
		"🚀 <b>Welcome to SECCO Tap Game, %s!</b>\n\n"+
			"💎 The ultimate DeFi mining simulator!\n"+
			"⚡ Tap to earn SECCO tokens\n"+
			"🔥 Upgrade your mining power\n"+
			"📈 Compete with friends\n\n"+
			"Ready to start mining? 👇",
		html.EscapeString(name),
	)
}

func statsText(address string, acc *storage.Account, credits []storage.Credit) string {
	text := fmt.Sprintf(
		"📊 <b>Your SECCO Mining Stats</b>\n\n"+
			"👛 <b>Wallet:</b> <code>%s</code>\n"+
			"💰 <b>Balance:</b> %s SECCO\n"+
			"⚡ <b>Energy:</b> %d/%d\n"+
			"🏆 <b>Level:</b> %d\n"+
			"✨ <b>XP:</b> %s\n"+
			"📅 <b>Playing since:</b> %s",
		html.EscapeString(toncenter.ShortAddr(toncenter.RawToFriendly(address), 6)),
		formatNumber(acc.Balance),
		acc.Energy, ledger.MaxEnergy,
		acc.Level,
		formatNumber(acc.Experience),
		acc.CreatedAt.UTC().Format("02 Jan 2006"),
	)

	if len(credits) == 0 {
		return text
	}
	var energy int
	var nano int64
	for _, c := range credits {
		energy += c.Energy
		nano += c.ValueNano
	}
	return text + fmt.Sprintf("\n💎 <b>Energy bought:</b> %d in %d purchases (%s TON)\n🕐 <b>Last purchase:</b> %s",
		energy, len(credits),
		toncenter.NanoToTON(nano).StringFixed(2),
		credits[0].CreditedAt.UTC().Format("02 Jan 2006"),
	)
}

func referralText(link string) string {
	return "👥 <b>Invite Friends</b>\n\n" +
		"Share your link and mine SECCO together:\n" +
		"<code>" + html.EscapeString(link) + "</code>"
}

func referralLink(botUsername string, userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", strings.TrimPrefix(botUsername, "@"), userID)
}

// parseReferral extracts the referrer from "/start ref_<id>"
func parseReferral(text string) (int64, bool) {
	payload, ok := strings.CutPrefix(strings.TrimSpace(text), "/start ")
	if !ok {
		return 0, false
	}
	idStr, ok := strings.CutPrefix(strings.TrimSpace(payload), "ref_")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func displayName(u *models.User) string {
	if u == nil {
		return "friend"
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "friend"
}

// formatNumber groups thousands with commas
func formatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.SendMessage(ctx, params)
	if err != nil {
		b.log.Error("send message", "error", err)
	}
}

func (b *Bot) editMessage(ctx context.Context, msg models.MaybeInaccessibleMessage, text string, keyboard *models.InlineKeyboardMarkup) {
	if msg.Message == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.EditMessageText(ctx, params)
	if err != nil {
		b.log.Error("edit message", "error", err)
	}
}

func extractAddress(text string) string {
	matches := addrRegex.FindStringSubmatch(text)
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
