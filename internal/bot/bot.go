// Package bot implements the Telegram front end: commands and callbacks
// for games, the Battle Arena and swaps, trial gating per Telegram user,
// and play session tokens checked by the web app.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/decred/slog"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nova-arcade/internal/config"
	"nova-arcade/internal/domain"
	"nova-arcade/internal/observability"
	"nova-arcade/internal/swap"
	"nova-arcade/internal/trial"
)

const errorReply = "An error occurred. Please try again or contact support."

// Sender delivers messages and callback answers. *tgbotapi.BotAPI
// satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot handles Telegram updates.
type Bot struct {
	sender   Sender
	gate     *trial.Gate
	sessions *Sessions
	catalog  *config.Catalog
	prices   swap.PriceSource
	webApp   *url.URL
	deposit  string
	log      slog.Logger
}

// Option configures Bot.
type Option func(*Bot)

// WithSessions shares a session table, e.g. with the bot API server.
func WithSessions(s *Sessions) Option {
	return func(b *Bot) {
		b.sessions = s
	}
}

// WithPrices enables the rates callback.
func WithPrices(p swap.PriceSource) Option {
	return func(b *Bot) {
		b.prices = p
	}
}

// WithDepositAddress enables the deposit callback.
func WithDepositAddress(addr string) Option {
	return func(b *Bot) {
		b.deposit = addr
	}
}

// WithLogger sets the logger.
func WithLogger(log slog.Logger) Option {
	return func(b *Bot) {
		b.log = log
	}
}

// New creates a bot. webAppURL is the base of every web app link.
func New(sender Sender, gate *trial.Gate, catalog *config.Catalog, webAppURL string, opts ...Option) (*Bot, error) {
	u, err := url.Parse(webAppURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid web app URL %q", webAppURL)
	}
	if catalog == nil {
		catalog = config.DefaultCatalog("")
	}
	b := &Bot{
		sender:   sender,
		gate:     gate,
		sessions: NewSessions(),
		catalog:  catalog,
		webApp:   u,
		log:      slog.Disabled,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Sessions returns the session table.
func (b *Bot) Sessions() *Sessions {
	return b.sessions
}

// Run handles updates until ctx is done or updates is closed.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate dispatches one update. Handler failures are logged and
// answered with a generic error message.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	var (
		chatID int64
		err    error
	)
	switch {
	case u.CallbackQuery != nil:
		observability.RecordBotUpdate("callback")
		if u.CallbackQuery.Message != nil {
			chatID = u.CallbackQuery.Message.Chat.ID
		}
		err = b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.IsCommand():
		observability.RecordBotUpdate("command")
		chatID = u.Message.Chat.ID
		err = b.handleCommand(ctx, u.Message)
	default:
		observability.RecordBotUpdate("ignored")
		return
	}

	if err != nil {
		b.log.Errorf("update %d: %v", u.UpdateID, err)
		if chatID != 0 {
			if _, sendErr := b.sender.Send(tgbotapi.NewMessage(chatID, errorReply)); sendErr != nil {
				b.log.Warnf("send error reply: %v", sendErr)
			}
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) error {
	if m.From == nil {
		return nil
	}
	chatID, userID := m.Chat.ID, m.From.ID

	switch m.Command() {
	case "start":
		name := m.From.UserName
		if name == "" {
			name = m.From.FirstName
		}
		return b.start(ctx, chatID, userID, name)
	case "menu":
		return b.menu(chatID)
	case "play":
		return b.play(ctx, chatID, userID, true)
	case "battle":
		return b.battle(chatID)
	case "help":
		return b.reply(chatID, helpText, nil)
	default:
		b.log.Debugf("unknown command /%s from %d", m.Command(), userID)
		return nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.Message == nil || q.From == nil {
		return b.answer(q.ID, "")
	}
	chatID, userID := q.Message.Chat.ID, q.From.ID

	data := q.Data
	switch {
	case strings.HasPrefix(data, "play_"):
		return b.playGame(ctx, q, strings.TrimPrefix(data, "play_"))
	case strings.HasPrefix(data, "battle_"):
		return b.battleMode(q, strings.TrimPrefix(data, "battle_"))
	case strings.HasPrefix(data, "join_"):
		return b.joinMode(q, strings.TrimPrefix(data, "join_"))
	}

	if err := b.answer(q.ID, ""); err != nil {
		b.log.Warnf("answer callback: %v", err)
	}
	switch data {
	case "games":
		return b.play(ctx, chatID, userID, false)
	case "battle":
		return b.battle(chatID)
	case "menu":
		return b.menu(chatID)
	case "cancel":
		return b.reply(chatID, "Cancelled. Use /menu to see all options.", nil)
	case "balance":
		return b.balance(chatID)
	case "deposit":
		return b.depositInfo(chatID)
	case "stats", "trial_stats":
		return b.trialStats(ctx, chatID, userID)
	case "swap":
		return b.swap(chatID)
	case "rates":
		return b.rates(ctx, chatID)
	case "leaderboard":
		return b.leaderboard(chatID)
	case "connect_wallet":
		return b.reply(chatID, connectWalletText, b.keyboard(
			row(b.link("🔗 Connect Now", "/", "connect", "true")),
			row(button("❓ Why Connect?", "why_connect")),
		))
	case "why_connect":
		return b.reply(chatID, whyConnectText, b.keyboard(
			row(b.link("🔗 Connect Wallet", "/", "connect", "true")),
			row(button("🔙 Back", "menu")),
		))
	default:
		b.log.Debugf("unknown callback %q from %d", data, userID)
		return nil
	}
}

// identity is the trial identity of a Telegram user.
func identity(userID int64) trial.Identity {
	return trial.Identity{DeviceID: "tg_" + strconv.FormatInt(userID, 10)}
}

func (b *Bot) start(ctx context.Context, chatID, userID int64, name string) error {
	status, err := b.gate.CheckTrialStatus(ctx, identity(userID))
	if err != nil {
		return err
	}

	var trialLine string
	firstRow := row(button("🎮 Play Games", "games"))
	statsData := "stats"
	if status.CanPlay {
		trialLine = fmt.Sprintf("🎮 *Free Trials: %d/%d remaining*", status.TrialsRemaining, domain.MaxTrials)
	} else {
		trialLine = "🔒 *Free trials used - Connect wallet to play!*"
		firstRow = row(b.link("🔗 Connect Wallet", "/", "connect", "true"))
		statsData = "trial_stats"
	}

	text := fmt.Sprintf(welcomeText, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, name), len(b.catalog.Games), trialLine)
	return b.reply(chatID, text, b.keyboard(
		firstRow,
		row(button("📊 Stats", statsData), button("💰 Balance", "balance")),
	))
}

func (b *Bot) menu(chatID int64) error {
	return b.reply(chatID, "*🎮 Nova Arcade Menu*", b.keyboard(
		row(button("🎯 Play Games", "games")),
		row(button("⚔️ Battle Arena", "battle")),
		row(button("💱 Swap Tokens", "swap")),
		row(button("🏆 Leaderboard", "leaderboard")),
		row(button("💰 My Balance", "balance")),
		row(button("📊 My Stats", "stats")),
		row(b.link("🌐 Open App", "/")),
	))
}

// play lists the games, or the trial limit notice when none are left.
func (b *Bot) play(ctx context.Context, chatID, userID int64, fromCommand bool) error {
	status, err := b.gate.CheckTrialStatus(ctx, identity(userID))
	if err != nil {
		return err
	}
	if !status.CanPlay {
		if fromCommand {
			return b.reply(chatID, trialLimitText, b.keyboard(
				row(b.link("🔗 Connect Wallet", "/", "connect", "true")),
				row(button("📊 My Stats", "trial_stats")),
				row(button("❓ Why Connect?", "why_connect")),
			))
		}
		return b.reply(chatID, trialLimitShortText, b.keyboard(
			row(b.link("🔗 Connect Wallet", "/", "connect", "true")),
			row(button("📊 My Stats", "trial_stats")),
		))
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(b.catalog.Games)+1)
	for _, g := range b.catalog.Games {
		rows = append(rows, row(button(g.Title(), "play_"+g.ID)))
	}
	text := fmt.Sprintf("*🎯 Choose a Game:*\n\nFree plays remaining: *%d/%d*", status.TrialsRemaining, domain.MaxTrials)
	if fromCommand {
		rows = append(rows, row(b.link("🌐 Open Full App", "/")))
		text = fmt.Sprintf("*🎯 Choose a Game:*\n\n🎮 Free plays remaining: *%d/%d*\n\n_Connect wallet for unlimited access & prizes!_",
			status.TrialsRemaining, domain.MaxTrials)
	}
	return b.reply(chatID, text, b.keyboard(rows...))
}

// playGame checks trials, mints a session token, consumes a trial and
// replies with the game link.
func (b *Bot) playGame(ctx context.Context, q *tgbotapi.CallbackQuery, gameID string) error {
	game, ok := b.catalog.Game(gameID)
	if !ok {
		return b.answer(q.ID, "Unknown game")
	}
	chatID, userID := q.Message.Chat.ID, q.From.ID
	id := identity(userID)

	status, err := b.gate.CheckTrialStatus(ctx, id)
	if err != nil {
		return err
	}
	if !status.CanPlay {
		return b.trialsExhausted(q)
	}

	token, err := b.sessions.Issue(userID, gameID)
	if err != nil {
		return err
	}
	allowed, err := b.gate.UseTrial(ctx, id, gameID)
	if err != nil {
		b.sessions.Revoke(token)
		return err
	}
	if !allowed {
		b.sessions.Revoke(token)
		return b.trialsExhausted(q)
	}

	info, err := b.gate.TrialInfo(ctx, id)
	if err != nil {
		return err
	}
	link := b.url("/",
		"game", gameID,
		"tg_user", strconv.FormatInt(userID, 10),
		"session", token,
		"trial", strconv.Itoa(info.Used),
	)

	if err := b.answer(q.ID, fmt.Sprintf("✅ Trial %d/%d used", info.Used, domain.MaxTrials)); err != nil {
		b.log.Warnf("answer callback: %v", err)
	}
	b.log.Infof("user %d started %s (trial %d/%d)", userID, gameID, info.Used, domain.MaxTrials)

	playRow := row(tgbotapi.NewInlineKeyboardButtonURL("🎮 Play "+game.Title(), link))
	entry := formatUSDC(game.EntryUSDC)
	switch info.Remaining {
	case 0:
		return b.reply(chatID, fmt.Sprintf(lastTrialText, game.Title(), entry), b.keyboard(
			playRow,
			row(button("🔗 Connect Wallet", "connect_wallet")),
		))
	case 1:
		return b.reply(chatID, fmt.Sprintf("*%s*\n\nEntry Fee: %s\nFree plays left: *%d/%d*\n\n⚠️ Only 1 free play remaining after this!",
			game.Title(), entry, info.Remaining, domain.MaxTrials), b.keyboard(
			playRow,
			row(button("🔗 Connect Now", "connect_wallet")),
		))
	default:
		return b.reply(chatID, fmt.Sprintf("*%s*\n\nEntry Fee: %s\nFree plays left: *%d/%d*\n\nClick below to start playing!",
			game.Title(), entry, info.Remaining, domain.MaxTrials), b.keyboard(playRow))
	}
}

func (b *Bot) trialsExhausted(q *tgbotapi.CallbackQuery) error {
	if err := b.answer(q.ID, "❌ No trials remaining!"); err != nil {
		b.log.Warnf("answer callback: %v", err)
	}
	return b.reply(q.Message.Chat.ID, "*🔒 Trial Limit Reached*\n\nConnect your wallet to continue playing!", b.keyboard(
		row(b.link("🔗 Connect Wallet", "/", "connect", "true")),
	))
}

func (b *Bot) battle(chatID int64) error {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(b.catalog.BattleModes))
	for _, m := range b.catalog.BattleModes {
		rows = append(rows, row(button(fmt.Sprintf("%s (%s)", m.Title(), formatUSDC(m.EntryUSDC)), "battle_"+m.ID)))
	}
	return b.reply(chatID, "*⚔️ Battle Arena Modes:*\n\n_Entry in USDC, prizes in $NAG tokens!_", b.keyboard(rows...))
}

func (b *Bot) battleMode(q *tgbotapi.CallbackQuery, modeID string) error {
	mode, ok := b.catalog.BattleMode(modeID)
	if !ok {
		return b.answer(q.ID, "Unknown mode")
	}
	if err := b.answer(q.ID, ""); err != nil {
		b.log.Warnf("answer callback: %v", err)
	}
	text := fmt.Sprintf("*%s*\n\nEntry: %s\nPrize Pool: %s NAG\nPlayers: %s\n\n%s\n\n_AI Anti-Cheat Enabled_",
		mode.Title(), formatUSDC(mode.EntryUSDC), mode.PrizeNAG, mode.Players, mode.Description)
	return b.reply(q.Message.Chat.ID, text, b.keyboard(
		row(button("✅ Join Match", "join_"+mode.ID)),
		row(button("❌ Cancel", "cancel")),
	))
}

// joinMode sends the player to the web app, where entries are signed
// with the wallet.
func (b *Bot) joinMode(q *tgbotapi.CallbackQuery, modeID string) error {
	mode, ok := b.catalog.BattleMode(modeID)
	if !ok {
		return b.answer(q.ID, "Unknown mode")
	}
	if err := b.answer(q.ID, ""); err != nil {
		b.log.Warnf("answer callback: %v", err)
	}
	text := fmt.Sprintf("*%s*\n\nBattle Arena entries are made from your wallet in the app.\nEntry: %s",
		mode.Title(), formatUSDC(mode.EntryUSDC))
	return b.reply(q.Message.Chat.ID, text, b.keyboard(
		row(b.link("⚔️ Open Battle Arena", "/battle-arena", "mode", mode.ID)),
		row(button("🔙 Back to Menu", "menu")),
	))
}

func (b *Bot) balance(chatID int64) error {
	rows := [][]tgbotapi.InlineKeyboardButton{
		row(b.link("👛 Open Wallet", "/", "connect", "true")),
		row(button("💱 Swap", "swap")),
	}
	if b.deposit != "" {
		rows = append(rows, row(button("📥 Deposit", "deposit")))
	}
	return b.reply(chatID, "*💰 Your Balance*\n\nBalances are read from your connected wallet. Open the app to view NAG, USDC, USDT and SOL.", b.keyboard(rows...))
}

func (b *Bot) depositInfo(chatID int64) error {
	if b.deposit == "" {
		return b.reply(chatID, "Deposits are not available right now.", nil)
	}
	return b.reply(chatID, fmt.Sprintf("*📥 Deposit USDC/USDT*\n\nSend to this address:\n`%s`\n\n_Network: Solana_\n_Min deposit: 5 USDC_", b.deposit), nil)
}

func (b *Bot) trialStats(ctx context.Context, chatID, userID int64) error {
	id := identity(userID)
	info, err := b.gate.TrialInfo(ctx, id)
	if err != nil {
		return err
	}
	history, err := b.gate.History(ctx, id)
	if err != nil {
		return err
	}

	state := "✅ Active"
	if info.Remaining == 0 {
		state = "❌ Exhausted"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "*📊 Your Trial Stats:*\n\n🎮 Games played: *%d/%d*\n🔒 Status: %s\n\n", info.Used, info.Total, state)
	if len(history) > 0 {
		sb.WriteString("*Games you tried:*\n")
		for _, h := range history {
			name := h.GameID
			if g, ok := b.catalog.Game(h.GameID); ok {
				name = g.Title()
			}
			fmt.Fprintf(&sb, "• %s\n", name)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("_Connect wallet for unlimited access and prizes!_")

	return b.reply(chatID, sb.String(), b.keyboard(
		row(b.link("🔗 Connect Wallet", "/", "connect", "true")),
		row(button("🔙 Back to Menu", "menu")),
	))
}

func (b *Bot) swap(chatID int64) error {
	symbols := make([]string, len(b.catalog.Tokens))
	for i, t := range b.catalog.Tokens {
		symbols[i] = t.Symbol
	}
	rows := [][]tgbotapi.InlineKeyboardButton{row(b.link("🔄 Open Swap", "/swap"))}
	if b.prices != nil {
		rows = append(rows, row(button("📊 View Rates", "rates")))
	}
	return b.reply(chatID, "*💱 Token Swap*\n\nSwap between "+strings.Join(symbols, ", "), b.keyboard(rows...))
}

func (b *Bot) rates(ctx context.Context, chatID int64) error {
	if b.prices == nil {
		return b.reply(chatID, "Rates are not available right now.", nil)
	}
	mints := make([]string, len(b.catalog.Tokens))
	for i, t := range b.catalog.Tokens {
		mints[i] = t.Mint
	}
	prices, err := b.prices.GetPrices(ctx, mints)
	if err != nil {
		return fmt.Errorf("fetch rates: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("*📊 Token Rates (USD)*\n\n")
	for _, t := range b.catalog.Tokens {
		if p, ok := prices[t.Mint]; ok {
			fmt.Fprintf(&sb, "%s: $%s\n", t.Symbol, formatPrice(p))
		} else {
			fmt.Fprintf(&sb, "%s: n/a\n", t.Symbol)
		}
	}
	return b.reply(chatID, sb.String(), b.keyboard(row(b.link("🔄 Open Swap", "/swap"))))
}

func (b *Bot) leaderboard(chatID int64) error {
	return b.reply(chatID, "*🏆 Leaderboard*\n\nRankings are updated live in the app.", b.keyboard(
		row(b.link("📊 Full Leaderboard", "/leaderboard")),
	))
}

func (b *Bot) reply(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := b.sender.Send(msg)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) answer(callbackID, text string) error {
	if callbackID == "" {
		return errors.New("empty callback id")
	}
	_, err := b.sender.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (b *Bot) keyboard(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	m := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &m
}

// url builds a web app link with tg=1 and the given key/value pairs.
func (b *Bot) url(path string, kv ...string) string {
	u := *b.webApp
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	q := url.Values{}
	q.Set("tg", "1")
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (b *Bot) link(text, path string, kv ...string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonURL(text, b.url(path, kv...))
}

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func row(buttons ...tgbotapi.InlineKeyboardButton) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(buttons...)
}
