// Package bot is the Telegram transport: it polls updates, routes
// commands and button presses to the service layer, and renders the
// resulting replies. All domain errors stop here: a failed interaction
// is logged and answered with a generic apology, never a crash, and
// never a dropped polling loop.
package bot

import (
	"context"
	"fmt"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"expensebot/internal/callback"
	"expensebot/internal/log"
	"expensebot/internal/services"
)

const pollTimeoutSeconds = 60

// Bot drives one long-polling Telegram session.
type Bot struct {
	api    *tgbotapi.BotAPI
	svc    *services.EntryService
	logger *log.Logger
}

func New(token string, svc *services.EntryService, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Bot{
		api:    api,
		svc:    svc,
		logger: logger.WithComponent(log.ComponentBot),
	}, nil
}

// Run polls updates until ctx is cancelled. Each update is handled in
// sequence; handler failures are contained per update.
func (b *Bot) Run(ctx context.Context) error {
	b.registerCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	b.logger.InfoContext(ctx, "Bot started",
		log.FieldOperation, log.OpStartup,
		"username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.InfoContext(ctx, "Bot stopped", log.FieldOperation, log.OpShutdown)
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) registerCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Show usage help"},
		{Command: "help", Description: "Show usage help"},
		{Command: "add", Description: "Backfill: reply to an old message to record it"},
		{Command: "invest", Description: "Record an investment"},
		{Command: "loan", Description: "Record a loan repayment"},
		{Command: "summary", Description: "Expense summary by period"},
		{Command: "compare", Description: "Compare periods"},
		{Command: "categories", Description: "Category breakdown for this month"},
		{Command: "edit", Description: "Edit the last entry"},
		{Command: "delete", Description: "Delete the last entry"},
		{Command: "inv_compare", Description: "Investment totals for this year"},
		{Command: "loan_compare", Description: "Loan repayment totals"},
	}
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		b.logger.Warn("Failed to register command list", log.FieldError, err)
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	user := msg.From.FirstName
	logger := b.logger.With(log.FieldChatID, chatID, log.FieldUser, user)

	if msg.IsCommand() {
		b.handleCommand(ctx, logger, msg)
		return
	}

	// In group chats the bot only reacts to messages that look like
	// entries, i.e. start with a digit. Direct messages are always
	// parsed so the user gets format feedback.
	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		if !startsWithDigit(msg.Text) {
			return
		}
	}
	if msg.Text == "" {
		return
	}

	reply, err := b.svc.HandleEntryText(ctx, user, msg.Time(), msg.Text)
	b.deliver(ctx, logger, chatID, reply, err)
}

func (b *Bot) handleCommand(ctx context.Context, logger *log.Logger, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()
	logger = logger.With(log.FieldCommand, command)

	var (
		reply services.Reply
		err   error
	)
	switch command {
	case "start", "help":
		reply = services.Reply{Text: helpText}
	case "add":
		reply, err = b.backfill(ctx, msg)
	case "invest":
		reply, err = b.svc.Invest(ctx, msg.From.FirstName, msg.Time(), msg.CommandArguments())
	case "loan":
		reply, err = b.svc.Loan(ctx, msg.From.FirstName, msg.Time(), msg.CommandArguments())
	case "summary":
		reply = b.svc.SummaryMenu()
	case "compare":
		reply = b.svc.CompareMenu()
	case "categories":
		reply, err = b.svc.CategoryBreakdown(ctx)
	case "edit":
		reply, err = b.svc.EditLast(ctx, msg.CommandArguments())
	case "delete":
		reply, err = b.svc.DeleteLast(ctx)
	case "inv_compare":
		reply, err = b.svc.InvestmentSummary(ctx)
	case "loan_compare":
		reply, err = b.svc.LoanSummary(ctx)
	default:
		// Unknown commands are ignored; the group may host other bots.
		return
	}
	b.deliver(ctx, logger, chatID, reply, err)
}

// backfill records the replied-to message as a historical entry,
// attributed to its original author and timestamp.
func (b *Bot) backfill(ctx context.Context, msg *tgbotapi.Message) (services.Reply, error) {
	orig := msg.ReplyToMessage
	if orig == nil || orig.Text == "" {
		return services.Reply{Text: "❌ Reply to the message you want to record and send /add."}, nil
	}
	user := "Unknown"
	if orig.From != nil {
		user = orig.From.FirstName
	}
	return b.svc.Backfill(ctx, user, orig.Time(), orig.Text)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	logger := b.logger.With(log.FieldChatID, chatID)

	// Acknowledge the press first so the client stops its spinner even
	// when handling fails.
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		logger.Warn("Failed to answer callback", log.FieldError, err)
	}

	intent, err := callback.Decode(cq.Data)
	if err != nil {
		logger.Warn("Ignoring malformed callback payload", log.FieldError, err)
		return
	}
	logger = logger.With(log.FieldIntent, fmt.Sprintf("%T", intent))

	var reply services.Reply
	switch v := intent.(type) {
	case callback.PickCategory:
		reply, err = b.svc.ConfirmCategory(ctx, v.Token, v.Option)
	case callback.PickInvestment:
		reply, err = b.svc.ConfirmInvestment(ctx, v.Token, v.Option)
	case callback.PickLoan:
		reply, err = b.svc.ConfirmLoan(ctx, v.Token, v.Option)
	case callback.ConfirmEdit:
		reply, err = b.svc.ConfirmEdit(ctx, v.Token, v.Yes)
	case callback.ConfirmDelete:
		reply, err = b.svc.ConfirmDelete(ctx, v.Token, v.Yes)
	case callback.ShowSummary:
		reply, err = b.svc.ShowSummary(ctx, v.Period)
	case callback.ShowComparison:
		reply, err = b.svc.ShowComparison(ctx, v.Choice)
	}
	if err != nil {
		logger.ErrorContext(ctx, "Callback handling failed", log.FieldError, err)
		b.editOrSend(logger, cq, services.Reply{Text: failureText})
		return
	}
	b.editOrSend(logger, cq, reply)
}

// deliver sends a handler's reply, or the generic failure message when
// the handler errored.
func (b *Bot) deliver(ctx context.Context, logger *log.Logger, chatID int64, reply services.Reply, err error) {
	if err != nil {
		logger.ErrorContext(ctx, "Handler failed", log.FieldError, err)
		reply = services.Reply{Text: failureText}
	}
	if reply.Text == "" {
		return
	}
	out := tgbotapi.NewMessage(chatID, reply.Text)
	if len(reply.Choices) > 0 {
		out.ReplyMarkup = keyboardMarkup(reply.Choices)
	}
	if _, err := b.api.Send(out); err != nil {
		logger.Error("Failed to send message", log.FieldError, err)
	}
}

// editOrSend replaces the prompt message with the outcome text, which
// also retires its keyboard. A reply that carries a new keyboard is sent
// as a fresh message instead.
func (b *Bot) editOrSend(logger *log.Logger, cq *tgbotapi.CallbackQuery, reply services.Reply) {
	if reply.Text == "" {
		return
	}
	chatID := cq.Message.Chat.ID
	if len(reply.Choices) > 0 {
		out := tgbotapi.NewMessage(chatID, reply.Text)
		out.ReplyMarkup = keyboardMarkup(reply.Choices)
		if _, err := b.api.Send(out); err != nil {
			logger.Error("Failed to send message", log.FieldError, err)
		}
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, reply.Text)
	if _, err := b.api.Send(edit); err != nil {
		logger.Error("Failed to edit message", log.FieldError, err)
	}
}

func keyboardMarkup(rows [][]services.Choice) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
		}
		out = append(out, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}

const helpText = `👋 Expense Tracker Bot

Record an expense by sending:
<amount> <description>[, details]
Example: 50 milk, two packets

Commands:
/invest <amount> [description] - record an investment
/loan <amount> [description] - record a loan repayment
/add - reply to an old message to backfill it
/summary - expense summary by period
/compare - compare periods
/categories - category breakdown for this month
/edit <amount> <description> - edit the last entry
/delete - delete the last entry
/inv_compare - investment totals for this year
/loan_compare - loan repayment totals`

const failureText = "❌ Something went wrong. Please try again."
