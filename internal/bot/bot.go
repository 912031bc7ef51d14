// Package bot serves the task board over a Telegram chat.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"taskboard/internal/auth"
	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/service"
	"taskboard/internal/session"
)

const cbDonePrefix = "done:"

const (
	menuLabelTasks   = "📋 Tasks"
	menuLabelOverdue = "⚠️ Overdue"
	menuLabelStats   = "📊 Stats"
	menuLabelHelp    = "ℹ️ Help"
)

var errNotLinked = errors.New("chat is not linked")

// sender is the part of the Telegram API the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Users    *repository.UserRepository
	Auth     *auth.Service
	Sessions *session.Manager
	Tasks    *service.TaskService
	Digest   *service.DigestService
	Location *time.Location
	Logger   *zap.Logger
}

// Bot aggregates the Telegram API with the user sessions.
type Bot struct {
	api      sender
	updates  func(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	stop     func()
	users    *repository.UserRepository
	auth     *auth.Service
	sessions *session.Manager
	tasks    *service.TaskService
	digest   *service.DigestService
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

func New(token string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, deps)
	b.updates = api.GetUpdatesChan
	b.stop = api.StopReceivingUpdates
	b.logger.Info("bot authorized", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(api sender, deps Deps) *Bot {
	b := &Bot{
		api:      api,
		users:    deps.Users,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		tasks:    deps.Tasks,
		digest:   deps.Digest,
		loc:      deps.Location,
		now:      time.Now,
		logger:   deps.Logger,
	}
	if b.loc == nil {
		b.loc = time.UTC
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.updates(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.stop()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.logger.Warn("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.logger.Warn("handle message", zap.Int64("chat", update.Message.Chat.ID), zap.Error(err))
			}
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	command, args := msg.Command(), msg.CommandArguments()
	if !msg.IsCommand() {
		alias, ok := menuAlias(msg.Text)
		if !ok {
			return b.sendText(msg.Chat.ID, "I did not get that. Try /help for the list of commands.")
		}
		command, args = alias, ""
	}
	b.logger.Debug("command", zap.Int64("from", msg.From.ID), zap.String("command", command))
	return b.handleCommand(ctx, msg.Chat.ID, msg.From, command, strings.TrimSpace(args))
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, from *tgbotapi.User, command, args string) error {
	switch command {
	case "start":
		return b.handleStart(ctx, chatID, from)
	case "help":
		return b.sendText(chatID, helpText)
	case "link":
		return b.handleLink(ctx, chatID, from, args)
	}

	sess, err := b.sessionFor(ctx, from)
	if errors.Is(err, errNotLinked) {
		return b.sendText(chatID, notLinkedText)
	}
	if err != nil {
		return err
	}

	switch command {
	case "tasks":
		return b.handleTasks(chatID, sess)
	case "overdue":
		return b.handleOverdue(chatID, sess)
	case "stats":
		return b.handleStats(chatID, sess)
	case "add":
		return b.handleAdd(ctx, chatID, sess, args)
	case "done":
		return b.handleDone(ctx, chatID, sess, args)
	case "delete":
		return b.handleDelete(ctx, chatID, sess, args)
	case "digest":
		return b.sendText(chatID, b.digest.Summary(sess.Store.Snapshot(), sess.CurrentUser(), b.now().In(b.loc)))
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Debug("callback ack", zap.Error(err))
	}
	if !strings.HasPrefix(cb.Data, cbDonePrefix) {
		return nil
	}
	chatID := cb.Message.Chat.ID
	sess, err := b.sessionFor(ctx, cb.From)
	if errors.Is(err, errNotLinked) {
		return b.sendText(chatID, notLinkedText)
	}
	if err != nil {
		return err
	}

	taskID := strings.TrimPrefix(cb.Data, cbDonePrefix)
	task, ok := sess.Store.Task(taskID)
	if !ok {
		return b.sendText(chatID, "Task not found. Send /tasks for a fresh list.")
	}
	if task.Status == model.StatusDone {
		return b.sendText(chatID, "Task is already done.")
	}
	if _, err := sess.Store.UpdateTask(ctx, taskID, model.TaskPatch{Status: model.SetTo(model.StatusDone)}); err != nil {
		return b.sendText(chatID, "Could not complete the task: "+escape(err.Error()))
	}
	if err := b.sendText(chatID, fmt.Sprintf("✅ Done: %s", escape(task.Name))); err != nil {
		return err
	}
	return b.handleTasks(chatID, sess)
}

// SendDigests sends the daily digest to every linked chat.
func (b *Bot) SendDigests(ctx context.Context) error {
	users, err := b.users.ListLinked(ctx)
	if err != nil {
		return err
	}
	now := b.now().In(b.loc)
	for i := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		user := &users[i]
		var text string
		if sess, ok := b.sessions.Get(user.ID); ok {
			text = b.digest.Summary(sess.Store.Snapshot(), user, now)
		} else {
			text, err = b.digest.ForUser(ctx, user, now)
			if err != nil {
				b.logger.Warn("build digest", zap.String("user", user.ID), zap.Error(err))
				continue
			}
		}
		if err := b.sendText(*user.TelegramID, text); err != nil {
			b.logger.Warn("send digest", zap.String("user", user.ID), zap.Error(err))
		}
	}
	return nil
}

func (b *Bot) sessionFor(ctx context.Context, from *tgbotapi.User) (*session.Session, error) {
	user, err := b.users.FindByTelegramID(ctx, from.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errNotLinked
		}
		return nil, err
	}
	sess, err := b.sessions.Open(ctx, user)
	if err != nil {
		b.logger.Warn("session load incomplete", zap.String("user", user.ID), zap.Error(err))
	}
	return sess, nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelOverdue),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func menuAlias(text string) (string, bool) {
	switch strings.TrimSpace(text) {
	case menuLabelTasks:
		return "tasks", true
	case menuLabelOverdue:
		return "overdue", true
	case menuLabelStats:
		return "stats", true
	case menuLabelHelp:
		return "help", true
	}
	return "", false
}
