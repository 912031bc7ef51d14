package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskboard/internal/auth"
	"taskboard/internal/service"
	"taskboard/internal/session"
	"taskboard/internal/view"
)

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /tasks · open tasks, numbered\n" +
	"• /overdue · tasks past their deadline\n" +
	"• /stats · totals and completion rate\n" +
	"• /add name | YYYY-MM-DD | category · add a task (date and category optional)\n" +
	"• /done &lt;n&gt; · mark task n of /tasks done\n" +
	"• /delete &lt;n&gt; · delete task n of /tasks\n" +
	"• /digest · today's digest\n" +
	"• /link &lt;code&gt; · connect this chat to your account"

const notLinkedText = "This chat is not linked to an account yet.\n" +
	"Request a code in the web app (<code>POST /auth/telegram/link</code>) and send <code>/link CODE</code> here."

func (b *Bot) handleStart(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	name := strings.TrimSpace(from.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your task board in your pocket.</b>\n\n", escape(name))

	if _, err := b.sessionFor(ctx, from); errors.Is(err, errNotLinked) {
		return b.sendText(chatID, text+notLinkedText)
	} else if err != nil {
		return err
	}
	return b.sendText(chatID, text+helpText)
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, from *tgbotapi.User, code string) error {
	if code == "" {
		return b.sendText(chatID, "Send the code from the web app, for example <code>/link AB12CD34</code>.")
	}
	user, err := b.auth.RedeemLinkCode(ctx, code, from.ID)
	if errors.Is(err, auth.ErrInvalidToken) {
		return b.sendText(chatID, "That code is invalid or has expired. Request a new one.")
	}
	if err != nil {
		return err
	}
	return b.sendText(chatID, fmt.Sprintf("🔗 Linked to <b>%s</b>. Daily digests will arrive here.\n\n%s", escape(user.Email), helpText))
}

func (b *Bot) handleTasks(chatID int64, sess *session.Session) error {
	open := b.tasks.Open(sess.Store)
	if len(open) == 0 {
		return b.sendText(chatID, "No open tasks. Add one with /add.")
	}
	text := formatTaskList("📋 <b>Open tasks</b>", open, categoryNames(sess.Store.Categories()), b.now().In(b.loc))
	return b.sendWithReplyMarkup(chatID, text, doneKeyboard(open))
}

func (b *Bot) handleOverdue(chatID int64, sess *session.Session) error {
	overdue := view.Overdue(sess.Store.Tasks(), b.now())
	if len(overdue) == 0 {
		return b.sendText(chatID, "Nothing is overdue 🎉")
	}
	return b.sendText(chatID, formatTaskList("⚠️ <b>Overdue</b>", overdue, categoryNames(sess.Store.Categories()), b.now().In(b.loc)))
}

func (b *Bot) handleStats(chatID int64, sess *session.Session) error {
	return b.sendText(chatID, formatStats(sess.Store.Stats(), view.StatusCounts(sess.Store.Tasks())))
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, sess *session.Session, args string) error {
	quick, err := service.ParseQuickTask(args, b.loc)
	if err != nil {
		return b.sendText(chatID, escape(err.Error())+"\nUsage: <code>/add name | YYYY-MM-DD | category</code>")
	}
	task, err := b.tasks.CreateTask(ctx, sess.Store, quick)
	if err != nil {
		return b.sendText(chatID, "Could not add the task: "+escape(err.Error()))
	}
	return b.sendText(chatID, "➕ Added: "+escape(task.Name))
}

func (b *Bot) handleDone(ctx context.Context, chatID int64, sess *session.Session, args string) error {
	n, err := parseIndex(args)
	if err != nil {
		return b.sendText(chatID, "Usage: <code>/done 2</code> (number from /tasks)")
	}
	task, err := b.tasks.CompleteTask(ctx, sess.Store, n)
	if err != nil {
		return b.sendText(chatID, escape(err.Error()))
	}
	return b.sendText(chatID, "✅ Done: "+escape(task.Name))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, sess *session.Session, args string) error {
	n, err := parseIndex(args)
	if err != nil {
		return b.sendText(chatID, "Usage: <code>/delete 2</code> (number from /tasks)")
	}
	task, err := b.tasks.DeleteTask(ctx, sess.Store, n)
	if err != nil {
		return b.sendText(chatID, escape(err.Error()))
	}
	return b.sendText(chatID, "🗑 Deleted: "+escape(task.Name))
}

func parseIndex(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid task number %q", raw)
	}
	return n, nil
}
