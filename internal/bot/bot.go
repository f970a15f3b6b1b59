package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"convalesense/internal/logger"
	"convalesense/internal/model"
	"convalesense/internal/repository"
	"convalesense/internal/service"
)

const cbDonePrefix = "done:"

const (
	menuLabelPlans  = "📋 My plans"
	menuLabelReport = "📊 Today"
	menuLabelHelp   = "ℹ️ Help"
	progressLimit   = 5
)

var errUsage = errors.New("usage")

// Bot is the patient-facing Telegram client.
type Bot struct {
	api       *tgbotapi.BotAPI
	users     *repository.UserRepository
	plans     *service.PlanService
	records   *service.RecordService
	reminders *service.ReminderService
	loc       *time.Location
	log       *logger.Logger
}

func New(
	token string,
	users *repository.UserRepository,
	plans *service.PlanService,
	records *service.RecordService,
	reminders *service.ReminderService,
	loc *time.Location,
	log *logger.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log = log.With("component", "bot")
	log.Info("bot authorized", "account", api.Self.UserName)

	return &Bot{
		api:       api,
		users:     users,
		plans:     plans,
		records:   records,
		reminders: reminders,
		loc:       loc,
		log:       log,
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error("handle callback", "error", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error("handle message", "error", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		b.log.Debug("command", "from", msg.From.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	switch strings.ToLower(strings.TrimSpace(msg.Text)) {
	case strings.ToLower(menuLabelPlans):
		return b.handlePlans(ctx, msg)
	case strings.ToLower(menuLabelReport):
		return b.handleReport(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return b.handleHelp(msg)
	}

	return b.sendText(msg.Chat.ID, "I did not understand that. Send /plans to see your exercises or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "plans":
		return b.handlePlans(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "progress":
		return b.handleProgress(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep track of the exercises your therapist planned for you.</b>\n\n"+
			"Your patient id is <code>%d</code>. Share it with your therapist so they can assign you a plan.\n\n%s",
		escape(user.String()), user.ID, helpText,
	)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "Commands:\n" +
	"• /plans — today's plans and exercises\n" +
	"• /done &lt;id&gt; &lt;count&gt; [minutes] — log a finished exercise\n" +
	"• /progress &lt;id&gt; — your latest results for an exercise\n" +
	"• /report — today's summary\n" +
	"• /help — this message"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+helpText)
}

func (b *Bot) handlePlans(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	plans, err := b.plans.ListForPatient(ctx, user.ID)
	if err != nil {
		return err
	}

	now := time.Now().In(b.loc)
	text := formatPlans(plans, now)
	buttons := doneButtons(plans, now)
	if len(buttons) == 0 {
		return b.sendText(msg.Chat.ID, text)
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, text, tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	peID, count, minutes, err := parseDoneArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /done &lt;id&gt; &lt;count&gt; [minutes], for example /done 12 10 15")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.submit(ctx, msg.Chat.ID, user, peID, &count, minutes)
}

func (b *Bot) handleProgress(ctx context.Context, msg *tgbotapi.Message) error {
	peID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /progress &lt;id&gt;, for example /progress 12")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	pe, ok, err := b.ownedPlanExercise(ctx, msg.Chat.ID, user, peID)
	if !ok || err != nil {
		return err
	}
	records, err := b.records.ListByPlanExercise(ctx, pe.ID)
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, formatProgress(*pe, records, b.loc))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reminders.DailySummary(ctx, *user, time.Now().In(b.loc))
	if err != nil {
		b.log.Error("build summary", "user", user.ID, "error", err)
		return b.sendText(msg.Chat.ID, "Could not build the report, please try again later.")
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", "error", err)
	}
	if !strings.HasPrefix(cb.Data, cbDonePrefix) {
		return nil
	}

	peID, err := parseID(strings.TrimPrefix(cb.Data, cbDonePrefix))
	if err != nil {
		return nil
	}
	b.log.Debug("callback done", "from", cb.From.ID, "plan_exercise", peID)

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}
	return b.submit(ctx, cb.Message.Chat.ID, user, peID, nil, 0)
}

// submit logs a record ending now. A nil count means the planned reps.
func (b *Bot) submit(ctx context.Context, chatID int64, user *model.User, peID uint, count *uint, minutes uint) error {
	pe, ok, err := b.ownedPlanExercise(ctx, chatID, user, peID)
	if !ok || err != nil {
		return err
	}
	if count == nil {
		reps := pe.Reps()
		count = &reps
	}

	end := time.Now().In(b.loc).Truncate(time.Second)
	start := end.Add(-time.Duration(minutes) * time.Minute)
	rec, err := b.records.Submit(ctx, service.RecordInput{
		PlanExerciseID: pe.ID,
		Count:          count,
		Start:          &start,
		End:            &end,
	})
	switch {
	case errors.Is(err, service.ErrUnavailable):
		return b.sendText(chatID, "This exercise is paused by your therapist.")
	case errors.Is(err, repository.ErrDuplicateRecord):
		return b.sendText(chatID, "This result is already logged.")
	case err != nil:
		return err
	}

	b.log.Info("record submitted", "user", user.ID, "plan_exercise", pe.ID, "record", rec.ID)
	return b.sendText(chatID, fmt.Sprintf("✅ Logged %d × %s.\n%s", rec.Count, escape(pe.Name()), percentageLine(*rec)))
}

// ownedPlanExercise loads the plan exercise and replies when it is missing
// or belongs to another patient.
func (b *Bot) ownedPlanExercise(ctx context.Context, chatID int64, user *model.User, peID uint) (*model.PlanExercise, bool, error) {
	pe, err := b.plans.GetExercise(ctx, peID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && (pe.Plan == nil || pe.Plan.PatientID != user.ID)) {
		return nil, false, b.sendText(chatID, fmt.Sprintf("Exercise %d is not in your plans. Send /plans to see the ids.", peID))
	}
	if err != nil {
		return nil, false, err
	}
	return pe, true, nil
}

// SendDailyReports sends a summary to every user reachable over Telegram.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.users.ListWithTelegram(ctx)
	if err != nil {
		return err
	}
	now := time.Now().In(b.loc)
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.reminders.DailySummary(ctx, user, now)
		if err != nil {
			b.log.Error("build summary", "user", user.ID, "error", err)
			continue
		}
		if err := b.sendText(*user.TelegramID, text); err != nil {
			b.log.Error("send summary", "user", user.ID, "error", err)
		}
	}
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelPlans),
			tgbotapi.NewKeyboardButton(menuLabelReport),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

// doneButtons offers one quick "done" button per exercise in today's plans.
func doneButtons(plans []model.Plan, now time.Time) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, plan := range plans {
		if !plan.ActiveOn(now) {
			continue
		}
		for _, pe := range model.FilterEnabled(plan.PlanExercises) {
			label := fmt.Sprintf("✅ %s", shortName(pe.Name(), 28))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbDonePrefix, pe.ID)),
			))
		}
	}
	return rows
}

func formatPlans(plans []model.Plan, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("📋 <b>Your plans</b>\n")

	shown := 0
	for _, plan := range plans {
		if !plan.ActiveOn(now) {
			continue
		}
		shown++
		sb.WriteString(fmt.Sprintf("\n🏥 <b>%s</b>", escape(strings.TrimSpace(plan.Name))))
		if plan.Therapist != nil {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", escape(plan.Therapist.String())))
		}
		sb.WriteByte('\n')
		if desc := strings.TrimSpace(plan.Description); desc != "" {
			sb.WriteString(fmt.Sprintf("%s\n", escape(desc)))
		}
		items := model.FilterEnabled(plan.PlanExercises)
		if len(items) == 0 {
			sb.WriteString("— nothing scheduled\n")
			continue
		}
		for _, pe := range items {
			sb.WriteString(fmt.Sprintf("[%d] <b>%s</b>\n   %s\n", pe.ID, escape(pe.Name()), pe.Guidelines()))
		}
	}
	if shown == 0 {
		sb.WriteString("— no active plans right now")
	}
	return strings.TrimSpace(sb.String())
}

// formatProgress lists the latest records, newest last.
func formatProgress(pe model.PlanExercise, records []model.ExerciseRecord, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📈 <b>%s</b>\n", escape(pe.Name())))
	if len(records) == 0 {
		sb.WriteString("— no results yet")
		return sb.String()
	}
	if len(records) > progressLimit {
		records = records[len(records)-progressLimit:]
	}
	for _, rec := range records {
		rec.PlanExercise = &pe
		sb.WriteString(fmt.Sprintf("• %s: %d in %s, %s\n",
			rec.Start.In(loc).Format("2006-01-02 15:04"), rec.Count, rec.CompletedTime(), percentageLine(rec)))
	}
	return strings.TrimSpace(sb.String())
}

func percentageLine(rec model.ExerciseRecord) string {
	pct, err := rec.Percentage()
	if err != nil {
		return "no rep target"
	}
	return fmt.Sprintf("%.0f%% of target", pct)
}

func parseDoneArgs(args string) (peID, count, minutes uint, err error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return 0, 0, 0, errUsage
	}
	if peID, err = parseID(fields[0]); err != nil {
		return 0, 0, 0, err
	}
	if count, err = parseUint(fields[1]); err != nil {
		return 0, 0, 0, err
	}
	if len(fields) == 3 {
		if minutes, err = parseUint(fields[2]); err != nil {
			return 0, 0, 0, err
		}
	}
	return peID, count, minutes, nil
}

func parseID(raw string) (uint, error) {
	id, err := parseUint(raw)
	if err != nil || id == 0 {
		return 0, errUsage
	}
	return id, nil
}

func parseUint(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, errUsage
	}
	return uint(value), nil
}

func shortName(name string, maxLen int) string {
	runes := []rune(strings.TrimSpace(name))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
