package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/config"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/event"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/repository"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageTimeframe
	stageSection
)

const (
	cbCompletePrefix  = "done:"
	cbPushPrefix      = "push:"
	cbRemovePrefix    = "del:"
	cbBreakdownPrefix = "bd:"
	cbTargetPrefix    = "bdtf:"
	cbSlotPrefix      = "bds:"
	cbMovePrefix      = "mv:"
	cbViewPrefix      = "view:"
)

const (
	menuLabelNew  = "➕ Plan a task"
	menuLabelDay  = "📅 Today"
	menuLabelWeek = "🗓 This week"
	menuLabelHelp = "ℹ️ Help"
)

type conversationState struct {
	stage     conversationStage
	title     string
	timeframe model.Timeframe
}

// view remembers the last rendered period view per chat so completion
// events and callbacks can refresh it in place.
type view struct {
	messageID int
	timeframe model.Timeframe
	date      time.Time
}

// Bot is the Telegram surface over the scheduling façade. It only
// talks to the planner and the agenda service and serves the single
// configured owner.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	planner       *service.Planner
	agenda        *service.AgendaService
	config        *config.Config
	conversations map[int64]*conversationState
	views         map[int64]*view
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, planner *service.Planner, agenda *service.AgendaService, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		planner:       planner,
		agenda:        agenda,
		config:        cfg,
		conversations: make(map[int64]*conversationState),
		views:         make(map[int64]*view),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	unsubscribe := b.planner.Subscribe(b.onCompletionChange)
	defer unsubscribe()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

// onCompletionChange refreshes open period views after the planner
// reports a completion change, whoever triggered it.
func (b *Bot) onCompletionChange(change event.CompletionChange) {
	b.mu.Lock()
	views := make(map[int64]view, len(b.views))
	for chatID, v := range b.views {
		views[chatID] = *v
	}
	b.mu.Unlock()

	for chatID, v := range views {
		b.renderView(chatID, v.messageID, v.timeframe, v.date)
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

func (b *Bot) authorized(chatID int64) bool {
	return chatID == b.config.OwnerTelegramID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.authorized(chatID) {
		b.send(chatID, "This planner belongs to someone else.")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	switch msg.Text {
	case menuLabelNew:
		b.startConversation(chatID)
		return
	case menuLabelDay:
		b.showPeriod(ctx, chatID, model.TimeframeDaily, time.Now())
		return
	case menuLabelWeek:
		b.showPeriod(ctx, chatID, model.TimeframeWeekly, time.Now())
		return
	case menuLabelHelp:
		b.sendHelp(chatID)
		return
	}

	b.continueConversation(ctx, chatID, msg.Text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		from := msg.From
		if _, err := b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName); err != nil {
			log.Printf("[warn] upsert user: %v", err)
			b.send(chatID, "Something went wrong, try again.")
			return
		}
		if err := b.planner.Refresh(ctx); err != nil {
			log.Printf("[warn] refresh after start: %v", err)
		}
		b.sendWithMenu(chatID, "Your focus planner is ready. Plan a task or open a period view.")
	case "help":
		b.sendHelp(chatID)
	case "new":
		b.startConversation(chatID)
	case "day":
		b.showPeriod(ctx, chatID, model.TimeframeDaily, time.Now())
	case "week":
		b.showPeriod(ctx, chatID, model.TimeframeWeekly, time.Now())
	case "month":
		b.showPeriod(ctx, chatID, model.TimeframeMonthly, time.Now())
	case "year":
		b.showPeriod(ctx, chatID, model.TimeframeYearly, time.Now())
	default:
		b.send(chatID, "Unknown command. Try /help.")
	}
}

func (b *Bot) sendHelp(chatID int64) {
	b.sendWithMenu(chatID, strings.Join([]string{
		"/new — plan a task into a period",
		"/day /week /month /year — period views",
		"",
		"Inside a view: ✅ completes, ⏭ pushes to the next period,",
		"🔨 breaks a commitment down into shorter periods,",
		"↔️ moves it between Focus and Overflow, 🗑 removes it",
		"together with everything broken down from it.",
	}, "\n"))
}

// --- planning conversation ---

func (b *Bot) startConversation(chatID int64) {
	b.mu.Lock()
	b.conversations[chatID] = &conversationState{stage: stageTitle}
	b.mu.Unlock()
	b.send(chatID, "What do you want to commit to?")
}

func (b *Bot) continueConversation(ctx context.Context, chatID int64, text string) {
	b.mu.Lock()
	state, ok := b.conversations[chatID]
	b.mu.Unlock()
	if !ok || state.stage == stageNone {
		b.send(chatID, "Pick an action from the menu or /help.")
		return
	}

	switch state.stage {
	case stageTitle:
		title := strings.TrimSpace(text)
		if title == "" {
			b.send(chatID, "The title can't be empty. What do you want to commit to?")
			return
		}
		state.title = title
		state.stage = stageTimeframe
		b.askTimeframe(chatID)
	case stageTimeframe:
		tf, ok := timeframeFromLabel(text)
		if !ok {
			b.askTimeframe(chatID)
			return
		}
		state.timeframe = tf
		state.stage = stageSection
		b.askSection(chatID)
	case stageSection:
		section, ok := sectionFromLabel(text)
		if !ok {
			b.askSection(chatID)
			return
		}
		b.finishConversation(ctx, chatID, state, section)
	}
}

func (b *Bot) finishConversation(ctx context.Context, chatID int64, state *conversationState, section model.Section) {
	b.mu.Lock()
	delete(b.conversations, chatID)
	b.mu.Unlock()

	_, err := b.planner.PlanNewTask(ctx, state.title, state.timeframe, section, time.Now())
	if err != nil {
		b.sendWithMenu(chatID, planFailureText(err))
		return
	}
	b.sendWithMenu(chatID, fmt.Sprintf("Committed “%s” to %s.", state.title, service.FormatPeriod(state.timeframe, time.Now())))
}

func planFailureText(err error) string {
	var capacity *service.CapacityExceededError
	if errors.As(err, &capacity) {
		return fmt.Sprintf("The %s section already holds its %d commitments for that period. Free a slot or use Overflow.", sectionTitle(capacity.Section), capacity.Limit)
	}
	if service.IsValidation(err) {
		return "That doesn't look like a valid task. Try again with /new."
	}
	return "Couldn't save that, try again."
}

func (b *Bot) askTimeframe(chatID int64) {
	rows := [][]tgbotapi.KeyboardButton{
		{tgbotapi.NewKeyboardButton(timeframeLabel(model.TimeframeDaily)), tgbotapi.NewKeyboardButton(timeframeLabel(model.TimeframeWeekly))},
		{tgbotapi.NewKeyboardButton(timeframeLabel(model.TimeframeMonthly)), tgbotapi.NewKeyboardButton(timeframeLabel(model.TimeframeYearly))},
	}
	msg := tgbotapi.NewMessage(chatID, "For which period?")
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)
	b.sendMessage(msg)
}

func (b *Bot) askSection(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Into which section?")
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		[]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton(sectionTitle(model.SectionPrimary)),
			tgbotapi.NewKeyboardButton(sectionTitle(model.SectionOverflow)),
		},
	)
	b.sendMessage(msg)
}

// --- period views ---

func (b *Bot) showPeriod(ctx context.Context, chatID int64, tf model.Timeframe, date time.Time) {
	if err := b.planner.Refresh(ctx); err != nil {
		log.Printf("[warn] refresh before view: %v", err)
	}

	msg := tgbotapi.NewMessage(chatID, b.agenda.PeriodSummary(tf, date))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = b.periodKeyboard(tf, date)
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("[warn] send view: %v", err)
		return
	}

	b.mu.Lock()
	b.views[chatID] = &view{messageID: sent.MessageID, timeframe: tf, date: date}
	b.mu.Unlock()
}

func (b *Bot) renderView(chatID int64, messageID int, tf model.Timeframe, date time.Time) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, b.agenda.PeriodSummary(tf, date))
	edit.ParseMode = tgbotapi.ModeHTML
	markup := b.periodKeyboard(tf, date)
	edit.ReplyMarkup = &markup
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("[warn] edit view: %v", err)
	}
}

func (b *Bot) periodKeyboard(tf model.Timeframe, date time.Time) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, section := range model.Sections() {
		for _, entry := range b.planner.CommitmentsFor(section, tf, date) {
			label := entry.Task.Title
			if r := []rune(label); len(r) > 24 {
				label = string(r[:24]) + "…"
			}
			if entry.Task.IsCompleted {
				label = "✅ " + label
			}
			rows = append(rows, []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(label, cbCompletePrefix+itoa(entry.Task.ID)),
				tgbotapi.NewInlineKeyboardButtonData("⏭", cbPushPrefix+itoa(entry.Commitment.ID)),
				tgbotapi.NewInlineKeyboardButtonData("🔨", cbBreakdownPrefix+itoa(entry.Commitment.ID)),
				tgbotapi.NewInlineKeyboardButtonData("↔️", cbMovePrefix+itoa(entry.Commitment.ID)),
				tgbotapi.NewInlineKeyboardButtonData("🗑", cbRemovePrefix+itoa(entry.Commitment.ID)),
			})
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// --- callbacks ---

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	if !b.authorized(chatID) {
		b.answer(cb.ID, "Not yours.")
		return
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		b.callbackComplete(ctx, cb, strings.TrimPrefix(data, cbCompletePrefix))
	case strings.HasPrefix(data, cbPushPrefix):
		b.callbackPush(ctx, cb, strings.TrimPrefix(data, cbPushPrefix))
	case strings.HasPrefix(data, cbRemovePrefix):
		b.callbackRemove(ctx, cb, strings.TrimPrefix(data, cbRemovePrefix))
	case strings.HasPrefix(data, cbBreakdownPrefix):
		b.callbackBreakdown(cb, strings.TrimPrefix(data, cbBreakdownPrefix))
	case strings.HasPrefix(data, cbTargetPrefix):
		b.callbackBreakdownTarget(cb, strings.TrimPrefix(data, cbTargetPrefix))
	case strings.HasPrefix(data, cbSlotPrefix):
		b.callbackBreakdownSlot(ctx, cb, strings.TrimPrefix(data, cbSlotPrefix))
	case strings.HasPrefix(data, cbMovePrefix):
		b.callbackMove(ctx, cb, strings.TrimPrefix(data, cbMovePrefix))
	default:
		b.answer(cb.ID, "")
	}
}

func (b *Bot) callbackComplete(ctx context.Context, cb *tgbotapi.CallbackQuery, arg string) {
	taskID, err := parseID(arg)
	if err != nil {
		b.answer(cb.ID, "")
		return
	}
	if err := b.planner.ToggleCompletion(ctx, taskID); err != nil {
		log.Printf("[warn] toggle completion: %v", err)
		b.answer(cb.ID, "Couldn't save that.")
		return
	}
	// The completion event refreshes the view.
	b.answer(cb.ID, "Done.")
}

func (b *Bot) callbackPush(ctx context.Context, cb *tgbotapi.CallbackQuery, arg string) {
	commitmentID, err := parseID(arg)
	if err != nil {
		b.answer(cb.ID, "")
		return
	}
	err = b.planner.PushToNext(ctx, commitmentID)
	switch {
	case service.IsCapacityExceeded(err):
		b.answer(cb.ID, "The next period is full.")
		return
	case err != nil:
		log.Printf("[warn] push: %v", err)
		b.answer(cb.ID, "Couldn't push that.")
		return
	}
	b.answer(cb.ID, "Pushed to the next period.")
	b.refreshStoredView(cb.Message.Chat.ID)
}

func (b *Bot) callbackRemove(ctx context.Context, cb *tgbotapi.CallbackQuery, arg string) {
	commitmentID, err := parseID(arg)
	if err != nil {
		b.answer(cb.ID, "")
		return
	}
	descendants := len(b.planner.BreakdownSubtree(commitmentID))
	if err := b.planner.RemoveCommitment(ctx, commitmentID); err != nil {
		log.Printf("[warn] remove commitment: %v", err)
		b.answer(cb.ID, "Couldn't remove that.")
		return
	}
	if descendants > 0 {
		b.answer(cb.ID, fmt.Sprintf("Removed with %d broken-down commitments.", descendants))
	} else {
		b.answer(cb.ID, "Removed.")
	}
	b.refreshStoredView(cb.Message.Chat.ID)
}

func (b *Bot) callbackBreakdown(cb *tgbotapi.CallbackQuery, arg string) {
	commitmentID, err := parseID(arg)
	if err != nil {
		b.answer(cb.ID, "")
		return
	}
	c, ok := b.planner.Commitment(commitmentID)
	if !ok {
		b.answer(cb.ID, "That commitment is gone.")
		return
	}
	targets := b.planner.AvailableBreakdownTimeframes(c.Timeframe)
	if len(targets) == 0 {
		b.answer(cb.ID, "Daily commitments can't be broken down further.")
		return
	}

	var row []tgbotapi.InlineKeyboardButton
	for _, tf := range targets {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			timeframeLabel(tf),
			fmt.Sprintf("%s%d:%s", cbTargetPrefix, commitmentID, tf),
		))
	}
	msg := tgbotapi.NewMessage(cb.Message.Chat.ID, "Break it down into:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	b.sendMessage(msg)
	b.answer(cb.ID, "")
}

func (b *Bot) callbackBreakdownTarget(cb *tgbotapi.CallbackQuery, arg string) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		b.answer(cb.ID, "")
		return
	}
	commitmentID, err := parseID(parts[0])
	if err != nil {
		b.answer(cb.ID, "")
		return
	}
	target := model.Timeframe(parts[1])

	slots, err := b.planner.AvailableSlots(commitmentID, target)
	if err != nil {
		log.Printf("[warn] slots: %v", err)
		b.answer(cb.ID, "Couldn't list the open periods.")
		return
	}
	if len(slots) == 0 {
		b.answer(cb.ID, "Every period is already taken.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, slot := range slots {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(
				service.FormatPeriod(target, slot),
				fmt.Sprintf("%s%d:%s:%d", cbSlotPrefix, commitmentID, target, slot.Unix()),
			),
		})
	}
	msg := tgbotapi.NewMessage(cb.Message.Chat.ID, "Which period?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.sendMessage(msg)
	b.answer(cb.ID, "")
}

func (b *Bot) callbackBreakdownSlot(ctx context.Context, cb *tgbotapi.CallbackQuery, arg string) {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) != 3 {
		b.answer(cb.ID, "")
		return
	}
	commitmentID, err := parseID(parts[0])
	if err != nil {
		b.answer(cb.ID, "")
		return
	}
	target := model.Timeframe(parts[1])
	unix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		b.answer(cb.ID, "")
		return
	}
	slot := time.Unix(unix, 0)

	_, err = b.planner.BreakDown(ctx, commitmentID, target, slot)
	switch {
	case service.IsCapacityExceeded(err):
		b.answer(cb.ID, "That period's section is full.")
		return
	case err != nil:
		log.Printf("[warn] breakdown: %v", err)
		b.answer(cb.ID, "Couldn't break that down.")
		return
	}
	b.answer(cb.ID, fmt.Sprintf("Planned for %s.", service.FormatPeriod(target, slot)))
	b.refreshStoredView(cb.Message.Chat.ID)
}

func (b *Bot) callbackMove(ctx context.Context, cb *tgbotapi.CallbackQuery, arg string) {
	commitmentID, err := parseID(arg)
	if err != nil {
		b.answer(cb.ID, "")
		return
	}
	c, ok := b.planner.Commitment(commitmentID)
	if !ok {
		b.answer(cb.ID, "That commitment is gone.")
		return
	}
	dest := model.SectionOverflow
	if c.Section == model.SectionOverflow {
		dest = model.SectionPrimary
	}
	if !b.planner.CanMoveToSection(commitmentID, dest) {
		b.answer(cb.ID, fmt.Sprintf("%s is full for that period.", sectionTitle(dest)))
		return
	}
	if err := b.planner.MoveToSection(ctx, commitmentID, dest); err != nil {
		log.Printf("[warn] move: %v", err)
		b.answer(cb.ID, "Couldn't move that.")
		return
	}
	b.answer(cb.ID, fmt.Sprintf("Moved to %s.", sectionTitle(dest)))
	b.refreshStoredView(cb.Message.Chat.ID)
}

func (b *Bot) refreshStoredView(chatID int64) {
	b.mu.Lock()
	v, ok := b.views[chatID]
	var copied view
	if ok {
		copied = *v
	}
	b.mu.Unlock()
	if ok {
		b.renderView(chatID, copied.messageID, copied.timeframe, copied.date)
	}
}

// SendDailyAgenda pushes today's plan to the owner; wired to the
// morning cron job.
func (b *Bot) SendDailyAgenda(ctx context.Context) error {
	if err := b.planner.Refresh(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(b.config.OwnerTelegramID, b.agenda.PeriodSummary(model.TimeframeDaily, time.Now()))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send daily agenda: %w", err)
	}
	return nil
}

// --- helpers ---

func (b *Bot) send(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendWithMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		[]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton(menuLabelNew),
			tgbotapi.NewKeyboardButton(menuLabelDay),
		},
		[]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton(menuLabelWeek),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		},
	)
	b.sendMessage(msg)
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[warn] send message: %v", err)
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("[warn] answer callback: %v", err)
	}
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", s, err)
	}
	return uint(id), nil
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func timeframeLabel(tf model.Timeframe) string {
	switch tf {
	case model.TimeframeDaily:
		return "Day"
	case model.TimeframeWeekly:
		return "Week"
	case model.TimeframeMonthly:
		return "Month"
	case model.TimeframeYearly:
		return "Year"
	}
	return string(tf)
}

func timeframeFromLabel(label string) (model.Timeframe, bool) {
	for _, tf := range model.Timeframes() {
		if label == timeframeLabel(tf) {
			return tf, true
		}
	}
	return "", false
}

func sectionTitle(section model.Section) string {
	switch section {
	case model.SectionPrimary:
		return "Focus"
	case model.SectionOverflow:
		return "Overflow"
	}
	return string(section)
}

func sectionFromLabel(label string) (model.Section, bool) {
	for _, section := range model.Sections() {
		if label == sectionTitle(section) {
			return section, true
		}
	}
	return "", false
}
