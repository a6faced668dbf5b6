package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hazard-map/internal/config"
	"hazard-map/internal/repository"
	"hazard-map/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageHomeLocation
	stageMarkerLocation
	stageMarkerComment
	stageDeleteID
)

const (
	cbAddMarker    = "add_marker"
	cbShowMap      = "show_map"
	cbDeleteMarker = "delete_marker"
)

const (
	btnAddMarker    = "Добавить метку"
	btnShowMap      = "Показать карту"
	btnDeleteMarker = "Удалить метку"
)

type conversationState struct {
	stage conversationStage
	lat   float64
	lon   float64
}

// Bot drives the conversational capture of markers and delete requests and
// translates engine outcomes into user-facing text.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	markers       *service.MarkerService
	config        *config.Config
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, markers *service.MarkerService, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		markers:       markers,
		config:        cfg,
		conversations: make(map[int64]*conversationState),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
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
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		log.Printf("[info] conversation step %d from %d", state.stage, msg.From.ID)
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendWithMarkup(msg.Chat.ID, "Выберите действие:", mainKeyboard())
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "change_city":
		b.setConversation(msg.From.ID, &conversationState{stage: stageHomeLocation})
		return b.sendText(msg.Chat.ID, "Отправьте вашу геолокацию для центра карты.")
	case "add_admin":
		return b.handleAddAdmin(ctx, msg)
	case "instruction", "help":
		return b.sendText(msg.Chat.ID, instructionText)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendWithMarkup(msg.Chat.ID, "⏪ Ввод отменён.", mainKeyboard())
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /instruction.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, created, err := b.userRepo.GetOrCreate(ctx, msg.From.ID)
	if err != nil {
		return err
	}

	if created || !user.HasMapCenter() {
		b.setConversation(msg.From.ID, &conversationState{stage: stageHomeLocation})
		return b.sendText(msg.Chat.ID, "Отправьте вашу геолокацию для центра карты.")
	}

	return b.sendWithMarkup(msg.Chat.ID, "Выберите действие:", mainKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	switch state.stage {
	case stageHomeLocation:
		if msg.Location == nil {
			return b.sendText(msg.Chat.ID, "Нужна геолокация: нажми на скрепку 📎 → «Геопозиция».")
		}
		if err := b.markers.SetMapCenter(ctx, msg.From.ID, msg.Location.Latitude, msg.Location.Longitude); err != nil {
			if errors.Is(err, service.ErrInvalidCoordinate) {
				return b.sendText(msg.Chat.ID, "Такие координаты не существуют, попробуйте ещё раз.")
			}
			return b.sendError(msg.Chat.ID, err)
		}
		b.clearConversation(msg.From.ID)
		log.Printf("[info] map center set user=%d", msg.From.ID)
		return b.sendWithMarkup(msg.Chat.ID, "Центр карты установлен.", mainKeyboard())

	case stageMarkerLocation:
		if msg.Location == nil {
			return b.sendText(msg.Chat.ID, "Нужна геолокация метки: нажми на скрепку 📎 → «Геопозиция».")
		}
		state.lat = msg.Location.Latitude
		state.lon = msg.Location.Longitude
		state.stage = stageMarkerComment
		return b.sendText(msg.Chat.ID, "Отправьте комментарий к метке.")

	case stageMarkerComment:
		comment := strings.TrimSpace(msg.Text)
		if comment == "" {
			return b.sendText(msg.Chat.ID, "Комментарий не может быть пустым.")
		}
		marker, err := b.markers.CreateMarker(ctx, msg.From.ID, state.lat, state.lon, comment)
		b.clearConversation(msg.From.ID)
		if err != nil {
			if errors.Is(err, service.ErrMarkerExists) {
				return b.sendWithMarkup(msg.Chat.ID, "В этом месте уже есть метка!", mainKeyboard())
			}
			return b.sendError(msg.Chat.ID, err)
		}
		log.Printf("[info] marker created id=%d user=%d", marker.ID, msg.From.ID)
		return b.sendWithMarkup(msg.Chat.ID, fmt.Sprintf("Метка №%d добавлена.", marker.ID), mainKeyboard())

	case stageDeleteID:
		markerID, err := strconv.ParseUint(strings.TrimSpace(msg.Text), 10, 64)
		if err != nil {
			return b.sendText(msg.Chat.ID, "ID метки должен быть числом. Его можно найти в описании метки на карте.")
		}
		b.clearConversation(msg.From.ID)
		return b.deleteMarker(ctx, msg.Chat.ID, msg.From.ID, uint(markerID))

	default:
		b.clearConversation(msg.From.ID)
		return b.sendWithMarkup(msg.Chat.ID, "Диалог сброшен. Выберите действие:", mainKeyboard())
	}
}

func (b *Bot) deleteMarker(ctx context.Context, chatID, requesterID int64, markerID uint) error {
	result, err := b.markers.DeleteMarker(ctx, requesterID, markerID)
	if err != nil {
		if errors.Is(err, service.ErrMarkerNotFound) {
			return b.sendWithMarkup(chatID, "Метка не найдена.", mainKeyboard())
		}
		return b.sendError(chatID, err)
	}

	switch result.Outcome {
	case service.OutcomeDeleted:
		log.Printf("[info] marker deleted id=%d user=%d", markerID, requesterID)
		return b.sendWithMarkup(chatID, "Метка удалена.", mainKeyboard())
	case service.OutcomeDeletedByQuorum:
		log.Printf("[info] marker deleted by quorum id=%d", markerID)
		return b.sendWithMarkup(chatID, fmt.Sprintf("Метка была удалена после %d-х запросов.", service.DeleteQuorum), mainKeyboard())
	default:
		log.Printf("[info] delete vote recorded marker=%d user=%d votes=%d", markerID, requesterID, result.Votes)
		text := fmt.Sprintf(
			"Запрос на удаление отправлен (%d из %d). Если %d разных пользователя отправят запрос, метка будет удалена.",
			result.Votes, service.DeleteQuorum, service.DeleteQuorum,
		)
		return b.sendWithMarkup(chatID, text, mainKeyboard())
	}
}

func (b *Bot) handleAddAdmin(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID пользователя: /add_admin 123456")
	}

	targetID, err := strconv.ParseInt(args, 10, 64)
	if err != nil || targetID <= 0 {
		return b.sendText(msg.Chat.ID, "Пожалуйста, укажите правильный ID пользователя для добавления.")
	}

	if err := b.markers.PromoteAdmin(ctx, msg.From.ID, targetID); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return b.sendText(msg.Chat.ID, "У вас нет прав для выполнения этой команды.")
		}
		return b.sendError(msg.Chat.ID, err)
	}

	log.Printf("[info] user promoted to admin id=%d by=%d", targetID, msg.From.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Пользователь с ID %d теперь администратор.", targetID))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	switch cb.Data {
	case cbAddMarker:
		log.Printf("[info] callback add marker user=%d", cb.From.ID)
		b.setConversation(cb.From.ID, &conversationState{stage: stageMarkerLocation})
		return b.sendText(cb.Message.Chat.ID, "Отправьте геолокацию метки.")
	case cbShowMap:
		log.Printf("[info] callback show map user=%d", cb.From.ID)
		return b.sendText(cb.Message.Chat.ID, fmt.Sprintf("Ваша карта: %s/%d.html", b.config.ServerURL, cb.From.ID))
	case cbDeleteMarker:
		log.Printf("[info] callback delete marker user=%d", cb.From.ID)
		b.setConversation(cb.From.ID, &conversationState{stage: stageDeleteID})
		return b.sendText(cb.Message.Chat.ID, "Введите ID метки, которую хотите удалить.")
	default:
		return nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendError(chatID int64, err error) error {
	return b.sendText(chatID, fmt.Sprintf("Что-то пошло не так: %s", escape(err.Error())))
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func mainKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnAddMarker, cbAddMarker),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnShowMap, cbShowMap),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnDeleteMarker, cbDeleteMarker),
		),
	)
}

func escape(s string) string {
	return html.EscapeString(s)
}

const instructionText = `Привет! Этот бот помогает отмечать опасные места на карте и делиться ими с другими пользователями.

Основные функции:
1. Добавить метку — отправьте геопозицию, чтобы добавить её на карту.
2. Показать карту — получить ссылку на актуальную карту со всеми метками.
3. Удалить метку — удалить ранее добавленную метку по её ID.

Как пользоваться:
• Нажмите «Добавить метку», отправьте геопозицию через скрепку 📎 → «Геопозиция», затем комментарий.
• Нажмите «Показать карту» и откройте ссылку — карта центрируется на вашей геолокации.
• Нажмите «Удалить метку» и отправьте ID метки (его видно в описании метки на карте).

Чужую метку удалить сразу нельзя: отправьте запрос на удаление. Когда 3 разных пользователя отправят запрос, метка будет удалена автоматически.

Сменить центр карты: /change_city`
