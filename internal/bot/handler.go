package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/field-service-api/internal/constants"
	"github.com/yukikurage/field-service-api/internal/lifecycle"
	"github.com/yukikurage/field-service-api/internal/logger"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/services"
)

// Handler turns chat updates into task operations.
type Handler struct {
	transport  Transport
	sessions   *Sessions
	tasks      *services.TaskService
	employees  *services.EmployeeService
	photos     *services.PhotoService
	comments   *services.CommentService
	httpClient *http.Client
	log        *logrus.Logger
}

func NewHandler(
	transport Transport,
	sessions *Sessions,
	tasks *services.TaskService,
	employees *services.EmployeeService,
	photos *services.PhotoService,
	comments *services.CommentService,
) *Handler {
	return &Handler{
		transport:  transport,
		sessions:   sessions,
		tasks:      tasks,
		employees:  employees,
		photos:     photos,
		comments:   comments,
		httpClient: http.DefaultClient,
		log:        logger.Logger,
	}
}

// actor is the employee behind an update and the chat to answer in.
type actor struct {
	employee *models.Employee
	userID   int64
	chatID   int64
}

// HandleUpdate processes one update. Errors returned are infrastructure
// failures; problems the user can fix are answered in the chat.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return h.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}

func (h *Handler) resolveActor(ctx context.Context, from *tgbotapi.User, chatID int64) (*actor, error) {
	if from == nil {
		return nil, nil
	}
	employee, err := h.employees.FindByTelegramUser(ctx, from.ID)
	if errors.Is(err, services.ErrEmployeeNotFound) {
		return nil, h.say(chatID, fmt.Sprintf("Your Telegram account (id %d) is not linked to an employee. Ask your dispatcher to link it.", from.ID))
	}
	if err != nil {
		return nil, err
	}
	return &actor{employee: employee, userID: from.ID, chatID: chatID}, nil
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil {
		return nil
	}
	a, err := h.resolveActor(ctx, msg.From, msg.Chat.ID)
	if err != nil || a == nil {
		return err
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			if err := h.say(a.chatID, fmt.Sprintf("Hello, %s. Here are your open tasks.", a.employee.FullName)); err != nil {
				return err
			}
			return h.listTasks(ctx, a)
		case "tasks":
			return h.listTasks(ctx, a)
		case "cancel":
			if err := h.sessions.Cancel(ctx, a.userID); err != nil {
				return err
			}
			return h.sendRemovingKeyboard(a.chatID, "Cancelled.")
		default:
			return h.say(a.chatID, "Unknown command. Use /tasks to see your tasks.")
		}
	}

	var input InputKind
	switch {
	case msg.Location != nil:
		input = InputLocation
	case len(msg.Photo) > 0:
		input = InputPhoto
	case msg.Text != "":
		input = InputText
	default:
		return nil
	}

	wait, err := h.sessions.Resolve(ctx, a.userID, input)
	if err != nil {
		return err
	}
	if wait == nil {
		return h.remindPending(ctx, a)
	}

	switch wait.Kind {
	case WaitLocationEnRoute, WaitLocationStart, WaitLocationCompletion:
		to, _ := wait.Kind.TargetStatus()
		point := &models.Point{Latitude: msg.Location.Latitude, Longitude: msg.Location.Longitude}
		return h.transition(ctx, a, wait.TaskID, to, point)
	case WaitPhoto:
		return h.savePhoto(ctx, a, wait.TaskID, msg.Photo)
	case WaitComment:
		return h.saveComment(ctx, a, wait.TaskID, msg.Text)
	}
	return nil
}

// remindPending answers input that did not match. The wait stays as it was.
func (h *Handler) remindPending(ctx context.Context, a *actor) error {
	pending, err := h.sessions.Pending(ctx, a.userID)
	if err != nil {
		return err
	}
	if pending == nil {
		return h.say(a.chatID, "Use /tasks to see your tasks.")
	}

	switch pending.Kind {
	case WaitPhoto:
		return h.say(a.chatID, "Please send a photo, or /cancel.")
	case WaitComment:
		return h.say(a.chatID, "Please type your comment, or /cancel.")
	default:
		return h.askLocation(a.chatID, "Please share your location with the button below, or /cancel.")
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	chatID := cb.From.ID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}

	if err := h.transport.AnswerCallback(cb.ID, ""); err != nil {
		h.log.WithError(err).Warn("failed to answer callback")
	}

	a, err := h.resolveActor(ctx, cb.From, chatID)
	if err != nil || a == nil {
		return err
	}

	action, taskID, err := parseCallback(cb.Data)
	if err != nil {
		return h.say(a.chatID, "This button is no longer valid. Use /tasks.")
	}

	switch action {
	case ActionEnRoute:
		return h.transition(ctx, a, taskID, models.TaskStatusEnRoute, nil)
	case ActionStart:
		return h.transition(ctx, a, taskID, models.TaskStatusInProgress, nil)
	case ActionComplete:
		return h.transition(ctx, a, taskID, models.TaskStatusCompleted, nil)
	case ActionPause:
		task, err := h.tasks.Pause(ctx, taskID, lifecycle.ChannelBot, &a.employee.ID)
		return h.report(a, task, err)
	case ActionResume:
		task, err := h.tasks.Resume(ctx, taskID, lifecycle.ChannelBot, &a.employee.ID)
		return h.report(a, task, err)
	case ActionPhoto:
		if err := h.sessions.BeginWait(ctx, a.userID, a.chatID, WaitPhoto, taskID); err != nil {
			return err
		}
		return h.say(a.chatID, "Send a photo of the work.")
	case ActionComment:
		if err := h.sessions.BeginWait(ctx, a.userID, a.chatID, WaitComment, taskID); err != nil {
			return err
		}
		return h.say(a.chatID, "Type your comment.")
	}
	return nil
}

// transition attempts a status change. When the location gate refuses it,
// the actor is asked for a location and the change is retried once it arrives.
func (h *Handler) transition(ctx context.Context, a *actor, taskID uint64, to models.TaskStatus, loc *models.Point) error {
	task, err := h.tasks.Transition(ctx, services.TransitionInput{
		TaskID:          taskID,
		To:              to,
		Channel:         lifecycle.ChannelBot,
		Location:        loc,
		ActorEmployeeID: &a.employee.ID,
	})

	if errors.Is(err, lifecycle.ErrMissingLocation) {
		kind, ok := locationWaitFor(to)
		if !ok {
			return h.report(a, nil, err)
		}
		if err := h.sessions.BeginWait(ctx, a.userID, a.chatID, kind, taskID); err != nil {
			return err
		}
		return h.askLocation(a.chatID, "Please share your location to continue.")
	}

	return h.report(a, task, err)
}

func (h *Handler) savePhoto(ctx context.Context, a *actor, taskID uint64, sizes []tgbotapi.PhotoSize) error {
	largest := sizes[len(sizes)-1]

	url, err := h.transport.FileURL(largest.FileID)
	if err != nil {
		return fmt.Errorf("failed to resolve photo url: %w", err)
	}
	data, err := h.download(ctx, url)
	if err != nil {
		h.log.WithError(err).WithField("task_id", taskID).Warn("photo download failed")
		return h.say(a.chatID, "Could not fetch the photo. Please try again.")
	}

	result, err := h.photos.Upload(ctx, taskID, a.employee.UserID, []services.PhotoFile{{
		Name:        largest.FileID + ".jpg",
		ContentType: "image/jpeg",
		Data:        data,
	}})
	if err != nil {
		return h.report(a, nil, err)
	}
	if result.Failed > 0 {
		return h.say(a.chatID, "The photo could not be saved. Please try again.")
	}
	return h.say(a.chatID, "Photo saved.")
}

func (h *Handler) saveComment(ctx context.Context, a *actor, taskID uint64, text string) error {
	if _, err := h.comments.Add(ctx, services.AddCommentInput{
		TaskID:     taskID,
		EmployeeID: &a.employee.ID,
		Body:       text,
	}); err != nil {
		return h.report(a, nil, err)
	}
	return h.say(a.chatID, "Comment saved.")
}

func (h *Handler) listTasks(ctx context.Context, a *actor) error {
	tasks, _, err := h.tasks.ListTasks(ctx, services.ListTasksInput{
		UserID:          a.employee.UserID,
		OrganizationID:  &a.employee.OrganizationID,
		EmployeeID:      &a.employee.ID,
		ActiveOnly:      true,
		SortByScheduled: true,
		Page:            1,
		PageSize:        constants.MaxPageSize,
	})
	if err != nil {
		return h.report(a, nil, err)
	}
	if len(tasks) == 0 {
		return h.say(a.chatID, "You have no open tasks.")
	}

	for i := range tasks {
		if err := h.sendTask(a.chatID, &tasks[i]); err != nil {
			return err
		}
	}
	return nil
}

// report answers the outcome of an operation on task.
func (h *Handler) report(a *actor, task *models.Task, err error) error {
	if err != nil {
		return h.say(a.chatID, h.userMessage(err))
	}
	if err := h.sendRemovingKeyboard(a.chatID, "Done."); err != nil {
		return err
	}
	return h.sendTask(a.chatID, task)
}

func (h *Handler) sendTask(chatID int64, task *models.Task) error {
	msg := tgbotapi.NewMessage(chatID, describeTask(task))
	if kb := taskKeyboard(task); kb != nil {
		msg.ReplyMarkup = *kb
	}
	return h.transport.Send(msg)
}

func (h *Handler) say(chatID int64, text string) error {
	return h.transport.Send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) sendRemovingKeyboard(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	return h.transport.Send(msg)
}

func (h *Handler) askLocation(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = locationKeyboard()
	return h.transport.Send(msg)
}

func (h *Handler) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, constants.MaxPhotoSize+1))
}

func (h *Handler) userMessage(err error) string {
	var te *lifecycle.TransitionError
	switch {
	case errors.As(err, &te):
		return fmt.Sprintf("This task cannot go from %s to %s.", statusLabels[te.From], statusLabels[te.To])
	case errors.Is(err, lifecycle.ErrAlreadyPaused):
		return "The task is already paused."
	case errors.Is(err, lifecycle.ErrNoActivePause):
		return "The task is not paused."
	case errors.Is(err, lifecycle.ErrMissingLocation):
		return "A location is required for this step."
	case errors.Is(err, services.ErrNotTaskAssignee):
		return "This task is assigned to someone else."
	case errors.Is(err, services.ErrTaskNotFound):
		return "Task not found."
	case errors.Is(err, services.ErrCommentEmpty):
		return "The comment is empty."
	default:
		h.log.WithError(err).Error("bot operation failed")
		return "Something went wrong. Please try again."
	}
}
