package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yukikurage/field-service-api/internal/models"
)

// Callback actions carried in inline button data as task:<action>:<id>.
const (
	ActionEnRoute  = "enroute"
	ActionStart    = "start"
	ActionPause    = "pause"
	ActionResume   = "resume"
	ActionComplete = "complete"
	ActionPhoto    = "photo"
	ActionComment  = "comment"
)

var ErrBadCallback = errors.New("malformed callback data")

func callbackData(action string, taskID uint64) string {
	return fmt.Sprintf("task:%s:%d", action, taskID)
}

// parseCallback splits task:<action>:<id>.
func parseCallback(data string) (string, uint64, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "task" {
		return "", 0, ErrBadCallback
	}
	switch parts[1] {
	case ActionEnRoute, ActionStart, ActionPause, ActionResume, ActionComplete, ActionPhoto, ActionComment:
	default:
		return "", 0, ErrBadCallback
	}
	id, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil || id == 0 {
		return "", 0, ErrBadCallback
	}
	return parts[1], id, nil
}

// taskKeyboard offers the actions valid in the task's current status. A nil
// result means the task takes no further actions.
func taskKeyboard(task *models.Task) *tgbotapi.InlineKeyboardMarkup {
	button := func(label, action string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(label, callbackData(action, task.ID))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	switch task.Status {
	case models.TaskStatusAssigned:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("On my way", ActionEnRoute), button("Start work", ActionStart)))
	case models.TaskStatusEnRoute:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("Start work", ActionStart)))
	case models.TaskStatusInProgress:
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(button("Pause", ActionPause), button("Complete", ActionComplete)),
			tgbotapi.NewInlineKeyboardRow(button("Add photo", ActionPhoto), button("Comment", ActionComment)),
		)
	case models.TaskStatusPaused:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("Resume", ActionResume), button("Comment", ActionComment)))
	default:
		return nil
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func locationKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation("Send my location")),
	)
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

var statusLabels = map[models.TaskStatus]string{
	models.TaskStatusPending:    "Pending",
	models.TaskStatusAssigned:   "Assigned",
	models.TaskStatusEnRoute:    "On the way",
	models.TaskStatusInProgress: "In progress",
	models.TaskStatusPaused:     "Paused",
	models.TaskStatusCompleted:  "Completed",
	models.TaskStatusCancelled:  "Cancelled",
}

func describeTask(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s\n", task.OrderNumber, task.Address)
	if task.WorkType != "" {
		fmt.Fprintf(&b, "Work: %s\n", task.WorkType)
	}
	if task.Description != "" {
		fmt.Fprintf(&b, "%s\n", task.Description)
	}
	if task.CustomerName != "" || task.CustomerPhone != "" {
		fmt.Fprintf(&b, "Customer: %s %s\n", task.CustomerName, task.CustomerPhone)
	}
	if task.ScheduledTime != nil {
		fmt.Fprintf(&b, "Scheduled: %s\n", task.ScheduledTime.Format("02 Jan 15:04"))
	}
	fmt.Fprintf(&b, "Status: %s", statusLabels[task.Status])
	return b.String()
}
