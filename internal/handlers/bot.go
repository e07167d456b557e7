package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	apierrors "github.com/yukikurage/field-service-api/internal/errors"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler processes one chat update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

type BotHandler struct {
	updates UpdateHandler
	secret  string
	log     *logrus.Logger
}

func NewBotHandler(updates UpdateHandler, secret string, log *logrus.Logger) *BotHandler {
	return &BotHandler{updates: updates, secret: secret, log: log}
}

// Secured reports whether a webhook secret is configured. Without one the
// webhook is not mounted.
func (h *BotHandler) Secured() bool {
	return h.secret != ""
}

// Webhook receives Telegram updates. Processing errors are logged and still
// answered with 200 so Telegram does not redeliver the update.
func (h *BotHandler) Webhook(c *gin.Context) {
	got := c.GetHeader(telegramSecretHeader)
	if !h.Secured() || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		apierrors.Unauthorized(c, "Invalid webhook secret")
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		apierrors.BadRequest(c, "Invalid update")
		return
	}

	if err := h.updates.HandleUpdate(c.Request.Context(), update); err != nil {
		h.log.WithError(err).WithField("update_id", update.UpdateID).Error("bot update failed")
	}
	c.Status(http.StatusOK)
}
