package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Transport is the outbound side of the chat API.
type Transport interface {
	Send(c tgbotapi.Chattable) error
	AnswerCallback(callbackID, text string) error
	FileURL(fileID string) (string, error)
}

type TelegramTransport struct {
	api *tgbotapi.BotAPI
}

// NewTelegramTransport authenticates the bot token against the API.
func NewTelegramTransport(token string) (*TelegramTransport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramTransport{api: api}, nil
}

func (t *TelegramTransport) Send(c tgbotapi.Chattable) error {
	_, err := t.api.Send(c)
	return err
}

func (t *TelegramTransport) AnswerCallback(callbackID, text string) error {
	_, err := t.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (t *TelegramTransport) FileURL(fileID string) (string, error) {
	return t.api.GetFileDirectURL(fileID)
}

// SetWebhook registers url with the chat API. secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (t *TelegramTransport) SetWebhook(url, secret string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	params := tgbotapi.Params{}
	params.AddNonEmpty("url", wh.URL.String())
	params.AddNonEmpty("secret_token", secret)
	_, err = t.api.MakeRequest("setWebhook", params)
	return err
}
