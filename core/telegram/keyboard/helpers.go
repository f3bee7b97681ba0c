package keyboard

import tele "gopkg.in/telebot.v4"

// ForceReply returns a markup that opens the reply box on the user's client,
// used for every form question.
func ForceReply() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{ForceReply: true}
}
