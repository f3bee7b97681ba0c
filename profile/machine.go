// Package profile drives the per-chat form that collects the profile fields
// and submits them to the relayer.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/m3rciful/profilebot/core/logger"
	"github.com/m3rciful/profilebot/core/telegram/keyboard"
	"github.com/m3rciful/profilebot/core/telegram/state"
	"github.com/m3rciful/profilebot/relayer"

	tele "gopkg.in/telebot.v4"
)

// Messenger delivers text to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, markup ...*tele.ReplyMarkup) error
}

// ProfileCreator deploys a universal profile.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, req relayer.Request) (relayer.Response, error)
}

// Options configure a Machine. Store, Messenger and Creator are required.
type Options struct {
	Store     state.Store
	Messenger Messenger
	Creator   ProfileCreator

	// Journal records submission attempts when set.
	Journal Journal
	// Rand is the salt source. Nil means crypto/rand.
	Rand io.Reader
	// Now is the clock used for journal timestamps. Nil means time.Now.
	Now func() time.Time
}

// Machine is the conversation state machine. Messages of one chat are
// handled one at a time; different chats proceed in parallel.
type Machine struct {
	store  state.Store
	locks  *state.ChatLocks
	out    Messenger
	submit *Submitter
}

// NewMachine validates opts and builds a Machine.
func NewMachine(opts Options) (*Machine, error) {
	if opts.Store == nil || opts.Messenger == nil || opts.Creator == nil {
		return nil, errors.New("profile: store, messenger and creator are required")
	}
	return &Machine{
		store:  opts.Store,
		locks:  state.NewChatLocks(),
		out:    opts.Messenger,
		submit: newSubmitter(opts),
	}, nil
}

// HandleMessage implements the webhook message handler.
func (m *Machine) HandleMessage(ctx context.Context, chatID int64, text string) error {
	return m.Advance(ctx, chatID, text)
}

// Advance applies one inbound message to the chat's conversation.
func (m *Machine) Advance(ctx context.Context, chatID int64, text string) error {
	unlock := m.locks.Lock(chatID)
	defer unlock()

	if text == StartCommand {
		_, existed := m.store.Get(chatID)
		m.store.Put(chatID, state.Conversation{Step: state.StepName})
		logger.LogEvent(ctx, logger.FSM, slog.LevelInfo, "conversation.start",
			slog.String("status", "ok"),
			slog.String("next_step", string(state.StepName)),
			slog.Bool("reset", existed),
		)
		return m.prompt(ctx, chatID, state.StepName)
	}

	conv, ok := m.store.Get(chatID)
	if !ok {
		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.FSM, slog.LevelDebug, "conversation.none",
				slog.String("status", "skip"),
			)
		}
		return nil
	}

	switch conv.Step {
	case state.StepName:
		conv.Name = text
	case state.StepDescription:
		conv.Description = text
	case state.StepProfilePic:
		conv.ProfilePic = text
	case state.StepAddress:
		conv.Address = text
		m.store.Put(chatID, conv)
		logger.LogEvent(ctx, logger.FSM, slog.LevelInfo, "step.advanced",
			slog.String("status", "ok"),
			slog.String("step", string(conv.Step)),
			slog.String("next_step", "submit"),
		)
		return m.submit.Submit(ctx, chatID, conv)
	default:
		m.store.Delete(chatID)
		logger.LogEvent(ctx, logger.FSM, slog.LevelError, "conversation.corrupt",
			slog.String("status", "error"),
			slog.String("step", string(conv.Step)),
		)
		return fmt.Errorf("profile: chat %d has unknown step %q", chatID, conv.Step)
	}

	next, _ := conv.Step.Next()
	logger.LogEvent(ctx, logger.FSM, slog.LevelInfo, "step.advanced",
		slog.String("status", "ok"),
		slog.String("step", string(conv.Step)),
		slog.String("next_step", string(next)),
	)
	conv.Step = next
	m.store.Put(chatID, conv)
	return m.prompt(ctx, chatID, next)
}

func (m *Machine) prompt(ctx context.Context, chatID int64, step state.Step) error {
	if err := m.out.Send(ctx, chatID, prompts[step], keyboard.ForceReply()); err != nil {
		return fmt.Errorf("profile: prompt %s: %w", step, err)
	}
	return nil
}
