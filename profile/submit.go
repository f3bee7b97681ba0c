package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/profilebot/core/logger"
	"github.com/m3rciful/profilebot/core/telegram/state"
	"github.com/m3rciful/profilebot/relayer"
)

// Submitter sends a completed form to the relayer and reports the outcome
// to the chat.
type Submitter struct {
	store   state.Store
	out     Messenger
	creator ProfileCreator
	journal Journal
	rand    io.Reader
	now     func() time.Time
}

func newSubmitter(opts Options) *Submitter {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Submitter{
		store:   opts.Store,
		out:     opts.Messenger,
		creator: opts.Creator,
		journal: opts.Journal,
		rand:    opts.Rand,
		now:     now,
	}
}

// Submit creates the profile for conv. The chat's conversation is removed
// once the attempt is over, whatever its outcome. The returned error joins
// the submission failure with any delivery failure.
func (s *Submitter) Submit(ctx context.Context, chatID int64, conv state.Conversation) error {
	defer s.store.Delete(chatID)

	var errs []error
	if err := s.out.Send(ctx, chatID, msgCreating); err != nil {
		errs = append(errs, fmt.Errorf("profile: notify: %w", err))
	}

	rec := Submission{
		ID:        uuid.New(),
		ChatID:    chatID,
		Address:   conv.Address,
		CreatedAt: s.now().UTC(),
	}

	start := time.Now()
	resp, err := s.create(ctx, &rec)
	attrs := []slog.Attr{
		slog.String("submission_id", rec.ID.String()),
		slog.Duration("duration", logger.Took(start)),
	}

	reply := msgFailure
	if err != nil {
		rec.Outcome = OutcomeFail
		rec.Error = err.Error()
		logger.LogEvent(ctx, logger.FSM, slog.LevelWarn, "submit.fail", append(attrs,
			slog.String("status", "fail"),
			slog.String("cause", failureCause(err)),
			slog.String("err", err.Error()),
		)...)
		errs = append(errs, err)
	} else {
		rec.Outcome = OutcomeOK
		rec.ProfileAddress = resp.UniversalProfileAddress
		rec.TxHash = resp.TransactionHash
		reply = successMessage(resp.UniversalProfileAddress, resp.TransactionHash)
		logger.LogEvent(ctx, logger.FSM, slog.LevelInfo, "submit.ok", append(attrs,
			slog.String("status", "ok"),
			slog.String("profile_address", resp.UniversalProfileAddress),
			slog.String("tx_hash", resp.TransactionHash),
		)...)
	}

	if err := s.out.Send(ctx, chatID, reply); err != nil {
		errs = append(errs, fmt.Errorf("profile: reply: %w", err))
	}
	s.record(ctx, rec)
	return errors.Join(errs...)
}

func (s *Submitter) create(ctx context.Context, rec *Submission) (relayer.Response, error) {
	req, err := relayer.NewRequest(rec.Address, s.rand)
	if err != nil {
		return relayer.Response{}, err
	}
	rec.Salt = req.Salt
	return s.creator.CreateProfile(ctx, req)
}

func (s *Submitter) record(ctx context.Context, rec Submission) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, rec); err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelWarn, "journal.fail",
			slog.String("status", "fail"),
			slog.String("submission_id", rec.ID.String()),
			slog.String("err", err.Error()),
		)
	}
}

// failureCause buckets a submission error for logs.
func failureCause(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, relayer.ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, relayer.ErrStatus):
		return "status"
	case errors.Is(err, relayer.ErrBadResponse):
		return "bad_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &netErr):
		return "transport"
	}
	return "unknown"
}
