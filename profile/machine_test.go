package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/profilebot/core/telegram/state"
	"github.com/m3rciful/profilebot/relayer"
)

const validAddress = "0x1111111111111111111111111111111111111111"

type sent struct {
	ChatID     int64
	Text       string
	ForceReply bool
}

type fakeMessenger struct {
	mu     sync.Mutex
	msgs   []sent
	err    error
	onSend func(chatID int64, text string)
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string, markup ...*tele.ReplyMarkup) error {
	if f.onSend != nil {
		f.onSend(chatID, text)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := sent{ChatID: chatID, Text: text}
	if len(markup) > 0 && markup[0] != nil {
		msg.ForceReply = markup[0].ForceReply
	}
	f.msgs = append(f.msgs, msg)
	return f.err
}

func (f *fakeMessenger) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.msgs {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

type fakeCreator struct {
	mu   sync.Mutex
	reqs []relayer.Request
	resp relayer.Response
	err  error
}

func (f *fakeCreator) CreateProfile(_ context.Context, req relayer.Request) (relayer.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

type fakeJournal struct {
	mu   sync.Mutex
	recs []Submission
	err  error
}

func (f *fakeJournal) Record(_ context.Context, s Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, s)
	return f.err
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

type fixture struct {
	store   state.Store
	out     *fakeMessenger
	creator *fakeCreator
	journal *fakeJournal
	machine *Machine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   state.NewMemoryStore(),
		out:     &fakeMessenger{},
		creator: &fakeCreator{resp: relayer.Response{UniversalProfileAddress: "0xUP", TransactionHash: "0xTX"}},
		journal: &fakeJournal{},
	}
	m, err := NewMachine(Options{
		Store:     f.store,
		Messenger: f.out,
		Creator:   f.creator,
		Journal:   f.journal,
		Rand:      zeroReader{},
		Now:       func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	f.machine = m
	return f
}

func (f *fixture) advance(t *testing.T, chatID int64, texts ...string) {
	t.Helper()
	for _, text := range texts {
		if err := f.machine.Advance(context.Background(), chatID, text); err != nil {
			t.Fatalf("Advance(%d, %q): %v", chatID, text, err)
		}
	}
}

func TestNewMachineRequiresDependencies(t *testing.T) {
	if _, err := NewMachine(Options{Store: state.NewMemoryStore()}); err == nil {
		t.Fatal("expected error for missing messenger and creator")
	}
}

func TestStartCreatesConversation(t *testing.T) {
	f := newFixture(t)
	f.advance(t, 7, StartCommand)

	conv, ok := f.store.Get(7)
	if !ok {
		t.Fatal("conversation missing after /start")
	}
	if diff := cmp.Diff(state.Conversation{Step: state.StepName}, conv); diff != "" {
		t.Fatalf("conversation mismatch (-want +got):\n%s", diff)
	}
	want := []sent{{ChatID: 7, Text: msgWelcome, ForceReply: true}}
	if diff := cmp.Diff(want, f.out.msgs); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestStartResetsConversation(t *testing.T) {
	f := newFixture(t)
	f.advance(t, 7, StartCommand, "Alice", "About me", StartCommand)

	conv, _ := f.store.Get(7)
	if diff := cmp.Diff(state.Conversation{Step: state.StepName}, conv); diff != "" {
		t.Fatalf("conversation not reset (-want +got):\n%s", diff)
	}
	texts := f.out.texts(7)
	if got := texts[len(texts)-1]; got != msgWelcome {
		t.Fatalf("last message = %q, want welcome", got)
	}
}

func TestMessageWithoutConversationIsNoop(t *testing.T) {
	f := newFixture(t)
	f.advance(t, 9, "hello", validAddress, "/help")

	if f.store.Len() != 0 {
		t.Fatalf("store has %d conversations, want 0", f.store.Len())
	}
	if len(f.out.msgs) != 0 {
		t.Fatalf("unexpected messages: %+v", f.out.msgs)
	}
	if len(f.creator.reqs) != 0 {
		t.Fatal("relayer must not be called")
	}
}

func TestStepsFillFieldsInOrder(t *testing.T) {
	f := newFixture(t)
	f.advance(t, 1, StartCommand)

	steps := []struct {
		text string
		want state.Conversation
		msg  string
	}{
		{"Alice", state.Conversation{Step: state.StepDescription, Name: "Alice"}, prompts[state.StepDescription]},
		{"Builder", state.Conversation{Step: state.StepProfilePic, Name: "Alice", Description: "Builder"}, prompts[state.StepProfilePic]},
		{"https://img", state.Conversation{Step: state.StepAddress, Name: "Alice", Description: "Builder", ProfilePic: "https://img"}, prompts[state.StepAddress]},
	}
	for _, st := range steps {
		f.advance(t, 1, st.text)
		conv, ok := f.store.Get(1)
		if !ok {
			t.Fatalf("conversation missing after %q", st.text)
		}
		if diff := cmp.Diff(st.want, conv); diff != "" {
			t.Fatalf("after %q (-want +got):\n%s", st.text, diff)
		}
		texts := f.out.texts(1)
		if got := texts[len(texts)-1]; got != st.msg {
			t.Fatalf("after %q sent %q, want %q", st.text, got, st.msg)
		}
	}
}

func TestFullSequenceSubmitsAndClears(t *testing.T) {
	f := newFixture(t)

	var atSubmit state.Conversation
	f.out.onSend = func(chatID int64, text string) {
		if text == msgCreating {
			atSubmit, _ = f.store.Get(chatID)
		}
	}

	f.advance(t, 5, StartCommand, "T1", "T2", "T3", validAddress)

	want := state.Conversation{Step: state.StepAddress, Name: "T1", Description: "T2", ProfilePic: "T3", Address: validAddress}
	if diff := cmp.Diff(want, atSubmit); diff != "" {
		t.Fatalf("conversation before submission (-want +got):\n%s", diff)
	}
	if _, ok := f.store.Get(5); ok {
		t.Fatal("conversation must be removed after submission")
	}

	wantTexts := []string{
		msgWelcome,
		prompts[state.StepDescription],
		prompts[state.StepProfilePic],
		prompts[state.StepAddress],
		msgCreating,
		"Your Universal Profile has been created!\nAddress: 0xUP\nTransaction: 0xTX",
	}
	if diff := cmp.Diff(wantTexts, f.out.texts(5)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}

	if len(f.creator.reqs) != 1 {
		t.Fatalf("relayer calls = %d, want 1", len(f.creator.reqs))
	}
	req := f.creator.reqs[0]
	data, err := relayer.BuildCalldata(validAddress)
	if err != nil {
		t.Fatalf("BuildCalldata: %v", err)
	}
	if req.PostDeploymentCallData != fmt.Sprintf("0x%x", data) {
		t.Fatal("calldata does not match the submitted address")
	}
	if req.Salt != "0x"+strings.Repeat("00", 32) {
		t.Fatalf("salt = %s", req.Salt)
	}

	if len(f.journal.recs) != 1 {
		t.Fatalf("journal records = %d, want 1", len(f.journal.recs))
	}
	rec := f.journal.recs[0]
	if rec.Outcome != OutcomeOK || rec.ChatID != 5 || rec.ProfileAddress != "0xUP" || rec.TxHash != "0xTX" || rec.Salt != req.Salt {
		t.Fatalf("journal record = %+v", rec)
	}
}

func TestSubmissionFailureClearsState(t *testing.T) {
	f := newFixture(t)
	f.creator.err = &relayer.StatusError{Code: 500}

	err := errors.Join(
		f.machine.Advance(context.Background(), 3, StartCommand),
		f.machine.Advance(context.Background(), 3, "a"),
		f.machine.Advance(context.Background(), 3, "b"),
		f.machine.Advance(context.Background(), 3, "c"),
		f.machine.Advance(context.Background(), 3, validAddress),
	)
	if !errors.Is(err, relayer.ErrStatus) {
		t.Fatalf("err = %v, want relayer status error", err)
	}
	if _, ok := f.store.Get(3); ok {
		t.Fatal("conversation must be removed after a failed submission")
	}
	texts := f.out.texts(3)
	if diff := cmp.Diff([]string{msgCreating, msgFailure}, texts[len(texts)-2:]); diff != "" {
		t.Fatalf("tail messages (-want +got):\n%s", diff)
	}
	if f.journal.recs[0].Outcome != OutcomeFail || f.journal.recs[0].Error == "" {
		t.Fatalf("journal record = %+v", f.journal.recs[0])
	}
}

func TestInvalidAddressFailsWithoutRelayerCall(t *testing.T) {
	f := newFixture(t)
	f.advance(t, 4, StartCommand, "a", "b", "c")

	err := f.machine.Advance(context.Background(), 4, "not-an-address")
	if !errors.Is(err, relayer.ErrInvalidAddress) {
		t.Fatalf("err = %v, want ErrInvalidAddress", err)
	}
	if len(f.creator.reqs) != 0 {
		t.Fatal("relayer must not be called for an invalid address")
	}
	if _, ok := f.store.Get(4); ok {
		t.Fatal("conversation must be removed")
	}
	texts := f.out.texts(4)
	if got := texts[len(texts)-1]; got != msgFailure {
		t.Fatalf("last message = %q, want failure", got)
	}
	if got := failureCause(err); got != "invalid_address" {
		t.Fatalf("failureCause = %q", got)
	}
}

func TestSendFailureStillAdvances(t *testing.T) {
	f := newFixture(t)
	f.out.err = errors.New("telegram down")

	if err := f.machine.Advance(context.Background(), 8, StartCommand); err == nil {
		t.Fatal("expected delivery error")
	}
	if err := f.machine.Advance(context.Background(), 8, "Alice"); err == nil {
		t.Fatal("expected delivery error")
	}
	conv, ok := f.store.Get(8)
	if !ok || conv.Step != state.StepDescription || conv.Name != "Alice" {
		t.Fatalf("conversation = %+v, %v", conv, ok)
	}
}

func TestJournalFailureDoesNotAffectUser(t *testing.T) {
	f := newFixture(t)
	f.journal.err = errors.New("db down")

	f.advance(t, 2, StartCommand, "a", "b", "c", validAddress)

	texts := f.out.texts(2)
	if !strings.HasPrefix(texts[len(texts)-1], "Your Universal Profile has been created!") {
		t.Fatalf("last message = %q", texts[len(texts)-1])
	}
}

func TestChatsProceedIndependently(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for chat := int64(1); chat <= 20; chat++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			for _, text := range []string{StartCommand, "n", "d", "p", validAddress} {
				if err := f.machine.Advance(context.Background(), chatID, text); err != nil {
					t.Errorf("chat %d: %v", chatID, err)
					return
				}
			}
		}(chat)
	}
	wg.Wait()

	if f.store.Len() != 0 {
		t.Fatalf("store has %d conversations, want 0", f.store.Len())
	}
	if len(f.creator.reqs) != 20 {
		t.Fatalf("relayer calls = %d, want 20", len(f.creator.reqs))
	}
}

func TestSameChatMessagesAreSerialized(t *testing.T) {
	f := newFixture(t)
	f.advance(t, 11, StartCommand)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = f.machine.Advance(context.Background(), 11, fmt.Sprintf("t%d", i))
		}(i)
	}
	wg.Wait()

	conv, ok := f.store.Get(11)
	if !ok || conv.Step != state.StepAddress {
		t.Fatalf("conversation = %+v, %v; want three fields collected", conv, ok)
	}
	if conv.Name == "" || conv.Description == "" || conv.ProfilePic == "" {
		t.Fatalf("lost update: %+v", conv)
	}
}

func TestFailureCause(t *testing.T) {
	cases := map[string]error{
		"status":       fmt.Errorf("wrap: %w", &relayer.StatusError{Code: 502}),
		"bad_response": relayer.ErrBadResponse,
		"timeout":      context.DeadlineExceeded,
		"cancelled":    context.Canceled,
		"unknown":      errors.New("x"),
	}
	for want, err := range cases {
		if got := failureCause(err); got != want {
			t.Errorf("failureCause(%v) = %q, want %q", err, got, want)
		}
	}
}
