package mailsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
)

type fakeConn struct {
	mu       sync.Mutex
	backlog  []uint32
	unseen   []uint32
	idle     bool
	closed   bool
	selected string

	searchErr error
}

func (c *fakeConn) SelectFolder(folder string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = folder
	return nil
}

func (c *fakeConn) SearchSince(since time.Time) ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return c.backlog, nil
}

func (c *fakeConn) SearchUnseen() ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return c.unseen, nil
}

func (c *fakeConn) SupportsIdle() (bool, error) { return c.idle, nil }

func (c *fakeConn) Idle(stop <-chan struct{}) error {
	<-stop
	return nil
}

func (c *fakeConn) MailboxEvents(buffer int) <-chan struct{} {
	return make(chan struct{})
}

func (c *fakeConn) FetchRaw(uid uint32) (*emaildomain.RawMessage, error) {
	return &emaildomain.RawMessage{UID: uid}, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]uint32
}

func (r *batchRecorder) ProcessBatch(ctx context.Context, account emaildomain.MailAccount, fetcher emaildomain.MessageFetcher, uids []uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]uint32, len(uids))
	copy(cp, uids)
	r.batches = append(r.batches, cp)
}

func (r *batchRecorder) all() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uint32
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func testAccount() emaildomain.MailAccount {
	return emaildomain.MailAccount{ID: "account1", Email: "me@example.com"}
}

func fastOptions() Options {
	return Options{
		Folder:         "INBOX",
		LookbackDays:   30,
		BacklogLimit:   50,
		PollInterval:   5 * time.Millisecond,
		ReconnectDelay: 10 * time.Millisecond,
	}
}

func TestStartRequiresAccounts(t *testing.T) {
	s := NewSupervisor(nil, &batchRecorder{}, nil, fastOptions())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for zero accounts")
	}
}

func TestStartFailsFastOnInitialDialError(t *testing.T) {
	good := &fakeConn{}
	calls := 0
	dial := func(account emaildomain.MailAccount) (Conn, error) {
		calls++
		if calls == 1 {
			return good, nil
		}
		return nil, errors.New("refused")
	}
	accounts := []emaildomain.MailAccount{
		{ID: "a1", Email: "a@x.com"},
		{ID: "a2", Email: "b@x.com"},
	}
	s := NewSupervisor(dial, &batchRecorder{}, accounts, fastOptions())

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail when any account cannot connect")
	}
	if !good.isClosed() {
		t.Error("successfully dialed connection must be closed on startup failure")
	}
}

func TestBacklogThenPoll(t *testing.T) {
	conn := &fakeConn{backlog: []uint32{10, 11, 12}, unseen: []uint32{12, 13}}
	dial := func(account emaildomain.MailAccount) (Conn, error) { return conn, nil }
	rec := &batchRecorder{}
	s := NewSupervisor(dial, rec, []emaildomain.MailAccount{testAccount()}, fastOptions())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	got := rec.all()
	want := map[uint32]int{}
	for _, uid := range got {
		want[uid]++
	}
	for _, uid := range []uint32{10, 11, 12, 13} {
		if want[uid] != 1 {
			t.Errorf("uid %d processed %d times, want exactly once", uid, want[uid])
		}
	}
}

func TestBacklogCapKeepsNewest(t *testing.T) {
	uids := make([]uint32, 100)
	for i := range uids {
		uids[i] = uint32(i + 1)
	}
	got := capBacklog(uids, 50)
	if len(got) != 50 {
		t.Fatalf("len = %d, want 50", len(got))
	}
	if got[0] != 51 || got[49] != 100 {
		t.Errorf("cap kept wrong range: first=%d last=%d", got[0], got[49])
	}
}

func TestStopPreventsReconnect(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	dial := func(account emaildomain.MailAccount) (Conn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		// Session fails immediately on its backlog scan.
		return &fakeConn{searchErr: errors.New("connection reset")}, nil
	}
	rec := &batchRecorder{}
	opts := fastOptions()
	opts.ReconnectDelay = time.Hour
	s := NewSupervisor(dial, rec, []emaildomain.MailAccount{testAccount()}, opts)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return; reconnect sleep is not cancellable")
	}

	mu.Lock()
	defer mu.Unlock()
	if dials != 1 {
		t.Errorf("dials = %d, want 1 (no redial after Stop)", dials)
	}
}

func TestFailedRedialRetriesUntilSuccess(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	dial := func(account emaildomain.MailAccount) (Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		switch dials {
		case 1:
			// First session drops on its backlog scan.
			return &fakeConn{searchErr: errors.New("connection reset")}, nil
		case 2:
			return nil, errors.New("refused")
		default:
			return &fakeConn{backlog: []uint32{42}}, nil
		}
	}
	rec := &batchRecorder{}
	s := NewSupervisor(dial, rec, []emaildomain.MailAccount{testAccount()}, fastOptions())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		found := false
		for _, uid := range rec.all() {
			if uid == 42 {
				found = true
			}
		}
		if found {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if dials < 3 {
		t.Fatalf("dials = %d, want at least 3 (failed redial must be retried)", dials)
	}
	for _, uid := range rec.all() {
		if uid == 42 {
			return
		}
	}
	t.Error("backlog of the recovered session was never processed")
}

func TestStopIdempotent(t *testing.T) {
	conn := &fakeConn{}
	dial := func(account emaildomain.MailAccount) (Conn, error) { return conn, nil }
	s := NewSupervisor(dial, &batchRecorder{}, []emaildomain.MailAccount{testAccount()}, fastOptions())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	s.Stop() // must not panic or block
}

func TestStatusReportsAllAccounts(t *testing.T) {
	conn := &fakeConn{}
	dial := func(account emaildomain.MailAccount) (Conn, error) { return conn, nil }
	accounts := []emaildomain.MailAccount{
		{ID: "a1", Email: "a@x.com"},
		{ID: "a2", Email: "b@x.com"},
	}
	s := NewSupervisor(dial, &batchRecorder{}, accounts, fastOptions())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)
	status := s.Status()
	if len(status) != 2 {
		t.Fatalf("status entries = %d, want 2", len(status))
	}
	for _, st := range status {
		if st.State == "" || st.State == "unknown" {
			t.Errorf("account %s has state %q", st.Account, st.State)
		}
	}
}

func TestPushModeRequeriesOnHint(t *testing.T) {
	events := make(chan struct{}, 1)
	conn := &hintConn{
		fakeConn: fakeConn{idle: true, unseen: []uint32{7}},
		events:   events,
	}
	dial := func(account emaildomain.MailAccount) (Conn, error) { return conn, nil }
	rec := &batchRecorder{}
	s := NewSupervisor(dial, rec, []emaildomain.MailAccount{testAccount()}, fastOptions())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	events <- struct{}{}
	time.Sleep(50 * time.Millisecond)

	for _, uid := range rec.all() {
		if uid == 7 {
			return
		}
	}
	t.Error("hint did not trigger an unseen re-query")
}

type hintConn struct {
	fakeConn
	events chan struct{}
}

func (c *hintConn) MailboxEvents(buffer int) <-chan struct{} {
	return c.events
}
