package mailsync

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
)

// Conn is one open mailbox session. pkg/imap provides the production
// implementation.
type Conn interface {
	emaildomain.MessageFetcher
	SelectFolder(folder string) error
	SearchSince(since time.Time) ([]uint32, error)
	SearchUnseen() ([]uint32, error)
	SupportsIdle() (bool, error)
	Idle(stop <-chan struct{}) error
	MailboxEvents(buffer int) <-chan struct{}
	Close() error
}

// Dialer opens a new session for an account.
type Dialer func(account emaildomain.MailAccount) (Conn, error)

// Processor consumes batches of newly seen message UIDs.
type Processor interface {
	ProcessBatch(ctx context.Context, account emaildomain.MailAccount, fetcher emaildomain.MessageFetcher, uids []uint32)
}

// Options tune the watch loop.
type Options struct {
	Folder         string
	LookbackDays   int
	BacklogLimit   int
	PollInterval   time.Duration
	ReconnectDelay time.Duration
}

func (o *Options) withDefaults() {
	if o.Folder == "" {
		o.Folder = "INBOX"
	}
	if o.LookbackDays <= 0 {
		o.LookbackDays = 30
	}
	if o.BacklogLimit <= 0 {
		o.BacklogLimit = 50
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 60 * time.Second
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 30 * time.Second
	}
}

// AccountStatus is a point-in-time snapshot of one account's watcher.
type AccountStatus struct {
	Account string `json:"account"`
	Email   string `json:"email"`
	State   string `json:"state"`
	Mode    string `json:"mode,omitempty"`
}

// Supervisor runs one watch loop per account. Accounts are fully
// independent: one account failing and reconnecting never disturbs the
// others. Initial connections are a startup gate; after that, every
// session drop leads to close, delay, redial.
type Supervisor struct {
	dial    Dialer
	proc    Processor
	opts    Options
	running atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	states map[string]State
	modes  map[string]string
	conns  map[string]Conn

	accounts []emaildomain.MailAccount
}

func NewSupervisor(dial Dialer, proc Processor, accounts []emaildomain.MailAccount, opts Options) *Supervisor {
	opts.withDefaults()
	return &Supervisor{
		dial:     dial,
		proc:     proc,
		opts:     opts,
		done:     make(chan struct{}),
		states:   make(map[string]State),
		modes:    make(map[string]string),
		conns:    make(map[string]Conn),
		accounts: accounts,
	}
}

// Start dials every account synchronously and launches the watch
// loops. Any account failing its first connection fails the whole
// start, closing connections already made.
func (s *Supervisor) Start(ctx context.Context) error {
	if len(s.accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("already started")
	}

	conns := make([]Conn, 0, len(s.accounts))
	for _, account := range s.accounts {
		s.setState(account.ID, StateConnecting)
		conn, err := s.dial(account)
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			s.running.Store(false)
			return fmt.Errorf("initial connection for %s: %w", account.Email, err)
		}
		conns = append(conns, conn)
		s.setConn(account.ID, conn)
		log.Printf("[Sync] %s: connected", account.Email)
	}

	for i, account := range s.accounts {
		s.wg.Add(1)
		go s.run(ctx, account, conns[i])
	}
	return nil
}

// run owns one account for the supervisor's lifetime: watch the given
// session until it fails, then close, wait, redial.
func (s *Supervisor) run(ctx context.Context, account emaildomain.MailAccount, conn Conn) {
	defer s.wg.Done()

	for {
		err := s.watch(ctx, account, conn)
		conn.Close()
		s.clearConn(account.ID)

		if !s.running.Load() || ctx.Err() != nil {
			s.setState(account.ID, StateShuttingDown)
			return
		}
		if err != nil {
			log.Printf("[Sync] %s: session ended: %v", account.Email, err)
		}

		next, ok := s.redial(ctx, account)
		if !ok {
			s.setState(account.ID, StateShuttingDown)
			return
		}
		conn = next
	}
}

// redial waits out the reconnect delay before each attempt and keeps
// trying until a session comes up or the supervisor stops.
func (s *Supervisor) redial(ctx context.Context, account emaildomain.MailAccount) (Conn, bool) {
	for {
		s.setState(account.ID, StateReconnecting)
		select {
		case <-s.done:
			return nil, false
		case <-ctx.Done():
			return nil, false
		case <-time.After(s.opts.ReconnectDelay):
		}

		s.setState(account.ID, StateConnecting)
		conn, err := s.dial(account)
		if err != nil {
			log.Printf("[Sync] %s: reconnect failed: %v", account.Email, err)
			s.setState(account.ID, StateDisconnected)
			continue
		}
		log.Printf("[Sync] %s: reconnected", account.Email)
		s.setConn(account.ID, conn)
		return conn, true
	}
}

// watch drives one session: select the folder, scan the backlog, then
// stay current via IDLE or polling until the session fails or the
// supervisor stops.
func (s *Supervisor) watch(ctx context.Context, account emaildomain.MailAccount, conn Conn) error {
	if err := conn.SelectFolder(s.opts.Folder); err != nil {
		return err
	}
	s.setState(account.ID, StateReady)

	seen := make(map[uint32]struct{})

	since := time.Now().AddDate(0, 0, -s.opts.LookbackDays)
	uids, err := conn.SearchSince(since)
	if err != nil {
		return err
	}
	uids = capBacklog(uids, s.opts.BacklogLimit)
	s.process(ctx, account, conn, uids, seen)

	idle, err := conn.SupportsIdle()
	if err != nil {
		return err
	}

	s.setState(account.ID, StateWatching)
	if idle {
		s.setMode(account.ID, "push")
		return s.watchPush(ctx, account, conn, seen)
	}
	s.setMode(account.ID, "poll")
	log.Printf("[Sync] %s: server lacks IDLE, polling every %s", account.Email, s.opts.PollInterval)
	return s.watchPoll(ctx, account, conn, seen)
}

// watchPush sits in IDLE and re-queries UNSEEN whenever the server
// hints at mailbox activity. The hint carries no message identity, so
// the query result is the source of truth.
func (s *Supervisor) watchPush(ctx context.Context, account emaildomain.MailAccount, conn Conn, seen map[uint32]struct{}) error {
	events := conn.MailboxEvents(8)

	for {
		stop := make(chan struct{})
		idleErr := make(chan error, 1)
		go func() {
			idleErr <- conn.Idle(stop)
		}()

		select {
		case <-s.done:
			close(stop)
			<-idleErr
			return nil
		case <-ctx.Done():
			close(stop)
			<-idleErr
			return ctx.Err()
		case err := <-idleErr:
			if err != nil {
				return err
			}
			// Idle returned without a stop request; restart it.
			continue
		case <-events:
			close(stop)
			if err := <-idleErr; err != nil {
				return err
			}
		}

		uids, err := conn.SearchUnseen()
		if err != nil {
			return err
		}
		s.process(ctx, account, conn, uids, seen)
	}
}

func (s *Supervisor) watchPoll(ctx context.Context, account emaildomain.MailAccount, conn Conn, seen map[uint32]struct{}) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			uids, err := conn.SearchUnseen()
			if err != nil {
				return err
			}
			s.process(ctx, account, conn, uids, seen)
		}
	}
}

// process forwards UIDs not yet handled in this session.
func (s *Supervisor) process(ctx context.Context, account emaildomain.MailAccount, conn Conn, uids []uint32, seen map[uint32]struct{}) {
	fresh := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		fresh = append(fresh, uid)
	}
	if len(fresh) == 0 {
		return
	}
	s.proc.ProcessBatch(ctx, account, conn, fresh)
}

// capBacklog keeps the newest n UIDs of an initial scan.
func capBacklog(uids []uint32, n int) []uint32 {
	if len(uids) <= n {
		return uids
	}
	sorted := make([]uint32, len(uids))
	copy(sorted, uids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)-n:]
}

// Stop shuts all watch loops down and waits for them. Idempotent.
func (s *Supervisor) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.done)

	s.mu.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	log.Printf("[Sync] stopped")
}

// Status reports every account's current state.
func (s *Supervisor) Status() []AccountStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AccountStatus, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, AccountStatus{
			Account: account.ID,
			Email:   account.Email,
			State:   s.states[account.ID].String(),
			Mode:    s.modes[account.ID],
		})
	}
	return out
}

func (s *Supervisor) setState(id string, state State) {
	s.mu.Lock()
	s.states[id] = state
	s.mu.Unlock()
}

func (s *Supervisor) setMode(id string, mode string) {
	s.mu.Lock()
	s.modes[id] = mode
	s.mu.Unlock()
}

func (s *Supervisor) setConn(id string, conn Conn) {
	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
}

func (s *Supervisor) clearConn(id string) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}
