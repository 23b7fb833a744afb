package imap

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/Photon3009/cisoinbox/internal/email/domain"
)

const dialTimeout = 10 * time.Second

// Conn wraps a logged-in IMAP client for a single account.
type Conn struct {
	c       *client.Client
	account domain.MailAccount

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects, logs in and returns a ready connection.
func Dial(account domain.MailAccount) (*Conn, error) {
	addr := fmt.Sprintf("%s:%d", account.Host, account.Port)

	var c *client.Client
	var err error
	if account.TLS {
		tlsConfig := &tls.Config{
			ServerName:         account.Host,
			InsecureSkipVerify: account.TLSSkipVerify,
		}
		c, err = client.DialWithDialerTLS(&net.Dialer{Timeout: dialTimeout}, addr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(&net.Dialer{Timeout: dialTimeout}, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if err := c.Login(account.Email, account.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("login %s: %w", account.Email, err)
	}

	return &Conn{
		c:       c,
		account: account,
		done:    make(chan struct{}),
	}, nil
}

// SelectFolder opens the given mailbox read-write.
func (cn *Conn) SelectFolder(folder string) error {
	if _, err := cn.c.Select(folder, false); err != nil {
		return fmt.Errorf("select %s: %w", folder, err)
	}
	return nil
}

// SearchSince returns UIDs of messages received on or after the given date.
func (cn *Conn) SearchSince(since time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	uids, err := cn.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search since %s: %w", since.Format("2006-01-02"), err)
	}
	return uids, nil
}

// SearchUnseen returns UIDs of messages without the \Seen flag.
func (cn *Conn) SearchUnseen() ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := cn.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	return uids, nil
}

// FetchRaw retrieves the envelope and full body of one message by UID.
// The body is fetched with BODY.PEEK so the \Seen flag is untouched.
func (cn *Conn) FetchRaw(uid uint32) (*domain.RawMessage, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	fetchDone := make(chan error, 1)
	go func() {
		fetchDone <- cn.c.UidFetch(seqSet, items, messages)
	}()

	msg := <-messages
	if err := <-fetchDone; err != nil {
		return nil, fmt.Errorf("fetch uid %d: %w", uid, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("fetch uid %d: no message returned", uid)
	}

	raw := &domain.RawMessage{UID: uid}

	if env := msg.Envelope; env != nil {
		raw.Subject = env.Subject
		raw.MessageID = env.MessageId
		raw.Date = env.Date
		if len(env.From) > 0 {
			raw.From = formatAddress(env.From[0])
		}
		if len(env.To) > 0 {
			raw.To = formatAddress(env.To[0])
		}
	}

	if body := msg.GetBody(section); body != nil {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read body uid %d: %w", uid, err)
		}
		raw.Raw = data
	}

	return raw, nil
}

func formatAddress(addr *imap.Address) string {
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, addr.Address())
	}
	return addr.Address()
}

// SupportsIdle reports whether the server advertises the IDLE capability.
func (cn *Conn) SupportsIdle() (bool, error) {
	ok, err := cn.c.Support("IDLE")
	if err != nil {
		return false, fmt.Errorf("capability check: %w", err)
	}
	return ok, nil
}

// Idle blocks in an IDLE command until stop is closed or the server
// terminates the session.
func (cn *Conn) Idle(stop <-chan struct{}) error {
	return cn.c.Idle(stop, nil)
}

// MailboxEvents arms the client's unilateral update channel and returns
// a channel that receives a hint whenever the selected mailbox changes.
// Hints are dropped when the buffer is full. Call this at most once,
// and only when the connection will actually sit in IDLE, otherwise the
// unread updates channel stalls the client.
func (cn *Conn) MailboxEvents(buffer int) <-chan struct{} {
	updates := make(chan client.Update, buffer+1)
	cn.c.Updates = updates

	hints := make(chan struct{}, buffer)
	go func() {
		for {
			select {
			case <-cn.done:
				return
			case upd := <-updates:
				if _, ok := upd.(*client.MailboxUpdate); !ok {
					continue
				}
				select {
				case hints <- struct{}{}:
				default:
				}
			}
		}
	}()
	return hints
}

// Close logs out and releases the connection. Safe to call more than once.
func (cn *Conn) Close() error {
	var err error
	cn.closeOnce.Do(func() {
		close(cn.done)
		err = cn.c.Logout()
	})
	return err
}
