package testutil

import (
	"context"
	"sync"

	ierr "github.com/channelgate/channelgate/internal/errors"
)

// StubGateway records revoke and restore calls and can be told to fail.
type StubGateway struct {
	mu          sync.Mutex
	FailRevoke  bool
	FailRestore bool
	Revoked     []int64
	Restored    []int64
	RevokeBlock chan struct{} // when set, RevokeAccess blocks until closed
}

func (g *StubGateway) RevokeAccess(ctx context.Context, subscriberID int64) error {
	if g.RevokeBlock != nil {
		select {
		case <-g.RevokeBlock:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailRevoke {
		return ierr.NewError("injected gateway failure").Mark(ierr.ErrHTTPClient)
	}
	g.Revoked = append(g.Revoked, subscriberID)
	return nil
}

func (g *StubGateway) RestoreEligibility(ctx context.Context, subscriberID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailRestore {
		return ierr.NewError("injected gateway failure").Mark(ierr.ErrHTTPClient)
	}
	g.Restored = append(g.Restored, subscriberID)
	return nil
}

// RevokedCount returns how many revokes the gateway has seen.
func (g *StubGateway) RevokedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Revoked)
}

// SetFailRevoke toggles revoke failure injection.
func (g *StubGateway) SetFailRevoke(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.FailRevoke = fail
}

// SentMessage is one notification recorded by the stub notifier.
type SentMessage struct {
	RecipientID int64
	Text        string
}

// StubNotifier records sent messages and can be told to fail.
type StubNotifier struct {
	mu       sync.Mutex
	FailSend bool
	Sent     []SentMessage
}

func (n *StubNotifier) Send(ctx context.Context, recipientID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.FailSend {
		return ierr.NewError("injected notify failure").Mark(ierr.ErrHTTPClient)
	}
	n.Sent = append(n.Sent, SentMessage{RecipientID: recipientID, Text: text})
	return nil
}

// Messages returns a copy of the recorded messages.
func (n *StubNotifier) Messages() []SentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]SentMessage, len(n.Sent))
	copy(out, n.Sent)
	return out
}

// MessagesFor returns the messages sent to one recipient.
func (n *StubNotifier) MessagesFor(recipientID int64) []SentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []SentMessage
	for _, m := range n.Sent {
		if m.RecipientID == recipientID {
			out = append(out, m)
		}
	}
	return out
}

// StubProfileResolver returns a fixed display name per subscriber.
type StubProfileResolver struct {
	Names   map[int64]string
	FailAll bool
}

func (p *StubProfileResolver) LookupProfile(ctx context.Context, subscriberID int64) (string, error) {
	if p.FailAll {
		return "", ierr.NewError("injected profile failure").Mark(ierr.ErrHTTPClient)
	}
	return p.Names[subscriberID], nil
}
