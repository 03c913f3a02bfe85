package pipeline

import (
	"context"

	"github.com/haukened/pbdns-relay/internal/dns/domain"
	"github.com/haukened/pbdns-relay/internal/dns/gateways/wire/pbdns"
)

// Decoder turns one frame payload into a message.
type Decoder interface {
	Decode(payload []byte) (*pbdns.Message, error)
}

// Mapper turns a decoded message into the canonical document.
type Mapper interface {
	Map(msg *pbdns.Message) (*domain.Document, error)
}

// Filter reports query names whose traffic is not forwarded.
type Filter interface {
	Ignored(qname string) bool
}

// Sink receives mapped documents. Emit is called from several workers at once.
type Sink interface {
	Emit(doc *domain.Document) error
}

// Submitter accepts jobs from connection handlers.
type Submitter interface {
	// Submit blocks while the queue is full and returns ctx.Err() if ctx is
	// cancelled first.
	Submit(ctx context.Context, job Job) error
}
