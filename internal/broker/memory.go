package broker

import (
	"context"
	"sync"
)

// MemoryPublisher collects envelopes in memory. It backs tests and local
// single-process runs where no broker is available.
type MemoryPublisher struct {
	mu        sync.Mutex
	published []*Envelope
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, exchange Exchange, payload interface{}) error {
	env, err := NewEnvelope(exchange, payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, env)
	return nil
}

// Published returns everything published so far, in publish order.
func (p *MemoryPublisher) Published() []*Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Envelope, len(p.published))
	copy(out, p.published)
	return out
}

// ByExchange filters the published envelopes down to one exchange.
func (p *MemoryPublisher) ByExchange(exchange Exchange) []*Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Envelope
	for _, env := range p.published {
		if env.Exchange == exchange {
			out = append(out, env)
		}
	}
	return out
}

func (p *MemoryPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = nil
}
