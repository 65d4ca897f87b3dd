package testutil

import (
	"context"
	"sync"

	"github.com/questx-lab/swapd/pkg/errorx"
	"github.com/questx-lab/swapd/pkg/pubsub"
)

type MockPublisher struct {
	PublishFunc func(context.Context, string, *pubsub.Pack) error
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, pack *pubsub.Pack) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, pack)
	}

	return errorx.New(errorx.NotImplemented, "Not implemented")
}

type PublishedPack struct {
	Topic string
	Pack  *pubsub.Pack
}

// RecordPublisher keeps every published pack in order.
type RecordPublisher struct {
	mu    sync.Mutex
	packs []PublishedPack
}

func (p *RecordPublisher) Publish(ctx context.Context, topic string, pack *pubsub.Pack) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.packs = append(p.packs, PublishedPack{Topic: topic, Pack: pack})
	return nil
}

func (p *RecordPublisher) Packs(topic string) []*pubsub.Pack {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result []*pubsub.Pack
	for _, pp := range p.packs {
		if pp.Topic == topic {
			result = append(result, pp.Pack)
		}
	}

	return result
}
