package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// topicPublisher adapts *pubsub.Publisher to publisher.
type topicPublisher struct {
	p *gcppubsub.Publisher
}

func newTopicPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return topicPublisher{p: p}
}

func (t topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return orderedResult{res: t.p.Publish(ctx, msg), p: t.p, key: msg.OrderingKey}
}

type orderedResult struct {
	res *gcppubsub.PublishResult
	p   *gcppubsub.Publisher
	key string
}

// Get waits for the server ack. An ordered publisher pauses a key after a
// failure; the key is resumed so the next batch can retry it.
func (r orderedResult) Get(ctx context.Context) (string, error) {
	if r.res == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.res.Get(ctx)
	if err != nil && r.key != "" {
		r.p.ResumePublish(r.key)
	}
	return id, err
}
