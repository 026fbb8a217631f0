package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/utils"
)

// RedisBroker maps the exchange/queue model onto Redis Streams: one stream
// per exchange, one durable consumer group per subscribing service. An entry
// is XACKed only after the handler's local transaction committed; anything
// else stays in the group's pending list and is reclaimed later.
type RedisBroker struct {
	log      *logger.Logger
	rdb      *goredis.Client
	group    string
	consumer string
	handlers map[Exchange]Handler

	reclaimIdle time.Duration
}

func NewRedisBroker(baseLog *logger.Logger, service string) (*RedisBroker, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if service == "" {
		return nil, fmt.Errorf("service name required")
	}
	log := baseLog.With("service", "RedisBroker", "group", service)

	addr := utils.GetEnv("REDIS_ADDR", "localhost:6379", baseLog)
	reclaimIdle := utils.GetEnvAsDuration("BROKER_RECLAIM_IDLE", time.Minute, baseLog)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBroker{
		log:         log,
		rdb:         rdb,
		group:       service,
		consumer:    service + "-" + time.Now().UTC().Format("20060102150405"),
		handlers:    map[Exchange]Handler{},
		reclaimIdle: reclaimIdle,
	}, nil
}

func streamKey(e Exchange) string { return "classify:exchange:" + string(e) }

func (b *RedisBroker) Publish(ctx context.Context, exchange Exchange, payload interface{}) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis broker not initialized")
	}
	env, err := NewEnvelope(exchange, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey(exchange),
		Values: map[string]interface{}{"envelope": raw},
	}).Err()
}

func (b *RedisBroker) Subscribe(exchange Exchange, h Handler) {
	b.handlers[exchange] = h
}

// Start creates the durable groups and runs one read loop per subscription
// until ctx is cancelled.
func (b *RedisBroker) Start(ctx context.Context) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis broker not initialized")
	}
	if len(b.handlers) == 0 {
		return fmt.Errorf("no subscriptions registered")
	}

	for exchange := range b.handlers {
		err := b.rdb.XGroupCreateMkStream(ctx, streamKey(exchange), b.group, "0").Err()
		if err != nil && !isBusyGroup(err) {
			return fmt.Errorf("create group %s on %s: %w", b.group, exchange, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for exchange, handler := range b.handlers {
		exchange, handler := exchange, handler
		g.Go(func() error {
			b.consumeLoop(gctx, exchange, handler)
			return nil
		})
	}
	go func() { _ = g.Wait() }()
	return nil
}

func (b *RedisBroker) consumeLoop(ctx context.Context, exchange Exchange, handler Handler) {
	log := b.log.With("exchange", exchange)
	stream := streamKey(exchange)
	lastReclaim := time.Time{}
	for {
		if ctx.Err() != nil {
			return
		}
		if time.Since(lastReclaim) >= b.reclaimIdle {
			b.reclaimPending(ctx, exchange, handler)
			lastReclaim = time.Now()
		}
		res, err := b.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{stream, ">"},
			Count:    16,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			log.Warn("XREADGROUP failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		for _, sr := range res {
			for _, msg := range sr.Messages {
				b.deliver(ctx, exchange, handler, msg)
			}
		}
	}
}

// reclaimPending re-delivers entries another consumer read but never acked,
// so a crashed instance's in-flight work is retried.
func (b *RedisBroker) reclaimPending(ctx context.Context, exchange Exchange, handler Handler) {
	stream := streamKey(exchange)
	start := "0-0"
	for {
		msgs, next, err := b.rdb.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
			Stream:   stream,
			Group:    b.group,
			Consumer: b.consumer,
			MinIdle:  b.reclaimIdle,
			Start:    start,
			Count:    16,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				b.log.Warn("XAUTOCLAIM failed", "exchange", exchange, "error", err)
			}
			return
		}
		for _, msg := range msgs {
			b.deliver(ctx, exchange, handler, msg)
		}
		if next == "0-0" || len(msgs) == 0 {
			return
		}
		start = next
	}
}

func (b *RedisBroker) deliver(ctx context.Context, exchange Exchange, handler Handler, msg goredis.XMessage) {
	log := b.log.With("exchange", exchange, "entry_id", msg.ID)

	raw, ok := msg.Values["envelope"].(string)
	if !ok {
		// Malformed entries can never succeed; ack so they do not clog the
		// pending list forever.
		log.Error("delivery without envelope field, acking")
		_ = b.rdb.XAck(ctx, streamKey(exchange), b.group, msg.ID).Err()
		return
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		log.Error("undecodable envelope, acking", "error", err)
		_ = b.rdb.XAck(ctx, streamKey(exchange), b.group, msg.ID).Err()
		return
	}

	if err := handler(ctx, env.Data); err != nil {
		log.Warn("handler failed, leaving delivery unacked", "envelope_id", env.ID, "error", err)
		return
	}
	if err := b.rdb.XAck(ctx, streamKey(exchange), b.group, msg.ID).Err(); err != nil {
		log.Warn("XACK failed", "envelope_id", env.ID, "error", err)
	}
}

func (b *RedisBroker) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
