package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// replicaConsumer replays book write events into a secondary store.
type replicaConsumer struct {
	logger *zap.Logger
	queue  Queuer
	store  BookStore
}

func NewReplicaConsumer(logger *zap.Logger, q Queuer, store BookStore) Consumer {
	return &replicaConsumer{logger, q, store}
}

// Consume pops events until the context is done. Failures on a
// single event are logged and do not stop the consumer.
func (rc *replicaConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, book, err := rc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			rc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			rc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			continue
		}

		if book.ID == nil {
			rc.logger.Warn("consumer: received book without id", zap.String("qid", qid))
			continue
		}

		switch qid {
		case CreateQueue, UpdateQueue:
			if _, err = rc.store.Save(ctx, book); err != nil {
				rc.logger.Error("consumer: failed to save", zap.String("qid", qid), zap.Any("book", book), zap.Error(err))
			}
		case DeleteQueue:
			err = rc.store.DeleteByID(ctx, *book.ID)
			if err != nil && !errors.Is(err, ErrBookNotFound) {
				rc.logger.Error("consumer: failed to delete", zap.Int64("book.id", *book.ID), zap.Error(err))
			}
		default:
			rc.logger.Warn("consumer: received book on unknown queue id", zap.String("qid", qid), zap.Any("book", book))
		}
	}
}
