package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"anime-api/internal/model"
	"anime-api/internal/platform/rabbitmq"
)

type PostLister interface {
	ListPosts(ctx context.Context, offset, limit int) ([]model.Post, error)
}

type PageWriter interface {
	Generation(ctx context.Context) (int64, error)
	SetPage(ctx context.Context, gen int64, skip, limit int, posts []model.Post) error
}

// PostEventWorker consumes post.created events and rebuilds the first
// listing page so the next reader after a write hits the cache.
type PostEventWorker struct {
	conn      *amqp.Connection
	store     PostLister
	cache     PageWriter
	queueName string
	pageSize  int
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPostEventWorker(conn *amqp.Connection, store PostLister, cache PageWriter, queueName string, pageSize int, logger *slog.Logger) *PostEventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostEventWorker{
		conn:      conn,
		store:     store,
		cache:     cache,
		queueName: queueName,
		pageSize:  pageSize,
		logger:    logger.With(slog.String("component", "post_event_worker")),
	}
}

func (w *PostEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := ch.Qos(8, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					w.logger.Warn("handle post event failed", slog.String("message_id", d.MessageId), slog.Any("error", err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// Handle processes one event body. The generation is read before the store
// so a page built from data older than a later write is never served.
func (w *PostEventWorker) Handle(ctx context.Context, body []byte) error {
	event, err := rabbitmq.DecodePostCreated(body)
	if err != nil {
		return err
	}
	if w.cache == nil || w.pageSize <= 0 {
		return nil
	}

	gen, err := w.cache.Generation(ctx)
	if err != nil {
		return fmt.Errorf("read page generation failed: %w", err)
	}
	posts, err := w.store.ListPosts(ctx, 0, w.pageSize)
	if err != nil {
		return fmt.Errorf("list first page failed: %w", err)
	}
	if posts == nil {
		posts = []model.Post{}
	}
	if err := w.cache.SetPage(ctx, gen, 0, w.pageSize, posts); err != nil {
		return fmt.Errorf("warm first page failed: %w", err)
	}

	w.logger.Debug("warmed first page",
		slog.String("post_id", event.Post.ID),
		slog.Int64("generation", gen),
		slog.Int("posts", len(posts)),
	)
	return nil
}

func (w *PostEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
