package workers

import (
	"context"
	"encoding/json"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/dmehra/oddsradar/internal/kafka"
	"github.com/dmehra/oddsradar/internal/logging"
	"github.com/dmehra/oddsradar/internal/queue"
)

// QuoteHandler processes one quote message pulled off the odds topic.
type QuoteHandler func(context.Context, *queue.QuoteMessage) error

// Run consumes the odds.quotes topic with workerCount parallel readers in
// the same consumer group and blocks until ctx is cancelled. Handler errors
// are logged; the message is not redelivered.
func Run(ctx context.Context, brokers []string, topic, group string, workerCount int, handler QuoteHandler) {
	if workerCount <= 0 {
		workerCount = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reader := kafka.NewReader(brokers, topic, group)
			defer reader.Close()
			consume(ctx, reader, handler)
		}()
	}

	<-ctx.Done()
	wg.Wait()
}

func consume(ctx context.Context, reader *kafkago.Reader, handler QuoteHandler) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Errorf("worker read error: %v", err)
			continue
		}

		var qm queue.QuoteMessage
		if err := json.Unmarshal(msg.Value, &qm); err != nil {
			logging.Errorf("worker unmarshal error: %v", err)
			continue
		}

		if handler != nil {
			if err := handler(ctx, &qm); err != nil {
				logging.Errorf("worker handler error: %v", err)
			}
		}
	}
}
