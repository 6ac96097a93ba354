package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/YojanaSetu/yojana-mvp/pkg/natsutil"
)

const (
	// RebuildSubject carries rebuild requests from the API to the indexer.
	RebuildSubject = "indexer.rebuild"
	// RebuildDoneSubject announces completed rebuilds so servers can reload
	// the artifacts.
	RebuildDoneSubject = "indexer.rebuild.done"
	// DLQSubject receives rebuild requests that kept failing.
	DLQSubject = "indexer.rebuild.dlq"
	// MaxRetries before a request goes to the DLQ.
	MaxRetries = 3
)

// RebuildRequest asks the indexer to rebuild the artifacts from a data dir.
type RebuildRequest struct {
	DataDir string `json:"data_dir"`
	Reason  string `json:"reason,omitempty"`
}

type dlqMessage struct {
	Request RebuildRequest `json:"request"`
	Error   string         `json:"error"`
	Retries int            `json:"retries"`
}

// PublishRebuild enqueues a rebuild request, propagating trace context into
// the message headers.
func PublishRebuild(ctx context.Context, nc *nats.Conn, req RebuildRequest) error {
	if err := natsutil.Publish(ctx, nc, RebuildSubject, req); err != nil {
		return fmt.Errorf("ingest: publish rebuild request: %w", err)
	}
	return nil
}

// StartConsumer subscribes the builder to rebuild requests. The builder's
// internal lock serializes overlapping requests, so a burst of publishes
// degenerates to sequential rebuilds instead of corrupting the artifacts.
// Failed requests are re-published with a retry header and dead-lettered
// after MaxRetries.
func StartConsumer(nc *nats.Conn, builder *Builder, log *slog.Logger) (*nats.Subscription, error) {
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(RebuildSubject, func(msg *nats.Msg) {
		var req RebuildRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Error("rebuild: unmarshal failed", "err", err)
			return
		}

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		stats, err := builder.Build(context.Background(), req.DataDir)
		if err == nil {
			log.Info("rebuild: success", "data_dir", req.DataDir, "chunks", stats.Chunks)
			if pubErr := natsutil.Publish(context.Background(), nc, RebuildDoneSubject, stats); pubErr != nil {
				log.Error("rebuild: done publish failed", "err", pubErr)
			}
			return
		}

		retries++
		log.Error("rebuild: build failed", "err", err, "data_dir", req.DataDir, "retry", retries)

		if retries >= MaxRetries {
			dlq := dlqMessage{Request: req, Error: err.Error(), Retries: retries}
			data, _ := json.Marshal(dlq)
			if pubErr := nc.Publish(DLQSubject, data); pubErr != nil {
				log.Error("rebuild: DLQ publish failed", "err", pubErr)
			}
			return
		}

		retryMsg := nats.NewMsg(RebuildSubject)
		retryMsg.Data = msg.Data
		retryMsg.Header = nats.Header{}
		retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
		if pubErr := nc.PublishMsg(retryMsg); pubErr != nil {
			log.Error("rebuild: retry publish failed", "err", pubErr)
		}
	})
}
