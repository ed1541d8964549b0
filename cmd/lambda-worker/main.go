package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"usely-backend/internal/bootstrap"
	"usely-backend/internal/shared/config"
	"usely-backend/internal/shared/telemetry"
	"usely-backend/internal/workerproc"
)

var (
	initOnce  sync.Once
	initErr   error
	deliverer workerproc.Deliverer
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	deliverer = built.Deliverer
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return process(ctx, deliverer, event), nil
}

// process reports only retryable failures; unrecoverable bodies are dropped.
func process(ctx context.Context, d workerproc.Deliverer, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		err := workerproc.HandleMessage(ctx, d, record.Body)
		if err == nil {
			continue
		}
		if workerproc.Permanent(err) {
			telemetry.Error("lambda.message_unrecoverable", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err,
			})
			continue
		}
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
