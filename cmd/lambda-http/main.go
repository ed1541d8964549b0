package main

// Usely API behind API Gateway (HTTP API, payload v2). Build with:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"usely-backend/internal/bootstrap"
	"usely-backend/internal/shared/config"
	"usely-backend/internal/shared/telemetry"
)

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2
)

func initApp() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	// The container is frozen between invocations, so in-process webhook
	// workers only run while a request is in flight.
	if cfg.WebhookQueueURL == "" {
		telemetry.Warn("lambda.http.webhooks_in_process", map[string]any{"env": cfg.Env})
	}
	telemetry.Info("lambda.http.ready", map[string]any{
		"env":      cfg.Env,
		"postgres": app.DB != nil,
		"redis":    app.Redis != nil,
		"sqs":      cfg.WebhookQueueURL != "",
	})
	ginLambda = ginadapter.NewV2(app.Router)
}

// errorResponse renders the API error envelope for failures that happen
// before the router is available.
func errorResponse(code, message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.http.bootstrap_failed", map[string]any{
			"error": initErr,
			"path":  req.RawPath,
		})
		return errorResponse("internal_error", "service unavailable"), initErr
	}
	if ginLambda == nil {
		return errorResponse("internal_error", "router not initialized"), nil
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
