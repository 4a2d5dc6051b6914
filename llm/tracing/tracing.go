package tracing

import (
	"context"
	"time"

	"routeqa/config"
	"routeqa/logging"

	"github.com/cloudwego/eino/callbacks"
	clc "github.com/cloudwego/eino-ext/callbacks/cozeloop"
	"github.com/coze-dev/cozeloop-go"
	"go.uber.org/zap"
)

// flushDelay gives the cozeloop exporter time to send buffered spans on close.
const flushDelay = 2 * time.Second

// Setup registers the global eino callback handlers: a debug logger for
// every node, plus the cozeloop exporter when tracing is enabled and
// credentials are present. The returned func flushes and closes the exporter.
func Setup(ctx context.Context, cfg config.TracingConfig, logger *zap.Logger) (func(), error) {
	logger = logging.OrNop(logger)
	handlers := []callbacks.Handler{NewLogHandler(logger)}
	closeFn := func() {}

	switch {
	case !cfg.Enabled:
	case cfg.APIToken == "" || cfg.WorkspaceID == "":
		logger.Warn("tracing enabled but COZELOOP_API_TOKEN or COZELOOP_WORKSPACE_ID is missing, skipping")
	default:
		client, err := cozeloop.NewClient(
			cozeloop.WithAPIToken(cfg.APIToken),
			cozeloop.WithWorkspaceID(cfg.WorkspaceID),
		)
		if err != nil {
			return closeFn, err
		}
		handlers = append(handlers, clc.NewLoopHandler(client))
		closeFn = func() {
			time.Sleep(flushDelay)
			client.Close(ctx)
		}
		logger.Info("cozeloop tracing enabled", zap.String("project", cfg.Project))
	}

	callbacks.AppendGlobalHandlers(handlers...)
	return closeFn, nil
}

type startKey struct{}

// NewLogHandler logs the duration and failures of every component run.
func NewLogHandler(logger *zap.Logger) callbacks.Handler {
	logger = logging.OrNop(logger)
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, _ *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			return context.WithValue(ctx, startKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackOutput) context.Context {
			logger.Debug("node finished", runFields(ctx, info)...)
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			logger.Warn("node failed", append(runFields(ctx, info), zap.Error(err))...)
			return ctx
		}).
		Build()
}

func runFields(ctx context.Context, info *callbacks.RunInfo) []zap.Field {
	var fields []zap.Field
	if info != nil {
		fields = append(fields,
			zap.String("name", info.Name),
			zap.String("component", string(info.Component)),
			zap.String("type", info.Type))
	}
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		fields = append(fields, zap.Duration("elapsed", time.Since(start)))
	}
	return fields
}
