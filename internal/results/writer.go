package results

import (
	"context"
	"encoding/json"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"web-agent/internal/config"
	"web-agent/internal/entity"
	"web-agent/pkg/apperr"
	"web-agent/pkg/logg"
	"web-agent/pkg/tracing"
)

const (
	writerName   = "ResultWriter"
	writerTracer = "results.writer"
)

// Writer persists the collected-data sequence as a JSON artifact. The
// file is the literal record list, nothing else.
type Writer struct {
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewWriter(params Params) *Writer {
	return &Writer{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, writerName)),
		tracer: otel.Tracer(writerTracer),
	}
}

func (w *Writer) Save(ctx context.Context, records []entity.ScrapeRecord) (path string, err error) {
	const op = "Save"
	logger := w.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, w.tracer, logger, op,
		attribute.Int("records", len(records)))
	defer func() {
		step.End(err)
	}()

	path = w.config.AgentConfig.ResultsFile

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageResults,
		})
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "write_failed",
			apperr.MetaStage:  apperr.StageResults,
		})
	}

	logger.Info("Results saved", zap.String("path", path), zap.Int("records", len(records)))

	return path, nil
}
