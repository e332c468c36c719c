package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// progressReporter implements orchestrator.Reporter over LSP's
// window/workDoneProgress/create request plus $/progress notifications
// (spec.md §4.8/§6 loading_indicator). Reporting is skipped entirely when
// the client never advertised workDoneProgress support, since a
// create-then-notify sequence against a client that ignores it is a
// request round-trip with no payoff.
type progressReporter struct {
	client   protocol.Client
	logger   *zap.Logger
	supports bool
}

func newProgressReporter(client protocol.Client, logger *zap.Logger, supports bool) *progressReporter {
	return &progressReporter{client: client, logger: logger, supports: supports}
}

func (r *progressReporter) Begin(token, title string, total int) {
	if !r.supports {
		return
	}
	ctx := context.Background()
	progToken := protocol.ProgressToken(token)
	if err := r.client.WorkDoneProgressCreate(ctx, &protocol.WorkDoneProgressCreateParams{Token: progToken}); err != nil {
		r.logger.Debug("workDoneProgress/create failed", zap.Error(err))
		return
	}
	r.notify(ctx, progToken, &protocol.WorkDoneProgressBegin{
		Kind:        "begin",
		Title:       title,
		Cancellable: false,
		Percentage:  0,
	})
}

func (r *progressReporter) Increment(token string) {
	if !r.supports {
		return
	}
	r.notify(context.Background(), protocol.ProgressToken(token), &protocol.WorkDoneProgressReport{Kind: "report"})
}

func (r *progressReporter) End(token string) {
	if !r.supports {
		return
	}
	r.notify(context.Background(), protocol.ProgressToken(token), &protocol.WorkDoneProgressEnd{Kind: "end"})
}

func (r *progressReporter) notify(ctx context.Context, token protocol.ProgressToken, value any) {
	if err := r.client.Progress(ctx, &protocol.ProgressParams{Token: token, Value: value}); err != nil {
		r.logger.Debug("$/progress notification failed", zap.Error(err))
	}
}
