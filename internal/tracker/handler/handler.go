package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mipwatch/internal/analysis"
	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/tracker/service"
	dErrors "mipwatch/pkg/domain-errors"
	"mipwatch/pkg/platform/httputil"
	"mipwatch/pkg/requestcontext"
)

// Service defines the tracker operations exposed over HTTP.
type Service interface {
	Ingest(ctx context.Context, snap models.Snapshot) (*service.IngestResult, error)
	Report(ctx context.Context, opts service.ReportOptions) (*service.Report, error)
	Changes(ctx context.Context, date time.Time) (*analysis.Changes, error)
	History(ctx context.Context, key models.EntityKey) (*service.KeyHistory, error)
	Disappearances(ctx context.Context) ([]analysis.Disappearance, error)
	Tallies(ctx context.Context, opts service.ReportOptions) ([]analysis.DateTally, error)
}

// Handler serves the snapshot and report endpoints.
type Handler struct {
	tracker Service
	logger  *slog.Logger
}

// New creates a Handler.
func New(tracker Service, logger *slog.Logger) *Handler {
	return &Handler{
		tracker: tracker,
		logger:  logger,
	}
}

// Register mounts the tracker routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/snapshots", h.handleIngest)
	r.Get("/report", h.handleReport)
	r.Get("/changes", h.handleChanges)
	r.Get("/changes/{date}", h.handleChanges)
	r.Get("/history", h.handleHistory)
	r.Get("/disappearances", h.handleDisappearances)
	r.Get("/tallies", h.handleTallies)
}

// handleIngest stores a snapshot and returns its diff against the preceding date.
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IngestRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.tracker.Ingest(ctx, req.Snapshot())
	if err != nil {
		h.fail(ctx, w, requestID, "failed to ingest snapshot", err)
		return
	}

	h.logger.InfoContext(ctx, "snapshot accepted",
		"request_id", requestID,
		"publish_date", models.FormatPublishDate(result.PublishDate),
		"rows", result.Rows,
	)
	httputil.WriteJSON(w, http.StatusCreated, toIngestResponse(result))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	opts, err := reportOptionsFromQuery(r)
	if err != nil {
		h.fail(ctx, w, requestID, "invalid report query", err)
		return
	}
	report, err := h.tracker.Report(ctx, opts)
	if err != nil {
		h.fail(ctx, w, requestID, "failed to build report", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toReportResponse(report))
}

// handleChanges serves both the latest diff and the diff at a path date.
func (h *Handler) handleChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var date time.Time
	if raw := chi.URLParam(r, "date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			h.fail(ctx, w, requestID, "invalid changes date", err)
			return
		}
		date = parsed
	}
	changes, err := h.tracker.Changes(ctx, date)
	if err != nil {
		h.fail(ctx, w, requestID, "failed to diff snapshots", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toChangesResponse(*changes))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	key, err := keyFromQuery(r)
	if err != nil {
		h.fail(ctx, w, requestID, "invalid history query", err)
		return
	}
	history, err := h.tracker.History(ctx, key)
	if err != nil {
		h.fail(ctx, w, requestID, "failed to load history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHistoryResponse(*history))
}

func (h *Handler) handleDisappearances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	found, err := h.tracker.Disappearances(ctx)
	if err != nil {
		h.fail(ctx, w, requestID, "failed to find disappearances", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DisappearancesResponse{Disappearances: toDisappearanceResponses(found)})
}

func (h *Handler) handleTallies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	opts, err := reportOptionsFromQuery(r)
	if err != nil {
		h.fail(ctx, w, requestID, "invalid tallies query", err)
		return
	}
	tallies, err := h.tracker.Tallies(ctx, opts)
	if err != nil {
		h.fail(ctx, w, requestID, "failed to tally statuses", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TalliesResponse{Tallies: toTallyResponses(tallies)})
}

// fail logs client errors as warnings and everything else as errors before writing
// the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, requestID, msg string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeNotFound, dErrors.CodeConflict:
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	default:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
