package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rhyrak/localsearch/internal/export"
	"github.com/rhyrak/localsearch/internal/scheduler"
	"github.com/rhyrak/localsearch/internal/store"
	"github.com/rhyrak/localsearch/pkg/model"
)

var errTooManyRuns = errors.New("too many runs in progress")

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the common response body.
type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type instanceRequest struct {
	Events    []model.Event    `json:"events" binding:"required"`
	Resources []model.Resource `json:"resources" binding:"required"`
	Rules     []model.RuleSpec `json:"rules"`
	Weights   *model.Weights   `json:"weights"`
}

type scheduleRequest struct {
	Instance instanceRequest `json:"instance"`
	// Configuration fields left out of the body keep the server defaults.
	Configuration *scheduler.Configuration `json:"configuration"`
}

func respond(ctx *gin.Context, status int, data any) {
	ctx.Header("Cache-Control", "no-store")
	ctx.JSON(status, envelope{Data: data})
}

func fail(ctx *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"

	var invalidInstance *model.InvalidInstanceError
	var invalidConfig *scheduler.ConfigurationError
	switch {
	case errors.As(err, &invalidInstance):
		status, code = http.StatusBadRequest, "INVALID_INSTANCE"
	case errors.As(err, &invalidConfig):
		status, code = http.StatusBadRequest, "INVALID_CONFIGURATION"
	case errors.Is(err, errTooManyRuns):
		status, code = http.StatusTooManyRequests, "TOO_MANY_RUNS"
	}
	ctx.Header("Cache-Control", "no-store")
	ctx.JSON(status, envelope{Error: &apiError{Code: code, Message: err.Error()}})
}

func abort(ctx *gin.Context, status int, code, message string) {
	ctx.AbortWithStatusJSON(status, envelope{Error: &apiError{Code: code, Message: message}})
}

func (s *server) handlePostSchedule(ctx *gin.Context) {
	search := s.cfg.Search
	req := scheduleRequest{Configuration: &search}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abort(ctx, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	weights := s.cfg.Weights
	if req.Instance.Weights != nil {
		weights = *req.Instance.Weights
	}
	inst, err := model.NewInstance(req.Instance.Events, req.Instance.Resources, req.Instance.Rules, weights)
	if err != nil {
		fail(ctx, err)
		return
	}
	cfg := s.cfg.Search
	if req.Configuration != nil {
		cfg = *req.Configuration
	}

	r, err := s.start(inst, cfg)
	if err != nil {
		fail(ctx, err)
		return
	}
	respond(ctx, http.StatusAccepted, gin.H{"id": r.id})
}

func (s *server) handleGetSchedule(ctx *gin.Context) {
	live := s.runs.list()
	all := append(live, s.history(ctx.Request.Context(), live)...)
	respond(ctx, http.StatusOK, gin.H{"schedules": all})
}

func (s *server) lookup(ctx *gin.Context) (*run, bool) {
	r, err := s.find(ctx.Request.Context(), ctx.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		abort(ctx, http.StatusNotFound, "NOT_FOUND", "schedule not found")
		return nil, false
	case err != nil:
		fail(ctx, err)
		return nil, false
	}
	return r, true
}

func (s *server) handleGetScheduleWithId(ctx *gin.Context) {
	r, ok := s.lookup(ctx)
	if !ok {
		return
	}
	respond(ctx, http.StatusOK, r.view())
}

func (s *server) handleExportSchedule(ctx *gin.Context) {
	r, ok := s.lookup(ctx)
	if !ok {
		return
	}
	v := r.view()
	if v.Report == nil {
		abort(ctx, http.StatusConflict, "RUNNING", "schedule is still being searched")
		return
	}

	format, err := export.ParseFormat(ctx.DefaultQuery("format", "csv"))
	if err != nil {
		abort(ctx, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error())
		return
	}

	var buf bytes.Buffer
	opts := export.Options{
		Delimiter: s.cfg.Data.Delimiter,
		Calendar:  export.Calendar(s.cfg.Calendar),
		Title:     "Schedule " + r.id,
	}
	if err := export.Write(&buf, format, r.inst, v.Report.Placements, opts); err != nil {
		fail(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-schedule.%s", r.id, format))
	ctx.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// handleCancelSchedule stops a running search. Finished runs are removed.
func (s *server) handleCancelSchedule(ctx *gin.Context) {
	r, ok := s.lookup(ctx)
	if !ok {
		return
	}
	if !r.finished() {
		r.handle.Cancel()
		respond(ctx, http.StatusAccepted, r.summary())
		return
	}

	s.runs.remove(r.id)
	if s.store != nil {
		if err := s.store.Delete(ctx.Request.Context(), r.id); err != nil && !errors.Is(err, store.ErrNotFound) {
			fail(ctx, err)
			return
		}
	}
	ctx.Status(http.StatusNoContent)
}
