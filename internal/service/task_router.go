package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/agentbridge/internal/adapter/otel"
	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/domain/agent"
	"github.com/Strob0t/agentbridge/internal/domain/record"
	"github.com/Strob0t/agentbridge/internal/logger"
	"github.com/Strob0t/agentbridge/internal/port/completion"
)

// TaskResult is the outcome of one routed task.
type TaskResult struct {
	RequestID           string
	AgentID             string
	AgentType           string
	Response            string
	Confidence          float64
	Mock                bool
	ResponseMS          int64
	AutonomousExecution bool
	Persistence         WriteReport
}

// TaskRouterService runs the task pipeline: prompt, completion, scoring,
// persistence and escalation.
type TaskRouterService struct {
	provider   completion.Provider
	writer     *PersistenceWriter
	escalation *EscalationPolicy
	metrics    *otel.Metrics
	model      string
	now        func() time.Time
}

// NewTaskRouterService creates a TaskRouterService. metrics may be nil.
func NewTaskRouterService(provider completion.Provider, writer *PersistenceWriter, escalation *EscalationPolicy, metrics *otel.Metrics, model string) *TaskRouterService {
	return &TaskRouterService{
		provider:   provider,
		writer:     writer,
		escalation: escalation,
		metrics:    metrics,
		model:      model,
		now:        time.Now,
	}
}

// CompletionConfigured reports whether a real completion service is wired in.
func (s *TaskRouterService) CompletionConfigured() bool {
	return s.provider.Configured()
}

// Route processes a validated task request. Only completion failures are
// returned as errors (KindUpstreamFailure); persistence is best effort.
func (s *TaskRouterService) Route(ctx context.Context, req *agent.TaskRequest) (*TaskResult, error) {
	requestID := logger.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logger.WithRequestID(ctx, requestID)
	}
	start := s.now()

	// A dispatched task runs to completion even if the caller goes away, so
	// the processing row always gets its completed or error partner. The
	// completion client applies its own timeout.
	ctx = context.WithoutCancel(ctx)

	ctx, span := otel.StartTaskSpan(ctx, requestID, req.AgentID, req.AgentType, req.Priority)
	var spanErr error
	defer func() { otel.EndSpan(span, spanErr) }()

	prompt := ComposePrompt(req.Type(), req.Task, req.Context, req.Priority)

	// Written before the completion call so monitors always see a
	// processing row paired with completed or error.
	_ = s.writer.WriteStatus(ctx, &record.StatusLog{
		AgentID:   req.AgentID,
		AgentType: req.AgentType,
		Status:    record.StatusProcessing,
		Message:   "Processing task",
	})

	res, err := s.complete(ctx, prompt)
	if err != nil {
		spanErr = err
		elapsed := ResponseMS(s.now().Sub(start))
		_ = s.writer.WriteStatus(ctx, &record.StatusLog{
			AgentID:        req.AgentID,
			AgentType:      req.AgentType,
			Status:         record.StatusError,
			Message:        err.Error(),
			ResponseTimeMS: &elapsed,
		})
		if s.metrics != nil {
			s.metrics.UpstreamFailures.Add(ctx, 1)
		}
		slog.Error("completion failed", "agent_id", req.AgentID, "agent_type", req.AgentType, "error", err)
		return nil, upstreamFailure(err)
	}

	confidence := ScoreConfidence(res.Text)
	report := s.writer.Write(ctx, WriteInput{
		Request:    req,
		Prompt:     prompt,
		Response:   res.Text,
		Confidence: confidence,
		Elapsed:    s.now().Sub(start),
	})

	escalated := s.escalation.Apply(ctx, requestID, req, res.Text, confidence)

	if s.metrics != nil {
		s.metrics.RecordTask(ctx, req.Type().String(), res.IsMock, confidence, report.ResponseMS)
		if escalated {
			s.metrics.Escalations.Add(ctx, 1)
		}
	}

	slog.Info("task routed",
		"agent_id", req.AgentID,
		"agent_type", req.AgentType,
		"priority", req.Priority,
		"confidence", confidence,
		"mock", res.IsMock,
		"response_ms", report.ResponseMS,
		"autonomous_execution", escalated,
		"persistence_failures", len(report.Failed()),
	)

	return &TaskResult{
		RequestID:           requestID,
		AgentID:             req.AgentID,
		AgentType:           req.AgentType,
		Response:            res.Text,
		Confidence:          confidence,
		Mock:                res.IsMock,
		ResponseMS:          report.ResponseMS,
		AutonomousExecution: escalated,
		Persistence:         report,
	}, nil
}

func (s *TaskRouterService) complete(ctx context.Context, p Prompt) (completion.Result, error) {
	ctx, span := otel.StartCompletionSpan(ctx, s.model)
	res, err := s.provider.Complete(ctx, p.System, p.User)
	otel.EndSpan(span, err)
	return res, err
}

// upstreamFailure classifies a provider error, keeping the upstream message
// for the caller.
func upstreamFailure(err error) error {
	msg := err.Error()
	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		msg = upErr.Error()
	}
	return &domain.Error{Kind: domain.KindUpstreamFailure, Message: msg, Err: err}
}
