// Package nl2sql turns festival questions into guarded SELECT statements
// using a generative text model.
package nl2sql

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// FlowEventDetails selects the single-event prompt. Any other flow value
// gets the list prompt.
const FlowEventDetails = "get_event_details"

// Fallback statements returned instead of model output. Both are plain
// SELECTs so the query path downstream stays uniform.
const (
	BlockedSQL = "SELECT 'Invalid request. Only SELECT queries are allowed.';"
	FailedSQL  = "SELECT 'AI query generation failed. Please try rephrasing.';"
)

type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeFailed    Outcome = "failed"
)

type Request struct {
	Flow     string
	Question string
	Schema   string
}

type Result struct {
	SQL     string
	Outcome Outcome
	Model   string
}

// Generator produces SQL for a question. It never fails: model errors and
// unsafe output are substituted with fallback statements and reported
// through Outcome.
type Generator interface {
	Generate(ctx context.Context, req Request) Result
}

type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

type PromptGenerator struct {
	model  TextModel
	logger *slog.Logger
	now    func() time.Time
}

func NewPromptGenerator(model TextModel, logger *slog.Logger) *PromptGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PromptGenerator{model: model, logger: logger, now: time.Now}
}

func (g *PromptGenerator) Generate(ctx context.Context, req Request) Result {
	prompt := g.buildPrompt(req)

	raw, err := g.model.GenerateText(ctx, prompt)
	if err != nil {
		g.logger.ErrorContext(ctx, "sql generation failed",
			slog.String("flow", req.Flow),
			slog.String("error", err.Error()),
		)
		return Result{SQL: FailedSQL, Outcome: OutcomeFailed, Model: g.model.ModelName()}
	}

	sql := stripMarkdownSQL(raw)
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT") {
		g.logger.WarnContext(ctx, "blocking non-SELECT query",
			slog.String("flow", req.Flow),
			slog.String("sql", sql),
		)
		return Result{SQL: BlockedSQL, Outcome: OutcomeBlocked, Model: g.model.ModelName()}
	}

	return Result{SQL: sql, Outcome: OutcomeGenerated, Model: g.model.ModelName()}
}

func (g *PromptGenerator) buildPrompt(req Request) string {
	if req.Flow == FlowEventDetails {
		return detailPrompt(req.Question, req.Schema)
	}
	return listPrompt(req.Question, req.Schema, g.now())
}
