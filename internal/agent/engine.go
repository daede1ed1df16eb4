// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent drives one question through the answering workflow:
// route, retrieve evidence, extract constraints, synthesize a query,
// execute it, validate the result shape, repair within a fixed budget,
// and synthesize the final answer. Answer synthesis runs exactly once
// per question, whatever happened upstream.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/retail-copilot/internal/answer"
	"github.com/pdiddy/retail-copilot/internal/constraint"
	"github.com/pdiddy/retail-copilot/internal/retrieval"
	"github.com/pdiddy/retail-copilot/internal/sqlgen"
	"github.com/pdiddy/retail-copilot/internal/store"
	"github.com/pdiddy/retail-copilot/pkg/types"
)

// DefaultMaxRepairs bounds how many repair passes a question gets.
const DefaultMaxRepairs = 2

// Retriever finds document chunks relevant to a query.
type Retriever interface {
	Retrieve(query string, topK int) []types.EvidenceChunk
}

// Executor runs SQL and reports which tables query text touches.
type Executor interface {
	Execute(ctx context.Context, query string) store.QueryResult
	TablesReferenced(query string) []string
}

// Router classifies a question into an evidence route.
type Router interface {
	Route(ctx context.Context, question string) types.Route
}

// QuerySynthesizer turns a question and constraint tokens into query
// text.
type QuerySynthesizer interface {
	Synthesize(ctx context.Context, question string, tokens []types.ConstraintToken, prevErrors []string) sqlgen.Result
}

// Options configures an Engine. Router, Executor, and Synthesizer are
// required; Retriever may be nil when no document corpus is available.
type Options struct {
	Router      Router
	Retriever   Retriever
	Executor    Executor
	Synthesizer QuerySynthesizer
	Calendar    constraint.Calendar
	TopK        int
	MaxRepairs  int
	Logger      *zap.Logger
}

// Engine is the workflow driver. Safe for concurrent Run calls as long
// as its collaborators are.
type Engine struct {
	router     Router
	retriever  Retriever
	executor   Executor
	synth      QuerySynthesizer
	calendar   constraint.Calendar
	topK       int
	maxRepairs int
	logger     *zap.Logger
}

// New builds an engine, filling zero options with defaults.
func New(opts Options) (*Engine, error) {
	if opts.Router == nil {
		return nil, errors.New("router is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if opts.Synthesizer == nil {
		return nil, errors.New("query synthesizer is required")
	}
	if opts.TopK <= 0 {
		opts.TopK = retrieval.DefaultTopK
	}
	if opts.MaxRepairs == 0 {
		opts.MaxRepairs = DefaultMaxRepairs
	}
	if len(opts.Calendar.Windows) == 0 {
		opts.Calendar = constraint.DefaultCalendar()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		router:     opts.Router,
		retriever:  opts.Retriever,
		executor:   opts.Executor,
		synth:      opts.Synthesizer,
		calendar:   opts.Calendar,
		topK:       opts.TopK,
		maxRepairs: opts.MaxRepairs,
		logger:     opts.Logger,
	}, nil
}

// stage names one workflow step; the empty stage terminates the run.
type stage string

const (
	stageRoute       stage = "route"
	stageRetrieve    stage = "retrieve"
	stagePlan        stage = "plan"
	stageSynthQuery  stage = "synthesize-query"
	stageExecute     stage = "execute-query"
	stageValidate    stage = "validate"
	stageRepair      stage = "repair"
	stageSynthAnswer stage = "synthesize-answer"
)

// state threads one question's working data between stages.
type state struct {
	question   types.Question
	format     types.FormatSpec
	route      types.Route
	chunks     []types.EvidenceChunk
	docIDs     []string
	tokens     []types.ConstraintToken
	sql        string
	result     store.QueryResult
	tables     []string
	err        string
	prevErrors []string
	repairs    int
	trace      []string
	record     types.ResultRecord
}

func (st *state) tracef(format string, args ...any) {
	st.trace = append(st.trace, fmt.Sprintf(format, args...))
}

// Run answers one question and returns the result record plus the
// stage trace. It never panics outward: a panic anywhere in the
// workflow becomes a zero-confidence error record.
func (e *Engine) Run(ctx context.Context, q types.Question) (rec types.ResultRecord, trace []string) {
	st := &state{question: q}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("workflow panic",
				zap.String("id", q.ID),
				zap.Any("panic", r))
			st.tracef("fatal: %v", r)
			rec = types.ResultRecord{
				ID:          q.ID,
				FinalAnswer: types.NoAnswer(),
				SQL:         st.sql,
				Confidence:  answer.ConfidenceFatal,
				Explanation: fmt.Sprintf("Error: %v", r),
				Citations:   []string{},
			}
			trace = st.trace
		}
	}()

	e.logger.Debug("answering question",
		zap.String("id", q.ID),
		zap.String("format", q.FormatHint))

	format, err := types.ParseFormatHint(q.FormatHint)
	if err != nil {
		st.tracef("bad format hint: %v", err)
		return types.ResultRecord{
			ID:          q.ID,
			FinalAnswer: types.NoAnswer(),
			Confidence:  answer.ConfidenceLow,
			Explanation: "Failed: " + err.Error(),
			Citations:   []string{},
		}, st.trace
	}
	st.format = format

	for stg := stageRoute; stg != ""; {
		stg = e.step(ctx, st, stg)
	}
	return st.record, st.trace
}

// step executes one stage and returns the next. The transitions are a
// fixed graph, so every run reaches stageSynthAnswer after a bounded
// number of steps.
func (e *Engine) step(ctx context.Context, st *state, stg stage) stage {
	switch stg {
	case stageRoute:
		st.route = e.router.Route(ctx, st.question.Text)
		st.tracef("route: %s", st.route)
		if st.route == types.RouteStoreOnly {
			return stagePlan
		}
		return stageRetrieve

	case stageRetrieve:
		if e.retriever != nil {
			query := constraint.RewriteQuery(st.question.Text, e.calendar)
			st.chunks = e.retriever.Retrieve(query, e.topK)
		}
		st.docIDs = make([]string, 0, len(st.chunks))
		for _, c := range st.chunks {
			st.docIDs = append(st.docIDs, c.ID)
		}
		st.tracef("retrieved %d chunks", len(st.chunks))
		return stagePlan

	case stagePlan:
		tokens := constraint.Extract(st.chunks)
		st.tokens = constraint.ApplyCalendar(st.question.Text, tokens, e.calendar)
		st.tracef("extracted %d constraints", len(st.tokens))
		if st.route == types.RouteDocOnly {
			return stageSynthAnswer
		}
		return stageSynthQuery

	case stageSynthQuery:
		res := e.synth.Synthesize(ctx, st.question.Text, st.tokens, st.prevErrors)
		st.sql = res.SQL
		if res.Err != "" {
			st.err = res.Err
		}
		st.tracef("synthesized query (%s)", res.Source)
		return stageExecute

	case stageExecute:
		st.result = e.executor.Execute(ctx, st.sql)
		st.tables = e.executor.TablesReferenced(st.sql)
		if st.result.Success {
			st.tracef("query ok: %d rows", st.result.RowCount)
			return stageValidate
		}
		st.err = st.result.Err
		st.prevErrors = append(st.prevErrors, st.result.Err)
		st.trace = append(st.trace, "query error")
		if st.repairs < e.maxRepairs {
			return stageRepair
		}
		return stageSynthAnswer

	case stageValidate:
		issues := answer.Validate(st.result.Rows, st.format)
		if len(issues) == 0 {
			st.trace = append(st.trace, "validation ok")
			return stageSynthAnswer
		}
		joined := strings.Join(issues, "; ")
		st.err = joined
		st.prevErrors = append(st.prevErrors, joined)
		st.tracef("validation failed: %s", joined)
		if st.repairs < e.maxRepairs {
			return stageRepair
		}
		return stageSynthAnswer

	case stageRepair:
		st.repairs++
		st.tracef("repair #%d", st.repairs)
		if st.repairs < e.maxRepairs {
			return stageSynthQuery
		}
		return stageSynthAnswer
	}

	out := answer.Synthesize(answer.Input{
		Question: st.question.Text,
		Format:   st.format,
		Route:    st.route,
		Chunks:   st.chunks,
		DocIDs:   st.docIDs,
		Rows:     st.result.Rows,
		Success:  st.result.Success,
		Tables:   st.tables,
		LastErr:  st.err,
	})
	st.record = types.ResultRecord{
		ID:          st.question.ID,
		FinalAnswer: out.Answer,
		SQL:         st.sql,
		Confidence:  out.Confidence,
		Explanation: out.Explanation,
		Citations:   out.Citations,
	}
	st.trace = append(st.trace, "synthesized answer")
	return ""
}
