// Package rewriter provides the high-level API for certifying and
// normalizing Cypher queries before they reach the database.
//
// A Rewriter either rejects a query that violates the safety policy (write
// clauses, banned procedure calls, constructs the dialect version does not
// accept) or returns an equivalent, policy-compliant query together with the
// list of changes applied to it.
//
// # Quick Start
//
//	r, err := rewriter.New(types.Config{Version: types.Version_V5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	switch res := r.Rewrite(query).(type) {
//	case *types.Accepted:
//	    fmt.Println(res.Query, res.Changes)
//	case *types.Rejected:
//	    fmt.Println("refused:", res.Kind, res.Detail)
//	}
//
// # Error Returns
//
//	out, changes, err := r.RewriteQuery(query)
//	if err != nil {
//	    var rejected *types.Rejected
//	    errors.As(err, &rejected)
//	}
package rewriter

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nsxbet/cypher-guard/pkg/advisor"
	"github.com/nsxbet/cypher-guard/pkg/audit"
	"github.com/nsxbet/cypher-guard/pkg/emitter"
	"github.com/nsxbet/cypher-guard/pkg/lexer"
	"github.com/nsxbet/cypher-guard/pkg/logger"
	"github.com/nsxbet/cypher-guard/pkg/matcher"
	"github.com/nsxbet/cypher-guard/pkg/rules"
	_ "github.com/nsxbet/cypher-guard/pkg/rules/cypher"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// Rewriter applies the safety policy for one configuration.
//
// Rewriter is stateless across calls and safe for concurrent use by
// multiple goroutines.
type Rewriter struct {
	config types.Config
	engine *advisor.Engine
	logger logger.Interface
	verify bool
}

// New creates a Rewriter for cfg.
//
// An invalid configuration (such as an unknown dialect version) is the only
// error New returns; query content never causes an error.
//
// Example:
//
//	r, err := rewriter.New(types.Config{Version: types.Version_V5, AllowApoc: true})
func New(cfg types.Config, opts ...Option) (*Rewriter, error) {
	o := &options{
		logger:   logger.Nop(),
		registry: rules.DefaultRegistry,
		verify:   true,
	}
	for _, opt := range opts {
		opt(o)
	}

	engine, err := advisor.NewEngine(o.registry, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create rewriter")
	}
	return &Rewriter{
		config: cfg.Clone(),
		engine: engine,
		logger: o.logger,
		verify: o.verify,
	}, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(cfg types.Config, opts ...Option) *Rewriter {
	r, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Config returns a copy of the configuration the rewriter enforces.
func (r *Rewriter) Config() types.Config {
	return r.config.Clone()
}

// Rewrite certifies query. The result is *types.Accepted with the output
// query and its change log, or *types.Rejected with the first violation.
// A rejection never carries partial output.
//
// Rewritten output is checked again before it is returned: output that
// would itself be rejected or rewritten is reported as MalformedQuery.
func (r *Rewriter) Rewrite(query string) types.Result {
	fp := audit.Fingerprint(query)

	res := r.pass(query)
	accepted, ok := res.(*types.Accepted)
	if !ok {
		rejected := res.(*types.Rejected)
		r.logger.Info("query rejected",
			logger.Fingerprint(fp), logger.Kind(rejected.Kind.String()), "detail", rejected.Detail)
		return res
	}
	if accepted.Unchanged() {
		r.logger.Debug("query unchanged", logger.Fingerprint(fp))
		return res
	}

	if r.verify {
		if err := r.reverify(accepted.Query); err != nil {
			r.logger.Error("rewritten query failed verification",
				logger.Fingerprint(fp), logger.Error(err), "output", accepted.Query)
			return &types.Rejected{Kind: types.MalformedQuery, Detail: err.Error()}
		}
	}
	r.logger.Info("query rewritten", logger.Fingerprint(fp), logger.Changes(accepted.Changes))
	return res
}

// RewriteQuery is Rewrite with error returns. On rejection the error is the
// *types.Rejected.
func (r *Rewriter) RewriteQuery(query string) (string, []string, error) {
	switch res := r.Rewrite(query).(type) {
	case *types.Accepted:
		return res.Query, res.Changes, nil
	case *types.Rejected:
		return "", nil, res
	default:
		return "", nil, errors.Errorf("unexpected result %T", res)
	}
}

// pass runs the pipeline once: tokenize, scan, decide, emit.
func (r *Rewriter) pass(query string) types.Result {
	tokens, err := lexer.Tokenize(query)
	if err != nil {
		return &types.Rejected{Kind: types.MalformedQuery, Detail: err.Error()}
	}

	constructs, err := matcher.Scan(tokens, r.config)
	if err != nil {
		return &types.Rejected{Kind: types.MalformedQuery, Detail: err.Error()}
	}

	decisions, reject, err := r.engine.Decide(context.Background(), tokens, constructs)
	if err != nil {
		r.logger.Error("policy evaluation failed", logger.Error(err))
		return &types.Rejected{Kind: types.MalformedQuery, Detail: "policy evaluation failed"}
	}
	if reject != nil {
		return &types.Rejected{Kind: reject.Kind, Detail: reject.Detail}
	}

	out, changes := emitter.Emit(query, tokens, constructs, decisions)
	return &types.Accepted{Query: out, Changes: changes}
}

// reverify checks that out is a fixed point of the policy.
func (r *Rewriter) reverify(out string) error {
	switch res := r.pass(out).(type) {
	case *types.Rejected:
		return errors.Errorf("rewritten query is rejected: %s", res.Error())
	case *types.Accepted:
		if !res.Unchanged() {
			return errors.Errorf("rewritten query is not stable: %s", res.String())
		}
	}
	return nil
}
