// Package pkg provides safety rewriting of Cypher queries for Go applications.
//
// Cypher Guard sits between a query generator (typically an LLM) and a graph
// database. Every query is either rejected with a reason or returned as an
// equivalent, policy-compliant query plus the list of changes applied.
//
// # Package Structure
//
// The pkg directory contains several specialized packages:
//
//   - rewriter: High-level API (recommended starting point)
//   - lexer: Lossless tokenizer; joined tokens reproduce the input exactly
//   - matcher: Recognizes write clauses, procedure calls and subqueries
//   - dialect: Per-version support, deprecation and rewrite hints
//   - rules: Policy rule interface and registry; rules/cypher holds the rules
//   - advisor: Runs the rules over recognized constructs
//   - emitter: Splices rewrites into the token stream
//   - audit: Traceability records and query fingerprints
//   - config: Policy file loading
//   - mcpserver: Model Context Protocol tools for agents
//   - types: Core type definitions
//   - logger: Logging abstraction layer
//
// # Getting Started
//
//	import (
//	    "github.com/nsxbet/cypher-guard/pkg/rewriter"
//	    "github.com/nsxbet/cypher-guard/pkg/types"
//	)
//
//	func main() {
//	    r, err := rewriter.New(types.Config{Version: types.Version_V5})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    res := r.Rewrite(query)
//	    // Process result...
//	}
//
// # Policy
//
// Rejected in every configuration:
//   - Write clauses (CREATE, MERGE, DELETE, DETACH DELETE, SET, REMOVE, DROP,
//     FOREACH, LOAD CSV), wherever they appear
//   - Administrative and writing procedures (dbms.*, db.create*, GDS write modes)
//   - COUNT subqueries written by the caller
//
// Gated by configuration:
//   - APOC calls, allowed only when enabled and only for the read-only subset
//   - COLLECT subqueries, accepted under V5 only
//   - Any CALLed procedure outside the read-only list in strict mode
//
// Rewritten:
//   - size((pattern)) becomes COUNT { pattern } under V5
//   - apoc.coll.toSet(list) becomes a built-in reduce when APOC is enabled
//
// # Thread Safety
//
// A Rewriter holds no per-call state and is safe for concurrent use.
// The rule registry is safe for concurrent reads after registration.
package pkg
