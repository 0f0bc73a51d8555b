// Package audit builds the traceability record callers log for every
// rewrite: the original query, the outcome and its change log.
package audit

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/nsxbet/cypher-guard/pkg/lexer"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// Status values of a Record.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Record is one audited rewrite call.
type Record struct {
	ID          string          `json:"id"                  yaml:"id"`
	Time        time.Time       `json:"time"                yaml:"time"`
	Source      string          `json:"source,omitempty"    yaml:"source,omitempty"`
	Fingerprint string          `json:"fingerprint"         yaml:"fingerprint"`
	Version     types.Version   `json:"version"             yaml:"version"`
	AllowApoc   bool            `json:"allowApoc"           yaml:"allowApoc"`
	Status      string          `json:"status"              yaml:"status"`
	Query       string          `json:"query"               yaml:"query"`
	Output      string          `json:"output,omitempty"    yaml:"output,omitempty"`
	Changes     []string        `json:"changes,omitempty"   yaml:"changes,omitempty"`
	Rejection   *types.Rejected `json:"rejection,omitempty" yaml:"rejection,omitempty"`
}

// New records the outcome res of rewriting query under cfg.
func New(source, query string, cfg types.Config, res types.Result) *Record {
	r := &Record{
		ID:          uuid.New().String(),
		Time:        time.Now().UTC(),
		Source:      source,
		Fingerprint: Fingerprint(query),
		Version:     cfg.Version,
		AllowApoc:   cfg.AllowApoc,
		Query:       query,
	}
	switch res := res.(type) {
	case *types.Accepted:
		r.Status = StatusAccepted
		r.Output = res.Query
		r.Changes = append([]string(nil), res.Changes...)
	case *types.Rejected:
		r.Status = StatusRejected
		r.Rejection = &types.Rejected{Kind: res.Kind, Detail: res.Detail}
	}
	return r
}

// Accepted reports whether the query was accepted.
func (r *Record) Accepted() bool {
	return r.Status == StatusAccepted
}

// Text renders the record for terminals.
func (r *Record) Text() string {
	var sb strings.Builder
	if r.Source != "" {
		fmt.Fprintf(&sb, "%s ", r.Source)
	}
	fmt.Fprintf(&sb, "[%s] %s (%s)\n", strings.ToUpper(r.Status), r.Fingerprint, r.Version)
	if r.Rejection != nil {
		fmt.Fprintf(&sb, "  reason: %s\n", r.Rejection.Kind)
		if r.Rejection.Detail != "" {
			fmt.Fprintf(&sb, "  detail: %s\n", r.Rejection.Detail)
		}
		return sb.String()
	}
	for _, change := range r.Changes {
		fmt.Fprintf(&sb, "  - %s\n", change)
	}
	fmt.Fprintf(&sb, "%s\n", r.Output)
	return sb.String()
}

// Fingerprint identifies a query independently of its whitespace and
// comments: two queries differing only in layout share a fingerprint.
func Fingerprint(query string) string {
	h := xxh3.New()
	tokens, err := lexer.Tokenize(query)
	if err != nil {
		_, _ = h.WriteString(query)
		return hex.EncodeToString(h.Sum(nil))
	}
	for _, t := range tokens {
		if t.IsTrivia() {
			continue
		}
		_, _ = h.WriteString(t.Text)
		_, _ = h.WriteString(" ")
	}
	return hex.EncodeToString(h.Sum(nil))
}
