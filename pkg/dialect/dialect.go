// Package dialect encodes which Cypher constructs each dialect version
// accepts, and how deprecated ones are rewritten.
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nsxbet/cypher-guard/pkg/types"
)

// Adapter answers version-specific questions about recognized constructs.
type Adapter interface {
	// Version returns the dialect version the adapter describes.
	Version() types.Version
	// IsSupported reports whether the construct is legal input for the version.
	IsSupported(c types.Construct) bool
	// IsDeprecated reports whether the construct is legal but has a preferred form.
	IsDeprecated(c types.Construct) bool
	// RewriteHint returns the replacement for the construct, given the
	// already rendered text of its inner part (the pattern of a size call,
	// the argument of a function), if the version has one.
	RewriteHint(c types.Construct, inner string) (string, bool)
}

// For returns the adapter for version v.
func For(v types.Version) (Adapter, error) {
	switch v {
	case types.Version_V4:
		return v4{}, nil
	case types.Version_V5:
		return v5{}, nil
	default:
		return nil, errors.Errorf("unsupported dialect version: %v", v)
	}
}

type v4 struct{}

func (v4) Version() types.Version { return types.Version_V4 }

func (v4) IsSupported(c types.Construct) bool {
	switch c.(type) {
	case *types.CountSubquery, *types.CollectSubquery:
		return false
	default:
		return true
	}
}

func (v4) IsDeprecated(types.Construct) bool { return false }

func (v4) RewriteHint(c types.Construct, inner string) (string, bool) {
	return commonHint(c, inner)
}

type v5 struct{}

func (v5) Version() types.Version { return types.Version_V5 }

func (v5) IsSupported(types.Construct) bool { return true }

func (v5) IsDeprecated(c types.Construct) bool {
	_, ok := c.(*types.SizePatternCall)
	return ok
}

func (v5) RewriteHint(c types.Construct, inner string) (string, bool) {
	if _, ok := c.(*types.SizePatternCall); ok {
		return CountSubqueryText(inner), true
	}
	return commonHint(c, inner)
}

// CountSubqueryText is the canonical COUNT subquery the rewriter emits for a
// pattern.
func CountSubqueryText(pattern string) string {
	return fmt.Sprintf("COUNT { %s }", pattern)
}

// commonHint holds the version independent rewrites.
func commonHint(c types.Construct, inner string) (string, bool) {
	p, ok := c.(*types.ProcedureCall)
	if !ok || p.ViaCall {
		return "", false
	}
	if strings.EqualFold(p.QualifiedName(), "apoc.coll.toSet") && p.ArgCount == 1 {
		return ListDedupText(inner), true
	}
	return "", false
}

// ListDedupText is the built-in list deduplication equivalent to
// apoc.coll.toSet, keeping the first occurrence of each element.
func ListDedupText(list string) string {
	return fmt.Sprintf("reduce(__acc = [], __v IN %s | CASE WHEN __v IN __acc THEN __acc ELSE __acc + [__v] END)", list)
}

// Detect maps a server version string to a dialect version. Semantic
// versions ("4.4.18", "5.12.0") and calendar versions ("2025.11.2") are
// accepted; major 5 and above is V5.
func Detect(serverVersion string) (types.Version, error) {
	s := strings.TrimSpace(serverVersion)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	major, _, _ := strings.Cut(s, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return types.Version_VERSION_UNSPECIFIED, errors.Wrapf(err, "invalid server version %q", serverVersion)
	}
	if n < 1 {
		return types.Version_VERSION_UNSPECIFIED, errors.Errorf("invalid server version %q", serverVersion)
	}
	if n >= 5 {
		return types.Version_V5, nil
	}
	return types.Version_V4, nil
}
