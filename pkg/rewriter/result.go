package rewriter

import (
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// IsAccepted reports whether res is an accepted query.
func IsAccepted(res types.Result) bool {
	_, ok := res.(*types.Accepted)
	return ok
}

// Err returns the rejection as an error, or nil when res was accepted.
//
// This is useful for callers that only need a go/no-go answer:
//
//	if err := rewriter.Err(r.Rewrite(q)); err != nil {
//	    return err
//	}
func Err(res types.Result) error {
	if rejected, ok := res.(*types.Rejected); ok {
		return rejected
	}
	return nil
}

// KindOf returns the rejection kind of res, or ErrorKind_UNSPECIFIED when
// res was accepted.
func KindOf(res types.Result) types.ErrorKind {
	if rejected, ok := res.(*types.Rejected); ok {
		return rejected.Kind
	}
	return types.ErrorKind_UNSPECIFIED
}
