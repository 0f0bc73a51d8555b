package dialect

import "strings"

// ApocNamespace is the root namespace of the APOC extension library.
const ApocNamespace = "apoc"

// DefaultApocAllowList is the read-only APOC subset callable when APOC is
// enabled. Entries ending in "." are namespace prefixes.
var DefaultApocAllowList = []string{
	"apoc.coll.",
	"apoc.text.",
	"apoc.math.",
	"apoc.number.",
	"apoc.map.",
	"apoc.meta.",
	"apoc.date.",
	"apoc.temporal.",
	"apoc.agg.",
	"apoc.path.",
	"apoc.label.exists",
	"apoc.node.degree",
	"apoc.nodes.connected",
	"apoc.help",
	"apoc.version",
}

// apocWritePrefixes are APOC procedures that mutate the graph, run arbitrary
// Cypher or touch external resources.
var apocWritePrefixes = []string{
	"apoc.create.",
	"apoc.merge.",
	"apoc.refactor.",
	"apoc.atomic.",
	"apoc.trigger.",
	"apoc.periodic.",
	"apoc.load.",
	"apoc.export.",
	"apoc.import.",
	"apoc.cypher.",
	"apoc.do.",
	"apoc.lock.",
	"apoc.schema.assert",
	"apoc.nodes.delete",
	"apoc.nodes.link",
	"apoc.graph.",
	"apoc.uuid.",
	"apoc.ttl.",
	"apoc.systemdb.",
	"apoc.custom.",
}

// adminProcedurePrefixes are non-APOC procedures that administer the server
// or write to the graph.
var adminProcedurePrefixes = []string{
	"dbms.",
	"db.create.",
	"db.drop",
	"db.clearquerycaches",
	"db.index.fulltext.createnodeindex",
	"db.index.fulltext.createrelationshipindex",
	"db.index.fulltext.drop",
	"db.index.vector.create",
	"db.createlabel",
	"db.createproperty",
	"db.createrelationshiptype",
	"gds.graph.drop",
	"tx.setmetadata",
}

// adminProcedureSuffixes catch GDS algorithm modes that persist results.
var adminProcedureSuffixes = []string{
	".write",
	".mutate",
}

// ReadOnlyProcedures are the built-in procedures a strict policy still lets
// through CALL.
var ReadOnlyProcedures = []string{
	"db.labels",
	"db.relationshiptypes",
	"db.propertykeys",
	"db.schema.",
	"db.indexes",
	"db.constraints",
	"db.info",
	"db.ping",
	"db.index.fulltext.querynodes",
	"db.index.fulltext.queryrelationships",
	"db.index.vector.querynodes",
	"db.index.vector.queryrelationships",
}

// IsApoc reports whether the qualified name lives under the apoc namespace,
// regardless of sub-namespace.
func IsApoc(qualified string) bool {
	root, _, _ := strings.Cut(qualified, ".")
	return strings.EqualFold(root, ApocNamespace)
}

// IsApocWrite reports whether an APOC procedure is write-capable.
func IsApocWrite(qualified string) bool {
	return matchesAny(qualified, apocWritePrefixes, true)
}

// IsAdminProcedure reports whether a non-APOC procedure administers the
// server or writes to the graph.
func IsAdminProcedure(qualified string) bool {
	if matchesAny(qualified, adminProcedurePrefixes, true) {
		return true
	}
	name := strings.ToLower(qualified)
	if strings.HasPrefix(name, "gds.") {
		for _, suffix := range adminProcedureSuffixes {
			if strings.HasSuffix(name, suffix) {
				return true
			}
		}
	}
	return false
}

// IsReadOnlyProcedure reports whether a procedure is on the strict-mode
// allow list.
func IsReadOnlyProcedure(qualified string) bool {
	return matchesAny(qualified, ReadOnlyProcedures, false)
}

// InAllowList reports whether qualified matches one of the entries, where
// entries ending in "." are prefixes and all others are exact names.
func InAllowList(qualified string, entries []string) bool {
	return matchesAny(qualified, entries, false)
}

// matchesAny compares case-insensitively. With loose set, a bare entry also
// covers longer names in the same namespace ("db.drop" matches "db.dropIndex").
func matchesAny(qualified string, entries []string, loose bool) bool {
	name := strings.ToLower(qualified)
	for _, entry := range entries {
		e := strings.ToLower(entry)
		if strings.HasSuffix(e, ".") {
			if strings.HasPrefix(name, e) {
				return true
			}
			continue
		}
		if name == e || (loose && strings.HasPrefix(name, e) && !strings.Contains(name[len(e):], ".")) {
			return true
		}
	}
	return false
}
