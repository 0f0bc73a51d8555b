package rewriter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/rules/cypher"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

const tournamentQuery = "MATCH (t:Tournament) WITH t, size((t)<-[:PART_OF]-()) AS match_count RETURN t.name, match_count ORDER BY match_count DESC LIMIT 10"

var (
	v4       = types.Config{Version: types.Version_V4}
	v5       = types.Config{Version: types.Version_V5}
	v4Apoc   = types.Config{Version: types.Version_V4, AllowApoc: true}
	v5Apoc   = types.Config{Version: types.Version_V5, AllowApoc: true}
	allConfs = []types.Config{v4, v5, v4Apoc, v5Apoc}
)

func accepted(t *testing.T, res types.Result) *types.Accepted {
	t.Helper()
	a, ok := res.(*types.Accepted)
	require.Truef(t, ok, "expected accepted, got %v", res)
	return a
}

func rejected(t *testing.T, res types.Result) *types.Rejected {
	t.Helper()
	r, ok := res.(*types.Rejected)
	require.Truef(t, ok, "expected rejected, got %v", res)
	return r
}

func TestNew(t *testing.T) {
	r, err := New(v5)
	require.NoError(t, err)
	assert.Equal(t, v5, r.Config())

	_, err = New(types.Config{})
	require.Error(t, err, "an unspecified version is a configuration fault")

	_, err = New(types.Config{Version: types.Version(6)})
	require.Error(t, err)

	assert.Panics(t, func() { MustNew(types.Config{Version: types.Version(6)}) })
	assert.NotPanics(t, func() { MustNew(v4) })
}

func TestNew_EmptyRegistryFailsClosed(t *testing.T) {
	_, err := New(v5, WithRegistry(rules.NewRegistry()))
	require.Error(t, err)
}

func TestRewrite_SizePatternV5(t *testing.T) {
	res := accepted(t, MustNew(v5).Rewrite(tournamentQuery))

	assert.Equal(t,
		"MATCH (t:Tournament) WITH t, COUNT { (t)<-[:PART_OF]-() } AS match_count RETURN t.name, match_count ORDER BY match_count DESC LIMIT 10",
		res.Query)
	assert.Equal(t, []string{"Rewrote size((pattern)) → COUNT { }", "Query rewritten"}, res.Changes)
	assert.False(t, res.Unchanged())
}

func TestRewrite_V4PassThrough(t *testing.T) {
	res := accepted(t, MustNew(v4).Rewrite(tournamentQuery))

	assert.Equal(t, tournamentQuery, res.Query)
	assert.Equal(t, []string{"Query unchanged"}, res.Changes)
}

func TestRewrite_WritesAlwaysRejected(t *testing.T) {
	queries := []string{
		"CREATE (n:Person {name: 'x'})",
		"MATCH (n) MERGE (n)-[:R]->(m:Other)",
		"MATCH (n) DELETE n",
		"MATCH (n) DETACH DELETE n",
		"MATCH (n) SET n.flag = true",
		"MATCH (n) REMOVE n:Label",
		"DROP CONSTRAINT person_id",
		"MATCH (n) WITH n CALL { WITH n SET n.x = 1 } RETURN n",
		"MATCH (n) RETURN n UNION MATCH (m) create (x) RETURN x",
		"MATCH (n) WITH size((n)-->()) AS c CREATE (x {c: c})",
		"STOP DATABASE neo4j",
		"start database neo4j",
		"TERMINATE TRANSACTIONS 'neo4j-transaction-1'",
		"ENABLE SERVER '25a7efc7-d063-44b8-bdee-f23357f89f01'",
		"DEALLOCATE DATABASES FROM SERVER 'server-1'",
		"DRYRUN REALLOCATE DATABASES",
	}

	for _, cfg := range allConfs {
		r := MustNew(cfg)
		for _, q := range queries {
			t.Run(cfg.Version.String()+"/"+q, func(t *testing.T) {
				assert.Equal(t, types.WriteNotAllowed, rejected(t, r.Rewrite(q)).Kind)
			})
		}
	}
}

func TestRewrite_ExplicitCountRejected(t *testing.T) {
	queries := []string{
		"MATCH (n) RETURN COUNT { MATCH (n)-->(m) RETURN m } AS c",
		"MATCH (n) WHERE count { (n)-->() } > 1 RETURN n",
		"MATCH (n) RETURN COUNT {(n)-->()} AS c",
		"MATCH (n) RETURN COUNT { (n)-->(m) MATCH (x) RETURN x } AS c",
		"MATCH (n) RETURN COUNT { (n)-->(m) WHERE m.secret = 'x' } AS c",
		"MATCH (n) RETURN COUNT { (n)-->(m), (m)-->(o) } AS c",
	}
	for _, cfg := range []types.Config{v4, v5} {
		r := MustNew(cfg)
		for _, q := range queries {
			t.Run(cfg.Version.String()+"/"+q, func(t *testing.T) {
				assert.Equal(t, types.ExplicitCountSubqueryNotAllowed, rejected(t, r.Rewrite(q)).Kind)
			})
		}
	}

	// Under V4 even the canonical form is rejected.
	res := MustNew(v4).Rewrite("MATCH (n) RETURN COUNT { (n)-->() } AS c")
	assert.Equal(t, types.ExplicitCountSubqueryNotAllowed, rejected(t, res).Kind)
}

func TestRewrite_ApocGating(t *testing.T) {
	q := "MATCH (n) RETURN apoc.coll.toSet(n.tags) AS tags"

	res := rejected(t, MustNew(v5).Rewrite(q))
	assert.Equal(t, types.ApocNotAllowed, res.Kind)

	out := accepted(t, MustNew(v5Apoc).Rewrite(q))
	assert.Equal(t,
		"MATCH (n) RETURN reduce(__acc = [], __v IN n.tags | CASE WHEN __v IN __acc THEN __acc ELSE __acc + [__v] END) AS tags",
		out.Query)
	assert.Equal(t, []string{"Rewrote APOC to native Cypher", "Query rewritten"}, out.Changes)

	unsafe := rejected(t, MustNew(v5Apoc).Rewrite("CALL apoc.periodic.iterate('MATCH (n) RETURN n', 'DETACH DELETE n', {})"))
	assert.Equal(t, types.UnsafeApocProcedure, unsafe.Kind)

	write := rejected(t, MustNew(v5).Rewrite("CALL apoc.create.node(['X'], {})"))
	assert.Equal(t, types.WriteNotAllowed, write.Kind)
}

func TestRewrite_NestedRewrites(t *testing.T) {
	q := "MATCH (a) RETURN apoc.coll.toSet([size((a)-->()), size((a)<--())]) AS counts"
	res := accepted(t, MustNew(v5Apoc).Rewrite(q))

	assert.Equal(t,
		"MATCH (a) RETURN reduce(__acc = [], __v IN [COUNT { (a)-->() }, COUNT { (a)<--() }] | CASE WHEN __v IN __acc THEN __acc ELSE __acc + [__v] END) AS counts",
		res.Query)
	assert.Equal(t, []string{
		"Rewrote APOC to native Cypher",
		"Rewrote size((pattern)) → COUNT { }",
		"Rewrote size((pattern)) → COUNT { }",
		"Query rewritten",
	}, res.Changes)
}

func TestRewrite_SizeOnNonPatternUntouched(t *testing.T) {
	queries := []string{
		"RETURN size($list) AS n",
		`RETURN size("abc") AS n`,
		"RETURN size('abc') AS n",
		"MATCH (n) RETURN size(n.tags), size([1, 2]), size((n))",
		"MATCH (n) RETURN size((n)-->(m) MATCH (x) RETURN x) AS c",
		"MATCH (n) RETURN size((n)-->(m) WHERE m.x = 1) AS c",
	}
	for _, cfg := range allConfs {
		r := MustNew(cfg)
		for _, q := range queries {
			t.Run(cfg.Version.String()+"/"+q, func(t *testing.T) {
				res := accepted(t, r.Rewrite(q))
				assert.Equal(t, q, res.Query)
				assert.True(t, res.Unchanged())
			})
		}
	}
}

func TestRewrite_UnknownSyntaxIsByteIdentical(t *testing.T) {
	queries := []string{
		"",
		"   ",
		"MATCH (n:Person)-[:KNOWS*1..3]->(m)\n  WHERE m.age > 30 // adults\nRETURN m.name ORDER BY m.name",
		"UNWIND [1, 2, 3] AS x WITH x WHERE x % 2 = 1 RETURN collect(x) AS odd",
		"MATCH p = shortestPath((a:A)-[*]-(b:B)) RETURN length(p) /* path */",
		"RETURN 'CREATE (n)' AS text, \"DELETE\" AS other",
		"MATCH (n) RETURN n.create, n.set, n.delete",
		"RETURN ünïcödé § ¤",
	}
	for _, cfg := range allConfs {
		r := MustNew(cfg)
		for _, q := range queries {
			t.Run(cfg.Version.String()+"/"+q, func(t *testing.T) {
				res := accepted(t, r.Rewrite(q))
				assert.Equal(t, q, res.Query)
				assert.Equal(t, []string{"Query unchanged"}, res.Changes)
			})
		}
	}
}

func TestRewrite_Idempotence(t *testing.T) {
	queries := []string{
		tournamentQuery,
		"MATCH (n) RETURN size((n)-->()) AS out, size((n)<--()) AS in",
		"MATCH (n) WHERE size((n)-[:KNOWS]->(:Person {active: true})) > 2 RETURN n",
		"MATCH (a) RETURN apoc.coll.toSet([size((a)-->()), 1]) AS s",
		"MATCH (n) RETURN apoc.text.join(['a', 'b'], ',') AS j",
		"CALL db.labels() YIELD label RETURN label",
		"MATCH (n) RETURN size(n.tags) AS n",
	}

	for _, cfg := range allConfs {
		r := MustNew(cfg, WithVerification(false))
		for _, q := range queries {
			t.Run(cfg.Version.String()+"/"+q, func(t *testing.T) {
				first, ok := r.Rewrite(q).(*types.Accepted)
				if !ok {
					return
				}
				second := accepted(t, r.Rewrite(first.Query))
				assert.Equal(t, first.Query, second.Query)
				assert.Equal(t, []string{"Query unchanged"}, second.Changes)
			})
		}
	}
}

func TestRewrite_Malformed(t *testing.T) {
	queries := []string{
		"MATCH (n RETURN n",
		"MATCH (n) RETURN COUNT { (n)-->()",
		"MATCH (n) RETURN 'unterminated",
		"RETURN [1, 2}",
	}
	r := MustNew(v5)
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			assert.Equal(t, types.MalformedQuery, rejected(t, r.Rewrite(q)).Kind)
		})
	}
}

func TestRewrite_Strict(t *testing.T) {
	q := "CALL custom.exportAll('/tmp/x')"

	accepted(t, MustNew(v5).Rewrite(q))

	strict := types.Config{Version: types.Version_V5, Strict: true}
	assert.Equal(t, types.ProcedureNotAllowed, rejected(t, MustNew(strict).Rewrite(q)).Kind)
	accepted(t, MustNew(strict).Rewrite("CALL db.labels() YIELD label RETURN label"))
}

func TestRewrite_AdminProcedures(t *testing.T) {
	for _, cfg := range allConfs {
		res := MustNew(cfg).Rewrite("CALL dbms.security.createUser('eve', 'secret', false)")
		assert.Equal(t, types.ProcedureNotAllowed, rejected(t, res).Kind)
	}
}

func TestRewrite_CollectSubquery(t *testing.T) {
	q := "MATCH (p:Person) RETURN COLLECT { MATCH (p)-[:FRIEND]->(f) RETURN f.name } AS friends"

	accepted(t, MustNew(v5).Rewrite(q))
	assert.Equal(t, types.UnsupportedVersionConstruct, rejected(t, MustNew(v4).Rewrite(q)).Kind)
	assert.Equal(t, types.MalformedQuery, rejected(t, MustNew(v5).Rewrite("RETURN COLLECT { RETURN 1 } AS x")).Kind)
}

func TestRewriteQuery(t *testing.T) {
	r := MustNew(v5)

	out, changes, err := r.RewriteQuery(tournamentQuery)
	require.NoError(t, err)
	assert.Contains(t, out, "COUNT { (t)<-[:PART_OF]-() }")
	assert.Len(t, changes, 2)

	_, _, err = r.RewriteQuery("CREATE (n)")
	require.Error(t, err)
	var rej *types.Rejected
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, types.WriteNotAllowed, rej.Kind)
}

// badRewriteRule rewrites every size((pattern)) into a write clause.
type badRewriteRule struct{}

func (badRewriteRule) Check(_ context.Context, checkCtx rules.Context) (types.Decision, error) {
	if _, ok := checkCtx.Construct.(*types.SizePatternCall); ok {
		return &types.Rewrite{Replacement: "0 CREATE (x)", Description: "bad"}, nil
	}
	return nil, nil
}
func (badRewriteRule) GetType() rules.Type { return "test.bad-rewrite" }
func (badRewriteRule) Priority() int       { return 1 }

func TestRewrite_VerificationCatchesUnsafeOutput(t *testing.T) {
	registry := rules.NewRegistry()
	cypher.Register(registry)
	registry.Register(badRewriteRule{})

	res := MustNew(v5, WithRegistry(registry)).Rewrite("MATCH (n) RETURN size((n)-->())")
	r := rejected(t, res)
	assert.Equal(t, types.MalformedQuery, r.Kind)
	assert.Contains(t, r.Detail, "WriteNotAllowed")

	unchecked := MustNew(v5, WithRegistry(registry), WithVerification(false)).Rewrite("MATCH (n) RETURN size((n)-->())")
	assert.Equal(t, "MATCH (n) RETURN 0 CREATE (x)", accepted(t, unchecked).Query)
}

func TestRewrite_Concurrent(t *testing.T) {
	r := MustNew(v5)
	want := accepted(t, r.Rewrite(tournamentQuery))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, ok := r.Rewrite(tournamentQuery).(*types.Accepted)
				if assert.True(t, ok) {
					assert.Equal(t, want.Query, got.Query)
				}
			}
		}()
	}
	wg.Wait()
}

func TestResultHelpers(t *testing.T) {
	r := MustNew(v5)

	ok := r.Rewrite("RETURN 1")
	assert.True(t, IsAccepted(ok))
	assert.NoError(t, Err(ok))
	assert.Equal(t, types.ErrorKind_UNSPECIFIED, KindOf(ok))

	bad := r.Rewrite("CREATE (n)")
	assert.False(t, IsAccepted(bad))
	assert.Error(t, Err(bad))
	assert.Equal(t, types.WriteNotAllowed, KindOf(bad))
}

func TestRewrite_SizePatternKeepsComments(t *testing.T) {
	r := MustNew(v5)

	res := accepted(t, r.Rewrite("MATCH (a) RETURN size( (a)-->(b) // outgoing\n) AS d"))
	assert.Equal(t, "MATCH (a) RETURN COUNT { (a)-->(b) } // outgoing\n AS d", res.Query)

	res = accepted(t, r.Rewrite("MATCH (a) RETURN size(/* deg */ (a)-->()) AS d"))
	assert.Equal(t, "MATCH (a) RETURN /* deg */ COUNT { (a)-->() } AS d", res.Query)

	again := accepted(t, r.Rewrite(res.Query))
	assert.True(t, again.Unchanged())
}

func TestRewrite_StartStopAsVariables(t *testing.T) {
	r := MustNew(v5)
	for _, q := range []string{
		"WITH 1 AS start RETURN start",
		"MATCH (stop:Station) RETURN stop.name",
		"MATCH p = (a)-->(b) RETURN a.start, b.stop",
	} {
		t.Run(q, func(t *testing.T) {
			res := accepted(t, r.Rewrite(q))
			assert.Equal(t, q, res.Query)
		})
	}
}
