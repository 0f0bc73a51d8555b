package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/cypher-guard/pkg/types"
)

func TestFor(t *testing.T) {
	v4, err := For(types.Version_V4)
	require.NoError(t, err)
	assert.Equal(t, types.Version_V4, v4.Version())

	v5, err := For(types.Version_V5)
	require.NoError(t, err)
	assert.Equal(t, types.Version_V5, v5.Version())

	_, err = For(types.Version_VERSION_UNSPECIFIED)
	assert.Error(t, err)
}

func TestAdapters(t *testing.T) {
	count := &types.CountSubquery{}
	collect := &types.CollectSubquery{}
	size := &types.SizePatternCall{}
	write := &types.WriteClause{Keyword: "CREATE"}

	v4, _ := For(types.Version_V4)
	v5, _ := For(types.Version_V5)

	t.Run("V4", func(t *testing.T) {
		assert.False(t, v4.IsSupported(count))
		assert.False(t, v4.IsSupported(collect))
		assert.True(t, v4.IsSupported(size))
		assert.True(t, v4.IsSupported(write))
		assert.False(t, v4.IsDeprecated(size))

		_, ok := v4.RewriteHint(size, "(n)-->()")
		assert.False(t, ok)
	})

	t.Run("V5", func(t *testing.T) {
		assert.True(t, v5.IsSupported(count))
		assert.True(t, v5.IsSupported(collect))
		assert.True(t, v5.IsDeprecated(size))
		assert.False(t, v5.IsDeprecated(count))

		hint, ok := v5.RewriteHint(size, "(n)-->()")
		require.True(t, ok)
		assert.Equal(t, "COUNT { (n)-->() }", hint)
	})
}

func TestRewriteHint_ToSet(t *testing.T) {
	toSet := &types.ProcedureCall{Namespace: "apoc.coll", Procedure: "toSet", ArgCount: 1}

	for _, v := range []types.Version{types.Version_V4, types.Version_V5} {
		t.Run(v.String(), func(t *testing.T) {
			a, err := For(v)
			require.NoError(t, err)
			hint, ok := a.RewriteHint(toSet, "[1, 1]")
			require.True(t, ok)
			assert.Equal(t, ListDedupText("[1, 1]"), hint)
		})
	}

	a, _ := For(types.Version_V5)
	_, ok := a.RewriteHint(&types.ProcedureCall{Namespace: "apoc.coll", Procedure: "toSet", ArgCount: 2}, "x")
	assert.False(t, ok)
	_, ok = a.RewriteHint(&types.ProcedureCall{Namespace: "apoc.coll", Procedure: "toSet", ArgCount: 1, ViaCall: true}, "x")
	assert.False(t, ok)
	_, ok = a.RewriteHint(&types.ProcedureCall{Namespace: "apoc.coll", Procedure: "sort", ArgCount: 1}, "x")
	assert.False(t, ok)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Version
		wantErr bool
	}{
		{in: "4.4.18", want: types.Version_V4},
		{in: "4.0", want: types.Version_V4},
		{in: "5.12.0", want: types.Version_V5},
		{in: "v5.26.1", want: types.Version_V5},
		{in: " 2025.11.2 ", want: types.Version_V5},
		{in: "", wantErr: true},
		{in: "latest", wantErr: true},
		{in: "0.9", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Detect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcedureClassification(t *testing.T) {
	assert.True(t, IsApoc("apoc.coll.toSet"))
	assert.True(t, IsApoc("APOC.text.join"))
	assert.False(t, IsApoc("db.labels"))
	assert.False(t, IsApoc("apocalypse.now"))

	assert.True(t, IsApocWrite("apoc.create.node"))
	assert.True(t, IsApocWrite("apoc.periodic.iterate"))
	assert.True(t, IsApocWrite("apoc.cypher.run"))
	assert.True(t, IsApocWrite("apoc.nodes.delete"))
	assert.False(t, IsApocWrite("apoc.coll.toSet"))
	assert.False(t, IsApocWrite("apoc.nodes.connected"))

	assert.True(t, IsAdminProcedure("dbms.killQuery"))
	assert.True(t, IsAdminProcedure("db.createLabel"))
	assert.True(t, IsAdminProcedure("db.dropIndex"))
	assert.True(t, IsAdminProcedure("gds.pageRank.write"))
	assert.True(t, IsAdminProcedure("db.index.vector.createNodeIndex"))
	assert.False(t, IsAdminProcedure("db.index.vector.queryNodes"))
	assert.False(t, IsAdminProcedure("gds.pageRank.stream"))
	assert.False(t, IsAdminProcedure("db.labels"))

	assert.True(t, IsReadOnlyProcedure("db.labels"))
	assert.True(t, IsReadOnlyProcedure("db.schema.visualization"))
	assert.False(t, IsReadOnlyProcedure("db.labelsAndMore"))
	assert.False(t, IsReadOnlyProcedure("custom.read"))
}

func TestInAllowList(t *testing.T) {
	entries := []string{"apoc.text.", "apoc.help"}
	assert.True(t, InAllowList("apoc.text.join", entries))
	assert.True(t, InAllowList("APOC.HELP", entries))
	assert.False(t, InAllowList("apoc.helpers", entries))
	assert.False(t, InAllowList("apoc.coll.toSet", entries))
	assert.True(t, InAllowList("apoc.coll.toSet", DefaultApocAllowList))
}
