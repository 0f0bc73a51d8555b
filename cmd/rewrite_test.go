package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/cypher-guard/pkg/audit"
	"github.com/nsxbet/cypher-guard/pkg/rewriter"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

func writeQuery(t *testing.T, dir, name, query string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(query+"\n"), 0o644))
	return path
}

func TestRewriteFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeQuery(t, dir, "degree.cypher", "MATCH (n) RETURN size((n)-->()) AS d"),
		writeQuery(t, dir, "delete.cypher", "MATCH (n) DELETE n"),
		writeQuery(t, dir, "plain.cypher", "MATCH (n) RETURN n"),
	}

	rw, err := rewriter.New(types.Config{Version: types.Version_V5})
	require.NoError(t, err)

	records, err := rewriteFiles(context.Background(), rw, files, nil, 2)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, files[0], records[0].Source)
	assert.True(t, records[0].Accepted())
	assert.Equal(t, "MATCH (n) RETURN COUNT { (n)-->() } AS d", records[0].Output)

	assert.False(t, records[1].Accepted())
	assert.Equal(t, types.WriteNotAllowed, records[1].Rejection.Kind)

	assert.True(t, records[2].Accepted())
	assert.Equal(t, []string{"Query unchanged"}, records[2].Changes)
}

func TestRewriteFiles_Stdin(t *testing.T) {
	rw, err := rewriter.New(types.Config{Version: types.Version_V4})
	require.NoError(t, err)

	records, err := rewriteFiles(context.Background(), rw, nil, strings.NewReader("MATCH (n) RETURN n\n"), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, stdinSource, records[0].Source)
	assert.Equal(t, "MATCH (n) RETURN n", records[0].Query)
}

func TestRewriteFiles_MissingFile(t *testing.T) {
	rw, err := rewriter.New(types.Config{Version: types.Version_V5})
	require.NoError(t, err)

	_, err = rewriteFiles(context.Background(), rw, []string{filepath.Join(t.TempDir(), "nope.cypher")}, nil, 1)
	assert.Error(t, err)
}

func TestOutputRecords(t *testing.T) {
	rw, err := rewriter.New(types.Config{Version: types.Version_V5})
	require.NoError(t, err)
	records := []*audit.Record{
		rewriteOne(rw, "a", "MATCH (n) RETURN n"),
		rewriteOne(rw, "b", "CREATE (n)"),
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, outputRecords(&buf, records, "text"))
		assert.Contains(t, buf.String(), "[ACCEPTED]")
		assert.Contains(t, buf.String(), "[REJECTED]")
		assert.Contains(t, buf.String(), "Summary: 1 accepted, 1 rejected")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, outputRecords(&buf, records, "json"))
		var out map[string][]map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		require.Len(t, out["results"], 2)
		assert.Equal(t, "accepted", out["results"][0]["status"])
		assert.Equal(t, "rejected", out["results"][1]["status"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, outputRecords(&buf, records, "yaml"))
		assert.Contains(t, buf.String(), "status: rejected")
		assert.Contains(t, buf.String(), "kind: WriteNotAllowed")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, outputRecords(&bytes.Buffer{}, records, "xml"))
		assert.Error(t, validateFormat("xml"))
	})
}

func TestLoadPolicy(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("defaults", func(t *testing.T) {
		viper.Reset()
		cfg, err := loadPolicy()
		require.NoError(t, err)
		assert.Equal(t, types.Version_V5, cfg.Version)
		assert.False(t, cfg.AllowApoc)
	})

	t.Run("flags override file", func(t *testing.T) {
		viper.Reset()
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("id: test\nversion: V5\nallow_apoc: true\n"), 0o644))
		viper.Set("policy", path)
		viper.Set("dialect", "v4")
		viper.Set("strict", true)

		cfg, err := loadPolicy()
		require.NoError(t, err)
		assert.Equal(t, types.Version_V4, cfg.Version)
		assert.True(t, cfg.AllowApoc)
		assert.True(t, cfg.Strict)
	})

	t.Run("server version", func(t *testing.T) {
		viper.Reset()
		viper.Set("server-version", "4.4.18")
		cfg, err := loadPolicy()
		require.NoError(t, err)
		assert.Equal(t, types.Version_V4, cfg.Version)
	})

	t.Run("invalid dialect", func(t *testing.T) {
		viper.Reset()
		viper.Set("dialect", "V6")
		_, err := loadPolicy()
		assert.Error(t, err)
	})
}
