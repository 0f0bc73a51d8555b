package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/nsxbet/cypher-guard/pkg/audit"
	"github.com/nsxbet/cypher-guard/pkg/logger"
	"github.com/nsxbet/cypher-guard/pkg/rewriter"
)

const stdinSource = "-"

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [flags] [query-file...]",
	Short: "Certify and rewrite Cypher queries",
	Long: `Rewrite reads one Cypher query per file (or from stdin when no file is
given) and reports whether it is accepted, together with the rewritten query
and the list of changes, or why it was rejected.`,
	RunE: runRewrite,
}

func init() {
	rootCmd.AddCommand(rewriteCmd)

	// Flags for rewrite command
	rewriteCmd.Flags().StringP("query", "q", "", "query to rewrite instead of reading files")
	rewriteCmd.Flags().StringP("output", "o", "text", "output format (text, json, yaml)")
	rewriteCmd.Flags().Bool("fail-on-reject", false, "exit with non-zero code if any query is rejected")
	rewriteCmd.Flags().IntP("concurrency", "j", 4, "number of files processed in parallel")
	rewriteCmd.Flags().BoolP("watch", "w", false, "re-run when a query file changes")

	// Bind flags to viper
	_ = viper.BindPFlag("output", rewriteCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("fail-on-reject", rewriteCmd.Flags().Lookup("fail-on-reject"))
	_ = viper.BindPFlag("concurrency", rewriteCmd.Flags().Lookup("concurrency"))
}

func runRewrite(cmd *cobra.Command, args []string) error {
	log := newLogger()
	log.Debug("Starting rewrite command", "args", args)

	format := viper.GetString("output")
	if err := validateFormat(format); err != nil {
		return err
	}

	cfg, err := loadPolicy()
	if err != nil {
		return errors.Wrap(err, "failed to load policy")
	}

	rw, err := rewriter.New(cfg, rewriter.WithLogger(log))
	if err != nil {
		return err
	}

	watch, _ := cmd.Flags().GetBool("watch")
	if watch {
		if len(args) == 0 {
			return errors.New("--watch needs at least one query file")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watchFiles(ctx, rw, args, format, cmd.OutOrStdout(), log)
	}

	var records []*audit.Record
	if q, _ := cmd.Flags().GetString("query"); q != "" {
		records = []*audit.Record{rewriteOne(rw, "", q)}
	} else {
		records, err = rewriteFiles(cmd.Context(), rw, args, cmd.InOrStdin(), viper.GetInt("concurrency"))
		if err != nil {
			return err
		}
	}

	if err := outputRecords(cmd.OutOrStdout(), records, format); err != nil {
		return err
	}

	if viper.GetBool("fail-on-reject") {
		for _, r := range records {
			if !r.Accepted() {
				os.Exit(1)
			}
		}
	}
	return nil
}

func rewriteOne(rw *rewriter.Rewriter, source, query string) *audit.Record {
	return audit.New(source, query, rw.Config(), rw.Rewrite(query))
}

// rewriteFiles rewrites each file with at most concurrency files in flight.
// Records come back in argument order.
func rewriteFiles(ctx context.Context, rw *rewriter.Rewriter, files []string, stdin io.Reader, concurrency int) ([]*audit.Record, error) {
	if len(files) == 0 {
		files = []string{stdinSource}
	}
	if concurrency < 1 {
		concurrency = 1
	}

	records := make([]*audit.Record, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, file := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			query, err := readQuery(file, stdin)
			if err != nil {
				return err
			}
			records[i] = rewriteOne(rw, file, query)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func readQuery(file string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == stdinSource {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read query file: %s", file)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// watchFiles prints a record for every file once, then again each time a
// file is written, until ctx is done.
func watchFiles(ctx context.Context, rw *rewriter.Rewriter, files []string, format string, w io.Writer, log *logger.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, file := range files {
		if file == stdinSource {
			return errors.New("cannot watch stdin")
		}
		abs, err := filepath.Abs(file)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve %s", file)
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// Editors often replace files on save, so watch the directories.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
	}

	records, err := rewriteFiles(ctx, rw, files, nil, len(files))
	if err != nil {
		return err
	}
	if err := outputRecords(w, records, format); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[event.Name] || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fileLog := log.With("file", event.Name)
			fileLog.Debug("query file changed", "op", event.Op.String())
			query, err := readQuery(event.Name, nil)
			if err != nil {
				fileLog.Warn("failed to re-read query file", logger.Error(err))
				continue
			}
			if err := outputRecords(w, []*audit.Record{rewriteOne(rw, event.Name, query)}, format); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", logger.Error(err))
		}
	}
}

func validateFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	default:
		return errors.Errorf("unsupported output format: %s", format)
	}
}

func outputRecords(w io.Writer, records []*audit.Record, format string) error {
	switch format {
	case "json":
		return outputJSON(w, records)
	case "yaml":
		return outputYAML(w, records)
	case "text":
		return outputText(w, records)
	default:
		return errors.Errorf("unsupported output format: %s", format)
	}
}

func outputJSON(w io.Writer, records []*audit.Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]interface{}{
		"results": records,
	})
}

func outputYAML(w io.Writer, records []*audit.Record) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(map[string]interface{}{
		"results": records,
	})
}

func outputText(w io.Writer, records []*audit.Record) error {
	accepted, rejected := 0, 0
	for _, r := range records {
		if r.Accepted() {
			accepted++
		} else {
			rejected++
		}
		fmt.Fprintln(w, r.Text())
	}
	fmt.Fprintf(w, "Summary: %d accepted, %d rejected\n", accepted, rejected)
	return nil
}
