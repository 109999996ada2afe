package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/itchyny/gojq"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/wesm/emailsearch/internal/export"
	"github.com/wesm/emailsearch/internal/filter"
	"github.com/wesm/emailsearch/internal/highlight"
	"github.com/wesm/emailsearch/internal/query"
	"github.com/wesm/emailsearch/internal/session"
	"github.com/wesm/emailsearch/internal/stats"
)

var (
	searchLimit     int
	searchIn        string
	searchSender    string
	searchRecipient string
	searchAfter     string
	searchBefore    string
	searchCategory  string
	searchTable     string
	searchSummaries bool
	searchJSON      bool
	searchJQ        string
	searchCSV       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [keywords...]",
	Short: "Run one search and print the results",
	Long: `Run a single search against the service and print the results.

Keywords are matched by the service; ranking and filtering happen server-side.
Filter flags mirror the TUI filters form.

Examples:
  emailsearch search quarterly report
  emailsearch search budget --in subject --after 2024-01-01 --before 2024-03-31
  emailsearch search invoice --category Finance --json
  emailsearch search invoice --jq '.[] | .sender'
  emailsearch search invoice --csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		queryStr := strings.TrimSpace(strings.Join(args, " "))

		changes, err := searchFilterChanges(cmd, time.Now())
		if err != nil {
			return err
		}

		var code *gojq.Code
		if searchJQ != "" {
			code, err = compileJQ(searchJQ)
			if err != nil {
				return err
			}
		}

		engine, err := newEngine(logger)
		if err != nil {
			return err
		}
		defer engine.Close()

		filters := cfg.InitialFilters()
		table := searchTable
		if table == "" {
			table = cfg.Search.Table
		}
		sess := session.New(engine, session.Options{
			Logger:  logger,
			Filters: &filters,
			TableID: table,
		})

		ctx := cmd.Context()
		if err := sess.LoadConfig(ctx); err != nil {
			// Not fatal: the service still answers searches for its default table.
			logger.Warn("dataset config unavailable", "err", err)
		} else if _, ok := sess.Snapshot().Config.Table(table); table != "" && !ok {
			return fmt.Errorf("unknown table %q (see 'emailsearch tables')", table)
		}

		sess.UpdateQuery(queryStr)
		if err := runSessionSearch(ctx, sess, changes); err != nil {
			return err
		}

		st := sess.Snapshot()
		out := cmd.OutOrStdout()
		switch {
		case code != nil:
			return outputSearchResultsJQ(out, code, st.Results)
		case searchJSON:
			return outputSearchResultsJSON(out, st.Results)
		case searchCSV:
			return outputSearchResultsCSV(out, st.Results)
		}

		if len(st.Results) == 0 {
			fmt.Fprintln(out, "No results.")
			return nil
		}
		return outputSearchResultsTable(out, st, useColor(out))
	},
}

// searchFilterChanges turns the filter flags that were set into filter
// changes. Dates are validated here so a typo fails before any request.
func searchFilterChanges(cmd *cobra.Command, now time.Time) ([]filter.Change, error) {
	var changes []filter.Change
	flags := cmd.Flags()

	if flags.Changed("limit") {
		changes = append(changes, filter.Limit(searchLimit))
	}
	if flags.Changed("in") {
		if _, ok := filter.ParseSearchType(searchIn); !ok {
			return nil, fmt.Errorf("--in: unknown search type %q (want all, subject or body)", searchIn)
		}
		changes = append(changes, filter.TypeName(searchIn))
	}
	if searchSender != "" {
		changes = append(changes, filter.Sender(searchSender))
	}
	if searchRecipient != "" {
		changes = append(changes, filter.Recipient(searchRecipient))
	}
	if searchSummaries {
		changes = append(changes, filter.ShowSummaries(true))
	}

	if searchAfter == "" && searchBefore != "" {
		return nil, errors.New("--before requires --after")
	}
	if searchAfter != "" {
		before := searchBefore
		if before == "" {
			before = filter.FormatDate(filter.CalendarDate(now))
		}
		from, ok := filter.ParseDate(searchAfter)
		if !ok {
			return nil, fmt.Errorf("--after: invalid date %q (expected YYYY-MM-DD)", searchAfter)
		}
		to, ok := filter.ParseDate(before)
		if !ok {
			return nil, fmt.Errorf("--before: invalid date %q (expected YYYY-MM-DD)", before)
		}
		if to.Before(from) {
			return nil, fmt.Errorf("--before %s is earlier than --after %s", before, searchAfter)
		}
		changes = append(changes, filter.DateFrom(searchAfter), filter.DateTo(before))
	}

	// Category goes last: committing it runs the search.
	if searchCategory != "" {
		changes = append(changes, filter.Category(searchCategory))
	}
	return changes, nil
}

// runSessionSearch commits changes and searches exactly once. A category
// change searches as it is committed; otherwise an explicit search runs.
func runSessionSearch(ctx context.Context, sess *session.Controller, changes []filter.Change) error {
	searched := false
	for _, c := range changes {
		if c.Key() == filter.KeyCategory {
			if err := sess.UpdateFilter(ctx, c); err != nil {
				return err
			}
			searched = true
			continue
		}
		sess.ApplyFilter(c)
	}
	if searched {
		return nil
	}
	return sess.Search(ctx, session.Current())
}

func outputSearchResultsTable(w io.Writer, st session.State, color bool) error {
	mark := func(s string) string { return s }
	if color {
		output := termenv.NewOutput(w)
		mark = func(s string) string { return output.String(s).Reverse().Bold().String() }
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tFROM\tTO\tCATEGORY\tSUBJECT")
	fmt.Fprintln(tw, "──\t────\t────\t──\t────────\t───────")

	for _, r := range st.Results {
		date := r.Date
		if d, ok := stats.ParseDate(r.Date); ok {
			date = d.Format("2006-01-02")
		}
		category := r.Category
		if category == "" {
			category = "-"
		}
		// Subject is the last column so escape codes do not skew alignment.
		subject := highlight.Render(highlight.Highlight(truncate(r.Subject, 60), st.Query), mark)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(r.ID, 12), date, truncate(r.Sender, 30), truncate(r.Recipient, 30), truncate(category, 16), subject)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	agg := stats.Aggregate(st.Results)
	summary := fmt.Sprintf("\n%d results, %d senders, %d recipients", agg.Count, agg.UniqueSenders, agg.UniqueRecipients)
	if r := agg.FormatRange(); r != "" {
		summary += ", " + r
	}
	fmt.Fprintln(w, summary)
	return nil
}

func outputSearchResultsJSON(w io.Writer, results query.ResultSet) error {
	data, err := export.ToJSON(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func compileJQ(expr string) (*gojq.Code, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("--jq: %w", err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("--jq: %w", err)
	}
	return code, nil
}

// outputSearchResultsJQ runs code over the JSON array of results and prints
// each emitted value on its own line. Strings are printed raw.
func outputSearchResultsJQ(w io.Writer, code *gojq.Code, results query.ResultSet) error {
	data, err := export.ToJSON(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("decode results: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			var haltErr *gojq.HaltError
			if errors.As(err, &haltErr) && haltErr.Value() == nil {
				return nil
			}
			return fmt.Errorf("--jq: %w", err)
		}
		if s, ok := v.(string); ok {
			fmt.Fprintln(w, s)
			continue
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
}

// outputSearchResultsCSV writes the export file and reports its path.
func outputSearchResultsCSV(w io.Writer, results query.ResultSet) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results to export.")
		return nil
	}
	res := <-export.Download(cfg.ExportDir(), export.FileName(time.Now()), export.ToCSV(results))
	if res.Err != nil {
		return fmt.Errorf("export: %w", res.Err)
	}
	fmt.Fprintf(w, "Exported %d results to %s\n", len(results), res.Path)
	return nil
}

// useColor reports whether w is a terminal that should get highlighting.
func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", filter.DefaultLimit, "maximum number of results (50-1000, rounded to 50)")
	searchCmd.Flags().StringVar(&searchIn, "in", "all", "fields to match: all, subject or body")
	searchCmd.Flags().StringVar(&searchSender, "sender", "", "sender contains")
	searchCmd.Flags().StringVar(&searchRecipient, "recipient", "", "recipient contains")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "first date, inclusive (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "last date, inclusive (YYYY-MM-DD; default today)")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "restrict to one category")
	searchCmd.Flags().StringVar(&searchTable, "table", "", "table id (default: [search] table or the first table)")
	searchCmd.Flags().BoolVar(&searchSummaries, "summaries", false, "request summaries")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().StringVar(&searchJQ, "jq", "", "filter the JSON output with a jq expression")
	searchCmd.Flags().BoolVar(&searchCSV, "csv", false, "write results to a CSV file in the export directory")
	searchCmd.MarkFlagsMutuallyExclusive("json", "jq", "csv")
}
