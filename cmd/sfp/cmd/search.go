package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/storefront-proxy/internal/api/client"
	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
)

type searchOptions struct {
	offset      int
	limit       int
	interactive bool
}

func searchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search marketplace listings through the proxy",
		Long: "Searches through the proxy. With --fallback, a blocked or failing proxy\n" +
			"search is retried once directly against the marketplace.",
		Example: `  sfp search iphone
  sfp search "notebook gamer" --limit 10 --offset 20
  sfp search --interactive --fallback`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := newDispatcher(viper.GetBool("fallback"))
			lang := viper.GetString("lang")
			if opts.interactive {
				return runInteractive(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), d, opts, lang)
			}

			var term string
			if len(args) > 0 {
				term = args[0]
			}
			return runSearch(cmd.Context(), cmd.OutOrStdout(), d, term, opts, lang)
		},
	}
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "result offset")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "page size (server default when 0)")
	cmd.Flags().Bool("fallback", true, "query the marketplace directly when the proxy fails")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "read queries from stdin, one per line")
	cobra.CheckErr(viper.BindPFlag("fallback", cmd.Flags().Lookup("fallback")))

	return cmd
}

func buildQuery(term string, opts searchOptions) marketplace.Query {
	limit := ""
	if opts.limit > 0 {
		limit = strconv.Itoa(opts.limit)
	}
	// Only a blank term fails, and the default term covers it.
	q, _ := marketplace.NormalizeQuery(term, strconv.Itoa(opts.offset), limit, marketplace.QueryDefaults{}) //nolint:errcheck // non-strict
	return q
}

func runSearch(
	ctx context.Context,
	w io.Writer,
	s apiclient.Searcher,
	term string,
	opts searchOptions,
	lang string,
) error {
	res, err := s.Search(ctx, buildQuery(term, opts))
	if err != nil {
		return searchError(err, lang)
	}

	if jsonOutput() {
		return outputJSON(w, res)
	}
	return printSearchTable(w, res)
}

// runInteractive treats each input line as a new query. Starting a query
// cancels the previous one, so only the latest results are printed.
func runInteractive(
	ctx context.Context,
	r io.Reader,
	w io.Writer,
	s apiclient.Searcher,
	opts searchOptions,
	lang string,
) error {
	latest := apiclient.NewLatest(s)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = func(f func() error) {
			mu.Lock()
			defer mu.Unlock()
			if err := f(); err != nil {
				fmt.Fprintln(w, "error:", err)
			}
		}
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term == "" {
			continue
		}

		reply := latest.Start(ctx, buildQuery(term, opts))
		wg.Go(func() {
			r := <-reply
			switch {
			case errors.Is(r.Err, apiclient.ErrSuperseded):
			case r.Err != nil:
				out(func() error { return searchError(r.Err, lang) })
			default:
				out(func() error { return printSearchTable(w, r.Result) })
			}
		})
	}
	wg.Wait()

	return scanner.Err()
}

func searchError(err error, lang string) error {
	var f *apiclient.SearchFailure
	if errors.As(err, &f) {
		return errors.New(f.Message(lang))
	}
	return err
}
