package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	apiclient "github.com/donaldgifford/storefront-proxy/internal/api/client"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printSearchTable(w io.Writer, res *apiclient.Result) error {
	tw := newTabWriter(w)
	tw.writef("ID\tTITLE\tPRICE\tURL\n")
	for i := range res.Items {
		it := &res.Items[i]
		tw.writef("%s\t%s\t%s\t%s\n",
			it.ID,
			truncate(it.Title, 48),
			formatPrice(it.Price, it.CurrencyCode),
			it.DetailURL,
		)
	}
	tw.writef("\n%d of %d (offset %d, limit %d, via %s)\n",
		len(res.Items), res.Paging.Total, res.Paging.Offset, res.Paging.Limit, res.Source)
	return tw.finish()
}

func printItemDetail(w io.Writer, it *domain.Item) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", it.ID)
	tw.writef("Title:\t%s\n", it.Title)
	tw.writef("Price:\t%s\n", formatPrice(it.Price, it.CurrencyCode))
	tw.writef("URL:\t%s\n", it.DetailURL)
	tw.writef("Thumbnail:\t%s\n", it.ThumbnailURL)
	for i, p := range it.Pictures {
		tw.writef("Picture %d:\t%s\n", i+1, p)
	}
	return tw.finish()
}

func printQuota(w io.Writer, q *apiclient.QuotaResponse) error {
	tw := newTabWriter(w)
	tw.writef("Daily limit:\t%d\n", q.DailyLimit)
	tw.writef("Used today:\t%d\n", q.DailyUsed)
	tw.writef("Remaining:\t%d\n", q.Remaining)
	tw.writef("Resets at:\t%s\n", q.ResetAt.Local().Format(time.RFC3339))
	return tw.finish()
}

func printTopQueries(w io.Writer, top *apiclient.TopQueriesResponse) error {
	tw := newTabWriter(w)
	tw.writef("TERM\tSEARCHES\n")
	for _, q := range top.Queries {
		tw.writef("%s\t%d\n", q.Term, q.Count)
	}
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatPrice(price float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.2f %s", price, currency)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
