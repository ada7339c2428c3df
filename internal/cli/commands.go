package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/alex-user-go/tripquote/internal/config"
	"github.com/alex-user-go/tripquote/internal/currency"
	"github.com/alex-user-go/tripquote/internal/currency/ratesource"
	"github.com/alex-user-go/tripquote/internal/ledger"
	"github.com/alex-user-go/tripquote/internal/money"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/pricing"
	"github.com/alex-user-go/tripquote/internal/quote"
	"github.com/alex-user-go/tripquote/internal/readiness"
)

func newSplitCmd() *cobra.Command {
	var (
		adults, children int
		ages             []int
		strategy         string
	)
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Propose traveler groups for a party",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := ledger.New(ledger.Party{Adults: adults, Children: children, ChildAges: ages})
			if err := l.Split(ledger.Strategy(strategy)); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tADULTS\tCHILDREN\tAGES")
			for _, g := range l.Groups() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", g.ID, g.Name, g.Adults, g.Children, joinInts(g.ChildAges))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if v := l.Validate(); !v.Valid {
				warnColor.Fprintf(out, "invalid: %s\n", v.Reason)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&adults, "adults", 2, "number of adults")
	cmd.Flags().IntVar(&children, "children", 0, "number of children")
	cmd.Flags().IntSliceVar(&ages, "ages", nil, "child ages, comma separated")
	cmd.Flags().StringVar(&strategy, "strategy", string(ledger.StrategyGroupAuto), "solo, couple, family or group-auto")
	return cmd
}

func newBreakdownCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "breakdown <payload.json|->",
		Short: "Price a composition and check whether it can be submitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComposition(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			b := c.Breakdown()
			report := readiness.Check(c)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Breakdown pricing.Breakdown `json:"breakdown"`
					Readiness readiness.Report  `json:"readiness"`
				}{b, report})
			}

			if err := printBreakdown(out, b); err != nil {
				return err
			}
			printReport(out, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newSubmitCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "submit <payload.json|->",
		Short: "Freeze a ready composition and write the final payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadComposition(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			payload, report, err := quote.NewSubmitter(nil, logger).Submit(c)
			if err != nil {
				var incomplete *quote.IncompleteError
				if errors.As(err, &incomplete) {
					printReport(cmd.ErrOrStderr(), report)
				}
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(payload); err != nil {
				return err
			}
			if output != "" {
				okColor.Fprintf(cmd.OutOrStdout(), "submitted %s: %s %s\n",
					payload.ID, payload.Breakdown.Total.Amount.StringFixed(2), payload.Breakdown.Currency)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the final payload to this file")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var (
		amount, from, to, spread string
		offline                  bool
	)
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an amount using the configured rate source and spread",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("amount %q is not a decimal", amount)
			}
			s, err := cfg.SpreadDecimal()
			if err != nil {
				return err
			}
			if spread != "" {
				if s, err = decimal.NewFromString(spread); err != nil {
					return fmt.Errorf("spread %q is not a decimal", spread)
				}
			}

			fallback := currency.DefaultFallback()
			if cfg.FallbackRatesFile != "" {
				if fallback, err = currency.LoadFallbackFile(cfg.FallbackRatesFile); err != nil {
					return err
				}
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelError}))
			var source currency.RateSource
			if !offline {
				settings := ratesource.DefaultSettings()
				settings.Timeout = cfg.RateSourceTimeout
				source = ratesource.NewHTTPSource(cfg.RateSourceURL, settings, logger)
			}
			conv := currency.NewConverter(source,
				currency.WithFallback(fallback),
				currency.WithSpread(s),
				currency.WithLogger(logger),
			)
			defer conv.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			res := conv.Convert(ctx, money.New(amt, from), to)

			out := cmd.OutOrStdout()
			if res.Unconverted {
				warnColor.Fprintf(out, "no rate for %s->%s, left unconverted: %s %s\n",
					res.OriginalCurrency, money.NormalizeCurrency(to), res.Amount.StringFixed(2), res.Currency)
				return nil
			}
			fmt.Fprintf(out, "%s %s = %s %s (spread %s)\n",
				res.OriginalAmount.StringFixed(2), res.OriginalCurrency,
				res.Amount.StringFixed(2), res.Currency, res.SpreadApplied.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount to convert")
	cmd.Flags().StringVar(&from, "from", "", "source currency")
	cmd.Flags().StringVar(&to, "to", "EUR", "target currency")
	cmd.Flags().StringVar(&spread, "spread", "", "override the configured spread")
	cmd.Flags().BoolVar(&offline, "offline", false, "use only the fallback table")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func printBreakdown(out io.Writer, b pricing.Breakdown) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tITEM\tQTY\tSUBTOTAL")
	for _, li := range b.LineItems {
		mark := ""
		if li.Unconverted {
			mark = " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s %s%s\n", li.Category, li.Label, li.Quantity,
			li.Subtotal.Amount.StringFixed(2), li.Subtotal.Currency, mark)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	for _, cat := range offers.Categories {
		if st, ok := b.Subtotals[cat]; ok {
			fmt.Fprintf(out, "%-10s %s %s\n", cat, st.Amount.StringFixed(2), st.Currency)
		}
	}
	okColor.Fprintf(out, "%-10s %s %s\n", "total", b.Total.Amount.StringFixed(2), b.Currency)
	if b.Unconverted {
		warnColor.Fprintln(out, "* priced in another currency; total mixes currencies")
	}
	for _, d := range b.Dangling {
		warnColor.Fprintf(out, "excluded: %s\n", d)
	}
	return nil
}

func printReport(out io.Writer, r readiness.Report) {
	if r.Ready {
		okColor.Fprintln(out, "ready to submit")
	} else {
		errColor.Fprintln(out, "not ready:")
		for _, reason := range r.Reasons {
			fmt.Fprintf(out, "  - %s\n", reason)
		}
	}
	for _, w := range r.Warnings {
		warnColor.Fprintf(out, "warning: %s\n", w)
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ",")
}
