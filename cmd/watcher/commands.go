package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"polymerit/pkg/alerts"
)

var errUsage = errors.New(`usage:
  watcher [run]
  watcher alerts ls
  watcher alerts add -market ID -target 0.7 [-direction above|below] [-title TEXT]
  watcher alerts rm ID
  watcher whales show
  watcher whales set [-min 10000] [-active=true]
  watcher history ls
  watcher history read
  watcher history rm ID
  watcher history clear`)

// runCommand executes one preferences subcommand against m
func runCommand(ctx context.Context, m *alerts.Manager, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}

	switch args[0] + " " + args[1] {
	case "alerts ls":
		return listPriceAlerts(ctx, m, out)
	case "alerts add":
		return addPriceAlert(ctx, m, args[2:], out)
	case "alerts rm":
		if len(args) != 3 {
			return errUsage
		}
		return m.RemovePriceAlert(ctx, args[2])
	case "whales show":
		settings, err := m.WhaleSettings(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "min=%s active=%t\n", settings.MinSize, settings.Active)
		return nil
	case "whales set":
		return setWhaleSettings(ctx, m, args[2:])
	case "history ls":
		return listHistory(ctx, m, out)
	case "history read":
		return m.MarkAllRead(ctx)
	case "history rm":
		if len(args) != 3 {
			return errUsage
		}
		return m.DeleteAlert(ctx, args[2])
	case "history clear":
		return m.ClearHistory(ctx)
	}
	return errUsage
}

func addPriceAlert(ctx context.Context, m *alerts.Manager, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("alerts add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	market := fs.String("market", "", "market id")
	title := fs.String("title", "", "label shown when the alert fires")
	target := fs.String("target", "", "YES price between 0 and 1")
	direction := fs.String("direction", string(alerts.Above), "above or below")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v\n%w", err, errUsage)
	}

	price, err := decimal.NewFromString(*target)
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", *target, err)
	}
	if *title == "" {
		*title = *market
	}

	alert, err := m.AddPriceAlert(ctx, *market, *title, price, alerts.Direction(*direction))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, alert.ID)
	return nil
}

func setWhaleSettings(ctx context.Context, m *alerts.Manager, args []string) error {
	current, err := m.WhaleSettings(ctx)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("whales set", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	minArg := fs.String("min", current.MinSize.String(), "minimum trade value in USD")
	active := fs.Bool("active", current.Active, "whether whale alerts fire")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v\n%w", err, errUsage)
	}

	minSize, err := decimal.NewFromString(*minArg)
	if err != nil {
		return fmt.Errorf("invalid minimum %q: %w", *minArg, err)
	}
	return m.SaveWhaleSettings(ctx, alerts.WhaleSettings{MinSize: minSize, Active: *active})
}

func listPriceAlerts(ctx context.Context, m *alerts.Manager, out io.Writer) error {
	priceAlerts, err := m.PriceAlerts(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMARKET\tTARGET\tDIRECTION\tSTATE\tTITLE")
	for _, pa := range priceAlerts {
		state := "active"
		if !pa.Active {
			state = "fired"
			if pa.TriggeredAt != nil {
				state = "fired " + humanize.Time(*pa.TriggeredAt)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", pa.ID, pa.MarketID, pa.TargetPrice, pa.Direction, state, pa.Title)
	}
	return tw.Flush()
}

func listHistory(ctx context.Context, m *alerts.Manager, out io.Writer) error {
	history, err := m.History(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tWHEN\tREAD\tMESSAGE")
	for _, a := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s: %s\n", a.ID, a.Kind, humanize.Time(a.CreatedAt), a.Read, a.Title, a.Message)
	}
	return tw.Flush()
}
