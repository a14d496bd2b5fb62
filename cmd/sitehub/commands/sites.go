package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
	"git.home.luguber.info/inful/sitehub/internal/config"
	"git.home.luguber.info/inful/sitehub/internal/daemon"
	"git.home.luguber.info/inful/sitehub/internal/remote"
	"git.home.luguber.info/inful/sitehub/internal/site"
)

// SitesCmd implements the 'sites' command.
type SitesCmd struct {
	Check bool `help:"Resolve each site and query its repository head"`
}

func (s *SitesCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	var factory remote.Factory
	if s.Check {
		factory = remote.NewHTTPFactory(remote.Options{
			RequestTimeout:   cfg.RequestTimeout(),
			HandshakeTimeout: cfg.HandshakeTimeout(),
			Retry:            cfg.RetryPolicy(),
			Logger:           slog.Default(),
		})
	}
	return RunSites(context.Background(), g.out(), cfg, factory)
}

// RunSites prints the configured sites. With a non-nil factory each site is
// resolved through a throwaway registry and its repository head is queried.
func RunSites(ctx context.Context, out io.Writer, cfg *config.Config, factory remote.Factory) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if factory == nil {
		fmt.Fprintln(tw, "NAME\tSERVICE URL\tSITE URL")
		for _, id := range daemon.Identities(cfg.Sites) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", id.Name, id.ServiceURL, id.SiteURL)
		}
		return tw.Flush()
	}

	discard := bridge.SinkFunc(func(bridge.Channel, string, any) error { return nil })
	registry := site.NewRegistry(factory, bridge.New(discard))
	fmt.Fprintln(tw, "NAME\tSERVICE URL\tHEAD\tSTATUS")
	for _, id := range daemon.Identities(cfg.Sites) {
		head, status := "-", "ok"
		b, err := registry.GetOrCreate(ctx, id)
		if err == nil {
			head, err = b.Repository().CurrentID(ctx)
		}
		if err != nil {
			head, status = "-", err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id.Name, id.ServiceURL, head, status)
	}
	return tw.Flush()
}
