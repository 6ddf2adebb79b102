package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"eventlist/internal/capture"
	"eventlist/internal/config"
	"eventlist/internal/controller"
	"eventlist/internal/ics"
	appLog "eventlist/internal/log"
	"eventlist/internal/mockapi"
	"eventlist/internal/model"
	"eventlist/internal/page"
	"eventlist/internal/scheduler"
	"eventlist/internal/store"
	"eventlist/internal/view"
	"eventlist/internal/web"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the event list page.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config)"},
			&cli.StringFlag{Name: "api-url", Usage: "Events service base URL (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if v := c.String("listen"); v != "" {
				cfg.Listen = v
			}
			if v := c.String("api-url"); v != "" {
				cfg.APIURL = v
			}

			appLog.Info("effective config",
				"listen", cfg.Listen,
				"api_url", cfg.APIURL,
				"request_timeout", cfg.RequestTimeout.String(),
				"refresh", cfg.RefreshCron,
				"timezone", cfg.Timezone,
				"page", cfg.Page,
				"basic_auth", cfg.BasicAuth != nil,
			)

			v, ctrl, err := buildApp(cfg)
			if err != nil {
				return err
			}

			ctx := c.Context
			if err := ctrl.Init(ctx); err != nil {
				// The page still comes up with an empty table; the next
				// refresh or interaction retries the fetch.
				appLog.Error("initial fetch failed", err, "api_url", cfg.APIURL)
			}

			stopRefresh, err := scheduler.Start(ctx, cfg.RefreshCron, cfg.Location(), ctrl.Refresh)
			if err != nil {
				return err
			}
			defer stopRefresh()

			err = web.NewServer(cfg, v, ctrl).ListenAndServe(ctx)
			appLog.Info("eventlist exiting")
			return err
		},
	}
}

// buildApp composes document, view, store and controller for cfg.
func buildApp(cfg *config.Config) (*view.View, *controller.Controller, error) {
	doc, err := page.New()
	if cfg.Page != "" {
		doc, err = page.FromFile(cfg.Page)
	}
	if err != nil {
		return nil, nil, err
	}

	v, err := view.New(doc, cfg.Selectors)
	if err != nil {
		return nil, nil, err
	}

	st, err := newStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	return v, controller.New(v, model.NewEventList(), st, v), nil
}

func newStore(cfg *config.Config) (*store.Client, error) {
	return store.New(cfg.APIURL, store.WithTimeout(cfg.RequestTimeout))
}

func mockCommand() *cli.Command {
	return &cli.Command{
		Name:  "mock",
		Usage: "Run an in-memory events service for local development.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Value: ":3000", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "seed", Usage: "JSON file with an array of events to start with"},
		},
		Action: func(c *cli.Context) error {
			var seed []model.Event
			if path := c.String("seed"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read seed: %w", err)
				}
				if err := json.Unmarshal(data, &seed); err != nil {
					return fmt.Errorf("parse seed %s: %w", path, err)
				}
			}

			svc := mockapi.New(seed)
			srv := &http.Server{
				Addr:              c.String("listen"),
				Handler:           svc.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-c.Context.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			appLog.Info("mock events service listening", "listen", srv.Addr, "seeded", len(seed))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Create events from an iCalendar file or URL.",
		ArgsUsage: "<path|url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "ICS path or http(s) URL (or pass it as the argument)"},
			&cli.IntFlag{Name: "days", Value: 7, Usage: "Import occurrences up to N days ahead"},
			&cli.IntFlag{Name: "backfill", Value: 0, Usage: "Also import occurrences up to N days back"},
			&cli.IntFlag{Name: "max-per-event", Value: 100, Usage: "Cap occurrences per recurring event"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be created without calling the service"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Int("days") < 0 || c.Int("backfill") < 0 {
				return errors.New("--days and --backfill must not be negative")
			}

			src := c.Args().First()
			if src == "" {
				src = c.String("source")
			}
			if src == "" {
				return errors.New("import: a calendar path or URL is required")
			}

			body, err := ics.Read(c.Context, src)
			if err != nil {
				return fmt.Errorf("read calendar: %w", err)
			}
			parsed, err := ics.Parse(body)
			if err != nil {
				return fmt.Errorf("parse calendar: %w", err)
			}

			loc := cfg.Location()
			now := time.Now().In(loc)
			occ, truncated, err := ics.Expand(parsed, ics.ExpandConfig{
				Location:    loc,
				RangeStart:  now.AddDate(0, 0, -c.Int("backfill")),
				RangeEnd:    now.AddDate(0, 0, c.Int("days")),
				MaxPerEvent: c.Int("max-per-event"),
			})
			if err != nil {
				return err
			}
			appLog.Info("calendar expanded",
				"vevents", len(parsed),
				"occurrences", len(occ),
				"truncated_uids", len(truncated),
			)

			if c.Bool("dry-run") {
				for _, o := range occ {
					d := o.Draft()
					appLog.Info("would create", "name", d.Name, "start", d.Start, "end", d.End)
				}
				return nil
			}

			st, err := newStore(cfg)
			if err != nil {
				return err
			}
			created := 0
			for _, o := range occ {
				d := o.Draft()
				if err := d.Validate(); err != nil {
					appLog.Warn("skipping occurrence", "uid", o.UID, "err", err)
					continue
				}
				if _, err := st.AddEvent(c.Context, d); err != nil {
					return fmt.Errorf("create %q after %d created: %w", d.Name, created, err)
				}
				created++
			}
			appLog.Info("import done", "created", created)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the service's events as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "-", Usage: "Output path, - for stdout"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			st, err := newStore(cfg)
			if err != nil {
				return err
			}
			events, err := st.FetchEvents(c.Context)
			if err != nil {
				return fmt.Errorf("fetch events: %w", err)
			}

			now := time.Now()
			res := ics.Export(events, cfg.Location(), now, now)
			for _, id := range res.Skipped {
				appLog.Warn("event not exported: unreadable start or end", "id", id.String())
			}

			if out := c.String("output"); out != "-" {
				if err := os.WriteFile(out, []byte(res.Body), 0o644); err != nil {
					return err
				}
				appLog.Info("calendar written", "output", out, "events", len(events)-len(res.Skipped))
				return nil
			}
			_, err = os.Stdout.WriteString(res.Body)
			return err
		},
	}
}

func captureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Screenshot the running page with headless Chromium.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Page URL (overrides config)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "PNG path (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			opts := capture.Options{
				URL:        cfg.Capture.URL,
				OutputPath: cfg.Capture.OutputPath,
				Width:      cfg.Capture.Width,
				Height:     cfg.Capture.Height,
				Timeout:    cfg.Capture.Timeout,
			}
			if v := c.String("url"); v != "" {
				opts.URL = v
			}
			if v := c.String("output"); v != "" {
				opts.OutputPath = v
			}
			return capture.CapturePagePNG(c.Context, opts)
		},
	}
}
