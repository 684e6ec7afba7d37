package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-overlay/internal/classify"
	"github.com/joeblew999/plat-overlay/internal/config"
	"github.com/joeblew999/plat-overlay/internal/logger"
	"github.com/joeblew999/plat-overlay/internal/server"
	"github.com/joeblew999/plat-overlay/internal/service"
)

// Options defines all CLI flags and env vars for the overlay server.
// Flags: --host, --port, --data-dir, --demos, --fetcher, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_FETCHER, ...
type Options struct {
	Host         string `doc:"Host to bind to" default:"0.0.0.0"`
	Port         int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir      string `doc:"Directory for demos, extracts and the local database" default:".data"`
	Demos        string `doc:"YAML file with extra classification tables and demos"`
	Fetcher      string `doc:"Backend for selector values (sqlapi, duckdb, none)" default:"duckdb"`
	APIURL       string `doc:"SQL API base URL" default:"https://gcp-us-east1.api.carto.com"`
	APIToken     string `doc:"SQL API access token"`
	Connection   string `doc:"Warehouse connection name" default:"carto_dw"`
	CacheSize    int    `doc:"In-process selector cache entries (0 disables)" default:"256"`
	CacheTTL     string `doc:"Selector cache entry lifetime" default:"5m"`
	RedisAddr    string `doc:"Redis address for the shared selector cache"`
	KafkaBrokers string `doc:"Comma-separated brokers for table change events"`
	KafkaTopic   string `doc:"Table change event topic" default:"table-changes"`
	LogLevel     string `doc:"Log level" default:"info"`
	LogConsole   bool   `doc:"Human readable log output"`
}

func (o *Options) config() config.Config {
	cfg := config.Default()
	cfg.Host = o.Host
	cfg.Port = o.Port
	cfg.DataDir = o.DataDir
	cfg.DemosFile = o.Demos
	cfg.Fetcher = o.Fetcher
	cfg.API.BaseURL = o.APIURL
	cfg.API.Token = o.APIToken
	cfg.API.Connection = o.Connection
	cfg.Cache.Size = o.CacheSize
	ttl, err := time.ParseDuration(o.CacheTTL)
	if err != nil {
		fatal("Invalid cache TTL %q: %v", o.CacheTTL, err)
	}
	cfg.Cache.TTL = ttl
	cfg.Cache.RedisAddr = o.RedisAddr
	cfg.Changes.Brokers = o.KafkaBrokers
	cfg.Changes.Topic = o.KafkaTopic
	cfg.Log = logger.Config{Level: o.LogLevel, Console: o.LogConsole, Component: "overlay"}
	return cfg
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// catalog builds the demo catalog without opening any backend.
func catalog(opts *Options) *service.Catalog {
	c := service.NewCatalog(opts.DataDir, opts.Connection)
	if opts.Demos != "" {
		if err := c.LoadFile(opts.Demos); err != nil {
			fatal("Error loading demos: %v", err)
		}
	}
	return c
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		cfg := opts.config()
		log := logger.Build(cfg.Log, os.Stdout)
		ctx, cancel := context.WithCancel(context.Background())

		var httpServer *http.Server

		hooks.OnStart(func() {
			srv, err := server.New(ctx, cfg, &log)
			if err != nil {
				log.Fatal().Err(err).Msg("server setup failed")
			}
			defer srv.Close()
			srv.Start(ctx)

			displayHost := cfg.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, cfg.Port)
			log.Info().
				Str("addr", cfg.Addr()).
				Str("docs", baseURL+"/docs").
				Str("openapi", baseURL+"/openapi.json").
				Str("fetcher", cfg.Fetcher).
				Str("data_dir", cfg.DataDir).
				Msg("plat-overlay API server starting")

			httpServer = &http.Server{Addr: cfg.Addr(), Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("server error")
			}
		})

		hooks.OnStop(func() {
			cancel()
			if httpServer == nil {
				return
			}
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = httpServer.Shutdown(shutdownCtx)
		})
	})

	cli.Root().Use = "overlay"
	cli.Root().Short = "Map overlay sessions with classified data layers"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg := opts.config()
			cfg.DataDir = ""
			cfg.Fetcher = config.FetcherNone
			cfg.Cache.RedisAddr = ""
			cfg.Changes.Brokers = ""
			srv, err := server.New(context.Background(), cfg, nil)
			if err != nil {
				fatal("Error building server: %v", err)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec: %v", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// classify subcommand: resolve a label against a classification table
	classifyCmd := &cobra.Command{
		Use:   "classify TABLE [LABEL]",
		Short: "Print the color a classification table assigns to a label",
		Args:  cobra.RangeArgs(1, 2),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			t, ok := catalog(opts).Table(args[0])
			if !ok {
				fatal("Unknown table %q", args[0])
			}
			var label *string
			if len(args) == 2 {
				label = &args[1]
			}
			c := classify.Classify(t, label)
			fmt.Printf("%d,%d,%d,%d\n", c.R, c.G, c.B, c.A)
		}),
	}
	cli.Root().AddCommand(classifyCmd)

	// demos subcommand: list the demo catalog
	demosCmd := &cobra.Command{
		Use:   "demos",
		Short: "List the demos sessions can be opened from",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			demos := catalog(opts).List()
			ids := make([]string, 0, len(demos))
			for id := range demos {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				d := demos[id]
				fmt.Printf("%-20s %-40s %d layer(s)\n", id, d.Title, len(d.Layers))
			}
		}),
	}
	cli.Root().AddCommand(demosCmd)

	cli.Run()
}
