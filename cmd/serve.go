// file: cmd/serve.go
// version: 1.0.0
// guid: 9f0a1b2c-3d4e-4f5a-8b6c-7d8e9f0a1b2c

package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jdfalk/book-search/internal/config"
	"github.com/jdfalk/book-search/internal/realtime"
	"github.com/jdfalk/book-search/internal/server"
	"github.com/jdfalk/book-search/internal/server/middleware"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP search server",
	Long:  `Start the HTTP server. Each client creates a search session, sets criteria and follows progress over server-sent events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if pw, _ := cmd.Flags().GetString("set-password"); pw != "" {
			return saveBasicAuth(a, cmd, pw)
		}

		cat, err := openCatalog()
		if err != nil {
			log.Printf("[WARN] Catalog unavailable: %v", err)
			cat = nil
		} else {
			defer cat.Close()
		}

		if path := config.AppConfig.SitesFile; path != "" {
			w, err := config.WatchSitesFile(path, a.sites)
			if err != nil {
				log.Printf("[WARN] %v", err)
			} else {
				defer w.Stop()
				log.Printf("[INFO] Watching sites file %s", path)
			}
		}

		// Initialize real-time event hub
		realtime.InitializeEventHub()

		srv := server.NewServer(server.Options{
			Registry:           a.registry,
			Store:              a.store,
			Catalog:            cat,
			Hub:                realtime.GlobalHub,
			Network:            a.network,
			Cache:              a.cache,
			SessionTTL:         config.AppConfig.SessionIdleTTL(),
			FetchCovers:        config.AppConfig.FetchCovers,
			StrictISBN:         config.AppConfig.StrictISBN,
			RateLimitPerMinute: config.AppConfig.APIRateLimitPerMinute,
		})

		cfg := server.ServerConfig{
			Addr:         config.AppConfig.Listen,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // SSE streams stay open
			IdleTimeout:  60 * time.Second,
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Addr = listen
		}
		if rt, _ := cmd.Flags().GetDuration("read-timeout"); rt > 0 {
			cfg.ReadTimeout = rt
		}
		if it, _ := cmd.Flags().GetDuration("idle-timeout"); it > 0 {
			cfg.IdleTimeout = it
		}

		return srv.Start(cfg)
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "address to listen on (default from config, :8484)")
	serveCmd.Flags().Duration("read-timeout", 15*time.Second, "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().Duration("idle-timeout", 60*time.Second, "idle timeout (e.g. 60s, 2m)")
	serveCmd.Flags().String("set-password", "", "enable basic auth with this password for --user, then exit")
	serveCmd.Flags().String("user", "admin", "basic auth user for --set-password")
}

func saveBasicAuth(a *app, cmd *cobra.Command, password string) error {
	hash, err := middleware.HashPassword(password)
	if err != nil {
		return err
	}
	user, _ := cmd.Flags().GetString("user")
	config.AppConfig.BasicAuthEnabled = true
	config.AppConfig.BasicAuthUsername = user
	config.AppConfig.BasicAuthPassword = hash
	if err := config.SaveConfigToDatabase(a.store); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Basic auth enabled for %s\n", user)
	return nil
}
