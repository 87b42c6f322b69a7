package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeoVertizBP/content-scan-engine/internal/fetch"
	"github.com/LeoVertizBP/content-scan-engine/internal/logging"
	"github.com/LeoVertizBP/content-scan-engine/internal/sitemap"
)

func newSitemapCmd() *cobra.Command {
	var (
		sitemapURL string
		maxURLs    int
	)

	cmd := &cobra.Command{
		Use:   "sitemap",
		Short: "Resolve a sitemap (or sitemap index) and print the page URLs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sitemapURL == "" {
				return errors.New("--url is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			if maxURLs == 0 {
				maxURLs = cfg.Crawler.MaxSitemapURLs
			}

			client := fetch.NewClient(fetch.Config{
				Timeout:      cfg.CrawlTimeout(),
				UserAgent:    cfg.Crawler.UserAgent,
				MaxBodyBytes: cfg.Crawler.MaxBodyBytes,
			})
			resolver := sitemap.New(client, logger.Named("sitemap"))

			for _, u := range resolver.ParseSitemap(cmd.Context(), sitemapURL, maxURLs) {
				cmd.Println(u)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sitemapURL, "url", "", "sitemap URL to resolve")
	cmd.Flags().IntVar(&maxURLs, "max-urls", 0, "maximum URLs to return (0 uses the configured default)")
	return cmd
}
