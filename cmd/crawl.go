package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeoVertizBP/content-scan-engine/internal/fetch"
	"github.com/LeoVertizBP/content-scan-engine/internal/logging"
	"github.com/LeoVertizBP/content-scan-engine/internal/webcrawl"
)

func newCrawlCmd() *cobra.Command {
	var (
		startURL string
		maxPages int
		maxDepth int
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a site breadth-first and print discovered URLs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if startURL == "" {
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

			if maxPages == 0 {
				maxPages = cfg.Crawler.MaxPagesDefault
			}
			if maxDepth == 0 {
				maxDepth = cfg.Crawler.MaxDepthDefault
			}

			client := fetch.NewClient(fetch.Config{
				Timeout:      cfg.CrawlTimeout(),
				UserAgent:    cfg.Crawler.UserAgent,
				MaxBodyBytes: cfg.Crawler.MaxBodyBytes,
			})
			crawler := webcrawl.New(client, logger.Named("webcrawl"))

			urls, err := crawler.Crawl(cmd.Context(), startURL, maxPages, maxDepth)
			if err != nil {
				return fmt.Errorf("crawl: %w", err)
			}
			for _, u := range urls {
				cmd.Println(u)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startURL, "url", "", "start URL to crawl")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pages to fetch (0 uses the configured default)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum link depth (0 uses the configured default)")
	return cmd
}
