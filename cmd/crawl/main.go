// Command crawl is the CLI entrypoint wiring a CrawlEngine, the default
// goquery-backed link extractor and a ResultForwarder together, the way
// the teacher's library is meant to be driven from the outside.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codepr/crawlcore"
	"github.com/codepr/crawlcore/env"
	"github.com/codepr/crawlcore/fetcher"
)

var (
	cfgFile            string
	seedURL            string
	maxPages           int
	maxPagesPerDomain  int
	timeoutSeconds     int
	concurrency        int
	userAgent          string
	allowExternal      bool
	allowExternalLinks bool
	excludeExtensions  []string
)

var rootCmd = &cobra.Command{
	Use:   "crawl [seed-url]",
	Short: "A configurable, multi-threaded web crawler.",
	Long: `crawl fetches a seed URL and follows same-host links breadth-first,
respecting per-crawl page and per-domain caps, a wall-clock timeout, and a
bounded pool of concurrent fetch workers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			seedURL = args[0]
		}
		if seedURL == "" {
			return fmt.Errorf("a seed url is required, either as an argument or via --seed-url")
		}

		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		config := crawler.DefaultConfiguration()
		// A flag value of 0 keeps DefaultConfiguration's effectively
		// unlimited caps instead of the core's "zero pages" meaning.
		if maxPages > 0 {
			config.MaxPagesToCrawl = maxPages
		}
		if maxPagesPerDomain > 0 {
			config.MaxPagesToCrawlPerDomain = maxPagesPerDomain
		}
		config.CrawlTimeoutSeconds = timeoutSeconds
		config.MaxConcurrentThreads = concurrency
		config.UserAgentString = userAgent
		config.IsExternalPageCrawlingEnabled = allowExternal
		config.IsExternalPageLinksCrawlingEnabled = allowExternalLinks

		parser := fetcher.NewGoqueryParser()
		parser.ExcludeExtensions(excludeExtensions...)

		engine := crawler.New(parser, crawler.WithConfiguration(config), crawler.WithLogger(logger))

		forwarder := crawler.NewResultForwarder()
		forwarder.Subscribe(engine)
		forwardDone := make(chan error, 1)
		go func() { forwardDone <- forwarder.Forward(os.Stdout) }()

		engine.OnPageCrawlDisallowed(func(ev crawler.PageCrawlDisallowedEvent) {
			logger.Debug().Str("uri", ev.Page.URI.String()).Str("reason", ev.Reason).Msg("page disallowed")
		})

		result, err := engine.Crawl(seedURL)
		forwarder.Close()
		<-forwardDone
		if err != nil {
			return err
		}

		logger.Info().
			Str("root", result.RootURI.String()).
			Dur("elapsed", result.Elapsed).
			Msg("crawl finished")
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (yaml, json, toml)")
	rootCmd.Flags().StringVar(&seedURL, "seed-url", "", "starting URL for the crawl")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pages to crawl, 0 for unlimited")
	rootCmd.Flags().IntVar(&maxPagesPerDomain, "max-pages-per-domain", 0, "maximum pages to crawl per domain, 0 for unlimited")
	rootCmd.Flags().IntVar(&timeoutSeconds, "timeout-seconds", 0, "wall-clock crawl budget in seconds, 0 for unlimited")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", env.Concurrency(8), "number of concurrent fetch workers")
	rootCmd.Flags().StringVar(&userAgent, "user-agent", env.UserAgent("Mozilla/5.0 (compatible; crawlcore/1.0)"), "User-Agent request header")
	rootCmd.Flags().BoolVar(&allowExternal, "allow-external", false, "admit pages whose authority differs from the seed's")
	rootCmd.Flags().BoolVar(&allowExternalLinks, "allow-external-links", false, "extract links out of external pages")
	rootCmd.Flags().StringSliceVar(&excludeExtensions, "exclude-ext", []string{".jpg", ".jpeg", ".png", ".gif", ".pdf", ".zip"}, "file extensions never followed as links")

	viper.BindPFlag("max_pages", rootCmd.Flags().Lookup("max-pages"))
	viper.BindPFlag("max_pages_per_domain", rootCmd.Flags().Lookup("max-pages-per-domain"))
	viper.BindPFlag("timeout_seconds", rootCmd.Flags().Lookup("timeout-seconds"))
	viper.BindPFlag("concurrency", rootCmd.Flags().Lookup("concurrency"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("crawlcore")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("CRAWL")
	viper.AutomaticEnv()
	// A missing config file is not an error: CRAWL_* environment values
	// still apply through AutomaticEnv.
	_ = viper.ReadInConfig()
	if viper.IsSet("max_pages") {
		maxPages = viper.GetInt("max_pages")
	}
	if viper.IsSet("max_pages_per_domain") {
		maxPagesPerDomain = viper.GetInt("max_pages_per_domain")
	}
	if viper.IsSet("timeout_seconds") {
		timeoutSeconds = viper.GetInt("timeout_seconds")
	}
	if viper.IsSet("concurrency") {
		concurrency = viper.GetInt("concurrency")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
