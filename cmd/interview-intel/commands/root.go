package commands

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"interview-intel/internal/company"
	"interview-intel/internal/config"
	"interview-intel/internal/decay"
	"interview-intel/internal/insights"
	"interview-intel/internal/logging"
	"interview-intel/internal/pipeline"
	"interview-intel/internal/store"
	"interview-intel/internal/topics"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	st               *store.Postgres
	calc             *decay.Calculator
	companyExtractor *company.Extractor
	generator        *insights.Generator
	manager          *pipeline.Manager
)

var rootCmd = &cobra.Command{
	Use:   "interview-intel",
	Short: "Interview-Intel collects and analyzes interview experience reports",
	Long: `A pipeline that scrapes interview experience reports from public
platforms, extracts the technical topics they mention, and rolls them up
into time-weighted per-company preparation insights served over a JSON API.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		st, err = store.Open(store.Config{DSN: cfg.DatabaseURL})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := st.Migrate(cmd.Context()); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}

		companyExtractor, err = company.NewExtractor()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load company patterns")
		}
		calc = decay.NewCalculator(cfg.DecayLambda)
		extractor, err := topics.NewExtractor(calc)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load topic taxonomy")
		}
		generator = insights.NewGenerator(extractor, cfg.MinSampleSize)

		manager = pipeline.NewManager(st, pipeline.DefaultSources(cfg, companyExtractor, calc),
			extractor, generator, companyExtractor, pipeline.Config{
				CollectionTTL: time.Duration(cfg.CollectionTTLDays) * 24 * time.Hour,
				AnalysisTTL:   time.Duration(cfg.AnalysisTTLHours) * time.Hour,
				BatchWorkers:  cfg.BatchWorkers,
			})

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("Interview-Intel starting")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			if err := st.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close store")
			}
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// printJSON writes v to stdout, indented.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
