package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/topiary-kb/topiary/internal/store"
	"github.com/topiary-kb/topiary/pkg/cluster"
	"github.com/topiary-kb/topiary/pkg/embed"
	"github.com/topiary-kb/topiary/pkg/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "topiary",
	Short: "Convert a chat-conversation export into a topic-organized SQLite knowledge base.",
	Long: `topiary reads an exported conversation archive (conversations.json),
flattens every conversation into plain-text records, clusters the records by
semantic-embedding similarity, and writes one topic per cluster — plus a
miscellaneous topic for unclustered records — into a SQLite database.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// .env is a convenience for direct binary runs; absence is fine.
		_ = godotenv.Load()
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		apiKey := viper.GetString("api-key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}

		embedder := embed.NewOpenAIEmbedder(embed.Config{
			APIKey:  apiKey,
			BaseURL: viper.GetString("base-url"),
			Model:   viper.GetString("model"),
		})
		clusterer := &cluster.DBSCAN{Eps: viper.GetFloat64("eps")}

		st, err := store.Open(viper.GetString("db"))
		if err != nil {
			return err
		}
		defer st.Close()

		p := pipeline.New(pipeline.Config{
			ExportPath:     viper.GetString("export"),
			MinClusterSize: viper.GetInt("min-cluster-size"),
			TitleLen:       viper.GetInt("title-len"),
			Reset:          viper.GetBool("reset"),
		}, embedder, clusterer, st, slog.Default())

		summary, err := p.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%s ready: %d topics, %d messages (%d unclustered)\n",
			viper.GetString("db"), summary.Topics, summary.Records, summary.Noise)
		return nil
	},
}

func init() {
	viper.SetDefault("export", "conversations.json")
	viper.SetDefault("db", "knowledge.db")
	viper.SetDefault("min-cluster-size", 20)
	viper.SetDefault("model", "text-embedding-3-small")
	viper.SetDefault("title-len", 60)

	flags := rootCmd.PersistentFlags()
	flags.String("export", "conversations.json", "path to the conversation export file")
	flags.String("db", "knowledge.db", "path to the output SQLite database")
	flags.Int("min-cluster-size", 20, "minimum records per topic cluster")
	flags.String("model", "text-embedding-3-small", "embedding model identifier")
	flags.String("base-url", "", "OpenAI-compatible embeddings endpoint (default: api.openai.com)")
	flags.String("api-key", "", "API key for the embeddings endpoint (or OPENAI_API_KEY)")
	flags.Float64("eps", 0, "cluster neighborhood radius (0 = estimate from data)")
	flags.Int("title-len", 60, "topic title truncation length in characters")
	flags.Bool("reset", false, "truncate existing tables before writing")

	for _, name := range []string{
		"export", "db", "min-cluster-size", "model", "base-url", "api-key", "eps", "title-len", "reset",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("topiary")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}
