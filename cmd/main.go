package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/chromemdb"
	"pdf-rag/internal/config"
	"pdf-rag/internal/db"
	"pdf-rag/internal/embedding"
	"pdf-rag/internal/helper"
	"pdf-rag/internal/llmservice"
	"pdf-rag/internal/rag"
	"pdf-rag/internal/server"
	"pdf-rag/internal/vectorindex"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML config file")
	filePath := flag.String("file", "", "Path to a document to ingest")
	query := flag.String("query", "", "Question to ask about the ingested document")
	check := flag.Bool("check", false, "Test the embedding and LLM endpoints, then exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(&cfg.Log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}
	log.Debug().Str("backend", cfg.Index.Backend).Str("upload_mode", cfg.RAG.UploadMode).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := embedding.NewEmbedder(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	generator, err := llmservice.NewGenerator(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing generator")
	}

	if *check {
		if err := runCheck(ctx, embedder, generator); err != nil {
			log.Fatal().Err(err).Msg("Connectivity check failed")
		}
		return
	}

	index, closeIndex, err := newIndex(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing vector index")
	}
	defer closeIndex()

	r := rag.NewRAG(rag.NewCorpus(index), embedder, generator, cfg.RAG)

	if *filePath != "" || *query != "" {
		if err := runOnce(ctx, r, *filePath, *query); err != nil {
			log.Error().Err(err).Msg("Request failed")
			closeIndex()
			os.Exit(1)
		}
		return
	}

	if cfg.Log.Level != zerolog.LevelDebugValue {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := server.NewServer(r, cfg.Server).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}

func setupLogger(cfg *config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
}

// newIndex builds the configured vector index. The returned func releases
// whatever the backend holds open.
func newIndex(ctx context.Context, cfg *config.Config) (vectorindex.Index, func(), error) {
	noop := func() {}

	switch cfg.Index.Backend {
	case config.BackendFlat:
		return vectorindex.NewFlat(cfg.Embedding.Dimension), noop, nil
	case config.BackendChromem:
		m, err := chromemdb.NewVectorDBManager(cfg.Index.Collection)
		if err != nil {
			return nil, noop, err
		}
		return m, noop, nil
	case config.BackendPGVector:
		dbClient, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("error connecting to database: %w", err)
		}
		dbInstance := db.NewDB(dbClient, cfg.Database.Debug)
		idx, err := db.NewPGVectorIndex(ctx, dbInstance)
		if err != nil {
			dbInstance.Close()
			return nil, noop, fmt.Errorf("error initializing database: %w", err)
		}
		return idx, func() { dbInstance.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown index backend: %q", cfg.Index.Backend)
	}
}

// runOnce ingests filePath and/or answers query without starting the server.
func runOnce(ctx context.Context, r *rag.RAG, filePath, query string) error {
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		res, err := r.Upload(ctx, filePath, data)
		if err != nil {
			return err
		}
		log.Info().Msg("Upload: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		if err := helper.PrettyPrint(os.Stdout, res); err != nil {
			return err
		}
	}

	if query != "" {
		res, err := r.Ask(ctx, query)
		if err != nil {
			return err
		}
		log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", query)

		log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", res.Answer)
	}
	return nil
}

// runCheck makes one embedding call and one tiny generation call.
func runCheck(ctx context.Context, e embedding.Embedder, g llmservice.Generator) error {
	vec, err := e.EmbedQuery(ctx, "This is a test sentence.")
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	log.Info().Int("dimension", len(vec)).Msg("Embedding endpoint OK")

	answer, err := g.Generate(ctx, llmservice.Prompt{Question: "Say hi"})
	if err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	log.Info().Str("answer", answer.Text).Msg("LLM endpoint OK")
	return nil
}
