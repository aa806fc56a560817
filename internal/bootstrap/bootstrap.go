package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/changsoo-Shin/ktds-jinseop/internal/config"
	"github.com/changsoo-Shin/ktds-jinseop/internal/core/ports"
	"github.com/changsoo-Shin/ktds-jinseop/internal/core/usecase"
	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/chunking"
	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/extractor/docfile"
	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/export/xlsx"
	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/llm/ollama"
	natsqueue "github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/queue/nats"
	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/questionstore"
	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/repository/postgres"
	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/resilience"
	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/segmenting"
	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/storage/localfs"
	"github.com/changsoo-Shin/ktds-jinseop/internal/infrastructure/vector/flat"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Questions ports.QuestionStore
	Index     ports.VectorIndex
	Exporter  ports.QuestionExporter

	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	PickUC    ports.QuestionPicker
	ComposeUC ports.ContextComposer
	AdminUC   ports.ExamAdmin

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	questions, err := questionstore.New(cfg.QuestionsPath)
	if err != nil {
		return nil, fmt.Errorf("init question store: %w", err)
	}

	runner := resilience.NewRunner(resilience.DefaultPolicy())
	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		Runner: runner,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, cfg.OllamaRPS, runner)
	embedder := ollama.NewEmbedder(ollamaClient)
	judge := ollama.NewJudge(ollamaClient)

	index, err := flat.New(cfg.IndexPath, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("load vector index: %w", err)
	}

	segmenter := segmenting.New(segmenting.Config{
		MaxNumber:    cfg.SegmentMaxNumber,
		MinSpanChars: cfg.SegmentMinSpanChars,
	})
	chunker := chunking.NewBuilder(chunking.Config{
		FlushChars:    cfg.ChunkFlushChars,
		MinChunkChars: cfg.ChunkMinChars,
		MinTableChars: cfg.ChunkMinTableChars,
	})
	extractor := docfile.New(storage)
	exporter := xlsx.New()
	validator := usecase.NewContextValidator(judge, usecase.NewMemoryValidationCache(), logger)

	pickOpts := []usecase.ExactPickOption{usecase.WithHistorySize(cfg.HistorySize)}
	if keywords := cfg.FigureKeywordList(); len(keywords) > 0 {
		pickOpts = append(pickOpts, usecase.WithFigureKeywords(keywords))
	}
	if cfg.IncludeFigureQuestions {
		pickOpts = append(pickOpts, usecase.WithFigureQuestionsIncluded())
	}

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, extractor, segmenter, chunker, questions, index, logger)
	pickUC := usecase.NewExactPickUseCase(questions, usecase.NewSelector(), pickOpts...)
	composeUC := usecase.NewComposeContextUseCase(index, questions, validator, logger, usecase.WithComposeLimit(cfg.ComposeTopK))
	adminUC := usecase.NewExamAdminUseCase(repo, questions, index, logger)

	return &App{
		Config: cfg,

		Queue:     queue,
		Repo:      repo,
		Questions: questions,
		Index:     index,
		Exporter:  exporter,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		PickUC:    pickUC,
		ComposeUC: composeUC,
		AdminUC:   adminUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
