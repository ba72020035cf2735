package biolink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/siherrmann/biolink/core/evaluation"
	"github.com/siherrmann/biolink/core/graph"
	"github.com/siherrmann/biolink/core/index"
	"github.com/siherrmann/biolink/core/pipeline"
	"github.com/siherrmann/biolink/core/retrieval"
	"github.com/siherrmann/biolink/core/source"
	"github.com/siherrmann/biolink/database"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
	loadSql "github.com/siherrmann/biolink/sql"
)

// BioLink owns the shared resources: backends, model pipeline, sources and
// the graph builder. Requests run through a Session.
type BioLink struct {
	Config   *helper.Configuration
	DB       *helper.Database // Only set for postgres backed index or graph
	Pipeline *pipeline.Pipeline
	Analyzer *pipeline.Analyzer
	Graph    graph.Store
	Builder  *graph.Builder
	Querier  *graph.Querier

	trials  source.TrialSource
	papers  source.PaperSource
	factory index.Factory
	neo4j   *database.Neo4jGraphHandler
	qdrant  *qdrant.Client
	// Logging
	log *slog.Logger
}

// NewBioLink creates a BioLink with the backends selected in config.
// A nil config is read from the environment. The pipeline starts with the
// hashing embedder and no models, call UseDefaultModels to load them.
func NewBioLink(config *helper.Configuration, trials source.TrialSource, papers source.PaperSource) (*BioLink, error) {
	if config == nil {
		var err error
		config, err = helper.NewConfiguration()
		if err != nil {
			return nil, err
		}
	} else if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := helper.NewLogger(os.Stdout, config.LogLevel)

	b := &BioLink{
		Config: config,
		trials: trials,
		papers: papers,
		log:    logger,
	}

	err := b.openBackends()
	if err != nil {
		_ = b.Close(context.Background())
		return nil, err
	}

	err = b.SetPipeline(pipeline.NewPipeline(pipeline.HashingEmbedder(config.EmbeddingDim)))
	if err != nil {
		_ = b.Close(context.Background())
		return nil, err
	}

	logger.Info("BioLink ready",
		slog.String("index_backend", config.IndexBackend),
		slog.String("graph_backend", config.GraphBackend),
	)

	return b, nil
}

func (b *BioLink) openBackends() error {
	config := b.Config

	if config.NeedsDatabase() {
		db, err := helper.NewDatabase("biolink", &config.Database, b.log)
		if err != nil {
			return helper.NewError("connect database", err)
		}
		b.DB = db

		err = loadSql.Init(db.Instance)
		if err != nil {
			return helper.NewError("initialize database extensions", err)
		}
	}

	switch config.IndexBackend {
	case helper.IndexBackendPgVector:
		handler, err := database.NewIndexDBHandler(b.DB, false)
		if err != nil {
			return helper.NewError("create index handler", err)
		}
		b.factory = index.PgVectorFactory(handler, config.EmbeddingDim)
	case helper.IndexBackendQdrant:
		client, err := index.NewQdrantClient(&config.Qdrant)
		if err != nil {
			return helper.NewError("create qdrant client", err)
		}
		b.qdrant = client
		b.factory = index.QdrantFactory(client, config.EmbeddingDim)
	default:
		b.factory = index.MemoryFactory()
	}

	switch config.GraphBackend {
	case helper.GraphBackendPostgres:
		store, err := database.NewPostgresGraph(b.DB, false)
		if err != nil {
			return helper.NewError("create postgres graph", err)
		}
		b.Graph = store
	case helper.GraphBackendNeo4j:
		handler, err := database.NewNeo4jGraphHandler(&config.Neo4j, b.log)
		if err != nil {
			return helper.NewError("create neo4j graph", err)
		}
		b.neo4j = handler
		b.Graph = handler
	default:
		b.Graph = graph.NewMemoryStore()
	}

	return nil
}

// SetPipeline replaces the model pipeline and rebuilds everything that extracts with it.
func (b *BioLink) SetPipeline(p *pipeline.Pipeline) error {
	if p == nil {
		return helper.NewError("set pipeline", fmt.Errorf("pipeline is nil"))
	}

	analyzer := pipeline.NewAnalyzer(p, pipeline.DefaultAnalyzerConfig(), b.log)

	builder, err := graph.NewBuilder(b.Graph, analyzer, b.log)
	if err != nil {
		return helper.NewError("create graph builder", err)
	}

	querier, err := graph.NewQuerier(b.Graph, analyzer, b.log)
	if err != nil {
		return helper.NewError("create graph querier", err)
	}

	b.Pipeline = p
	b.Analyzer = analyzer
	b.Builder = builder
	b.Querier = querier
	return nil
}

// UseDefaultModels loads the sentence embedder, the biomedical NER model
// and the zero-shot discourse classifier through hugot.
func (b *BioLink) UseDefaultModels() error {
	models := b.Config.Models

	embedder, err := pipeline.DefaultEmbedder(models)
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	extractor, err := pipeline.DefaultEntityExtractor(models)
	if err != nil {
		return helper.NewError("create default entity extractor", err)
	}

	classifier, err := pipeline.DefaultClassifier(models, pipeline.DiscourseLabelNames())
	if err != nil {
		return helper.NewError("create default classifier", err)
	}

	p := pipeline.NewPipeline(embedder)
	p.SetEntityExtractor(extractor)
	p.SetClassifier(classifier)
	p.SetTimeout(models.Timeout)

	return b.SetPipeline(p)
}

// NewSession starts a request scope with its own id and logger.
func (b *BioLink) NewSession() *Session {
	id := uuid.New().String()
	return &Session{
		ID:   id,
		link: b,
		log:  b.log.With(slog.String("session", id)),
	}
}

// Close releases all backend connections.
func (b *BioLink) Close(ctx context.Context) error {
	var errs []error

	if b.neo4j != nil {
		if err := b.neo4j.Close(ctx); err != nil {
			errs = append(errs, helper.NewError("close neo4j", err))
		}
		b.neo4j = nil
	}

	if b.qdrant != nil {
		if err := b.qdrant.Close(); err != nil {
			errs = append(errs, helper.NewError("close qdrant", err))
		}
		b.qdrant = nil
	}

	if b.DB != nil {
		if err := b.DB.Close(); err != nil {
			errs = append(errs, helper.NewError("close database", err))
		}
		b.DB = nil
	}

	return errors.Join(errs...)
}

// Session is one request scope. Every match gets its own similarity index,
// graph builds are serialized by the shared builder.
type Session struct {
	ID   string
	link *BioLink
	log  *slog.Logger
}

// MatchTrials ranks recruiting trials for the patient.
func (s *Session) MatchTrials(ctx context.Context, query *model.PatientQuery) (*model.RankResult, error) {
	ranker, err := s.Ranker()
	if err != nil {
		return nil, err
	}
	return ranker.Rank(ctx, query)
}

// BuildGraph replaces the graph with papers, and optionally recruiting
// trials, found for topic.
func (s *Session) BuildGraph(ctx context.Context, topic string, includeTrials bool) (*model.BuildSummary, error) {
	papers, trials, err := s.fetchDocuments(ctx, topic, includeTrials)
	if err != nil {
		return nil, err
	}

	summary, err := s.link.Builder.Rebuild(ctx, papers, trials)
	if err != nil {
		return nil, err
	}
	summary.Topic = topic
	summary.Mode = buildMode(includeTrials)

	s.log.Info("Graph built",
		slog.String("topic", topic),
		slog.Int("papers", summary.PapersIngested),
		slog.Int("trials", summary.TrialsIngested),
		slog.Int("edges", summary.Edges),
	)
	return summary, nil
}

// ExtendGraph merges the documents found for topic into the existing graph.
func (s *Session) ExtendGraph(ctx context.Context, topic string, includeTrials bool) (*model.BuildSummary, error) {
	papers, trials, err := s.fetchDocuments(ctx, topic, includeTrials)
	if err != nil {
		return nil, err
	}

	summary, err := s.link.Builder.Ingest(ctx, papers, trials)
	if err != nil {
		return nil, err
	}
	summary.Topic = topic
	summary.Mode = buildMode(includeTrials)
	return summary, nil
}

// QueryGraph answers a question with relationship facts from the graph.
func (s *Session) QueryGraph(ctx context.Context, question string) (*model.GraphAnswer, error) {
	return s.link.Querier.Query(ctx, question)
}

// Visualize returns the graph capped at the configured node count.
func (s *Session) Visualize(ctx context.Context) (*model.Visualization, error) {
	return graph.Visualize(ctx, s.link.Graph, s.link.Config.GraphMaxNodes)
}

// Evaluate runs the cases through the trial ranker.
func (s *Session) Evaluate(ctx context.Context, name string, cases []*model.EvaluationCase) (*model.EvaluationReport, error) {
	ranker, err := s.Ranker()
	if err != nil {
		return nil, err
	}

	runner, err := evaluation.NewRunner(ranker, s.log)
	if err != nil {
		return nil, err
	}
	runner.TopK = s.link.Config.EvalTopK

	return runner.Run(ctx, name, cases)
}

// Ranker creates a trial ranker using the configured index backend and limits.
func (s *Session) Ranker() (*retrieval.Ranker, error) {
	if s.link.trials == nil {
		return nil, helper.NewError("match trials", fmt.Errorf("trial source not set"))
	}

	ranker, err := retrieval.NewRanker(s.link.trials, s.link.factory, s.link.Pipeline, s.log)
	if err != nil {
		return nil, err
	}
	ranker.CandidateLimit = s.link.Config.CandidateLimit
	ranker.DefaultLimit = s.link.Config.DefaultSearchLimit
	return ranker, nil
}

// buildMode reports the requested mode, also when no trial was found.
func buildMode(includeTrials bool) string {
	if includeTrials {
		return model.BuildModePapersAndTrials
	}
	return model.BuildModePapersOnly
}

func (s *Session) fetchDocuments(ctx context.Context, topic string, includeTrials bool) ([]*model.Paper, []*model.Trial, error) {
	if s.link.papers == nil {
		return nil, nil, helper.NewError("build graph", fmt.Errorf("paper source not set"))
	}

	papers, err := s.link.papers.Fetch(ctx, topic, s.link.Config.DefaultMaxPapers)
	if err != nil {
		return nil, nil, helper.NewError("fetch papers", err)
	}

	var trials []*model.Trial
	if includeTrials {
		if s.link.trials == nil {
			return nil, nil, helper.NewError("build graph", fmt.Errorf("trial source not set"))
		}
		trials, err = s.link.trials.FetchRecruiting(ctx, topic, s.link.Config.DefaultMaxTrials)
		if err != nil {
			return nil, nil, helper.NewError("fetch trials", err)
		}
	}

	return papers, trials, nil
}
