package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"marketplace-assistant-be/internal/config"
	"marketplace-assistant-be/internal/controller"
	"marketplace-assistant-be/internal/handler"
	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/internal/repository/archive"
	"marketplace-assistant-be/internal/repository/contract"
	"marketplace-assistant-be/internal/repository/implementation"
	"marketplace-assistant-be/internal/repository/memory"
	redisRepo "marketplace-assistant-be/internal/repository/redis"
	"marketplace-assistant-be/internal/repository/unitofwork"
	"marketplace-assistant-be/internal/service"
	"marketplace-assistant-be/internal/websocket"
	"marketplace-assistant-be/pkg/embedding"
	"marketplace-assistant-be/pkg/events"
	"marketplace-assistant-be/pkg/llm"
	"marketplace-assistant-be/pkg/llm/factory"
	"marketplace-assistant-be/pkg/metrics"
	pktNats "marketplace-assistant-be/pkg/nats"
	"marketplace-assistant-be/pkg/rag/classifier"
	"marketplace-assistant-be/pkg/rag/history"
	"marketplace-assistant-be/pkg/rag/journey"
	"marketplace-assistant-be/pkg/rag/prompt"
	"marketplace-assistant-be/pkg/rag/retrieval"
	"marketplace-assistant-be/pkg/rag/session"
	"marketplace-assistant-be/pkg/rag/state"
	"marketplace-assistant-be/pkg/rag/transcript"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// query embeddings are memoized this long
const embeddingCacheTTL = 30 * time.Minute

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController
	CatalogController controller.ICatalogController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	IngestService   service.IIngestService

	// WebSockets & journey events
	JourneyHandler *handler.JourneyHandler
	WebSocketHub   *websocket.Hub

	Metrics *metrics.JourneyMetrics
	Logger  logger.ILogger

	closers []func()
}

// Close releases the bus and cache connections
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c.Logger = sysLogger
	c.Metrics = metrics.NewJourneyMetrics()

	// 2. Event Bus (in-process, catalog indexing)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. AI providers
	embeddingProvider := NewEmbeddingProvider(cfg)
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.LLMBaseURL,
		APIKey:   cfg.Ai.LLMApiKey,
		Timeout:  cfg.Ai.LLMTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init LLM provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	rdb := connectRedis(cfg.App.RedisURL)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var publisher events.Publisher = events.NopPublisher{}
	var natsSub *pktNats.Subscriber
	if cfg.Events.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.Events.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.Events.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			natsSub = nil
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// 5. Journey
	registry, err := NewPromptRegistry(cfg.Journey.PromptsFile)
	if err != nil {
		return nil, err
	}
	policy := state.FlatAccept
	if cfg.Journey.StrictTransitions {
		policy = state.Strict
	}
	retriever := retrieval.NewPgvectorRetriever(
		embeddingProvider,
		implementation.NewProductEmbeddingRepository(db),
		cfg.Journey.RetrievalTopK,
		cfg.Journey.RetrievalThreshold,
		sysLogger,
	)
	sink, err := NewTranscriptSink(cfg.Transcript, uowFactory)
	if err != nil {
		return nil, err
	}

	j := journey.New(journey.Dependencies{
		Registry:   registry,
		Classifier: NewClassifier(cfg.Journey.Classifier, llmProvider, sysLogger),
		Retriever:  retriever,
		LLM:        llmProvider,
		State:      state.NewManager(policy, sysLogger),
		Sink:       sink,
		Publisher:  publisher,
		Metrics:    c.Metrics,
		Logger:     sysLogger,
		ResetOnEnd: cfg.Journey.EndSessionReset,
	})

	sessions := session.NewManager(newSessionRepository(cfg.Journey, rdb))

	// 6. Services
	chatbotService := service.NewChatbotService(j, sessions, history.NewLoader(uowFactory), sysLogger)
	publisherService := service.NewPublisherService(cfg.Events.CatalogTopic, pubSub)
	c.IngestService = service.NewIngestService(uowFactory, embeddingProvider, publisherService, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Events.CatalogTopic, c.IngestService, sysLogger)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	c.JourneyHandler = handler.NewJourneyHandler(chatbotService, natsSub, c.WebSocketHub, c.Metrics, wsLogger)

	// 7. Controllers
	c.ChatbotController = controller.NewChatbotController(chatbotService)
	c.CatalogController = controller.NewCatalogController(c.IngestService)

	return c, nil
}

// NewEmbeddingProvider picks the backend from EMBEDDING_PROVIDER and memoizes it
func NewEmbeddingProvider(cfg *config.Config) embedding.EmbeddingProvider {
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "gemini" {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}
	return embedding.NewCachedProvider(embeddingProvider, embeddingCacheTTL)
}

func NewPromptRegistry(path string) (*prompt.Registry, error) {
	if path == "" {
		return prompt.DefaultRegistry(), nil
	}
	registry, err := prompt.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load prompts %s: %w", path, err)
	}
	log.Printf("[INFO] Loaded stage prompts from %s", path)
	return registry, nil
}

func NewClassifier(kind string, llmProvider llm.LLMProvider, log logger.ILogger) classifier.Classifier {
	if kind == "rule" {
		return classifier.NewRuleClassifier()
	}
	return classifier.NewLLMClassifier(llmProvider, log)
}

// NewTranscriptSink builds the sinks named in TRANSCRIPT_SINKS
func NewTranscriptSink(cfg config.TranscriptConfig, uowFactory unitofwork.RepositoryFactory) (transcript.Sink, error) {
	var sinks transcript.MultiSink
	for _, name := range cfg.Sinks {
		switch name {
		case "csv":
			sinks = append(sinks, transcript.NewCSVSink(cfg.Dir))
		case "gorm":
			sinks = append(sinks, archive.NewGormSink(uowFactory))
		default:
			return nil, fmt.Errorf("unknown transcript sink %q", name)
		}
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	if len(sinks) == 0 {
		return transcript.NopSink{}, nil
	}
	return sinks, nil
}

func newSessionRepository(cfg config.JourneyConfig, rdb *redis.Client) contract.SessionRepository {
	if cfg.SessionStore == "redis" {
		if rdb != nil {
			log.Printf("[INFO] Using Redis session store")
			return redisRepo.NewSessionRepository(rdb, cfg.SessionTTL)
		}
		log.Printf("[WARN] Redis unavailable, falling back to in-memory sessions")
	}
	return memory.NewSessionRepository(cfg.SessionTTL)
}

// connectRedis returns nil when Redis cannot be reached
func connectRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
