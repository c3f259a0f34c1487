package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-assistant-be/internal/dto"
	"marketplace-assistant-be/internal/entity"
	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/internal/repository/unitofwork"
	"marketplace-assistant-be/pkg/catalog"
	"marketplace-assistant-be/pkg/embedding"

	"github.com/google/uuid"
)

type IIngestService interface {
	LoadFile(path string) ([]catalog.Product, error)
	Index(ctx context.Context, products []catalog.Product, source string) (int, error)
	Enqueue(ctx context.Context, products []catalog.Product, source string) (int, error)
	IndexOne(ctx context.Context, product catalog.Product) error
}

type ingestService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	publisherService  IPublisherService
	logger            logger.ILogger
}

func NewIngestService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	publisherService IPublisherService,
	logger logger.ILogger,
) IIngestService {
	return &ingestService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		publisherService:  publisherService,
		logger:            logger,
	}
}

// LoadFile fails on the first malformed line
func (s *ingestService) LoadFile(path string) ([]catalog.Product, error) {
	products, err := catalog.ParseFile(path)
	if err != nil {
		return nil, err
	}
	s.logger.Info("INGEST", "Catalog parsed", map[string]interface{}{
		"path":     path,
		"products": len(products),
	})
	return products, nil
}

// Index embeds every product and replaces the rows of source in one transaction
func (s *ingestService) Index(ctx context.Context, products []catalog.Product, source string) (int, error) {
	rows := make([]*entity.ProductEmbedding, 0, len(products))
	for _, p := range products {
		p.Source = source
		row, err := s.embed(ctx, p)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	if err := uow.ProductEmbeddingRepository().DeleteBySource(ctx, source); err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		if err := uow.ProductEmbeddingRepository().CreateBulk(ctx, rows); err != nil {
			return 0, err
		}
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}

	s.logger.Info("INGEST", "Catalog indexed", map[string]interface{}{
		"source":   source,
		"products": len(rows),
	})
	return len(rows), nil
}

// Enqueue drops the previous rows of source, then hands each product to the consumer
func (s *ingestService) Enqueue(ctx context.Context, products []catalog.Product, source string) (int, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ProductEmbeddingRepository().DeleteBySource(ctx, source); err != nil {
		return 0, err
	}

	for i, p := range products {
		payload, err := json.Marshal(dto.IndexProductMessage{
			Category: p.Category,
			Name:     p.Name,
			Price:    p.Price,
			Line:     p.Line,
			Source:   source,
			Raw:      p.Raw,
		})
		if err != nil {
			return i, err
		}
		if err := s.publisherService.Publish(ctx, payload); err != nil {
			return i, fmt.Errorf("enqueue catalog line %d: %w", p.Line, err)
		}
	}
	return len(products), nil
}

// IndexOne stores a single product without touching its siblings
func (s *ingestService) IndexOne(ctx context.Context, product catalog.Product) error {
	row, err := s.embed(ctx, product)
	if err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ProductEmbeddingRepository().Create(ctx, row)
}

func (s *ingestService) embed(ctx context.Context, p catalog.Product) (*entity.ProductEmbedding, error) {
	res, err := s.embeddingProvider.Generate(ctx, p.Raw, embedding.TaskRetrievalDocument)
	if err != nil {
		return nil, fmt.Errorf("embed catalog line %d: %w", p.Line, err)
	}

	return &entity.ProductEmbedding{
		Id:             uuid.New(),
		Document:       p.Raw,
		Category:       p.Category,
		ProductName:    p.Name,
		Price:          p.Price,
		Source:         p.Source,
		Metadata:       p.Metadata(),
		EmbeddingValue: res.Embedding.Values,
		CreatedAt:      time.Now(),
	}, nil
}
