package retrieval

import (
	"context"
	"fmt"
	"strings"

	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/internal/repository/contract"
	"marketplace-assistant-be/pkg/embedding"
	"marketplace-assistant-be/pkg/store"
)

// DefaultTopK matches the retriever default of the original catalog search
const DefaultTopK = 4

// Retriever returns the k most relevant catalog documents for a query
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]store.Document, error)
}

// RetrievalError wraps a failure of the embedding backend or the vector store
type RetrievalError struct {
	Op  string // "embed" | "search"
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval %s failed: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// PgvectorRetriever embeds the query and runs a cosine similarity search
type PgvectorRetriever struct {
	embedder  embedding.EmbeddingProvider
	repo      contract.ProductEmbeddingRepository
	topK      int
	threshold float64
	logger    logger.ILogger
}

func NewPgvectorRetriever(embedder embedding.EmbeddingProvider, repo contract.ProductEmbeddingRepository, topK int, threshold float64, logger logger.ILogger) *PgvectorRetriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &PgvectorRetriever{
		embedder:  embedder,
		repo:      repo,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

func (r *PgvectorRetriever) Retrieve(ctx context.Context, query string) ([]store.Document, error) {
	emb, err := r.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, &RetrievalError{Op: "embed", Err: err}
	}

	scored, err := r.repo.SearchSimilarWithScore(ctx, emb.Embedding.Values, r.topK, r.threshold)
	if err != nil {
		return nil, &RetrievalError{Op: "search", Err: err}
	}

	docs := make([]store.Document, 0, len(scored))
	for _, s := range scored {
		e := s.Embedding
		metadata := map[string]interface{}{}
		for k, v := range e.Metadata {
			metadata[k] = v
		}
		metadata["source"] = e.Source
		metadata["category"] = e.Category
		metadata["product_name"] = e.ProductName
		metadata["price"] = e.Price

		docs = append(docs, store.Document{
			ID:       e.Id.String(),
			Content:  e.Document,
			Score:    float32(s.Similarity),
			Metadata: metadata,
		})
	}

	r.logger.Debug("Retrieval", "Catalog search complete", map[string]interface{}{
		"query":     query,
		"top_k":     r.topK,
		"threshold": r.threshold,
		"found":     len(docs),
	})
	return docs, nil
}

// FormatDocuments concatenates documents into the grounding string injected as {document}
func FormatDocuments(docs []store.Document) string {
	var sb strings.Builder
	for i, d := range docs {
		kind := "Desconhecido"
		if strings.HasSuffix(d.Source(), ".txt") {
			kind = "Texto"
		}
		fmt.Fprintf(&sb, "Documento %d (%s):\n%s\n\n", i+1, kind, d.Content)
	}
	return sb.String()
}
