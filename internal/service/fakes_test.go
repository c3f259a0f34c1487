package service

import (
	"context"
	"errors"
	"sync"

	"marketplace-assistant-be/internal/entity"
	"marketplace-assistant-be/internal/repository/contract"
	"marketplace-assistant-be/internal/repository/specification"
	"marketplace-assistant-be/internal/repository/unitofwork"
	"marketplace-assistant-be/pkg/embedding"
)

// fakeProductRepo keeps rows in memory; only the calls the services make are real
type fakeProductRepo struct {
	mu      sync.Mutex
	rows    []*entity.ProductEmbedding
	deleted []string
}

func (r *fakeProductRepo) Create(_ context.Context, e *entity.ProductEmbedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, e)
	return nil
}

func (r *fakeProductRepo) CreateBulk(_ context.Context, es []*entity.ProductEmbedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, es...)
	return nil
}

func (r *fakeProductRepo) DeleteBySource(_ context.Context, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, source)
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.Source != source {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeProductRepo) FindAll(context.Context, ...specification.Specification) ([]*entity.ProductEmbedding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.ProductEmbedding(nil), r.rows...), nil
}

func (r *fakeProductRepo) Count(context.Context, ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *fakeProductRepo) SearchSimilarWithScore(context.Context, []float32, int, float64) ([]*contract.ScoredProductEmbedding, error) {
	return nil, nil
}

type fakeUnitOfWork struct {
	products *fakeProductRepo
	commits  *int
}

func (u *fakeUnitOfWork) Begin(context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error {
	*u.commits++
	return nil
}
func (u *fakeUnitOfWork) Rollback() error { return nil }

func (u *fakeUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository { return nil }
func (u *fakeUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository { return nil }
func (u *fakeUnitOfWork) ProductEmbeddingRepository() contract.ProductEmbeddingRepository {
	return u.products
}

type fakeFactory struct {
	products fakeProductRepo
	commits  int
}

func (f *fakeFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &fakeUnitOfWork{products: &f.products, commits: &f.commits}
}

type fakeEmbedder struct {
	failOn string
}

func (e fakeEmbedder) Generate(_ context.Context, text string, _ string) (*embedding.EmbeddingResponse, error) {
	if e.failOn != "" && text == e.failOn {
		return nil, errors.New("embedding backend down")
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{float32(len(text)), 1}},
	}, nil
}

type recordingPublisherService struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *recordingPublisherService) Publish(_ context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return p.err
}
