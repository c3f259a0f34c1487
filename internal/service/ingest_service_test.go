package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"marketplace-assistant-be/internal/dto"
	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/pkg/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `Mercearia: Arroz Integral Tio João 5kg - R$ 25,90

Bebidas: Suco de Laranja Natural One - R$ 7,50
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "produtos.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestIndexReplacesSource(t *testing.T) {
	factory := &fakeFactory{}
	svc := NewIngestService(factory, fakeEmbedder{}, &recordingPublisherService{}, logger.NewNopLogger())

	products, err := svc.LoadFile(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)
	require.Len(t, products, 2)

	ctx := context.Background()
	n, err := svc.Index(ctx, products, "produtos.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-indexing the same source must not duplicate rows
	_, err = svc.Index(ctx, products, "produtos.txt")
	require.NoError(t, err)

	rows, _ := factory.products.FindAll(ctx)
	require.Len(t, rows, 2)
	assert.Equal(t, "Arroz Integral Tio João 5kg", rows[0].ProductName)
	assert.Equal(t, "R$ 25,90", rows[0].Price)
	assert.Equal(t, "produtos.txt", rows[0].Metadata["source"])
	assert.Equal(t, 2, factory.commits)
}

func TestIngestIndexFailsBeforeTouchingRows(t *testing.T) {
	factory := &fakeFactory{}
	svc := NewIngestService(factory, fakeEmbedder{failOn: "Bebidas: Suco de Laranja Natural One - R$ 7,50"}, &recordingPublisherService{}, logger.NewNopLogger())

	products, err := svc.LoadFile(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)

	_, err = svc.Index(context.Background(), products, "produtos.txt")
	assert.ErrorContains(t, err, "catalog line 3")
	assert.Empty(t, factory.products.deleted)
	assert.Zero(t, factory.commits)
}

func TestIngestLoadFileRejectsMalformedLine(t *testing.T) {
	svc := NewIngestService(&fakeFactory{}, fakeEmbedder{}, &recordingPublisherService{}, logger.NewNopLogger())

	_, err := svc.LoadFile(writeCatalog(t, "Mercearia: Arroz - R$ 25,90\nlinha sem separador\n"))

	var perr *catalog.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestIngestEnqueuePublishesOneMessagePerProduct(t *testing.T) {
	factory := &fakeFactory{}
	pub := &recordingPublisherService{}
	svc := NewIngestService(factory, fakeEmbedder{}, pub, logger.NewNopLogger())

	products, err := svc.LoadFile(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)

	n, err := svc.Enqueue(context.Background(), products, "produtos.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"produtos.txt"}, factory.products.deleted)

	require.Len(t, pub.payloads, 2)
	var msg dto.IndexProductMessage
	require.NoError(t, json.Unmarshal(pub.payloads[1], &msg))
	assert.Equal(t, "Bebidas", msg.Category)
	assert.Equal(t, 3, msg.Line)
	assert.Equal(t, "produtos.txt", msg.Source)
}
