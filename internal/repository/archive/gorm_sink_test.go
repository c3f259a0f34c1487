package archive

import (
	"context"
	"testing"

	"marketplace-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func TestPersistRejectsNonUUID(t *testing.T) {
	sink := NewGormSink(nil)

	err := sink.Persist(context.Background(), "not-a-uuid", []store.Turn{{Role: store.RoleUser, Content: "oi"}})
	assert.ErrorContains(t, err, "not-a-uuid")

	err = sink.RecordState(context.Background(), &store.Session{ID: "also-bad"})
	assert.ErrorContains(t, err, "also-bad")
}
