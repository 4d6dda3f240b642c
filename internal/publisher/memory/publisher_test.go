package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsByTopic(t *testing.T) {
	t.Parallel()

	pub := New()
	ctx := context.Background()

	id, err := pub.Publish(ctx, "documents", map[string]string{"origin_id": "kh/2013/03061800"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)
	_, err = pub.Publish(ctx, "other", "x")
	require.NoError(t, err)

	assert.Len(t, pub.Messages(""), 2)
	docs := pub.Messages("documents")
	require.Len(t, docs, 1)
	assert.Equal(t, "memory-1", docs[0].ID)

	docs[0].Topic = "modified"
	assert.Equal(t, "documents", pub.Messages("documents")[0].Topic)
}

func TestPublisherFailWith(t *testing.T) {
	t.Parallel()

	pub := New()
	boom := errors.New("boom")
	pub.FailWith(boom)
	_, err := pub.Publish(context.Background(), "documents", nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, pub.Messages(""))

	pub.FailWith(nil)
	_, err = pub.Publish(context.Background(), "documents", nil)
	assert.NoError(t, err)
}
