package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointIDFor_DeterministicAcrossCalls(t *testing.T) {
	a, err := pointIDFor("cv-1:experience:0")
	require.NoError(t, err)
	b, err := pointIDFor("cv-1:experience:0")
	require.NoError(t, err)
	assert.Equal(t, a.GetUuid(), b.GetUuid())
}

func TestPointIDFor_DifferentIDsDifferentUUIDs(t *testing.T) {
	a, err := pointIDFor("cv-1:experience:0")
	require.NoError(t, err)
	b, err := pointIDFor("cv-1:experience:1")
	require.NoError(t, err)
	assert.NotEqual(t, a.GetUuid(), b.GetUuid())
}

func TestPointIDFor_AlreadyUUIDPassesThrough(t *testing.T) {
	id := "123e4567-e89b-12d3-a456-426614174000"
	p, err := pointIDFor(id)
	require.NoError(t, err)
	assert.Equal(t, id, p.GetUuid())
}

func TestBuildFilter_OneConditionPerKey(t *testing.T) {
	f := buildFilter(map[string]string{"cv_id": "cv-1", "section": "experience"})
	assert.Len(t, f.Must, 2)
}

func TestSplitAddr(t *testing.T) {
	host, port := splitAddr("localhost:6334")
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6334, port)

	host, port = splitAddr("qdrant-host")
	assert.Equal(t, "qdrant-host", host)
	assert.Equal(t, 6334, port)
}
