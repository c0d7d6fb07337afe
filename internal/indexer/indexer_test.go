package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvmatch/internal/apperr"
	"cvmatch/internal/model"
	"cvmatch/internal/obslog"
)

type fakeDocs struct {
	doc model.StructuredResumé
	err error
}

func (f fakeDocs) GetStructuredResumé(context.Context, string) (model.StructuredResumé, error) {
	return f.doc, f.err
}

type fakeEmbedder struct {
	dim int
	err error
}

func (f fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}
func (f fakeEmbedder) Name() string   { return "fake" }
func (f fakeEmbedder) Dimension() int { return f.dim }

type fakeStore struct {
	upserted []model.VectorRecord
	err      error
}

func (f *fakeStore) Upsert(_ context.Context, records []model.VectorRecord) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, records...)
	return nil
}
func (f *fakeStore) Query(context.Context, []float32, int, map[string]string) ([]model.Match, error) {
	return nil, nil
}
func (f *fakeStore) Delete(context.Context, map[string]string) error { return nil }
func (f *fakeStore) Dimension() int                                  { return 4 }
func (f *fakeStore) Close() error                                    { return nil }

func TestRecordID_StableForSameInput(t *testing.T) {
	assert.Equal(t, recordID("cv-1", "experience", 0), recordID("cv-1", "experience", 0))
	assert.NotEqual(t, recordID("cv-1", "experience", 0), recordID("cv-1", "experience", 1))
}

func TestRecordMetadata_TruncatesLongFields(t *testing.T) {
	long := make([]byte, maxTextMetadataLen+50)
	for i := range long {
		long[i] = 'x'
	}
	c := model.Chunk{CvID: "cv-1", Section: "summary", Text: string(long)}
	md := recordMetadata(c)
	assert.Len(t, md["text"], maxTextMetadataLen)
}

func TestClassify_NotFoundDoesNotRequeue(t *testing.T) {
	idx := &Indexer{log: obslog.New("test"), metrics: noopMetrics{}}
	requeue := idx.classify(idx.log, "fetch", apperr.New(apperr.NotFound, "docstore", "missing"))
	assert.False(t, requeue)
}

func TestClassify_TransientRequeues(t *testing.T) {
	idx := &Indexer{log: obslog.New("test"), metrics: noopMetrics{}}
	requeue := idx.classify(idx.log, "fetch", apperr.New(apperr.UpstreamTransient, "docstore", "timeout"))
	assert.True(t, requeue)
}

func TestClassify_ResourceExhaustedDoesNotRequeue(t *testing.T) {
	idx := &Indexer{log: obslog.New("test"), metrics: noopMetrics{}}
	requeue := idx.classify(idx.log, "embed", apperr.New(apperr.ResourceExhausted, "embedding", "oom"))
	assert.False(t, requeue)
}

func TestClassify_UnknownErrorRequeues(t *testing.T) {
	idx := &Indexer{log: obslog.New("test"), metrics: noopMetrics{}}
	requeue := idx.classify(idx.log, "upsert", errors.New("boom"))
	assert.True(t, requeue)
}

func TestHandle_EndToEndSuccess(t *testing.T) {
	doc := model.StructuredResumé{
		CvID: "cv-1",
		Sections: model.Sections{
			Summary: model.Summary{Text: "a great summary"},
		},
	}
	store := &fakeStore{}
	idx := &Indexer{
		docs:     fakeDocs{doc: doc},
		embedder: fakeEmbedder{dim: 4},
		store:    store,
		log:      obslog.New("test"),
		metrics:  noopMetrics{},
	}
	requeue := idx.handle(t.Context(), idx.log, fakeMessage(`{"cv_id":"cv-1"}`))
	require.False(t, requeue)
	assert.Len(t, store.upserted, 1)
}

func TestHandle_MalformedPayloadDoesNotRequeue(t *testing.T) {
	idx := &Indexer{log: obslog.New("test"), metrics: noopMetrics{}}
	requeue := idx.handle(t.Context(), idx.log, fakeMessage(`not json`))
	assert.False(t, requeue)
}

func TestHandle_BlankCvIDDoesNotRequeue(t *testing.T) {
	idx := &Indexer{log: obslog.New("test"), metrics: noopMetrics{}}
	requeue := idx.handle(t.Context(), idx.log, fakeMessage(`{"cv_id":""}`))
	assert.False(t, requeue)
}

func TestHandle_FetchTransientRequeues(t *testing.T) {
	idx := &Indexer{
		docs:    fakeDocs{err: apperr.New(apperr.UpstreamTransient, "docstore", "timeout")},
		log:     obslog.New("test"),
		metrics: noopMetrics{},
	}
	requeue := idx.handle(t.Context(), idx.log, fakeMessage(`{"cv_id":"cv-1"}`))
	assert.True(t, requeue)
}

func TestHandle_ZeroChunksDoesNotRequeue(t *testing.T) {
	idx := &Indexer{
		docs:    fakeDocs{doc: model.StructuredResumé{CvID: "cv-1"}},
		log:     obslog.New("test"),
		metrics: noopMetrics{},
	}
	requeue := idx.handle(t.Context(), idx.log, fakeMessage(`{"cv_id":"cv-1"}`))
	assert.False(t, requeue)
}

type noopMetrics struct{}

func (noopMetrics) IncCounter(string, map[string]string)            {}
func (noopMetrics) ObserveHistogram(string, float64, map[string]string) {}

func fakeMessage(value string) kafka.Message {
	return kafka.Message{Value: []byte(value)}
}
