package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"

	"cvmatch/internal/apperr"
	"cvmatch/internal/config"
	"cvmatch/internal/model"
)

const component = "vectorstore"

// payloadIDField stores a record's original string ID inside the point
// payload, since Qdrant point IDs must be a u64 or a UUID and our IDs are
// "{cv_id}:{section}:{ordinal}" strings.
const payloadIDField = "_original_id"

// metricToDistance maps the configured metric name to a Qdrant distance
// function. Unknown metrics fall back to cosine.
var metricToDistance = map[string]qdrant.Distance{
	"cosine":    qdrant.Distance_Cosine,
	"l2":        qdrant.Distance_Euclid,
	"euclidean": qdrant.Distance_Euclid,
	"dot":       qdrant.Distance_Dot,
	"ip":        qdrant.Distance_Dot,
	"manhattan": qdrant.Distance_Manhattan,
}

// Qdrant is a Store backed by a Qdrant collection over gRPC.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	dimension  int
	log        zerolog.Logger
}

// NewQdrant connects to Qdrant and ensures the configured collection
// exists with the configured dimension and metric. If the collection
// already exists with a different dimension, NewQdrant fails loudly
// rather than silently reindexing, per spec.md §4.3.
func NewQdrant(ctx context.Context, cfg config.QdrantConfig, log zerolog.Logger) (*Qdrant, error) {
	host, port := splitAddr(cfg.Addr)
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamTransient, component, err)
	}

	q := &Qdrant{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		log:        log,
	}
	if err := q.ensureCollection(ctx, cfg); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Qdrant) ensureCollection(ctx context.Context, cfg config.QdrantConfig) error {
	exists, err := q.client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		return apperr.Wrap(apperr.UpstreamTransient, component, err)
	}
	if exists {
		info, err := q.client.GetCollectionInfo(ctx, cfg.Collection)
		if err != nil {
			return apperr.Wrap(apperr.UpstreamTransient, component, err)
		}
		existingSize := extractVectorSize(info)
		if existingSize != 0 && existingSize != uint64(cfg.Dimension) {
			return apperr.New(apperr.Internal, component, fmt.Sprintf(
				"collection %q has dimension %d, configured dimension is %d",
				cfg.Collection, existingSize, cfg.Dimension))
		}
		return nil
	}

	distance, ok := metricToDistance[strings.ToLower(cfg.Metric)]
	if !ok {
		distance = qdrant.Distance_Cosine
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(cfg.Dimension),
			Distance: distance,
		}),
	})
	if err != nil {
		return apperr.Wrap(apperr.UpstreamTransient, component, err)
	}
	q.log.Info().Str("collection", cfg.Collection).Int("dimension", cfg.Dimension).Msg("created vector collection")
	return nil
}

func extractVectorSize(info *qdrant.CollectionInfo) uint64 {
	if info == nil || info.Config == nil || info.Config.Params == nil {
		return 0
	}
	vc := info.Config.Params.VectorsConfig
	if vc == nil {
		return 0
	}
	if params := vc.GetParams(); params != nil {
		return params.Size
	}
	return 0
}

func (q *Qdrant) Dimension() int { return q.dimension }

func (q *Qdrant) Close() error {
	return q.client.Close()
}

// Upsert batches records at MaxBatchSize and writes each batch in turn.
func (q *Qdrant) Upsert(ctx context.Context, records []model.VectorRecord) error {
	for start := 0; start < len(records); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := q.upsertBatch(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (q *Qdrant) upsertBatch(ctx context.Context, records []model.VectorRecord) error {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		pointID, err := pointIDFor(r.ID)
		if err != nil {
			return apperr.Wrap(apperr.Internal, component, err)
		}
		payload := map[string]any{payloadIDField: r.ID}
		for k, v := range r.Metadata {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID,
			Vectors: qdrant.NewVectorsDense(r.Values),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		return apperr.Wrap(apperr.UpstreamTransient, component, err)
	}
	return nil
}

// Query runs a nearest-neighbor search against vector, restricted to
// filter when non-empty.
func (q *Qdrant) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]model.Match, error) {
	req := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(filter) > 0 {
		req.Filter = buildFilter(filter)
	}

	resp, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamTransient, component, err)
	}

	out := make([]model.Match, 0, len(resp))
	for _, hit := range resp {
		id := hit.Id.GetUuid()
		metadata := map[string]string{}
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				if k == payloadIDField {
					continue
				}
				metadata[k] = v.GetStringValue()
			}
			if orig, ok := hit.Payload[payloadIDField]; ok {
				id = orig.GetStringValue()
			}
		}
		out = append(out, model.Match{
			ID:       id,
			Score:    float64(hit.Score),
			Metadata: metadata,
		})
	}
	return out, nil
}

// Delete removes every point whose payload matches filter.
func (q *Qdrant) Delete(ctx context.Context, filter map[string]string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelectorFilter(buildFilter(filter)),
	})
	if err != nil {
		return apperr.Wrap(apperr.UpstreamTransient, component, err)
	}
	return nil
}

func buildFilter(filter map[string]string) *qdrant.Filter {
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		conditions = append(conditions, qdrant.NewMatch(k, v))
	}
	return &qdrant.Filter{Must: conditions}
}

// pointIDFor derives a stable Qdrant point ID from an arbitrary string
// id. If id already parses as a UUID it's used as-is; otherwise a
// SHA-1-based UUID is derived deterministically so re-indexing the same
// chunk always produces the same point.
func pointIDFor(id string) (*qdrant.PointId, error) {
	if parsed, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(parsed.String()), nil
	}
	derived := uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
	return qdrant.NewIDUUID(derived.String()), nil
}

func splitAddr(addr string) (string, int) {
	host, portStr, ok := strings.Cut(addr, ":")
	if !ok {
		return addr, 6334
	}
	port := 6334
	fmt.Sscanf(portStr, "%d", &port)
	return host, port
}
