package pipeline

import (
	"context"

	"github.com/local/archivepdf/internal/store"
)

type redisStatusAdapter struct{ s *store.RedisStatus }

func NewStatusAdapter(s *store.RedisStatus) StatusStore { return &redisStatusAdapter{s: s} }

func (a *redisStatusAdapter) Set(ctx context.Context, runID string, st Status) error {
	return a.s.Set(ctx, runID, store.Status{
		Status:    st.Status,
		Processed: st.Processed,
		Total:     st.Total,
		Documents: st.Documents,
		Message:   st.Message,
		Start:     st.Start,
		End:       st.End,
		Metadata:  st.Metadata,
	})
}
