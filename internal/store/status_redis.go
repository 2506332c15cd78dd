package store

import (
    "context"
    "encoding/json"
    "fmt"
    "strconv"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// Run states.
const (
    StateRunning     = "running"
    StateCompleted   = "completed"
    StateFailed      = "failed"
    StateInterrupted = "interrupted"
)

// statusTTL keeps finished runs inspectable for a week.
const statusTTL = 7 * 24 * time.Hour

type Status struct {
    Status    string                 `json:"status"`
    Processed int                    `json:"processed"`
    Total     int                    `json:"total"`
    Documents int                    `json:"documents"`
    Message   string                 `json:"message"`
    Start     *time.Time             `json:"start_time,omitempty"`
    End       *time.Time             `json:"end_time,omitempty"`
    Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type RedisStatus struct {
    client *redis.Client
    keyNS  string
}

func NewRedisStatus(ctx context.Context, redisURL string) (*RedisStatus, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, fmt.Errorf("parse redis url: %w", err) }
    c := redis.NewClient(opt)
    if err := c.Ping(ctx).Err(); err != nil {
        _ = c.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return newRedisStatus(c), nil
}

func newRedisStatus(c *redis.Client) *RedisStatus { return &RedisStatus{client: c, keyNS: "archivepdf:run"} }

func (s *RedisStatus) key(runID string) string { return fmt.Sprintf("%s:%s:status", s.keyNS, runID) }

// fields flattens st into the hash layout.
func fields(st Status) map[string]interface{} {
    m := map[string]interface{}{
        "status":    st.Status,
        "processed": st.Processed,
        "total":     st.Total,
        "documents": st.Documents,
        "message":   st.Message,
    }
    if st.Start != nil { m["start"] = st.Start.Format(time.RFC3339Nano) }
    if st.End != nil { m["end"] = st.End.Format(time.RFC3339Nano) }
    if st.Metadata != nil {
        b, _ := json.Marshal(st.Metadata)
        m["metadata"] = string(b)
    }
    return m
}

// parse is the inverse of fields. Unparsable numbers read as 0.
func parse(res map[string]string) Status {
    st := Status{Status: res["status"], Message: res["message"]}
    st.Processed, _ = strconv.Atoi(res["processed"])
    st.Total, _ = strconv.Atoi(res["total"])
    st.Documents, _ = strconv.Atoi(res["documents"])
    if v := res["start"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { st.Start = &t }
    }
    if v := res["end"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { st.End = &t }
    }
    if v := res["metadata"]; v != "" {
        _ = json.Unmarshal([]byte(v), &st.Metadata)
    }
    return st
}

func (s *RedisStatus) Set(ctx context.Context, runID string, st Status) error {
    key := s.key(runID)
    pipe := s.client.TxPipeline()
    pipe.HSet(ctx, key, fields(st))
    pipe.Expire(ctx, key, statusTTL)
    _, err := pipe.Exec(ctx)
    return err
}

func (s *RedisStatus) Get(ctx context.Context, runID string) (Status, bool, error) {
    res, err := s.client.HGetAll(ctx, s.key(runID)).Result()
    if err != nil { return Status{}, false, err }
    if len(res) == 0 { return Status{}, false, nil }
    return parse(res), true, nil
}

func (s *RedisStatus) Close() error { return s.client.Close() }
