package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/channelpartner/position-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const batchSize = 50

// DBHandler is an slog.Handler that batches ERROR+ records into system_logs.
type DBHandler struct {
	db     *gorm.DB
	sink   *sink
	attrs  []slog.Attr
	ticker *time.Ticker
	done   chan struct{}
	once   *sync.Once
}

// sink is the buffer shared by a handler and its WithAttrs children.
type sink struct {
	mu     sync.Mutex
	buffer []models.SystemLog
}

func NewDBHandler(db *gorm.DB) *DBHandler {
	return newDBHandler(db, 5*time.Second)
}

func newDBHandler(db *gorm.DB, every time.Duration) *DBHandler {
	h := &DBHandler{
		db:     db,
		sink:   &sink{buffer: make([]models.SystemLog, 0, batchSize)},
		ticker: time.NewTicker(every),
		done:   make(chan struct{}),
		once:   &sync.Once{},
	}
	go h.flushLoop()
	return h
}

func (h *DBHandler) flushLoop() {
	for {
		select {
		case <-h.ticker.C:
			h.Flush()
		case <-h.done:
			h.Flush()
			return
		}
	}
}

// Flush writes the buffered records synchronously.
func (h *DBHandler) Flush() {
	h.sink.mu.Lock()
	if len(h.sink.buffer) == 0 {
		h.sink.mu.Unlock()
		return
	}
	batch := h.sink.buffer
	h.sink.buffer = make([]models.SystemLog, 0, batchSize)
	h.sink.mu.Unlock()

	if err := h.db.CreateInBatches(batch, batchSize).Error; err != nil {
		// Logging through slog here would recurse into this handler.
		slog.New(slog.NewJSONHandler(stdout, nil)).Warn("failed to flush system logs", "error", err, "count", len(batch))
	}
}

// Stop flushes pending records and ends the background loop. Safe to call twice.
func (h *DBHandler) Stop() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}

// Enabled only handles ERROR and above.
func (h *DBHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *DBHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	extra := make(map[string]interface{})
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "request_id":
			entry.RequestID = a.Value.String()
		case "user_id":
			s := a.Value.String()
			entry.UserID = &s
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		case "latency_ms":
			switch v := a.Value.Any().(type) {
			case float64:
				entry.LatencyMs = int(math.Round(v))
			case int64:
				entry.LatencyMs = int(v)
			}
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.sink.mu.Lock()
	h.sink.buffer = append(h.sink.buffer, entry)
	needFlush := len(h.sink.buffer) >= batchSize
	h.sink.mu.Unlock()

	if needFlush {
		go h.Flush()
	}
	return nil
}

// WithAttrs shares the buffer with the parent so Stop drains both.
func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *DBHandler) WithGroup(string) slog.Handler {
	return h
}
