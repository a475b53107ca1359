package events

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PersistentBus decorates a Publisher with a best-effort JSONL log of every
// published event. The log is written before dispatch so a crashed handler
// still leaves a record, but it is not transactional with the database
// commit: losing an event between commit and log is possible and accepted.
type PersistentBus struct {
	inner  Publisher
	logger *slog.Logger

	mu   sync.Mutex
	path string
}

// LoggedEvent is one line of the persistent log.
type LoggedEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// NewPersistentBus wraps inner so every event is appended to the JSONL file
// at path before dispatch.
func NewPersistentBus(inner Publisher, path string, logger *slog.Logger) (*PersistentBus, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &PersistentBus{inner: inner, logger: logger, path: path}, nil
}

func (p *PersistentBus) Publish(ctx context.Context, evt Event) {
	p.log(ctx, evt)
	p.inner.Publish(ctx, evt)
}

func (p *PersistentBus) PublishAsync(ctx context.Context, evt Event) {
	p.log(ctx, evt)
	p.inner.PublishAsync(ctx, evt)
}

func (p *PersistentBus) log(ctx context.Context, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.logger.ErrorContext(ctx, "could not serialize event", "event", evt.EventName(), "error", err)
		return
	}
	line, err := json.Marshal(LoggedEvent{
		Timestamp: time.Now().UTC(),
		EventType: evt.EventName(),
		Data:      data,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "could not serialize event record", "event", evt.EventName(), "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		p.logger.ErrorContext(ctx, "could not open event log", "path", p.path, "error", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		p.logger.ErrorContext(ctx, "could not persist event", "event", evt.EventName(), "error", err)
	}
}

// Replay reads persisted events back from the log, optionally filtered by
// event type. Malformed lines are skipped.
func (p *PersistentBus) Replay(eventType string) ([]LoggedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := os.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []LoggedEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec LoggedEvent
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if eventType == "" || rec.EventType == eventType {
			out = append(out, rec)
		}
	}
	return out, scanner.Err()
}
