package reconciler

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"payanchor/internal/ledger"

	"github.com/gorilla/websocket"
)

// Stream is the event-stream transport client. The stream delivers JSON
// arrays of events and requires an explicit per-batch ack; un-acked
// batches are redelivered after reconnect.
type Stream struct {
	Endpoint string
	Topic    string
	Conn     *websocket.Conn
}

func NewStream(endpoint, topic string) *Stream {
	return &Stream{Endpoint: endpoint, Topic: topic}
}

func (s *Stream) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, s.Endpoint, nil)
	if err != nil {
		return err
	}
	s.Conn = conn
	return nil
}

func (s *Stream) Close() {
	if s.Conn != nil {
		_ = s.Conn.Close()
	}
}

func (s *Stream) Listen() error {
	return s.Conn.WriteJSON(map[string]string{
		"type":  "listen",
		"topic": s.Topic,
	})
}

func (s *Stream) ReadBatch() ([]ledger.RawEvent, error) {
	_, msg, err := s.Conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var batch []ledger.RawEvent
	if err := json.Unmarshal(msg, &batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *Stream) Ack() error {
	return s.Conn.WriteJSON(map[string]string{
		"type":  "ack",
		"topic": s.Topic,
	})
}

// Run consumes the stream until the context is cancelled: read batch,
// reconcile, ack. The ack is only sent after HandleBatch returns, so a
// crash mid-batch redelivers the whole batch; the idempotent confirm path
// absorbs the duplicates.
func (r *Reconciler) Run(ctx context.Context, endpoint, topic string) {
	endpoint = NormalizeWSEndpoint(endpoint)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		stream := NewStream(endpoint, topic)
		if err := stream.Connect(ctx); err != nil {
			log.Printf("stream connect failed: %v", err)
			time.Sleep(3 * time.Second)
			continue
		}
		log.Printf("stream connected %s topic=%s", endpoint, topic)

		if err := stream.Listen(); err != nil {
			log.Printf("stream listen failed: %v", err)
			stream.Close()
			time.Sleep(3 * time.Second)
			continue
		}

		for {
			batch, err := stream.ReadBatch()
			if err != nil {
				log.Printf("stream read failed: %v", err)
				stream.Close()
				break
			}
			if len(batch) == 0 {
				continue
			}
			if err := r.HandleBatch(ctx, batch); err != nil {
				// Cancelled mid-batch: leave it un-acked for redelivery.
				log.Printf("batch abandoned: %v", err)
				stream.Close()
				return
			}
			if err := stream.Ack(); err != nil {
				log.Printf("stream ack failed: %v", err)
				stream.Close()
				break
			}
		}

		time.Sleep(2 * time.Second)
	}
}

// NormalizeWSEndpoint maps http(s) URLs onto their ws(s) form.
func NormalizeWSEndpoint(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "ws://"), strings.HasPrefix(endpoint, "wss://"):
		return endpoint
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}
