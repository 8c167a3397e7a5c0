package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"orderetl/internal/config"
	"orderetl/internal/diag"
	"orderetl/pkg/records"
)

// messageWriter is the subset of *kafka.Writer used by Kafka.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// newKafkaWriter is a test hook.
var newKafkaWriter = func(brokers []string, topic string) messageWriter {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		// Hash keeps every message of one order_id on one partition.
		Balancer: &kafka.Hash{},
	}
}

func init() {
	Register("kafka", func(_ context.Context, out config.Output, opt Options) (Sink, error) {
		return NewKafka(out.Kafka, opt)
	})
}

// Kafka publishes one JSON object per record, keyed by order_id.
type Kafka struct {
	topic     string
	w         messageWriter
	batchSize int
	log       *diag.Logger
}

// NewKafka returns a Kafka sink for cfg.
func NewKafka(cfg config.KafkaConfig, opt Options) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka output needs at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka output needs a topic")
	}
	return &Kafka{
		topic:     cfg.Topic,
		w:         newKafkaWriter(cfg.Brokers, cfg.Topic),
		batchSize: opt.batchSize(),
		log:       opt.Log,
	}, nil
}

func (s *Kafka) String() string { return "kafka:" + s.topic }

// Save implements Sink.
func (s *Kafka) Save(ctx context.Context, ds records.Dataset) (int64, error) {
	var written int64
	msgs := make([]kafka.Message, 0, min(s.batchSize, len(ds.Records)))
	flush := func() error {
		if len(msgs) == 0 {
			return nil
		}
		if err := s.w.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish to %s: %w", s.topic, err)
		}
		written += int64(len(msgs))
		msgs = msgs[:0]
		return nil
	}

	for _, r := range ds.Records {
		val, err := encodeRecord(ds.Columns, r)
		if err != nil {
			return written, err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.Value(records.OrderID)),
			Value: val,
		})
		if len(msgs) >= s.batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	s.log.Infof("Published %d records to topic %s", written, s.topic)
	return written, nil
}

// Close flushes pending writes and closes the writer.
func (s *Kafka) Close() error { return s.w.Close() }

// encodeRecord renders r as a JSON object with keys in column order.
func encodeRecord(columns []string, r records.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Value(c))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
