package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
)

type fakeCache struct {
	mu     sync.Mutex
	tables []string
	fail   bool
}

func (f *fakeCache) InvalidateTable(_ context.Context, table string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables = append(f.tables, table)
	if f.fail {
		f.fail = false
		return 0, errors.New("boom")
	}
	return 2, nil
}

type fakeRefresher struct {
	tables []string
}

func (f *fakeRefresher) RefreshTable(_ context.Context, table string) int {
	f.tables = append(f.tables, table)
	return 1
}

type sess struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return nil }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Errors() <-chan error                             { return nil }
func (s *sess) Commit()                                          {}

type claim struct {
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "table-changes" }
func (c *claim) Partition() int32                         { return 0 }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func eventBytes(table string) []byte {
	b, _ := json.Marshal(Event{Version: 1, Op: "update", Table: table, TS: time.Now().UTC()})
	return b
}

func TestProcessOne_InvalidatesAndRefreshes(t *testing.T) {
	fc := &fakeCache{}
	fr := &fakeRefresher{}
	c := New(DefaultConfig("x"), fc, fr, nil)

	msg := &sarama.ConsumerMessage{Topic: "table-changes", Offset: 1, Value: eventBytes("shared.projections")}
	if err := c.ProcessOne(context.Background(), msg); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if len(fc.tables) != 1 || fc.tables[0] != "shared.projections" {
		t.Fatalf("invalidated=%v", fc.tables)
	}
	if len(fr.tables) != 1 || fr.tables[0] != "shared.projections" {
		t.Fatalf("refreshed=%v", fr.tables)
	}
}

func TestProcessOne_SkipsMalformed(t *testing.T) {
	fc := &fakeCache{}
	c := New(DefaultConfig("x"), fc, nil, nil)

	bad := []*sarama.ConsumerMessage{
		{Value: []byte("{")},
		{Value: []byte(`{"version":2,"op":"update","table":"t","ts":"2024-01-01T00:00:00Z"}`)},
		{Value: []byte(`{"version":1,"op":"rename","table":"t","ts":"2024-01-01T00:00:00Z"}`)},
		{Value: []byte(`{"version":1,"op":"update","table":" ","ts":"2024-01-01T00:00:00Z"}`)},
		{Value: []byte(`{"version":1,"op":"update","table":"t"}`)},
	}
	for i, m := range bad {
		if err := c.ProcessOne(context.Background(), m); err != nil {
			t.Fatalf("message %d: err=%v want skip", i, err)
		}
	}
	if len(fc.tables) != 0 {
		t.Fatalf("malformed events invalidated %v", fc.tables)
	}
}

func TestConsumeClaim_MarksAfterWorkAndStopsOnFailure(t *testing.T) {
	fc := &fakeCache{}
	c := New(DefaultConfig("x"), fc, nil, nil)
	g := &groupHandler{process: c.ProcessOne}

	s := &sess{ctx: context.Background()}
	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- &sarama.ConsumerMessage{Offset: 10, Value: eventBytes("a")}
	ch <- &sarama.ConsumerMessage{Offset: 11, Value: eventBytes("b")}
	close(ch)

	if err := g.ConsumeClaim(s, &claim{msgs: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 2 || s.marked[0] != 10 || s.marked[1] != 11 {
		t.Fatalf("marked=%v want [10 11]", s.marked)
	}

	fc.fail = true
	s2 := &sess{ctx: context.Background()}
	ch2 := make(chan *sarama.ConsumerMessage, 1)
	ch2 <- &sarama.ConsumerMessage{Offset: 12, Value: eventBytes("c")}
	close(ch2)
	if err := g.ConsumeClaim(s2, &claim{msgs: ch2}); err == nil {
		t.Fatalf("expected failure to surface")
	}
	if len(s2.marked) != 0 {
		t.Fatalf("failed message was marked: %v", s2.marked)
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("SplitCSV=%v", got)
	}
}

func TestStart_RequiresCacheAndBrokers(t *testing.T) {
	if err := New(DefaultConfig("x"), nil, nil, nil).Start(context.Background()); err == nil {
		t.Fatalf("expected missing cache error")
	}
	if err := New(DefaultConfig(""), &fakeCache{}, nil, nil).Start(context.Background()); err == nil {
		t.Fatalf("expected missing brokers error")
	}
}
