package stream

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func snapshot(id string) *models.PrioritySnapshot {
	return &models.PrioritySnapshot{ID: id, DisasterID: "usgs_1", Strategy: "weighted"}
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_subscribers"})
	b := NewBroadcaster(0, gauge)

	id, ch := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", b.SubscriberCount())
	}
	if got := testutil.ToFloat64(gauge); got != 1 {
		t.Errorf("expected gauge 1, got %v", got)
	}

	b.Unsubscribe(id)
	b.Unsubscribe(id)
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
	if got := testutil.ToFloat64(gauge); got != 0 {
		t.Errorf("expected gauge 0, got %v", got)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed")
		}
	default:
		t.Error("channel should be closed and readable")
	}
}

func TestBroadcaster_Broadcast(t *testing.T) {
	b := NewBroadcaster(0, nil)

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	if n := b.Broadcast(snapshot("snap_1")); n != 1 {
		t.Errorf("expected delivery to 1 subscriber, got %d", n)
	}

	select {
	case received := <-ch:
		if received.ID != "snap_1" {
			t.Errorf("expected ID snap_1, got %s", received.ID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for broadcast")
	}
}

func TestBroadcaster_ConcurrentSubscribeBroadcast(t *testing.T) {
	b := NewBroadcaster(0, nil)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, ch := b.Subscribe()
			drained := make(chan struct{})
			go func() {
				defer close(drained)
				for range ch {
				}
			}()
			time.Sleep(5 * time.Millisecond)
			b.Unsubscribe(id)
			<-drained
		}()
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Broadcast(snapshot(fmt.Sprintf("snap_%d", n)))
		}(i)
	}

	wg.Wait()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster(0, nil)

	var channels []<-chan *models.PrioritySnapshot
	for i := 0; i < 5; i++ {
		_, ch := b.Subscribe()
		channels = append(channels, ch)
	}

	b.Close()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", b.SubscriberCount())
	}

	for i, ch := range channels {
		select {
		case _, ok := <-ch:
			if ok {
				t.Errorf("channel %d should be closed", i)
			}
		default:
			t.Errorf("channel %d should be closed and readable", i)
		}
	}

	// late subscribers get a closed channel instead of hanging
	_, late := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("expected subscription after close to be closed")
	}
	if b.Broadcast(snapshot("after_close")) != 0 {
		t.Error("expected no deliveries after close")
	}
}

func TestBroadcaster_SlowSubscriber(t *testing.T) {
	b := NewBroadcaster(10, nil)

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	for i := 0; i < 11; i++ {
		b.Broadcast(snapshot(fmt.Sprintf("snap_%d", i)))
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
			continue
		default:
		}
		break
	}

	if count != 10 {
		t.Errorf("expected 10 buffered snapshots, got %d", count)
	}
	if b.Dropped() != 1 {
		t.Errorf("expected 1 dropped snapshot, got %d", b.Dropped())
	}
}
