package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"ezan-player-backend/internal/model"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// mockStore stubs the subset of store.Store the worker pool touches.
type mockStore struct {
	mu      sync.Mutex
	subs    []model.PushSubscription
	deleted []string
}

func (m *mockStore) DB() *gorm.DB { return nil }

func (m *mockStore) Settings(ctx context.Context) (model.Settings, error) {
	return model.Settings{}, nil
}
func (m *mockStore) SetMode(ctx context.Context, mode string) error          { return nil }
func (m *mockStore) SetDefaultVolume(ctx context.Context, volume int) error { return nil }
func (m *mockStore) SetRestore(ctx context.Context, restore bool, delaySeconds int) error {
	return nil
}
func (m *mockStore) EventVolumes(ctx context.Context) (map[string]int, error) { return nil, nil }
func (m *mockStore) SetEventVolume(ctx context.Context, event string, volume int) error {
	return nil
}
func (m *mockStore) RecordFiring(ctx context.Context, firing model.Firing) error { return nil }
func (m *mockStore) RecentFirings(ctx context.Context, limit int) ([]model.Firing, error) {
	return nil, nil
}

func (m *mockStore) Subscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PushSubscription(nil), m.subs...), nil
}

func (m *mockStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, endpoint)
	return nil
}

func (m *mockStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, &mockStore{}, &webpush.Options{})

	wp.Dispatch("fajr")

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "fajr", job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_SendsNotificationToEverySubscription(t *testing.T) {
	st := &mockStore{
		subs: []model.PushSubscription{
			{Endpoint: "https://example.com/push/a", P256DH: "p1", Auth: "a1"},
			{Endpoint: "https://example.com/push/b", P256DH: "p2", Auth: "a2"},
		},
	}
	wp := NewWorkerPool(1, st, &webpush.Options{})

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	var endpoints []string

	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			assert.Equal(t, "It is time for the Maghrib prayer.", string(payload))
			mu.Lock()
			endpoints = append(endpoints, sub.Endpoint)
			mu.Unlock()
			wg.Done()
			return &http.Response{
				StatusCode: http.StatusCreated,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch("maghrib")
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"https://example.com/push/a", "https://example.com/push/b"}, endpoints)
	assert.Empty(t, st.Deleted())
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	st := &mockStore{
		subs: []model.PushSubscription{
			{Endpoint: "https://example.com/expired", P256DH: "p", Auth: "a"},
		},
	}
	wp := NewWorkerPool(1, st, &webpush.Options{})

	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusGone,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch("isha")

	assert.Eventually(t, func() bool {
		deleted := st.Deleted()
		return len(deleted) == 1 && deleted[0] == "https://example.com/expired"
	}, time.Second, 10*time.Millisecond)
}
