package state

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/mvcwatch/internal/model"
)

// fakeRedis はRedisCmdableのフェイク実装。
// 1つのキーに対するGET/SETをメモリ上で再現する。
type fakeRedis struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	getHits int
	setHits int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.getHits++
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(val), nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.setHits++
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = v
	case string:
		f.data[key] = []byte(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStore_EmptyKey_TreatedAsEmptyState(t *testing.T) {
	fake := newFakeRedis()
	s := NewRedisStore(fake, "mvcwatch:notified", 12*time.Hour, discardLogger())

	recent, err := s.RecentlyNotified(context.Background(), testKey)
	if err != nil {
		t.Fatalf("RecentlyNotified() error = %v", err)
	}
	if recent {
		t.Error("RecentlyNotified() = true on empty state, want false")
	}

	count, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}
}

func TestRedisStore_RecordThenQuery_RoundTrip(t *testing.T) {
	fake := newFakeRedis()
	s := NewRedisStore(fake, "mvcwatch:notified", 12*time.Hour, discardLogger())

	current := time.Date(2025, 7, 16, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	ctx := context.Background()
	if err := s.RecordNotification(ctx, testKey); err != nil {
		t.Fatalf("RecordNotification() error = %v", err)
	}

	recent, err := s.RecentlyNotified(ctx, testKey)
	if err != nil {
		t.Fatalf("RecentlyNotified() error = %v", err)
	}
	if !recent {
		t.Error("RecentlyNotified() = false immediately after recording, want true")
	}

	// クールダウン経過後
	current = current.Add(12*time.Hour + time.Minute)
	recent, err = s.RecentlyNotified(ctx, testKey)
	if err != nil {
		t.Fatalf("RecentlyNotified() error = %v", err)
	}
	if recent {
		t.Error("RecentlyNotified() = true after cooldown expiry, want false")
	}
}

func TestRedisStore_EveryCallIsFullDocumentRoundTrip(t *testing.T) {
	fake := newFakeRedis()
	s := NewRedisStore(fake, "mvcwatch:notified", 12*time.Hour, discardLogger())
	ctx := context.Background()

	// 書き込みは読み込み→上書きのサイクル
	if err := s.RecordNotification(ctx, testKey); err != nil {
		t.Fatalf("RecordNotification() error = %v", err)
	}
	if fake.getHits != 1 || fake.setHits != 1 {
		t.Errorf("RecordNotification: getHits = %d, setHits = %d, want 1 and 1", fake.getHits, fake.setHits)
	}

	// 参照もドキュメント全体の読み込み
	if _, err := s.RecentlyNotified(ctx, testKey); err != nil {
		t.Fatalf("RecentlyNotified() error = %v", err)
	}
	if fake.getHits != 2 {
		t.Errorf("RecentlyNotified: getHits = %d, want 2", fake.getHits)
	}
}

func TestRedisStore_RecordNotification_PreservesOtherEntries(t *testing.T) {
	fake := newFakeRedis()
	s := NewRedisStore(fake, "mvcwatch:notified", 12*time.Hour, discardLogger())
	ctx := context.Background()

	other := model.IdentityKey{Location: "Bayonne - Real ID", DateText: "07/16/2025", TimeText: "01:55 PM"}
	if err := s.RecordNotification(ctx, testKey); err != nil {
		t.Fatalf("RecordNotification() error = %v", err)
	}
	if err := s.RecordNotification(ctx, other); err != nil {
		t.Fatalf("RecordNotification() error = %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestRedisStore_MalformedDocumentInRedis_TreatedAsEmpty(t *testing.T) {
	fake := newFakeRedis()
	fake.data["mvcwatch:notified"] = []byte("corrupted blob")
	s := NewRedisStore(fake, "mvcwatch:notified", 12*time.Hour, discardLogger())

	recent, err := s.RecentlyNotified(context.Background(), testKey)
	if err != nil {
		t.Fatalf("RecentlyNotified() error = %v (malformed document must not crash)", err)
	}
	if recent {
		t.Error("RecentlyNotified() = true on malformed document, want false")
	}
}

func TestRedisStore_TransportError_SurfacesStateUnavailable(t *testing.T) {
	fake := newFakeRedis()
	fake.getErr = context.DeadlineExceeded
	s := NewRedisStore(fake, "mvcwatch:notified", 12*time.Hour, discardLogger())

	_, err := s.RecentlyNotified(context.Background(), testKey)
	if err == nil {
		t.Fatal("expected error on transport failure, got nil")
	}
}

func TestRedisStore_ImplementsStore(t *testing.T) {
	var _ Store = (*RedisStore)(nil)
}
