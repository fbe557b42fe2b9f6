package destination

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwygoda/get/internal/domain"
)

// mockDest implements domain.Destination for testing.
type mockDest struct {
	mu         sync.Mutex
	objects    map[string][]byte
	containers map[string]int
	ensureErr  error
}

func newMockDest() *mockDest {
	return &mockDest{objects: make(map[string][]byte), containers: make(map[string]int)}
}

func (m *mockDest) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects[key]) > 0, nil
}

func (m *mockDest) EnsureContainer(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ensureErr != nil {
		return m.ensureErr
	}
	m.containers[prefix]++
	return nil
}

func (m *mockDest) Write(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func TestResolver_Resolve(t *testing.T) {
	dest := newMockDest()
	r := NewResolver(dest)
	ctx := context.Background()
	dc := domain.DestinationContext{Collection: "Teppu", Item: "12"}

	rec, complete, err := r.Resolve(ctx, dc, "01.png")
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Equal(t, "Teppu/12/01.png", rec.Key)
	assert.Equal(t, Key(dc, "01.png"), rec.Key)

	require.NoError(t, r.Write(ctx, rec, []byte("png")))

	rec2, complete, err := r.Resolve(ctx, dc, "01.png")
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, rec, rec2)

	assert.Equal(t, 1, dest.containers["Teppu/12"], "container ensured once")
}

func TestResolver_SanitizesSegments(t *testing.T) {
	r := NewResolver(newMockDest())
	rec, _, err := r.Resolve(context.Background(),
		domain.DestinationContext{Collection: "A/B: C", Item: ".."}, "../x?.png")
	require.NoError(t, err)
	assert.Equal(t, "A-B- C/_/-x.png", rec.Key)
}

func TestResolver_ContainerFailure(t *testing.T) {
	dest := newMockDest()
	dest.ensureErr = errors.New("permission denied")

	_, _, err := NewResolver(dest).Resolve(context.Background(),
		domain.DestinationContext{Collection: "t", Item: "1"}, "01.png")
	assert.EqualError(t, err, "permission denied")
}
