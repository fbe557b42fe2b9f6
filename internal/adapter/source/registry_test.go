package source

import (
	"context"
	"testing"

	"github.com/cwygoda/get/internal/domain"
)

type mockSource struct {
	name    string
	matcher func(string) bool
}

func (m *mockSource) Name() string           { return m.name }
func (m *mockSource) Match(root string) bool { return m.matcher(root) }
func (m *mockSource) List(ctx context.Context, root string) (*domain.Listing, error) {
	return &domain.Listing{}, nil
}
func (m *mockSource) Detail(ctx context.Context, task domain.DiscoveryTask) ([]domain.Leaf, error) {
	return nil, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	s1 := &mockSource{name: "src1", matcher: func(s string) bool { return false }}
	s2 := &mockSource{name: "src2", matcher: func(s string) bool { return false }}

	r.Register(s1)
	r.Register(s2)

	sources := r.Sources()
	if len(sources) != 2 {
		t.Errorf("Sources() len = %d, want 2", len(sources))
	}
}

func TestRegistry_Match(t *testing.T) {
	r := NewRegistry()

	mangadex := &mockSource{
		name:    "mangadex",
		matcher: func(s string) bool { return s == "https://mangadex.org/title/1/" },
	}
	generic := &mockSource{
		name:    "generic",
		matcher: func(s string) bool { return true },
	}

	r.Register(mangadex)
	r.Register(generic)

	tests := []struct {
		root     string
		wantName string
	}{
		{"https://mangadex.org/title/1/", "mangadex"},
		{"https://other.com/series", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			s := r.Match(tt.root)
			if s == nil {
				t.Fatal("Match() returned nil")
			}
			if s.Name() != tt.wantName {
				t.Errorf("Match() name = %q, want %q", s.Name(), tt.wantName)
			}
		})
	}
}

func TestRegistry_Match_NoMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockSource{
		name:    "specific",
		matcher: func(s string) bool { return s == "specific-root" },
	})

	if s := r.Match("other-root"); s != nil {
		t.Errorf("Match() = %v, want nil", s)
	}
}

func TestRegistry_Empty(t *testing.T) {
	r := NewRegistry()

	if n := len(r.Sources()); n != 0 {
		t.Errorf("Sources() len = %d, want 0", n)
	}
	if s := r.Match("any-root"); s != nil {
		t.Errorf("Match() = %v, want nil", s)
	}
}
