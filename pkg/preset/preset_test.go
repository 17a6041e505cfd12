package preset

import (
	"errors"
	"testing"
)

func TestCatalogIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range All() {
		if p.ID == "" || p.Name == "" || p.StylePrompt == "" || p.Tone == "" {
			t.Fatalf("incomplete preset: %+v", p)
		}
		if seen[p.ID] {
			t.Fatalf("duplicate preset id %q", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id      string
		want    string
		wantErr error
	}{
		{"", Default().ID, nil},
		{"petty-pop", "petty-pop", nil},
		{"sea-shanty", "sea-shanty", nil},
		{"nope", "", ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := Get(tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Get(%q) err = %v; want %v", tt.id, err, tt.wantErr)
			}
			if got.ID != tt.want {
				t.Fatalf("Get(%q) = %v; want %v", tt.id, got.ID, tt.want)
			}
		})
	}
}

func TestAllReturnsCopy(t *testing.T) {
	ps := All()
	ps[0].Name = "changed"
	if Default().Name == "changed" {
		t.Fatal("All() exposed the internal catalog")
	}
}
