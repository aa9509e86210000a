package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusinessResolver_Resolve(t *testing.T) {
	r := NewBusinessResolver(DefaultAliases, DefaultBusinesses)

	tests := []struct {
		name      string
		input     string
		want      string
		wantMatch Match
	}{
		{"exact alias", "la glorieta express", "La Glorieta Express", MatchExact},
		{"exact ignoring case", "SALOMÉ HELADERÍA", "Salomé Heladería", MatchExact},
		{"exact with spaces", "  Glorieta  ", "La Glorieta", MatchExact},
		{"longest contained alias wins", "LA GLORIETA EXPRESS SEDE NORTE", "La Glorieta Express", MatchPartial},
		{"short contained alias", "Glorieta Centro", "La Glorieta", MatchPartial},
		{"name contained in alias, shortest alias wins", "salome", "Salomé Heladería", MatchPartial},
		{"unknown name kept", "  Panadería Central ", "Panadería Central", MatchNone},
		{"empty", "   ", "", MatchNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, match := r.Resolve(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMatch, match)
		})
	}
}

func TestBusinessResolver_Canonical(t *testing.T) {
	r := NewBusinessResolver(map[string]string{"norte": "Punto Norte"}, []string{"Punto Norte", "Punto Sur"})

	got, match := r.Resolve("PUNTO SUR")
	assert.Equal(t, "Punto Sur", got)
	assert.Equal(t, MatchCanonical, match)

	got, match = r.Resolve("Norte")
	assert.Equal(t, "Punto Norte", got)
	assert.Equal(t, MatchExact, match)
}

func TestBusinessResolver_DuplicateAliases(t *testing.T) {
	r := NewBusinessResolver(map[string]string{"": "Nada", "centro": "Centro"}, nil)

	got, match := r.Resolve("Centro")
	assert.Equal(t, "Centro", got)
	assert.Equal(t, MatchExact, match)
	assert.Len(t, r.ordered, 1)
}
