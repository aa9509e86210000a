package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmenter_Split(t *testing.T) {
	s := NewSegmenter(DefaultPatterns())
	text := "charla previa\n" + closingMessage + declaredMessage + openingMessage

	blocks := s.Split(text)

	require.Len(t, blocks, 3)
	assert.Equal(t, BlockClosing, blocks[0].Kind)
	assert.Equal(t, BlockDeclared, blocks[1].Kind)
	assert.Equal(t, BlockOpening, blocks[2].Kind)

	// blocks start at their chat header and cover the rest of the text
	assert.Equal(t, len("charla previa\n"), blocks[0].Start)
	assert.True(t, strings.HasPrefix(blocks[1].Raw, "[9/2/2026, 10:16:02 PM]"))
	assert.True(t, strings.HasPrefix(blocks[2].Raw, "[9/2/2026, 10:20:11 PM]"))

	var joined strings.Builder
	for i, b := range blocks {
		if i > 0 {
			assert.Equal(t, blocks[i-1].End, b.Start)
		}
		assert.Equal(t, text[b.Start:b.End], b.Raw)
		assert.Equal(t, strings.TrimSpace(b.Raw), b.Text)
		joined.WriteString(b.Raw)
	}
	assert.Equal(t, text[blocks[0].Start:], joined.String())
	assert.Equal(t, len(text), blocks[2].End)
}

func TestSegmenter_Split_NoMarkers(t *testing.T) {
	s := NewSegmenter(DefaultPatterns())
	assert.Nil(t, s.Split("buenas noches, ya cerramos"))
	assert.Nil(t, s.Split(""))
}

func TestSegmenter_Split_CaseInsensitive(t *testing.T) {
	s := NewSegmenter(DefaultPatterns())
	blocks := s.Split("la glorieta\ncierre de caja\nID: 1\n")

	require.Len(t, blocks, 1)
	assert.Equal(t, BlockClosing, blocks[0].Kind)
	assert.Equal(t, 0, blocks[0].Start)
}

func TestSegmenter_Split_FallsBackToPreviousLine(t *testing.T) {
	s := NewSegmenter(DefaultPatterns())
	text := "uno\ndos\nLa Glorieta\nCIERRE DE CAJA\nID: 7\n"

	blocks := s.Split(text)

	require.Len(t, blocks, 1)
	assert.Equal(t, strings.Index(text, "La Glorieta"), blocks[0].Start)
}

func TestSegmenter_Split_MarkersInSameMessage(t *testing.T) {
	s := NewSegmenter(DefaultPatterns())
	text := "[9/2/2026, 10:15:30 PM] Caja: CIERRE DE CAJA listo\nDINERO DECLARADO\nFALTANTE $100\n"

	blocks := s.Split(text)

	require.Len(t, blocks, 2)
	assert.Equal(t, 0, blocks[0].Start)
	assert.Equal(t, strings.Index(text, "DINERO DECLARADO"), blocks[1].Start)
	assert.NotEmpty(t, blocks[0].Text)
	assert.NotEmpty(t, blocks[1].Text)
}

func TestSegmenter_Split_MarkersOnSameLine(t *testing.T) {
	s := NewSegmenter(DefaultPatterns())
	text := "[9/2/2026, 10:15:30 PM] Caja: CIERRE DE CAJA y DINERO DECLARADO\n"

	blocks := s.Split(text)

	require.Len(t, blocks, 2)
	assert.Equal(t, 0, blocks[0].Start)
	assert.Equal(t, strings.Index(text, "DINERO DECLARADO"), blocks[1].Start)
	assert.Equal(t, "[9/2/2026, 10:15:30 PM] Caja: CIERRE DE CAJA y", blocks[0].Text)
}
