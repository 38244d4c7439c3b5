package ppu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test palette manager creation
func TestPaletteManagerCreation(t *testing.T) {
	pm := NewPaletteManager()

	require.NotNil(t, pm)
	assert.Equal(t, uint8(0), pm.Emphasis)
}

// Test palette read/write operations
func TestPaletteReadWrite(t *testing.T) {
	pm := NewPaletteManager()

	// Write to palette
	pm.WritePalette(0x01, 0x30)

	// Read back
	assert.Equal(t, uint8(0x30), pm.ReadPalette(0x01))

	// Test 6-bit masking
	pm.WritePalette(0x02, 0xFF)
	assert.Equal(t, uint8(0x3F), pm.ReadPalette(0x02), "masked palette value")
}

// Test backdrop color mirroring
func TestBackdropMirroring(t *testing.T) {
	pm := NewPaletteManager()

	// Write to universal backdrop (0x00)
	pm.WritePalette(0x00, 0x0F)

	// Check mirrored locations (these mirror to their respective backdrop colors)
	// $10 mirrors to $00, $14 to $04, $18 to $08, $1C to $0C
	testCases := []struct {
		addr     uint8
		expected uint8
	}{
		{0x10, 0x0F}, // Should read from $00
		{0x14, 0x00}, // Should read from $04 (zeroed at power-up)
		{0x18, 0x00}, // Should read from $08 (zeroed at power-up)
		{0x1C, 0x00}, // Should read from $0C (zeroed at power-up)
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, pm.ReadPalette(tc.addr), "mirrored value at address %02X", tc.addr)
	}

	// Write to mirrored location
	pm.WritePalette(0x10, 0x20)

	// Check original location
	assert.Equal(t, uint8(0x20), pm.ReadPalette(0x00), "backdrop value")
}

// Test background color retrieval
func TestBackgroundColors(t *testing.T) {
	pm := NewPaletteManager()

	// Set up a background palette
	pm.WritePalette(0x00, 0x0F) // Universal backdrop
	pm.WritePalette(0x01, 0x30) // Palette 0, color 1
	pm.WritePalette(0x02, 0x27) // Palette 0, color 2
	pm.WritePalette(0x03, 0x17) // Palette 0, color 3

	// Test color retrieval
	color0 := pm.GetBackgroundColor(0, 0)
	color1 := pm.GetBackgroundColor(0, 1)
	color2 := pm.GetBackgroundColor(0, 2)
	color3 := pm.GetBackgroundColor(0, 3)

	// Colors should be different
	assert.False(t, color0 == color1 || color1 == color2 || color2 == color3, "background colors should be different")

	// Test universal backdrop (any palette, color 0 should return same color)
	backdropFromPalette1 := pm.GetBackgroundColor(1, 0)
	assert.Equal(t, color0, backdropFromPalette1, "universal backdrop should be same for all palettes")
}

// Test sprite color retrieval
func TestSpriteColors(t *testing.T) {
	pm := NewPaletteManager()

	// Set up a sprite palette
	pm.WritePalette(0x11, 0x30) // Sprite palette 0, color 1
	pm.WritePalette(0x12, 0x27) // Sprite palette 0, color 2
	pm.WritePalette(0x13, 0x17) // Sprite palette 0, color 3

	// Test color retrieval
	color0 := pm.GetSpriteColor(0, 0) // Should be transparent
	color1 := pm.GetSpriteColor(0, 1)
	color2 := pm.GetSpriteColor(0, 2)
	color3 := pm.GetSpriteColor(0, 3)

	// Color 0 should be transparent (alpha = 0)
	assert.Equal(t, uint32(0x00000000), color0&0xFF000000, "sprite color 0 should be transparent")

	// Other colors should be opaque
	assert.Equal(t, uint32(0xFF000000), color1&0xFF000000, "sprite color 1 should be opaque")

	// Colors should be different
	assert.False(t, color1 == color2 || color2 == color3, "sprite colors should be different")
}

// Test color emphasis
func TestColorEmphasis(t *testing.T) {
	pm := NewPaletteManager()

	// Set a test color
	pm.WritePalette(0x01, 0x30)

	// Get color without emphasis
	normalColor := pm.GetBackgroundColor(0, 1)

	// Set red emphasis
	pm.SetEmphasis(0x20)
	emphasizedColor := pm.GetBackgroundColor(0, 1)

	// Colors should be different with emphasis
	assert.NotEqual(t, normalColor, emphasizedColor, "colors should be different with emphasis applied")

	// Test multiple emphasis bits
	pm.SetEmphasis(0xE0) // All emphasis bits
	allEmphasisColor := pm.GetBackgroundColor(0, 1)

	assert.NotEqual(t, emphasizedColor, allEmphasisColor, "different emphasis settings should produce different colors")
}

// Test palette bounds checking
func TestPaletteBoundsChecking(t *testing.T) {
	pm := NewPaletteManager()

	// Test invalid palette numbers
	assert.Equal(t, uint32(0xFF000000), pm.GetBackgroundColor(4, 0), "invalid background palette should return black")
	assert.Equal(t, uint32(0x00000000), pm.GetSpriteColor(4, 0), "invalid sprite palette should return transparent")

	// Test invalid color indices
	assert.Equal(t, uint32(0xFF000000), pm.GetBackgroundColor(0, 4), "invalid background color should return black")
	assert.Equal(t, uint32(0x00000000), pm.GetSpriteColor(0, 4), "invalid sprite color should return transparent")
}

// Test master palette integrity
func TestMasterPalette(t *testing.T) {
	pm := NewPaletteManager()

	// Test that all 64 master palette colors are valid
	for i := 0; i < 64; i++ {
		pm.WritePalette(0x01, uint8(i))
		color := pm.GetBackgroundColor(0, 1)

		// Should be a valid ARGB color (alpha = 0xFF)
		assert.Equal(t, uint32(0xFF000000), color&0xFF000000, "master palette color %d should be opaque", i)
	}
}

// Test debug information
func TestPaletteDebugInfo(t *testing.T) {
	pm := NewPaletteManager()

	// Set up some palette data
	pm.WritePalette(0x01, 0x30)
	pm.WritePalette(0x11, 0x27)
	pm.SetEmphasis(0x20)

	// Get debug info
	debug := pm.GetPaletteDebugInfo()

	// Check that debug info contains expected keys
	assert.Contains(t, debug, "background_palettes")
	assert.Contains(t, debug, "sprite_palettes")
	assert.Contains(t, debug, "emphasis")
	assert.Contains(t, debug, "palette_ram")

	// Check emphasis value
	assert.Equal(t, pm.Emphasis, debug["emphasis"], "debug emphasis should match actual emphasis")
}
