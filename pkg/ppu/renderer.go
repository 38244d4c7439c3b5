package ppu

// Sprite attribute flags
const (
	SpriteFlipHorizontal = 0x40
	SpriteFlipVertical   = 0x80
	SpritePriority       = 0x20 // 0=front of background, 1=behind background
	SpritePaletteMask    = 0x03 // Palette selection (bits 0-1)
)

// stepBackgroundPipeline advances the background fetch/shift machinery by
// one dot. Tile data is fetched two bytes ahead of where it is consumed,
// the same cadence real hardware uses to keep the shift registers fed.
func (p *PPU) stepBackgroundPipeline() {
	fetchWindow := (p.Cycle >= 1 && p.Cycle <= 256) || (p.Cycle >= 321 && p.Cycle <= 336)

	if fetchWindow {
		switch p.Cycle % 8 {
		case 1:
			p.ntByte = p.fetchNameTableByte()
		case 3:
			p.atByte = p.fetchAttributeByte()
		case 5:
			p.patternLo = p.fetchPatternByte(p.ntByte, false)
		case 7:
			p.patternHi = p.fetchPatternByte(p.ntByte, true)
		case 0:
			p.reloadShiftRegisters()
			p.incrementCoarseX()
		}
	}

	if p.Cycle == 256 {
		p.incrementFineY()
	}

	if (p.Cycle >= 2 && p.Cycle <= 257) || (p.Cycle >= 322 && p.Cycle <= 337) {
		p.shiftBackgroundRegisters()
	}
}

func (p *PPU) fetchNameTableByte() uint8 {
	addr := 0x2000 | (p.v & 0x0FFF)
	return p.readVRAM(addr)
}

func (p *PPU) fetchAttributeByte() uint8 {
	addr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
	attrByte := p.readVRAM(addr)

	coarseX := p.v & 0x1F
	coarseY := (p.v >> 5) & 0x1F
	shift := ((coarseY & 2) << 1) | (coarseX & 2)
	return (attrByte >> shift) & 0x03
}

func (p *PPU) fetchPatternByte(tileIndex uint8, highPlane bool) uint8 {
	fineY := (p.v >> 12) & 0x07
	base := uint16(0x0000)
	if p.PPUCTRL&PPUCTRLBGTable != 0 {
		base = 0x1000
	}
	addr := base + uint16(tileIndex)*16 + fineY
	if highPlane {
		addr += 8
	}
	return p.readVRAM(addr)
}

// reloadShiftRegisters loads the low byte of the pattern/attribute shifters
// with the tile just fetched; the high byte is whatever was already
// shifted in from the previous tile.
func (p *PPU) reloadShiftRegisters() {
	p.bgShiftLo = (p.bgShiftLo & 0xFF00) | uint16(p.patternLo)
	p.bgShiftHi = (p.bgShiftHi & 0xFF00) | uint16(p.patternHi)

	attrLoBit := uint16(0)
	attrHiBit := uint16(0)
	if p.atByte&0x01 != 0 {
		attrLoBit = 0x00FF
	}
	if p.atByte&0x02 != 0 {
		attrHiBit = 0x00FF
	}
	p.bgAttrLo = (p.bgAttrLo & 0xFF00) | attrLoBit
	p.bgAttrHi = (p.bgAttrHi & 0xFF00) | attrHiBit
}

func (p *PPU) shiftBackgroundRegisters() {
	if !p.renderingEnabled() {
		return
	}
	p.bgShiftLo <<= 1
	p.bgShiftHi <<= 1
	p.bgAttrLo <<= 1
	p.bgAttrHi <<= 1
}

func (p *PPU) incrementCoarseX() {
	if !p.renderingEnabled() {
		return
	}
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementFineY() {
	if !p.renderingEnabled() {
		return
	}
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
	} else {
		p.v &^= 0x7000
		y := (p.v & 0x03E0) >> 5
		switch y {
		case 29:
			y = 0
			p.v ^= 0x0800
		case 31:
			y = 0
		default:
			y++
		}
		p.v = (p.v & ^uint16(0x03E0)) | (y << 5)
	}
}

// backgroundPixel returns the color index and palette for the pixel about
// to be emitted, reading the fine-X bit out of the shift registers.
func (p *PPU) backgroundPixel() (colorIndex, palette uint8) {
	mux := uint16(0x8000) >> p.x
	lo := uint8(0)
	hi := uint8(0)
	if p.bgShiftLo&mux != 0 {
		lo = 1
	}
	if p.bgShiftHi&mux != 0 {
		hi = 1
	}
	colorIndex = (hi << 1) | lo

	aLo := uint8(0)
	aHi := uint8(0)
	if p.bgAttrLo&mux != 0 {
		aLo = 1
	}
	if p.bgAttrHi&mux != 0 {
		aHi = 1
	}
	palette = (aHi << 1) | aLo
	return
}

// evaluateSprites fills the eight sprite slots for the *next* scanline from
// OAM. Real hardware spreads this over dots 65-256/257-320; doing it in one
// shot at dot 257 is the sanctioned simplification here, since nothing in
// this implementation depends on the per-dot secondary-OAM timing quirks.
func (p *PPU) evaluateSprites() {
	spriteHeight := 8
	if p.PPUCTRL&PPUCTRLSpriteSize != 0 {
		spriteHeight = 16
	}

	targetLine := p.Scanline + 1
	p.spriteCount = 0
	p.spriteOverflow = false

	for i := 0; i < 64 && p.spriteCount < 8; i++ {
		spriteY := int(p.OAM[i*4])
		if targetLine < spriteY || targetLine >= spriteY+spriteHeight {
			continue
		}

		tileIndex := p.OAM[i*4+1]
		attributes := p.OAM[i*4+2]
		x := p.OAM[i*4+3]

		row := targetLine - spriteY
		if attributes&SpriteFlipVertical != 0 {
			row = spriteHeight - 1 - row
		}

		patternBase := uint16(0x0000)
		if p.PPUCTRL&PPUCTRLSpriteTable != 0 {
			patternBase = 0x1000
		}

		var tileAddr uint16
		if spriteHeight == 16 {
			base := tileIndex & 0xFE
			if tileIndex&1 != 0 {
				patternBase = 0x1000
			} else {
				patternBase = 0x0000
			}
			if row >= 8 {
				base++
				row -= 8
			}
			tileAddr = patternBase + uint16(base)*16 + uint16(row)
		} else {
			tileAddr = patternBase + uint16(tileIndex)*16 + uint16(row)
		}

		lo := p.readVRAM(tileAddr)
		hi := p.readVRAM(tileAddr + 8)
		if attributes&SpriteFlipHorizontal != 0 {
			lo = reverseBits(lo)
			hi = reverseBits(hi)
		}

		p.sprites[p.spriteCount] = spriteSlot{
			patternLo: lo,
			patternHi: hi,
			attribute: attributes,
			x:         x,
			isSprite0: i == 0,
		}
		p.spriteCount++
	}

	for i := 0; i < 64; i++ {
		spriteY := int(p.OAM[i*4])
		if targetLine >= spriteY && targetLine < spriteY+spriteHeight {
			if p.spriteCount >= 8 {
				p.spriteOverflow = true
			}
		}
	}
	if p.spriteOverflow {
		p.PPUSTATUS |= PPUSTATUSOverflow
	}
}

func reverseBits(b uint8) uint8 {
	b = (b&0xF0)>>4 | (b&0x0F)<<4
	b = (b&0xCC)>>2 | (b&0x33)<<2
	b = (b&0xAA)>>1 | (b&0x55)<<1
	return b
}

// spritePixel finds the highest-priority opaque sprite pixel at the given
// screen column from each slot's x position; the slots are not modified.
func (p *PPU) spritePixel(x int) (colorIndex, palette uint8, behindBackground, isSprite0 bool, found bool) {
	for i := 0; i < p.spriteCount; i++ {
		s := &p.sprites[i]
		offset := x - int(s.x)
		if offset < 0 || offset > 7 {
			continue
		}
		bit := 7 - offset
		lo := (s.patternLo >> uint(bit)) & 1
		hi := (s.patternHi >> uint(bit)) & 1
		idx := (hi << 1) | lo
		if idx == 0 {
			continue
		}
		return idx, s.attribute & SpritePaletteMask, s.attribute&SpritePriority != 0, s.isSprite0, true
	}
	return 0, 0, false, false, false
}

// emitPixel combines the background and sprite pipelines into one output
// pixel for the current (Cycle-1, Scanline) position.
func (p *PPU) emitPixel() {
	x := p.Cycle - 1
	y := p.Scanline
	index := y*256 + x

	bgColorIndex, bgPalette := uint8(0), uint8(0)
	if p.PPUMASK&PPUMASKBGShow != 0 && !(x < 8 && p.PPUMASK&PPUMASKBGLeft == 0) {
		bgColorIndex, bgPalette = p.backgroundPixel()
	}

	spColorIndex, spPalette, spBehind, isSprite0, spFound := uint8(0), uint8(0), false, false, false
	if p.PPUMASK&PPUMASKSpriteShow != 0 && !(x < 8 && p.PPUMASK&PPUMASKSpriteLeft == 0) {
		spColorIndex, spPalette, spBehind, isSprite0, spFound = p.spritePixel(x)
	}

	if spFound && isSprite0 && bgColorIndex != 0 && x != 255 {
		p.PPUSTATUS |= PPUSTATUSSprite0Hit
	}

	var color uint32
	switch {
	case bgColorIndex == 0 && !spFound:
		color = p.PaletteManager.GetBackgroundColor(0, 0)
	case bgColorIndex == 0:
		color = p.PaletteManager.GetSpriteColor(spPalette, spColorIndex)
	case !spFound:
		color = p.PaletteManager.GetBackgroundColor(bgPalette, bgColorIndex)
	case spBehind:
		color = p.PaletteManager.GetBackgroundColor(bgPalette, bgColorIndex)
	default:
		color = p.PaletteManager.GetSpriteColor(spPalette, spColorIndex)
	}

	p.FrameBuffer[index] = color
}
