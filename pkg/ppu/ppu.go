package ppu

import (
	"github.com/yoshiomiyamaegones/pkg/memory"
)

// PPU represents the Picture Processing Unit: a 262x341 dot/scanline state
// machine driving a background shift-register pipeline and an eight-slot
// sprite pipeline, three dots per CPU cycle.
type PPU struct {
	// Registers
	PPUCTRL   uint8 // $2000
	PPUMASK   uint8 // $2001
	PPUSTATUS uint8 // $2002
	OAMADDR   uint8 // $2003

	// Internal registers
	v uint16 // current VRAM address
	t uint16 // temporary VRAM address / top-left onscreen tile
	x uint8  // fine X scroll
	w uint8  // write toggle

	// VRAM (nametables only; CHR is routed to the cartridge, palette to
	// PaletteManager)
	VRAM [0x4000]uint8

	// OAM (Object Attribute Memory)
	OAM [256]uint8

	// Background fetch latches and shift registers
	ntByte    uint8
	atByte    uint8
	patternLo uint8
	patternHi uint8
	bgShiftLo uint16
	bgShiftHi uint16
	bgAttrLo  uint16
	bgAttrHi  uint16

	// Sprite pipeline: eight slots filled during dot 257 of the prior scanline
	sprites        [8]spriteSlot
	spriteCount    int
	spriteOverflow bool

	FrameBuffer [256 * 240]uint32

	// Timing
	Cycle         int
	Scanline      int // -1 = pre-render, 0-239 visible, 240 post-render, 241-260 vblank
	Frame         uint64
	FrameComplete bool

	// NMI
	NMIRequested bool

	// Rendering
	PaletteManager *PaletteManager

	// PPUDATA read buffer
	readBuffer uint8

	Memory *memory.Memory

	Cartridge interface {
		ReadCHR(addr uint16) uint8
		WriteCHR(addr uint16, value uint8)
		IsIRQPending() bool
		ClearIRQ()
		GetMirroring() int
		NotifyA12(chrAddr uint16, renderingEnabled bool)
	}
}

type spriteSlot struct {
	patternLo uint8
	patternHi uint8
	attribute uint8
	x         uint8
	isSprite0 bool
}

// PPUCTRL flags
const (
	PPUCTRLNameTable   = 0x03 // Base nametable address
	PPUCTRLIncrement   = 0x04 // VRAM address increment
	PPUCTRLSpriteTable = 0x08 // Sprite pattern table address
	PPUCTRLBGTable     = 0x10 // Background pattern table address
	PPUCTRLSpriteSize  = 0x20 // Sprite size
	PPUCTRLMasterSlave = 0x40 // PPU master/slave select
	PPUCTRLNMIEnable   = 0x80 // Generate NMI at VBlank
)

// PPUMASK flags
const (
	PPUMASKGreyscale      = 0x01
	PPUMASKBGLeft         = 0x02
	PPUMASKSpriteLeft     = 0x04
	PPUMASKBGShow         = 0x08
	PPUMASKSpriteShow     = 0x10
	PPUMASKRedEmphasize   = 0x20
	PPUMASKGreenEmphasize = 0x40
	PPUMASKBlueEmphasize  = 0x80
)

// PPUSTATUS flags
const (
	PPUSTATUSOverflow   = 0x20
	PPUSTATUSSprite0Hit = 0x40
	PPUSTATUSVBlank     = 0x80
)

// New creates a new PPU instance
func New(mem *memory.Memory) *PPU {
	return &PPU{
		Memory:         mem,
		Scanline:       -1,
		PaletteManager: NewPaletteManager(),
	}
}

// Reset resets the PPU to initial state
func (p *PPU) Reset() {
	p.PPUCTRL = 0
	p.PPUMASK = 0
	p.PPUSTATUS = 0
	p.OAMADDR = 0
	p.v = 0
	p.t = 0
	p.x = 0
	p.w = 0
	p.Cycle = 0
	p.Scanline = -1
	p.FrameComplete = false
}

// SetCartridge sets the cartridge reference
func (p *PPU) SetCartridge(cart interface {
	ReadCHR(addr uint16) uint8
	WriteCHR(addr uint16, value uint8)
	IsIRQPending() bool
	ClearIRQ()
	GetMirroring() int
	NotifyA12(chrAddr uint16, renderingEnabled bool)
}) {
	p.Cartridge = cart
}

func (p *PPU) renderingEnabled() bool {
	return p.PPUMASK&(PPUMASKBGShow|PPUMASKSpriteShow) != 0
}

// Step executes one PPU dot.
func (p *PPU) Step() {
	p.PaletteManager.SetEmphasis(p.PPUMASK & 0xE0)

	visibleOrPreRender := p.Scanline == -1 || (p.Scanline >= 0 && p.Scanline < 240)

	if visibleOrPreRender {
		p.stepBackgroundPipeline()
	}

	if p.Scanline >= 0 && p.Scanline < 240 {
		if p.Cycle >= 1 && p.Cycle <= 256 {
			p.emitPixel()
		}
		if p.Cycle == 257 {
			p.evaluateSprites()
		}
		// Approximate A12 clocking once per visible scanline (SPEC_FULL §4.5).
		if p.Cycle == 260 && p.Cartridge != nil {
			p.Cartridge.NotifyA12(p.patternTableA12Addr(), p.renderingEnabled())
		}
	}

	if p.Scanline == -1 {
		if p.Cycle == 1 {
			p.PPUSTATUS &^= PPUSTATUSVBlank | PPUSTATUSSprite0Hit | PPUSTATUSOverflow
		}
		if p.Cycle >= 280 && p.Cycle <= 304 && p.renderingEnabled() {
			p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
		}
	}

	if p.Cycle == 257 && visibleOrPreRender && p.renderingEnabled() {
		p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
	}

	// Odd-frame dot-0 skip on the pre-render line.
	if p.Scanline == -1 && p.Cycle == 0 && p.Frame%2 == 1 && p.renderingEnabled() {
		p.Cycle = 1
	}

	p.Cycle++
	if p.Cycle >= 341 {
		p.Cycle = 0
		p.Scanline++

		if p.Scanline == 241 {
			p.PPUSTATUS |= PPUSTATUSVBlank
			if p.PPUCTRL&PPUCTRLNMIEnable != 0 {
				p.NMIRequested = true
			}
		}

		if p.Scanline >= 261 {
			p.Scanline = -1
			p.FrameComplete = true
			p.Frame++
		}
	}
}

func (p *PPU) patternTableA12Addr() uint16 {
	if p.PPUCTRL&PPUCTRLBGTable != 0 {
		return 0x1000
	}
	return 0x0000
}

// ReadRegister reads from PPU register
func (p *PPU) ReadRegister(addr uint16) uint8 {
	switch addr {
	case 0x2002: // PPUSTATUS
		value := p.PPUSTATUS
		p.PPUSTATUS &^= PPUSTATUSVBlank
		p.w = 0
		return value
	case 0x2004: // OAMDATA
		return p.OAM[p.OAMADDR]
	case 0x2007: // PPUDATA
		var value uint8
		if p.v >= 0x3F00 {
			value = p.readVRAM(p.v)
			p.readBuffer = p.readVRAM(p.v - 0x1000)
		} else {
			value = p.readBuffer
			p.readBuffer = p.readVRAM(p.v)
		}
		p.advanceVRAMAddr()
		return value
	}
	return 0
}

// WriteRegister writes to PPU register
func (p *PPU) WriteRegister(addr uint16, value uint8) {
	switch addr {
	case 0x2000: // PPUCTRL
		wasNMIEnabled := p.PPUCTRL&PPUCTRLNMIEnable != 0
		p.PPUCTRL = value
		p.t = (p.t & 0xF3FF) | ((uint16(value) & 0x03) << 10)
		if !wasNMIEnabled && value&PPUCTRLNMIEnable != 0 && p.PPUSTATUS&PPUSTATUSVBlank != 0 {
			p.NMIRequested = true
		}
	case 0x2001: // PPUMASK
		p.PPUMASK = value
	case 0x2003: // OAMADDR
		p.OAMADDR = value
	case 0x2004: // OAMDATA
		p.OAM[p.OAMADDR] = value
		p.OAMADDR++
	case 0x2005: // PPUSCROLL
		if p.w == 0 {
			p.t = (p.t & 0xFFE0) | (uint16(value) >> 3)
			p.x = value & 0x07
			p.w = 1
		} else {
			p.t = (p.t & 0x8FFF) | ((uint16(value) & 0x07) << 12)
			p.t = (p.t & 0xFC1F) | ((uint16(value) & 0xF8) << 2)
			p.w = 0
		}
	case 0x2006: // PPUADDR
		if p.w == 0 {
			p.t = (p.t & 0x80FF) | ((uint16(value) & 0x3F) << 8)
			p.w = 1
		} else {
			p.t = (p.t & 0xFF00) | uint16(value)
			p.v = p.t
			p.w = 0
		}
	case 0x2007: // PPUDATA
		p.writeVRAM(p.v, value)
		p.advanceVRAMAddr()
	}
}

func (p *PPU) advanceVRAMAddr() {
	if p.PPUCTRL&PPUCTRLIncrement != 0 {
		p.v += 32
	} else {
		p.v += 1
	}
}

// readVRAM reads from VRAM
func (p *PPU) readVRAM(addr uint16) uint8 {
	addr = addr % 0x4000

	switch {
	case addr < 0x2000:
		if p.Cartridge != nil {
			return p.Cartridge.ReadCHR(addr)
		}
		return 0
	case addr < 0x3F00:
		return p.readNameTable(addr)
	case addr < 0x4000:
		return p.PaletteManager.ReadPalette(uint8(addr & 0x1F))
	}
	return 0
}

// writeVRAM writes to VRAM
func (p *PPU) writeVRAM(addr uint16, value uint8) {
	addr = addr % 0x4000

	switch {
	case addr < 0x2000:
		if p.Cartridge != nil {
			p.Cartridge.WriteCHR(addr, value)
		}
	case addr < 0x3F00:
		p.writeNameTable(addr, value)
	case addr < 0x4000:
		p.PaletteManager.WritePalette(uint8(addr&0x1F), value)
	}
}

// GetFramebuffer returns the current framebuffer as RGBA bytes
func (p *PPU) GetFramebuffer() []uint8 {
	rgba := make([]uint8, 256*240*4)
	for i, pixel := range p.FrameBuffer {
		r := uint8((pixel >> 16) & 0xFF)
		g := uint8((pixel >> 8) & 0xFF)
		b := uint8(pixel & 0xFF)
		a := uint8((pixel >> 24) & 0xFF)
		rgba[i*4+0] = r
		rgba[i*4+1] = g
		rgba[i*4+2] = b
		rgba[i*4+3] = a
	}
	return rgba
}

// readNameTable reads from nametable with mirroring
func (p *PPU) readNameTable(addr uint16) uint8 {
	return p.VRAM[p.mirrorNameTableAddress(addr)]
}

// writeNameTable writes to nametable with mirroring
func (p *PPU) writeNameTable(addr uint16, value uint8) {
	p.VRAM[p.mirrorNameTableAddress(addr)] = value
}

// mirrorNameTableAddress applies nametable mirroring
func (p *PPU) mirrorNameTableAddress(addr uint16) uint16 {
	offset := addr - 0x2000
	if offset >= 0x1000 {
		offset -= 0x1000
	}

	if p.Cartridge == nil {
		return p.applyHorizontalMirroring(offset) + 0x2000
	}

	switch p.Cartridge.GetMirroring() {
	case 0: // Horizontal
		return p.applyHorizontalMirroring(offset) + 0x2000
	case 1: // Vertical
		return p.applyVerticalMirroring(offset) + 0x2000
	default:
		return addr
	}
}

func (p *PPU) applyHorizontalMirroring(offset uint16) uint16 {
	// $2000/$2400 share the first table, $2800/$2C00 the second
	return (offset & 0x3FF) | ((offset & 0x800) >> 1)
}

func (p *PPU) applyVerticalMirroring(offset uint16) uint16 {
	return offset & 0x7FF
}

// IsMapperIRQPending returns whether mapper IRQ is pending
func (p *PPU) IsMapperIRQPending() bool {
	if p.Cartridge != nil {
		return p.Cartridge.IsIRQPending()
	}
	return false
}

// ClearMapperIRQ clears mapper IRQ
func (p *PPU) ClearMapperIRQ() {
	if p.Cartridge != nil {
		p.Cartridge.ClearIRQ()
	}
}

// SpriteSlotState is the serializable form of one prefetched sprite slot.
type SpriteSlotState struct {
	PatternLo uint8
	PatternHi uint8
	Attribute uint8
	X         uint8
	IsSprite0 bool
}

// State is the serializable snapshot of the PPU's registers, internal
// scroll/fetch state, VRAM, OAM, and palette RAM.
type State struct {
	PPUCTRL   uint8
	PPUMASK   uint8
	PPUSTATUS uint8
	OAMADDR   uint8

	V uint16
	T uint16
	X uint8
	W uint8

	VRAM [0x4000]uint8
	OAM  [256]uint8

	NTByte    uint8
	ATByte    uint8
	PatternLo uint8
	PatternHi uint8
	BgShiftLo uint16
	BgShiftHi uint16
	BgAttrLo  uint16
	BgAttrHi  uint16

	Sprites        [8]SpriteSlotState
	SpriteCount    int
	SpriteOverflow bool

	Cycle         int
	Scanline      int
	Frame         uint64
	FrameComplete bool
	NMIRequested  bool
	ReadBuffer    uint8

	PaletteRAM [32]uint8
	Emphasis   uint8
}

// ExportState captures the PPU's full rendering state for a save state.
func (p *PPU) ExportState() State {
	s := State{
		PPUCTRL: p.PPUCTRL, PPUMASK: p.PPUMASK, PPUSTATUS: p.PPUSTATUS, OAMADDR: p.OAMADDR,
		V: p.v, T: p.t, X: p.x, W: p.w,
		VRAM: p.VRAM, OAM: p.OAM,
		NTByte: p.ntByte, ATByte: p.atByte, PatternLo: p.patternLo, PatternHi: p.patternHi,
		BgShiftLo: p.bgShiftLo, BgShiftHi: p.bgShiftHi, BgAttrLo: p.bgAttrLo, BgAttrHi: p.bgAttrHi,
		SpriteCount: p.spriteCount, SpriteOverflow: p.spriteOverflow,
		Cycle: p.Cycle, Scanline: p.Scanline, Frame: p.Frame, FrameComplete: p.FrameComplete,
		NMIRequested: p.NMIRequested, ReadBuffer: p.readBuffer,
	}
	for i, slot := range p.sprites {
		s.Sprites[i] = SpriteSlotState{
			PatternLo: slot.patternLo, PatternHi: slot.patternHi,
			Attribute: slot.attribute, X: slot.x, IsSprite0: slot.isSprite0,
		}
	}
	if p.PaletteManager != nil {
		s.PaletteRAM = p.PaletteManager.PaletteRAM
		s.Emphasis = p.PaletteManager.Emphasis
	}
	return s
}

// ImportState restores rendering state captured by ExportState.
func (p *PPU) ImportState(s State) {
	p.PPUCTRL, p.PPUMASK, p.PPUSTATUS, p.OAMADDR = s.PPUCTRL, s.PPUMASK, s.PPUSTATUS, s.OAMADDR
	p.v, p.t, p.x, p.w = s.V, s.T, s.X, s.W
	p.VRAM, p.OAM = s.VRAM, s.OAM
	p.ntByte, p.atByte, p.patternLo, p.patternHi = s.NTByte, s.ATByte, s.PatternLo, s.PatternHi
	p.bgShiftLo, p.bgShiftHi, p.bgAttrLo, p.bgAttrHi = s.BgShiftLo, s.BgShiftHi, s.BgAttrLo, s.BgAttrHi
	p.spriteCount, p.spriteOverflow = s.SpriteCount, s.SpriteOverflow
	p.Cycle, p.Scanline, p.Frame, p.FrameComplete = s.Cycle, s.Scanline, s.Frame, s.FrameComplete
	p.NMIRequested, p.readBuffer = s.NMIRequested, s.ReadBuffer
	for i, slot := range s.Sprites {
		p.sprites[i] = spriteSlot{
			patternLo: slot.PatternLo, patternHi: slot.PatternHi,
			attribute: slot.Attribute, x: slot.X, isSprite0: slot.IsSprite0,
		}
	}
	if p.PaletteManager != nil {
		p.PaletteManager.PaletteRAM = s.PaletteRAM
		p.PaletteManager.Emphasis = s.Emphasis
	}
}
