// Package savestate captures and restores a whole-system snapshot of a
// running NES instance. Snapshots are YAML so they stay diffable and
// readable while debugging a desync, at the cost of being larger on disk
// than a packed binary format would be.
package savestate

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yoshiomiyamaegones/pkg/apu"
	"github.com/yoshiomiyamaegones/pkg/cartridge/mapper"
	"github.com/yoshiomiyamaegones/pkg/cpu"
	"github.com/yoshiomiyamaegones/pkg/input"
	"github.com/yoshiomiyamaegones/pkg/logger"
	"github.com/yoshiomiyamaegones/pkg/memory"
	"github.com/yoshiomiyamaegones/pkg/neserr"
	"github.com/yoshiomiyamaegones/pkg/nes"
	"github.com/yoshiomiyamaegones/pkg/ppu"
)

// formatVersion guards against loading a snapshot written by an
// incompatible layout. Bump it whenever a component's State shape changes.
const formatVersion = 1

// snapshot is the on-disk shape of a save state. Mapper register state is
// optional and keyed by mapper type, since each mapper variant carries a
// different (possibly empty) set of registers beyond the PRG/CHR RAM
// already captured generically. NROM (mapper 0) has none.
type snapshot struct {
	Version int

	CPU    cpu.State
	Memory memory.State
	PPU    ppu.State
	APU    apu.State
	Input  input.State
	Input2 input.State

	PRGRAM []uint8
	CHRRAM []uint8

	Mapper1 *mapper.Mapper1RegisterState `yaml:"mapper1,omitempty"`
	Mapper2 *mapper.Mapper2RegisterState `yaml:"mapper2,omitempty"`
	Mapper3 *mapper.Mapper3RegisterState `yaml:"mapper3,omitempty"`
	Mapper4 *mapper.Mapper4RegisterState `yaml:"mapper4,omitempty"`
}

// Save writes a snapshot of n to path. The emulator must be paused between
// frames (PPU.FrameComplete false, mid-instruction CPU state fine) when
// this is called; there is no in-flight bus transaction to worry about
// since Step always runs a whole CPU instruction before returning.
func Save(path string, n *nes.NES) error {
	snap := snapshot{
		Version: formatVersion,
		CPU:     n.CPU.ExportState(),
		Memory:  n.Memory.ExportState(),
		PPU:     n.PPU.ExportState(),
		APU:     n.APU.ExportState(),
		Input:   n.Input.ExportState(),
		Input2:  n.Input2.ExportState(),
		PRGRAM:  append([]uint8(nil), n.Cartridge.PRGRAM...),
		CHRRAM:  append([]uint8(nil), n.Cartridge.CHRRAM...),
	}

	switch m := n.Cartridge.Mapper.(type) {
	case *mapper.Mapper1:
		regs := m.ExportRegisters()
		snap.Mapper1 = &regs
	case *mapper.Mapper2:
		regs := m.ExportRegisters()
		snap.Mapper2 = &regs
	case *mapper.Mapper3:
		regs := m.ExportRegisters()
		snap.Mapper3 = &regs
	case *mapper.Mapper4:
		regs := m.ExportRegisters()
		snap.Mapper4 = &regs
	}

	data, err := yaml.Marshal(&snap)
	if err != nil {
		return &neserr.SaveStateError{Reason: "encode snapshot", Err: err}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return &neserr.SaveStateError{Reason: "write " + path, Err: err}
	}

	logger.LogInfo("save state written to %s", path)
	return nil
}

// Load restores a snapshot from path into n. The snapshot is fully decoded
// and validated before anything on n is mutated, so a malformed or
// version-mismatched file leaves the running system untouched.
func Load(path string, n *nes.NES) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &neserr.SaveStateError{Reason: "read " + path, Err: err}
	}

	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return &neserr.SaveStateError{Reason: "decode " + path, Err: err}
	}

	if snap.Version != formatVersion {
		return &neserr.SaveStateError{Reason: "unsupported save state version"}
	}

	if len(snap.PRGRAM) != len(n.Cartridge.PRGRAM) || len(snap.CHRRAM) != len(n.Cartridge.CHRRAM) {
		return &neserr.SaveStateError{Reason: "save state does not match this cartridge's RAM layout"}
	}

	switch n.Cartridge.Mapper.(type) {
	case *mapper.Mapper1:
		if snap.Mapper1 == nil {
			return &neserr.SaveStateError{Reason: "save state is missing mapper 1 register state"}
		}
	case *mapper.Mapper2:
		if snap.Mapper2 == nil {
			return &neserr.SaveStateError{Reason: "save state is missing mapper 2 register state"}
		}
	case *mapper.Mapper3:
		if snap.Mapper3 == nil {
			return &neserr.SaveStateError{Reason: "save state is missing mapper 3 register state"}
		}
	case *mapper.Mapper4:
		if snap.Mapper4 == nil {
			return &neserr.SaveStateError{Reason: "save state is missing mapper 4 register state"}
		}
	}

	n.CPU.ImportState(snap.CPU)
	n.Memory.ImportState(snap.Memory)
	n.PPU.ImportState(snap.PPU)
	n.APU.ImportState(snap.APU)
	n.Input.ImportState(snap.Input)
	n.Input2.ImportState(snap.Input2)

	copy(n.Cartridge.PRGRAM, snap.PRGRAM)
	copy(n.Cartridge.CHRRAM, snap.CHRRAM)

	switch m := n.Cartridge.Mapper.(type) {
	case *mapper.Mapper1:
		m.ImportRegisters(*snap.Mapper1)
	case *mapper.Mapper2:
		m.ImportRegisters(*snap.Mapper2)
	case *mapper.Mapper3:
		m.ImportRegisters(*snap.Mapper3)
	case *mapper.Mapper4:
		m.ImportRegisters(*snap.Mapper4)
	}

	logger.LogInfo("save state loaded from %s", path)
	return nil
}
