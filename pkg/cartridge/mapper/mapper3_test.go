package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMapper3_CNROM tests the CNROM mapper (mapper 3)
func TestMapper3_CNROM(t *testing.T) {
	t.Run("CHR_Bank_Switching", func(t *testing.T) {
		data := &CartridgeData{
			PRGROM: testPRGROM32KB,
			CHRROM: testCHRROM32KB, // 32KB CHR ROM (4 banks of 8KB)
		}

		// Initialize CHR ROM with bank-specific data
		for i := 0; i < len(data.CHRROM); i++ {
			data.CHRROM[i] = uint8((i / 8192) + 1) // Different value per 8KB bank
		}

		mapper := NewMapper3(data)

		// Test initial bank (should be bank 0)
		assert.Equal(t, uint8(0x01), mapper.ReadCHR(0x0000), "CHR bank 0 value")

		// Switch to CHR bank 2
		mapper.WritePRG(0x8000, 0x02)

		// Test that CHR reading now returns bank 2 data
		assert.Equal(t, uint8(0x03), mapper.ReadCHR(0x0000), "CHR bank 2 value")

		// Test different addresses within the bank
		assert.Equal(t, uint8(0x03), mapper.ReadCHR(0x1000), "same bank value at $1000")
	})

	t.Run("PRG_ROM_Fixed_32KB", func(t *testing.T) {
		data := &CartridgeData{
			PRGROM: testPRGROM32KB,
			CHRROM: testCHRROM32KB,
		}

		mapper := NewMapper3(data)

		// PRG ROM should be 32KB fixed - no banking or mirroring
		value1 := mapper.ReadPRG(0x8000)
		assert.Equal(t, uint8(0x00), value1)
		assert.Equal(t, uint8(0xFF), mapper.ReadPRG(0xFFFF))

		// Test that full 32KB range is accessible without mirroring
		midValue := mapper.ReadPRG(0xC000) // Should be different from 0x8000 in 32KB ROM
		if midValue == value1 && len(data.PRGROM) == 32768 {
			// If it's the same, check if this is intentional mirroring or actual 32KB data
			data.PRGROM[0x4000] = 0xAA // Set different value at 16KB offset
			assert.Equal(t, uint8(0xAA), mapper.ReadPRG(0xC000), "32KB PRG ROM not properly mapped")
		}

		// Writing to PRG area should only affect CHR banking, not PRG reading
		originalValue := mapper.ReadPRG(0x9000)
		mapper.WritePRG(0x9000, 0xFF) // This should switch CHR bank, not affect PRG
		assert.Equal(t, originalValue, mapper.ReadPRG(0x9000), "PRG ROM should be unaffected by writes")
	})

	t.Run("Bank_Select_Masking", func(t *testing.T) {
		// Test with different CHR ROM sizes to verify bank masking
		chrROM16KB := make([]uint8, 16*1024) // 2 banks
		for i := 0; i < len(chrROM16KB); i++ {
			chrROM16KB[i] = uint8((i / 8192) + 0x10)
		}

		data := &CartridgeData{
			PRGROM: testPRGROM32KB,
			CHRROM: chrROM16KB,
		}

		mapper := NewMapper3(data)

		// Select bank 1 (valid)
		mapper.WritePRG(0x8000, 0x01)
		assert.Equal(t, uint8(0x11), mapper.ReadCHR(0x0000), "bank 1 value")

		// Select bank 3 (should wrap to bank 1 for 2-bank ROM)
		mapper.WritePRG(0x8000, 0x03)
		assert.Equal(t, uint8(0x11), mapper.ReadCHR(0x0000), "wrapped bank value")

		// Select bank 0 again
		mapper.WritePRG(0x8000, 0x00)
		assert.Equal(t, uint8(0x10), mapper.ReadCHR(0x0000), "bank 0 value")
	})

	t.Run("Multiple_Write_Addresses", func(t *testing.T) {
		data := &CartridgeData{
			PRGROM: testPRGROM32KB,
			CHRROM: testCHRROM32KB,
		}

		// Initialize CHR ROM with bank-specific data
		for i := 0; i < len(data.CHRROM); i++ {
			data.CHRROM[i] = uint8((i / 8192) + 0x20)
		}

		mapper := NewMapper3(data)

		// Test that writes to any address in ROM space affect CHR bank selection
		testAddresses := []uint16{0x8000, 0x9000, 0xA000, 0xB000, 0xC000, 0xD000, 0xE000, 0xF000}

		for i, addr := range testAddresses {
			bankNum := uint8(i % 4) // Cycle through available banks
			mapper.WritePRG(addr, bankNum)

			expectedValue := uint8(0x20 + bankNum)
			assert.Equal(t, expectedValue, mapper.ReadCHR(0x0000), "write to $%04X", addr)
		}
	})

	t.Run("CHR_ROM_vs_RAM", func(t *testing.T) {
		// Test with CHR ROM (read-only)
		dataROM := &CartridgeData{
			PRGROM: testPRGROM32KB,
			CHRROM: testCHRROM32KB,
		}

		mapperROM := NewMapper3(dataROM)

		originalValue := mapperROM.ReadCHR(0x1000)
		mapperROM.WriteCHR(0x1000, 0xFF) // Should be ignored
		assert.Equal(t, originalValue, mapperROM.ReadCHR(0x1000), "CHR ROM should be read-only")

		// Test with CHR RAM (writable)
		dataRAM := &CartridgeData{
			PRGROM: testPRGROM32KB,
			CHRRAM: make([]uint8, 8*1024), // Single 8KB CHR RAM
		}

		mapperRAM := NewMapper3(dataRAM)

		// CHR RAM should be writable but not banked
		mapperRAM.WriteCHR(0x1000, 0xAA)
		assert.Equal(t, uint8(0xAA), mapperRAM.ReadCHR(0x1000), "CHR RAM write failed")

		// Bank switching should not affect CHR RAM
		mapperRAM.WritePRG(0x8000, 0x01) // Try to switch bank
		assert.Equal(t, uint8(0xAA), mapperRAM.ReadCHR(0x1000), "CHR RAM should not be affected by bank switching")
	})

	t.Run("Bus_Conflicts", func(t *testing.T) {
		// Test AND-type bus conflicts (submapper 2)
		data := &CartridgeData{
			PRGROM: testPRGROM32KB,
			CHRROM: testCHRROM32KB,
		}

		// Set specific PRG ROM pattern for testing
		data.PRGROM[0x0000] = 0x03 // At $8000: allows banks 0-3
		data.PRGROM[0x1000] = 0x02 // At $9000: allows banks 0,2
		data.PRGROM[0x2000] = 0x01 // At $A000: allows banks 0-1

		// Initialize CHR ROM with bank-specific data
		for i := 0; i < len(data.CHRROM); i++ {
			data.CHRROM[i] = uint8((i / 8192) + 0x40)
		}

		mapper := NewMapper3(data)
		mapper.SetBusConflictMode(2) // AND-type conflicts

		// Test bus conflict at $8000: write 0x03, PRG=0x03, effective=0x03&0x03=0x03->bank 3
		mapper.WritePRG(0x8000, 0x03)
		assert.Equal(t, uint8(0x03), mapper.GetCurrentCHRBank(), "expected bank 3 with no conflict")

		// Test bus conflict at $9000: write 0x03, PRG=0x02, effective=0x03&0x02=0x02->bank 2
		mapper.WritePRG(0x9000, 0x03)
		assert.Equal(t, uint8(0x02), mapper.GetCurrentCHRBank(), "expected bank 2 from bus conflict")

		// Test bus conflict at $A000: write 0x03, PRG=0x01, effective=0x03&0x01=0x01->bank 1
		mapper.WritePRG(0xA000, 0x03)
		assert.Equal(t, uint8(0x01), mapper.GetCurrentCHRBank(), "expected bank 1 from bus conflict")

		// Test no bus conflicts (submapper 1)
		mapper.SetBusConflictMode(1)
		mapper.WritePRG(0xA000, 0x03) // PRG=0x01, but no conflict, so bank=0x03&0x03=3
		assert.Equal(t, uint8(0x03), mapper.GetCurrentCHRBank(), "expected bank 3 with no conflicts")
	})

	t.Run("Full_Address_Range", func(t *testing.T) {
		data := &CartridgeData{
			PRGROM: testPRGROM32KB,
			CHRROM: testCHRROM32KB,
		}

		// Initialize CHR ROM with address-based pattern
		for i := 0; i < len(data.CHRROM); i++ {
			data.CHRROM[i] = uint8(i & 0xFF)
		}

		mapper := NewMapper3(data)

		// Test reading across full CHR address range in different banks
		for bank := uint8(0); bank < 4; bank++ {
			mapper.WritePRG(0x8000, bank)

			// Test key addresses in each bank
			testAddresses := []uint16{0x0000, 0x0800, 0x1000, 0x1800, 0x1FFF}

			for _, addr := range testAddresses {
				expectedValue := uint8((uint32(bank)*8192 + uint32(addr)) & 0xFF)
				assert.Equal(t, expectedValue, mapper.ReadCHR(addr), "bank %d addr $%04X", bank, addr)
			}
		}
	})
}
