package cartridge

import (
	"bytes"
	"errors"
	"testing"
)

// buildROM assembles a minimal iNES image: header + optional trainer + PRG + CHR.
func buildROM(prgBanks, chrBanks uint8, flags6, flags7 uint8, trainer bool) []byte {
	header := []byte{'N', 'E', 'S', 0x1A, prgBanks, chrBanks, flags6, flags7, 0, 0, 0, 0, 0, 0, 0, 0}
	var buf bytes.Buffer
	buf.Write(header)
	if trainer {
		buf.Write(make([]byte, 512))
	}
	prg := make([]byte, int(prgBanks)*16384)
	for i := range prg {
		prg[i] = uint8(i)
	}
	buf.Write(prg)
	buf.Write(make([]byte, int(chrBanks)*8192))
	return buf.Bytes()
}

func TestLoadFromReaderRejectsBadMagic(t *testing.T) {
	data := buildROM(1, 1, 0, 0, false)
	data[0] = 'X'
	_, err := LoadFromReader(bytes.NewReader(data))
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != InvalidRomMagic {
		t.Fatalf("LoadFromReader() err = %v, want InvalidRomMagic", err)
	}
}

func TestLoadFromReaderRejectsTruncated(t *testing.T) {
	data := buildROM(2, 1, 0, 0, false)
	short := data[:len(data)-100]
	_, err := LoadFromReader(bytes.NewReader(short))
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != TruncatedRom {
		t.Fatalf("LoadFromReader() err = %v, want TruncatedRom", err)
	}
}

func TestLoadFromReaderRejectsUnsupportedMapper(t *testing.T) {
	data := buildROM(1, 1, 0x10, 0, false) // mapper number 1 (MMC1)
	_, err := LoadFromReader(bytes.NewReader(data))
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != UnsupportedMapper || cerr.MapperID != 1 {
		t.Fatalf("LoadFromReader() err = %v, want UnsupportedMapper(1)", err)
	}
}

func TestLoadFromReaderSkipsTrainer(t *testing.T) {
	data := buildROM(1, 1, 0x04, 0, true)
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("LoadFromReader() err = %v", err)
	}
	if got := cart.ReadPRG(0, 0x8000); got != 0 {
		t.Fatalf("ReadPRG(0x8000) = %d, want 0 (first PRG byte)", got)
	}
}

func TestMirroringFromHeader(t *testing.T) {
	tests := []struct {
		flags6 uint8
		want   MirrorMode
	}{
		{0x00, MirrorHorizontal},
		{0x01, MirrorVertical},
		{0x08, MirrorFourScreen},
	}
	for _, tt := range tests {
		cart, err := LoadFromReader(bytes.NewReader(buildROM(1, 1, tt.flags6, 0, false)))
		if err != nil {
			t.Fatalf("LoadFromReader() err = %v", err)
		}
		if got := cart.Mirroring(); got != tt.want {
			t.Errorf("flags6=%#x Mirroring() = %v, want %v", tt.flags6, got, tt.want)
		}
	}
}

func TestNROMPRGMirroring16K(t *testing.T) {
	cart, err := LoadFromReader(bytes.NewReader(buildROM(1, 1, 0, 0, false)))
	if err != nil {
		t.Fatalf("LoadFromReader() err = %v", err)
	}
	if cart.ReadPRG(0, 0x8000) != cart.ReadPRG(0, 0xC000) {
		t.Fatalf("16KB PRG ROM not mirrored into upper half")
	}
}

func TestNROMCHRRAMWhenZeroBanks(t *testing.T) {
	cart, err := LoadFromReader(bytes.NewReader(buildROM(1, 0, 0, 0, false)))
	if err != nil {
		t.Fatalf("LoadFromReader() err = %v", err)
	}
	cart.WriteCHR(0x0010, 0x42)
	if got := cart.ReadCHR(0x0010); got != 0x42 {
		t.Fatalf("ReadCHR(0x0010) = %#x, want 0x42 (CHR-RAM write should stick)", got)
	}
}

func TestNROMSRAM(t *testing.T) {
	cart, err := LoadFromReader(bytes.NewReader(buildROM(1, 1, 0, 0, false)))
	if err != nil {
		t.Fatalf("LoadFromReader() err = %v", err)
	}
	cart.WritePRG(0, 0x6123, 0x55)
	if got := cart.ReadPRG(0, 0x6123); got != 0x55 {
		t.Fatalf("SRAM round-trip = %#x, want 0x55", got)
	}
}

func TestNES2FeatureDetectionRejectsExoticSizing(t *testing.T) {
	data := buildROM(1, 1, 0, 0x08, false) // flags7 low nibble 0x08 => NES2.0
	data[9] = 0x0F                         // exponent-multiplier size encoding
	_, err := LoadFromReader(bytes.NewReader(data))
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != UnsupportedNes2Feature {
		t.Fatalf("LoadFromReader() err = %v, want UnsupportedNes2Feature", err)
	}
}
