// Package app provides save state functionality for the NES emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gones/internal/debugger"
	"gones/internal/engine"
)

// StateManager manages save states
type StateManager struct {
	saveDirectory string
	maxSlots      int
	initialized   bool
}

// SaveState represents a saved emulator state
type SaveState struct {
	// Metadata
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	ROMPath     string    `json:"rom_path"`
	ROMChecksum string    `json:"rom_checksum"`
	SlotNumber  int       `json:"slot_number"`
	Description string    `json:"description"`

	// Emulator state
	CPUState    CPUStateData `json:"cpu_state"`
	PPUState    PPUStateData `json:"ppu_state"`
	MemoryState MemoryData   `json:"memory_state"`

	// Frame information
	FrameCount uint64 `json:"frame_count"`
	CycleCount uint64 `json:"cycle_count"`
}

// CPUStateData represents CPU state for save files
type CPUStateData struct {
	PC     uint16 `json:"pc"`
	A      uint8  `json:"a"`
	X      uint8  `json:"x"`
	Y      uint8  `json:"y"`
	SP     uint8  `json:"sp"`
	Status uint8  `json:"status"`
	Cycles uint64 `json:"cycles"`
}

// PPUStateData represents PPU state for save files
type PPUStateData struct {
	Scanline   int    `json:"scanline"`
	Dot        int    `json:"dot"`
	FrameCount uint64 `json:"frame_count"`
}

// MemoryData represents memory state for save files
type MemoryData struct {
	RAMData     []uint8 `json:"ram_data"`
	VRAMData    []uint8 `json:"vram_data"`
	OAMData     []uint8 `json:"oam_data"`
	PaletteData []uint8 `json:"palette_data"`
}

// StateSlotInfo contains information about a save state slot
type StateSlotInfo struct {
	SlotNumber  int       `json:"slot_number"`
	Used        bool      `json:"used"`
	Timestamp   time.Time `json:"timestamp"`
	ROMPath     string    `json:"rom_path"`
	Description string    `json:"description"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
}

// NewStateManager creates a new state manager
func NewStateManager(saveDirectory string) *StateManager {
	manager := &StateManager{
		saveDirectory: saveDirectory,
		maxSlots:      10, // Default to 10 save slots
		initialized:   false,
	}

	if err := manager.initialize(); err != nil {
		// Log error but continue
		fmt.Printf("Warning: State manager initialization failed: %v\n", err)
	}

	return manager
}

// initialize initializes the state manager
func (sm *StateManager) initialize() error {
	if err := os.MkdirAll(sm.saveDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create save directory: %v", err)
	}

	sm.initialized = true
	return nil
}

// SaveState saves the current emulator state to a slot
func (sm *StateManager) SaveState(eng *engine.Engine, slot int, romPath string) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}

	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}

	if eng == nil {
		return fmt.Errorf("engine cannot be nil")
	}

	saveState := &SaveState{
		Version:     "1.0",
		Timestamp:   time.Now(),
		ROMPath:     romPath,
		ROMChecksum: sm.calculateROMChecksum(romPath),
		SlotNumber:  slot,
		Description: fmt.Sprintf("Auto-save %s", time.Now().Format("2006-01-02 15:04:05")),
		FrameCount:  eng.FrameCount(),
		CycleCount:  eng.CycleCount(),
	}

	cpuSnap := debugger.SnapshotCPU(eng.Bus.CPU)
	saveState.CPUState = CPUStateData{
		PC:     cpuSnap.PC,
		A:      cpuSnap.A,
		X:      cpuSnap.X,
		Y:      cpuSnap.Y,
		SP:     cpuSnap.SP,
		Status: cpuSnap.Status,
		Cycles: cpuSnap.Cycles,
	}

	ppuSnap := debugger.SnapshotPPU(eng.Bus.PPU)
	saveState.PPUState = PPUStateData{
		Scanline:   ppuSnap.Scanline,
		Dot:        ppuSnap.Dot,
		FrameCount: ppuSnap.FrameCount,
	}

	ram := eng.Bus.RAM()
	vram := eng.Bus.PPU.VRAM()
	oam := eng.Bus.PPU.OAM()
	palette := eng.Bus.PPU.PaletteRAM()
	saveState.MemoryState = MemoryData{
		RAMData:     append([]uint8(nil), ram[:]...),
		VRAMData:    append([]uint8(nil), vram[:]...),
		OAMData:     append([]uint8(nil), oam[:]...),
		PaletteData: append([]uint8(nil), palette[:]...),
	}

	filePath := sm.getSlotFilePath(slot, romPath)

	if err := sm.saveToFile(saveState, filePath); err != nil {
		return fmt.Errorf("failed to save state: %v", err)
	}

	return nil
}

// LoadState loads a saved state from a slot
func (sm *StateManager) LoadState(eng *engine.Engine, slot int, romPath string) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}

	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}

	if eng == nil {
		return fmt.Errorf("engine cannot be nil")
	}

	filePath := sm.getSlotFilePath(slot, romPath)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("save state not found in slot %d", slot)
	}

	saveState, err := sm.loadFromFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to load state: %v", err)
	}

	if err := sm.validateSaveState(saveState, romPath); err != nil {
		return fmt.Errorf("invalid save state: %v", err)
	}

	if err := sm.restoreState(eng, saveState); err != nil {
		return fmt.Errorf("failed to restore state: %v", err)
	}

	return nil
}

// saveToFile saves a state to a file
func (sm *StateManager) saveToFile(state *SaveState, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %v", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %v", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %v", err)
	}

	return nil
}

// loadFromFile loads a state from a file
func (sm *StateManager) loadFromFile(filePath string) (*SaveState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %v", err)
	}

	var state SaveState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %v", err)
	}

	return &state, nil
}

// validateSaveState validates a loaded save state
func (sm *StateManager) validateSaveState(state *SaveState, currentROMPath string) error {
	if state.Version == "" {
		return fmt.Errorf("missing version information")
	}

	if state.ROMPath != currentROMPath {
		return fmt.Errorf("save state is for a different ROM")
	}

	if len(state.MemoryState.RAMData) != 0x800 {
		return fmt.Errorf("corrupt RAM snapshot: got %d bytes, want 2048", len(state.MemoryState.RAMData))
	}

	return nil
}

// restoreState restores emulator state from a save state
func (sm *StateManager) restoreState(eng *engine.Engine, state *SaveState) error {
	eng.Bus.CPU.A = state.CPUState.A
	eng.Bus.CPU.X = state.CPUState.X
	eng.Bus.CPU.Y = state.CPUState.Y
	eng.Bus.CPU.SP = state.CPUState.SP
	eng.Bus.CPU.PC = state.CPUState.PC
	eng.Bus.CPU.SetStatusByte(state.CPUState.Status)

	eng.Bus.SetCycleCount(state.CycleCount)

	copy(eng.Bus.RAM()[:], state.MemoryState.RAMData)
	copy(eng.Bus.PPU.VRAM()[:], state.MemoryState.VRAMData)
	copy(eng.Bus.PPU.OAM()[:], state.MemoryState.OAMData)
	copy(eng.Bus.PPU.PaletteRAM()[:], state.MemoryState.PaletteData)

	return nil
}

// getSlotFilePath generates the file path for a save slot
func (sm *StateManager) getSlotFilePath(slot int, romPath string) string {
	romName := filepath.Base(romPath)
	romNameWithoutExt := romName[:len(romName)-len(filepath.Ext(romName))]
	fileName := fmt.Sprintf("%s_slot_%d.save", romNameWithoutExt, slot)
	return filepath.Join(sm.saveDirectory, fileName)
}

// calculateROMChecksum calculates a checksum for ROM verification
func (sm *StateManager) calculateROMChecksum(romPath string) string {
	// Simplified checksum - in a real implementation,
	// you would calculate MD5/SHA256 of the ROM file
	return fmt.Sprintf("checksum_%s", filepath.Base(romPath))
}

// GetSlotInfo returns information about all save slots
func (sm *StateManager) GetSlotInfo(romPath string) []StateSlotInfo {
	slots := make([]StateSlotInfo, sm.maxSlots)

	for i := 0; i < sm.maxSlots; i++ {
		slotInfo := StateSlotInfo{
			SlotNumber: i,
			Used:       false,
		}

		filePath := sm.getSlotFilePath(i, romPath)
		if stat, err := os.Stat(filePath); err == nil {
			slotInfo.Used = true
			slotInfo.FilePath = filePath
			slotInfo.FileSize = stat.Size()
			slotInfo.Timestamp = stat.ModTime()

			if state, err := sm.loadFromFile(filePath); err == nil {
				slotInfo.ROMPath = state.ROMPath
				slotInfo.Description = state.Description
				slotInfo.Timestamp = state.Timestamp
			}
		}

		slots[i] = slotInfo
	}

	return slots
}

// DeleteState deletes a save state from a slot
func (sm *StateManager) DeleteState(slot int, romPath string) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}

	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d", slot)
	}

	filePath := sm.getSlotFilePath(slot, romPath)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("save state not found in slot %d", slot)
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete save state: %v", err)
	}

	return nil
}

// HasSaveState checks if a save state exists in a slot
func (sm *StateManager) HasSaveState(slot int, romPath string) bool {
	if slot < 0 || slot >= sm.maxSlots {
		return false
	}

	filePath := sm.getSlotFilePath(slot, romPath)
	_, err := os.Stat(filePath)
	return err == nil
}

// GetMaxSlots returns the maximum number of save slots
func (sm *StateManager) GetMaxSlots() int {
	return sm.maxSlots
}

// SetMaxSlots sets the maximum number of save slots
func (sm *StateManager) SetMaxSlots(slots int) {
	if slots > 0 {
		sm.maxSlots = slots
	}
}

// GetSaveDirectory returns the save directory path
func (sm *StateManager) GetSaveDirectory() string {
	return sm.saveDirectory
}

// SetSaveDirectory sets the save directory path
func (sm *StateManager) SetSaveDirectory(directory string) error {
	sm.saveDirectory = directory
	return sm.initialize()
}

// ExportState exports a save state to a specific file
func (sm *StateManager) ExportState(eng *engine.Engine, filePath string, romPath string) error {
	saveState := &SaveState{
		Version:     "1.0",
		Timestamp:   time.Now(),
		ROMPath:     romPath,
		ROMChecksum: sm.calculateROMChecksum(romPath),
		SlotNumber:  -1, // Export doesn't use slots
		Description: fmt.Sprintf("Export %s", time.Now().Format("2006-01-02 15:04:05")),
		FrameCount:  eng.FrameCount(),
		CycleCount:  eng.CycleCount(),
	}

	cpuSnap := debugger.SnapshotCPU(eng.Bus.CPU)
	saveState.CPUState = CPUStateData{
		PC:     cpuSnap.PC,
		A:      cpuSnap.A,
		X:      cpuSnap.X,
		Y:      cpuSnap.Y,
		SP:     cpuSnap.SP,
		Status: cpuSnap.Status,
		Cycles: cpuSnap.Cycles,
	}

	ram := eng.Bus.RAM()
	vram := eng.Bus.PPU.VRAM()
	oam := eng.Bus.PPU.OAM()
	palette := eng.Bus.PPU.PaletteRAM()
	saveState.MemoryState = MemoryData{
		RAMData:     append([]uint8(nil), ram[:]...),
		VRAMData:    append([]uint8(nil), vram[:]...),
		OAMData:     append([]uint8(nil), oam[:]...),
		PaletteData: append([]uint8(nil), palette[:]...),
	}

	return sm.saveToFile(saveState, filePath)
}

// ImportState imports a save state from a specific file
func (sm *StateManager) ImportState(eng *engine.Engine, filePath string, romPath string) error {
	saveState, err := sm.loadFromFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to import state: %v", err)
	}

	if err := sm.validateSaveState(saveState, romPath); err != nil {
		return fmt.Errorf("invalid imported state: %v", err)
	}

	return sm.restoreState(eng, saveState)
}

// Cleanup cleans up state manager resources
func (sm *StateManager) Cleanup() error {
	sm.initialized = false
	return nil
}

// GetStateManagerStats returns statistics about the state manager
func (sm *StateManager) GetStateManagerStats(romPath string) StateManagerStats {
	slots := sm.GetSlotInfo(romPath)

	var usedSlots int
	var totalSize int64
	for _, slot := range slots {
		if slot.Used {
			usedSlots++
			totalSize += slot.FileSize
		}
	}

	return StateManagerStats{
		MaxSlots:      sm.maxSlots,
		UsedSlots:     usedSlots,
		FreeSlots:     sm.maxSlots - usedSlots,
		TotalSize:     totalSize,
		SaveDirectory: sm.saveDirectory,
		Initialized:   sm.initialized,
	}
}

// StateManagerStats contains state manager statistics
type StateManagerStats struct {
	MaxSlots      int    `json:"max_slots"`
	UsedSlots     int    `json:"used_slots"`
	FreeSlots     int    `json:"free_slots"`
	TotalSize     int64  `json:"total_size"`
	SaveDirectory string `json:"save_directory"`
	Initialized   bool   `json:"initialized"`
}
