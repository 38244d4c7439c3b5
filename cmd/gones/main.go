package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoshiomiyamaegones/pkg/cartridge"
	"github.com/yoshiomiyamaegones/pkg/gui"
	"github.com/yoshiomiyamaegones/pkg/logger"
	"github.com/yoshiomiyamaegones/pkg/nes"
	"github.com/yoshiomiyamaegones/pkg/savestate"
)

var (
	logLevel   string
	logFile    string
	cpuLog     bool
	ppuLog     bool
	apuLog     bool
	mapperLog  bool
	headless   bool
	testFrames int
	stateFile  string
)

func main() {
	root := &cobra.Command{
		Use:   "gones",
		Short: "GoNES - Nintendo Entertainment System Emulator",
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (off, error, warn, info, debug, trace)")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (empty for stdout)")
	root.PersistentFlags().BoolVar(&cpuLog, "cpu-log", false, "Enable CPU instruction logging")
	root.PersistentFlags().BoolVar(&ppuLog, "ppu-log", false, "Enable PPU logging")
	root.PersistentFlags().BoolVar(&apuLog, "apu-log", false, "Enable APU logging")
	root.PersistentFlags().BoolVar(&mapperLog, "mapper-log", false, "Enable mapper logging")

	if v := os.Getenv("GONES_LOG_LEVEL"); v != "" {
		logLevel = v
	}

	runCmd := &cobra.Command{
		Use:   "run <rom_file>",
		Short: "Run a ROM, either with the SDL GUI or headless",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runROM(args[0])
		},
	}
	runCmd.Flags().BoolVar(&headless, "headless", false, "Run in headless mode for testing")
	runCmd.Flags().IntVar(&testFrames, "test-frames", 600, "Number of frames to run in headless mode")

	loadCmd := &cobra.Command{
		Use:   "load -i <state_file> <rom_file>",
		Short: "Resume a ROM from a saved state file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadROM(args[0], stateFile)
		},
	}
	loadCmd.Flags().StringVarP(&stateFile, "state", "i", "", "Save state file to resume from")
	loadCmd.MarkFlagRequired("state")

	root.AddCommand(runCmd, loadCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogger() error {
	level := logger.GetLogLevelFromString(logLevel)
	if err := logger.Initialize(level, logFile); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetCPULogging(cpuLog)
	logger.SetPPULogging(ppuLog)
	logger.SetAPULogging(apuLog)
	logger.SetMapperLogging(mapperLog)
	return nil
}

func loadCartridge(romFile string) (*cartridge.Cartridge, error) {
	if _, err := os.Stat(romFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("ROM file not found: %s", romFile)
	}

	file, err := os.Open(romFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open ROM file: %w", err)
	}
	defer file.Close()

	cart, err := cartridge.LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load ROM: %w", err)
	}

	mapperNumber := (cart.Header.Flags6 >> 4) | (cart.Header.Flags7 & 0xF0)
	logger.LogInfo("Loaded ROM: %s", filepath.Base(romFile))
	logger.LogInfo("Mapper: %d", mapperNumber)
	logger.LogInfo("PRG ROM: %d KB", len(cart.PRGROM)/1024)
	if len(cart.CHRROM) > 0 {
		logger.LogInfo("CHR ROM: %d KB", len(cart.CHRROM)/1024)
	} else {
		logger.LogInfo("CHR RAM: %d KB", len(cart.CHRRAM)/1024)
	}

	return cart, nil
}

func runROM(romFile string) error {
	if err := initLogger(); err != nil {
		return err
	}
	defer logger.Close()

	cart, err := loadCartridge(romFile)
	if err != nil {
		logger.LogError("%v", err)
		return err
	}

	nesSystem := nes.NewNES()
	nesSystem.LoadCartridge(cart)
	nesSystem.Reset()

	if headless {
		runHeadless(nesSystem, testFrames)
		return nil
	}

	nesGUI, err := gui.NewNESGUI(nesSystem)
	if err != nil {
		logger.LogError("Failed to create GUI: %v", err)
		return err
	}
	defer nesGUI.Destroy()

	nesGUI.Run()
	return nil
}

func loadROM(romFile, stateFile string) error {
	if err := initLogger(); err != nil {
		return err
	}
	defer logger.Close()

	cart, err := loadCartridge(romFile)
	if err != nil {
		logger.LogError("%v", err)
		return err
	}

	nesSystem := nes.NewNES()
	nesSystem.LoadCartridge(cart)
	nesSystem.Reset()

	if err := savestate.Load(stateFile, nesSystem); err != nil {
		logger.LogError("Failed to load save state: %v", err)
		return err
	}
	logger.LogInfo("Resumed from save state: %s", stateFile)

	nesGUI, err := gui.NewNESGUI(nesSystem)
	if err != nil {
		logger.LogError("Failed to create GUI: %v", err)
		return err
	}
	defer nesGUI.Destroy()

	nesGUI.Run()
	return nil
}

func runHeadless(nesSystem *nes.NES, maxFrames int) {
	logger.LogInfo("Starting headless mode for %d frames", maxFrames)

	startTime := time.Now()
	for frame := 0; frame < maxFrames; frame++ {
		nesSystem.StepFrame()
	}
	elapsed := time.Since(startTime)
	logger.LogInfo("Headless execution completed in %v", elapsed)
}
