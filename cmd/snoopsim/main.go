// Package main provides the entry point for snoopsim.
// Snoopsim is a cycle-accurate simulator for snoop-based, write-back
// cache-coherent shared-memory multiprocessors.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/akita/v4/datarecording"

	"github.com/sarchlab/snoopsim/sim"
	"github.com/sarchlab/snoopsim/trace"
)

var (
	cacheSize     = flag.Int("cache_size", 4096, "Cache size in bytes")
	associativity = flag.Int("associativity", 2, "Associativity of the cache")
	blockSize     = flag.Int("block_size", 32, "Block size in bytes")
	numCores      = flag.Int("num_cores", 2, "Number of cores")
	writeBuffer   = flag.Bool("write_buffer", false, "Enable the memory write buffer")
	wbCapacity    = flag.Int("write_buffer_capacity", 8,
		"Write buffer capacity (-1 for unbounded)")
	configPath = flag.String("config", "", "Path to a simulation config JSON file")
	recordPath = flag.String("record", "",
		"Record statistics to a SQLite database at this path")
)

func main() {
	flag.Parse()

	if flag.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "Usage: snoopsim [options] <protocol> <input_directory>\n")
		fmt.Fprintf(os.Stderr, "\nProtocols: MESI, Dragon, MOESI, MESIF\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	config, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	inputDir := flag.Arg(1)
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Protocol: %s\n", config.Protocol)
	fmt.Printf("Input directory: %s\n", inputDir)
	fmt.Printf("Cache size: %d\n", config.CacheSize)
	fmt.Printf("Associativity: %d\n", config.Associativity)
	fmt.Printf("Block size: %d\n", config.BlockSize)

	fmt.Printf("Running benchmark: %s\n", filepath.Base(filepath.Clean(inputDir)))
	traces, err := trace.LoadBenchmark(inputDir, config.NumCores)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	system, err := sim.New(config, traces)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	finalCycle := system.Run()
	fmt.Printf("Simulation complete at cycle: %d\n", finalCycle)

	system.Stats().WriteReport(os.Stdout)

	if *recordPath != "" {
		recorder := datarecording.NewDataRecorder(*recordPath)
		system.Stats().Record(recorder)
	}
}

// buildConfig merges the config file (if given) with command-line flags.
// Flags that were set explicitly win over the file.
func buildConfig() (sim.Config, error) {
	config := sim.DefaultConfig()

	if *configPath != "" {
		var err error
		config, err = sim.LoadConfig(*configPath)
		if err != nil {
			return config, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cache_size":
			config.CacheSize = *cacheSize
		case "associativity":
			config.Associativity = *associativity
		case "block_size":
			config.BlockSize = *blockSize
		case "num_cores":
			config.NumCores = *numCores
		case "write_buffer":
			config.UseWriteBuffer = *writeBuffer
		case "write_buffer_capacity":
			config.WriteBufferCapacity = *wbCapacity
		}
	})

	config.Protocol = flag.Arg(0)
	return config, nil
}
