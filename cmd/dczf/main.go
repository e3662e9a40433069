// Command dczf is the command-line front end for the DCZF chunked
// Huffman compressor, grounded on cmd/evrtools's run()-returns-error/
// os.Exit(1) shape but rebuilt on cobra for its compress/decompress/verify
// subcommands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/ratelimit"

	"github.com/goopsie/dczf/internal/config"
	"github.com/goopsie/dczf/internal/logging"
	"github.com/goopsie/dczf/pkg/compressor"
	"github.com/goopsie/dczf/pkg/decompressor"
	"github.com/goopsie/dczf/pkg/verify"
)

// progressUpdatesPerSecond throttles how often progress callbacks actually
// print, so a multi-gigabyte file with thousands of chunks doesn't flood
// the terminal.
const progressUpdatesPerSecond = 4

var (
	configPath     string
	logLevelFlag   string
	checkChecksums bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dczf",
		Short:         "Chunked canonical-Huffman file compressor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to YAML configuration file")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override the configured log level")

	root.AddCommand(newCompressCmd())
	root.AddCommand(newDecompressCmd())
	root.AddCommand(newVerifyCmd())
	return root
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	return cfg, nil
}

func newCompressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compress <input> <output> [chunk_size_mb]",
		Short: "Compress a file into a DCZF container",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel)

			chunkSizeBytes := cfg.ChunkSizeBytes()
			if len(args) == 3 {
				var mb int
				if _, err := fmt.Sscanf(args[2], "%d", &mb); err != nil || mb <= 0 {
					return fmt.Errorf("invalid chunk_size_mb %q", args[2])
				}
				chunkSizeBytes = uint32(mb) * 1024 * 1024
			}

			c := compressor.New(compressor.WithChunkSize(chunkSizeBytes), compressor.WithLogger(log))

			inStat, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("stat input: %w", err)
			}
			fmt.Printf("Compressing %s (%s)...\n", args[0], humanize.Bytes(uint64(inStat.Size())))

			rl := ratelimit.New(progressUpdatesPerSecond)
			err = c.Compress(context.Background(), args[0], args[1], func(fraction float64) {
				rl.Take()
				fmt.Printf("\r%.1f%% complete", fraction*100)
			})
			fmt.Println()
			if err != nil {
				return fmt.Errorf("compress: %w", err)
			}

			outStat, err := os.Stat(args[1])
			if err == nil {
				fmt.Printf("Wrote %s (%s)\n", args[1], humanize.Bytes(uint64(outStat.Size())))
			}
			return nil
		},
	}
}

func newDecompressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompress <input> <output>",
		Short: "Decompress a DCZF container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel)

			d := decompressor.New(decompressor.WithLogger(log))

			fmt.Printf("Decompressing %s...\n", args[0])
			rl := ratelimit.New(progressUpdatesPerSecond)
			err = d.Decompress(context.Background(), args[0], args[1], func(fraction float64) {
				rl.Take()
				fmt.Printf("\r%.1f%% complete", fraction*100)
			})
			fmt.Println()
			if err != nil {
				return fmt.Errorf("decompress: %w", err)
			}

			outStat, err := os.Stat(args[1])
			if err == nil {
				fmt.Printf("Wrote %s (%s)\n", args[1], humanize.Bytes(uint64(outStat.Size())))
			}
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <compressed>",
		Short: "Check the structural integrity of a DCZF container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []verify.Option
			if checkChecksums {
				opts = append(opts, verify.WithChecksumRecompute())
			}

			result, err := verify.Verify(args[0], opts...)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			if !result.OK {
				fmt.Printf("INVALID: %s\n", result.Reason)
				os.Exit(1)
			}
			fmt.Printf("OK: %d chunks, %s original size\n", result.NumChunks, humanize.Bytes(result.OriginalFileSize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkChecksums, "recompute-checksums", false, "also re-fold and compare per-chunk checksums against the global checksum")
	return cmd
}
