package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/config"
	bleveTransport "github.com/kailas-cloud/appsearch/internal/transport/bleve"
)

const indexBatchSize = 500

var indexCmd = &cobra.Command{
	Use:   "index <engine> <documents.jsonl>",
	Short: "Build the embedded spellcheck index for an engine",
	Long: `Index reads one JSON document per line and writes the engine's configured
spellcheck fields into a bleve index under spellcheck.bleve_dir. Every document
needs an "id" member. An existing index is replaced.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Spellcheck.BleveDir == "" {
			return fmt.Errorf("spellcheck.bleve_dir is not set")
		}
		ec, ok := cfg.Spellcheck.Engines[args[0]]
		if !ok || ec.InternalIndex == "" || len(ec.Fields) == 0 {
			return fmt.Errorf("no spellcheck index configured for engine %q", args[0])
		}
		n, err := buildIndex(cfg.Spellcheck, ec, args[1])
		if err != nil {
			return err
		}
		logger.Info("Spellcheck index built",
			zap.String("index", ec.InternalIndex),
			zap.Strings("fields", ec.Fields),
			zap.Int("documents", n),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func buildIndex(sc config.SpellcheckConfig, ec config.SpellcheckEngineConfig, source string) (int, error) {
	f, err := os.Open(filepath.Clean(source))
	if err != nil {
		return 0, fmt.Errorf("open documents: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := os.RemoveAll(filepath.Join(sc.BleveDir, ec.InternalIndex)); err != nil {
		return 0, fmt.Errorf("remove old index: %w", err)
	}
	if err := os.MkdirAll(sc.BleveDir, 0o750); err != nil {
		return 0, fmt.Errorf("create index dir: %w", err)
	}

	s := bleveTransport.New(sc.BleveDir)
	defer func() { _ = s.Close() }()
	idx, err := s.Create(ec.InternalIndex, ec.Fields)
	if err != nil {
		return 0, err
	}

	batch := idx.NewBatch()
	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		id, _ := doc["id"].(string)
		if id == "" {
			return count, fmt.Errorf("line %d: missing id", line)
		}
		fields := make(map[string]any, len(ec.Fields))
		for _, name := range ec.Fields {
			if v, ok := doc[name]; ok {
				fields[name] = v
			}
		}
		if err := batch.Index(id, fields); err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		count++
		if batch.Size() >= indexBatchSize {
			if err := idx.Batch(batch); err != nil {
				return count, fmt.Errorf("write batch: %w", err)
			}
			batch.Reset()
		}
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read documents: %w", err)
	}
	if err := idx.Batch(batch); err != nil {
		return count, fmt.Errorf("write batch: %w", err)
	}
	return count, nil
}
