package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/adapters/datasource"
	"github.com/sqlmend/sqlmend/pkg/config"
	"github.com/sqlmend/sqlmend/pkg/llm"
	"github.com/sqlmend/sqlmend/pkg/logging"
	"github.com/sqlmend/sqlmend/pkg/mcp"
	"github.com/sqlmend/sqlmend/pkg/pipeline"
	"github.com/sqlmend/sqlmend/pkg/schema"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	question := flag.String("ask", "", "answer one question and exit (default: serve MCP on stdio)")
	offline := flag.Bool("offline", false, "generate SQL without a database connection")
	flag.Parse()

	cfg, err := config.Load(*configPath, Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger, *question, *offline); err != nil {
		logger.Fatal("sqlmend failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, question string, offline bool) error {
	ctx := context.Background()

	sc, err := loadSchema(cfg.SchemaFile)
	if err != nil {
		return fmt.Errorf("load schema packet: %w", err)
	}
	logger.Info("schema packet loaded",
		zap.String("database", sc.DatabaseID),
		zap.Int("tables", len(sc.Tables)),
		zap.Int("foreign_keys", len(sc.ForeignKeys)))

	generator, err := llm.NewChatClient(cfg.LLM.Factory(), logger)
	if err != nil {
		return fmt.Errorf("create generator client: %w", err)
	}

	var executor datasource.QueryExecutor
	if !offline {
		if cfg.Datasource.DSN == "" {
			return fmt.Errorf("DATASOURCE_DSN is not set (use -offline to generate SQL without a database)")
		}
		executor, err = datasource.New(ctx, cfg.Datasource, logger)
		if err != nil {
			return fmt.Errorf("connect datasource: %w", err)
		}
		defer executor.Close()
		if err := executor.Ping(ctx); err != nil {
			return fmt.Errorf("datasource unreachable: %w", err)
		}
	}

	engine := pipeline.NewEngine(generator, executor, sc, cfg.Pipeline, logger)
	engine.SetBlacklist(cfg.Blacklist())

	if question != "" {
		return answerOnce(ctx, engine, question)
	}

	srv := mcp.NewServer(cfg.Version, &mcp.Deps{Engine: engine, Schema: sc, Logger: logger})
	return srv.ServeStdio()
}

func answerOnce(ctx context.Context, engine *pipeline.Engine, question string) error {
	resp, err := engine.Answer(ctx, question)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// loadSchema reads the schema context packet produced by the retrieval layer.
func loadSchema(path string) (*schema.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc schema.Context
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(sc.Tables) == 0 {
		return nil, fmt.Errorf("%s contains no tables", path)
	}
	return &sc, nil
}
