package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/semgen/semgen"
	"github.com/semgen/semgen/internal/publish"
	publishs3 "github.com/semgen/semgen/internal/publish/s3"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML or JSON configuration file")
	outPath := flag.String("out", "", "write the generated model YAML to this file; stdout when empty")
	doPublish := flag.Bool("publish", false, "also upload the model YAML to the configured object store bucket")
	bestEffort := flag.Bool("best-effort", false, "tolerate per-entity generation failures instead of aborting")
	workers := flag.Int("workers", 0, "override concurrent description generations; 0 keeps the config value")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall generation deadline")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "-config is required")
		os.Exit(1)
	}

	cfg, err := semgen.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *bestEffort {
		cfg.SemanticModel.BestEffort = true
	}
	if *workers > 0 {
		cfg.SemanticModel.Workers = *workers
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	yamlStr, err := semgen.Generate(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(yamlStr), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write model file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote semantic model to %s\n", *outPath)
	} else {
		fmt.Print(yamlStr)
	}

	if *doPublish {
		if cfg.Publish.Bucket == "" {
			fmt.Fprintln(os.Stderr, "publish requested but no bucket configured")
			os.Exit(1)
		}
		store, err := publishs3.New(cfg.Publish)
		if err != nil {
			fmt.Fprintf(os.Stderr, "object store error: %v\n", err)
			os.Exit(1)
		}
		key := publish.ModelKey(cfg.SemanticModel.Name, time.Now())
		if err := store.Put(ctx, key, []byte(yamlStr), publish.YAMLContentType); err != nil {
			fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("published semantic model to s3://%s/%s\n", cfg.Publish.Bucket, key)
	}
}
