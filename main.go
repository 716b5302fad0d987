package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/app"
	"github.com/YKunlee/Financial-Research-Agent/config"
	"github.com/YKunlee/Financial-Research-Agent/formatter"
	"github.com/YKunlee/Financial-Research-Agent/jsonutil"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML config file")
		query      = flag.String("query", "", "company name, alias, or ticker to analyze")
		asOfStr    = flag.String("as-of", "", "analysis date (YYYY-MM-DD, default today UTC)")
		jsonOut    = flag.Bool("json", false, "print the structured result as JSON")
		serve      = flag.Bool("serve", false, "run the HTTP API and watchlist scheduler")
	)
	flag.Parse()

	// Load layered config (defaults, optional YAML file, env overrides)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	if *serve {
		application, err := app.New(cfg)
		if err != nil {
			log.Fatal(err)
		}
		if err := application.Start(); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *query == "" {
		fmt.Fprintln(os.Stderr, "usage: financial-research-agent -query <company> [-as-of YYYY-MM-DD] [-json]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	asOf := time.Now().UTC()
	if *asOfStr != "" {
		parsed, err := time.Parse(models.DateLayout, *asOfStr)
		if err != nil {
			log.Fatalf("invalid -as-of date %q, want YYYY-MM-DD", *asOfStr)
		}
		asOf = parsed
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer application.Close()

	result, err := application.Agent().Analyze(context.Background(), *query, asOf)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	if *jsonOut {
		out, err := jsonutil.Marshal(formatter.FormatResult(result.Snapshot, result.Explanation))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(out))
		return
	}

	pointer := filepath.Join(cfg.Snapshot.Dir, result.Snapshot.AnalysisID+".json")
	if cfg.Snapshot.Backend == "sqlite" || cfg.Snapshot.Backend == "postgres" {
		pointer = fmt.Sprintf("%s store, analysis_id=%s", cfg.Snapshot.Backend, result.Snapshot.AnalysisID)
	}
	fmt.Println(formatter.FormatCLI(result.Snapshot, result.Explanation, pointer))
}
