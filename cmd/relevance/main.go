package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/clearcart/relevance/internal/catalog"
	"github.com/clearcart/relevance/internal/config"
	"github.com/clearcart/relevance/internal/engine"
	"github.com/clearcart/relevance/internal/mcp"
	"github.com/clearcart/relevance/internal/rank"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "import":
		if err := runImport(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "search":
		if err := runSearch(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "related":
		if err := runRelated(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "stats":
		if err := runStats(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mcp":
		if err := runMCP(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("relevance %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// cliFlags holds the hand-parsed flag values shared by the subcommands.
type cliFlags struct {
	configPath string
	dbPath     string
	rulesPath  string
	category   string
	brand      string
	limit      string
	cacheSize  string
	positional []string
}

func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{}
	i := 0
	takeValue := func() (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", args[i])
		}
		i++
		return args[i], nil
	}
	for ; i < len(args); i++ {
		arg := args[i]

		var err error
		switch arg {
		case "--config":
			f.configPath, err = takeValue()
		case "--db":
			f.dbPath, err = takeValue()
		case "--rules":
			f.rulesPath, err = takeValue()
		case "--category", "-c":
			f.category, err = takeValue()
		case "--brand", "-b":
			f.brand, err = takeValue()
		case "--limit", "-l":
			f.limit, err = takeValue()
		case "--cache-size":
			f.cacheSize, err = takeValue()
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown flag: %s", arg)
			}
			f.positional = append(f.positional, arg)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func resolveConfig(f *cliFlags) (config.ResolvedConfig, error) {
	return config.Resolve(config.ResolveOptions{
		ConfigPath:   f.configPath,
		CLIDBPath:    f.dbPath,
		CLIRulesPath: f.rulesPath,
		CLICacheSize: f.cacheSize,
	})
}

func openRepo(cfg config.ResolvedConfig) (*catalog.SQLiteRepository, error) {
	repo, err := catalog.NewSQLiteRepository(cfg.DBPath.Value)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return repo, nil
}

func buildEngine(cfg config.ResolvedConfig, repo catalog.Repository) (*engine.Engine, error) {
	var rules *rank.RuleSet
	if path := cfg.RulesPath.Value; path != "" {
		loaded, err := rank.LoadRules(path)
		if err != nil {
			return nil, fmt.Errorf("loading rules from %s: %w", path, err)
		}
		rules = loaded
	}
	return engine.New(engine.Config{
		Repository:   repo,
		Rules:        rules,
		CacheSize:    cfg.CacheSizeOrDefault(0),
		LegacyScorer: cfg.UseLegacyScorer(),
		Logf: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
	}), nil
}

func runImport(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.positional) == 0 {
		return fmt.Errorf("usage: relevance import <catalog.json> [--db path]")
	}

	cfg, err := resolveConfig(f)
	if err != nil {
		return err
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := context.Background()
	for _, path := range f.positional {
		fmt.Printf("Importing %s...\n", path)
		result, err := catalog.ImportJSON(ctx, repo, path)
		if err != nil {
			return err
		}
		fmt.Printf("  %d imported, %d skipped\n", result.Imported, result.Skipped)
	}
	return nil
}

func runSearch(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.positional) == 0 {
		return fmt.Errorf("usage: relevance search <query> [--category c] [--brand b] [--limit n]")
	}
	query := strings.Join(f.positional, " ")

	cfg, err := resolveConfig(f)
	if err != nil {
		return err
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	eng, err := buildEngine(cfg, repo)
	if err != nil {
		return err
	}

	opts := engine.Options{Category: f.category, Brand: f.brand}
	if f.limit != "" {
		n, err := strconv.Atoi(f.limit)
		if err != nil {
			return fmt.Errorf("invalid --limit %q", f.limit)
		}
		opts.Limit = n
	} else {
		opts.Limit = cfg.MaxResultsOrDefault(engine.DefaultLimit)
	}

	results := eng.Search(context.Background(), query, opts)
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		p := r.Product
		fmt.Printf("%2d. [%6.2f] %s", i+1, r.Score, p.Name)
		var details []string
		if p.Brand != "" {
			details = append(details, p.Brand)
		}
		if p.Category != "" {
			details = append(details, p.Category)
		}
		details = append(details, fmt.Sprintf("$%.2f", p.Price))
		fmt.Printf("  (%s)\n", strings.Join(details, ", "))
	}
	return nil
}

func runRelated(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.positional) == 0 {
		return fmt.Errorf("usage: relevance related <brand> [--limit n]")
	}
	brand := strings.Join(f.positional, " ")

	cfg, err := resolveConfig(f)
	if err != nil {
		return err
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	eng, err := buildEngine(cfg, repo)
	if err != nil {
		return err
	}

	limit := 0
	if f.limit != "" {
		if limit, err = strconv.Atoi(f.limit); err != nil {
			return fmt.Errorf("invalid --limit %q", f.limit)
		}
	}

	related := eng.RelatedBrands(context.Background(), brand, limit)
	if len(related) == 0 {
		fmt.Printf("No related brands for %q.\n", brand)
		return nil
	}
	for i, r := range related {
		fmt.Printf("%2d. [%.3f] %s\n", i+1, r.Relatedness, r.Brand)
	}
	return nil
}

func runStats(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(f)
	if err != nil {
		return err
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	stats, err := repo.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	fmt.Printf("Products:   %d\n", stats.ProductCount)
	fmt.Printf("Embeddings: %d\n", stats.EmbeddingCount)
	fmt.Printf("Categories: %d\n", stats.CategoryCount)
	fmt.Printf("Brands:     %d\n", stats.BrandCount)
	fmt.Printf("DB size:    %.1f KB\n", float64(stats.DBSizeBytes)/1024)
	return nil
}

func runMCP(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(f)
	if err != nil {
		return err
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	eng, err := buildEngine(cfg, repo)
	if err != nil {
		return err
	}

	s := mcp.NewServer(mcp.ServerConfig{
		Engine:     eng,
		Repository: repo,
		Version:    version,
	})
	fmt.Fprintln(os.Stderr, "relevance MCP server listening on stdio")
	return mcpserver.ServeStdio(s)
}

func printUsage() {
	fmt.Printf(`relevance %s — product search and ranking engine

Usage:
  relevance <command> [arguments]

Commands:
  import <file.json>  Import a JSON product catalog into the database
  search <query>      Search the catalog with ranked results
  related <brand>     Show brands related to a brand
  stats               Show catalog statistics
  mcp                 Serve the engine over MCP stdio
  version             Print version

Search Flags:
  -c, --category      Exact category filter
  -b, --brand         Exact brand filter
  -l, --limit         Maximum number of results

Flags:
  --config <path>     Config file (default ~/.relevance/config.yaml)
  --db <path>         Catalog database path
  --rules <path>      Intent rules YAML file
  --cache-size <n>    Result cache capacity
  -h, --help          Show this help message
  -v, --version       Print version
`, version)
}
