package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/quillside/canon/internal/canon"
	"github.com/quillside/canon/internal/config"
	canonmcp "github.com/quillside/canon/internal/mcp"
	"github.com/quillside/canon/internal/scan"
	"github.com/quillside/canon/internal/store"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		err = runScan(os.Args[2:])
	case "add":
		err = runAdd(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "remove":
		err = runRemove(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("canon %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the flags shared by every subcommand plus the leftover
// positional arguments.
type cliFlags struct {
	configPath string
	dbPath     string
	project    string
	unit       string
	category   string
	asJSON     bool
	save       bool
	positional []string
}

func parseFlags(args []string) (cliFlags, error) {
	var f cliFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--json":
			f.asJSON = true
		case arg == "--save":
			f.save = true
		case arg == "--config", arg == "--db", arg == "--project", arg == "--unit", arg == "--category":
			if i+1 >= len(args) {
				return f, fmt.Errorf("%s requires a value", arg)
			}
			i++
			switch arg {
			case "--config":
				f.configPath = args[i]
			case "--db":
				f.dbPath = args[i]
			case "--project":
				f.project = args[i]
			case "--unit":
				f.unit = args[i]
			case "--category":
				f.category = args[i]
			}
		case strings.HasPrefix(arg, "-"):
			return f, fmt.Errorf("unknown flag: %s", arg)
		default:
			f.positional = append(f.positional, arg)
		}
	}
	return f, nil
}

func resolve(f cliFlags) (config.ResolvedConfig, error) {
	return config.Resolve(config.ResolveOptions{
		ConfigPath: f.configPath,
		CLIDBPath:  f.dbPath,
		CLIProject: f.project,
	})
}

func openStore(cfg config.ResolvedConfig) (store.Store, error) {
	s, err := store.NewStore(store.StoreConfig{DBPath: cfg.DBPath.Value})
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", cfg.DBPath.Value, err)
	}
	return s, nil
}

func buildEngine(tuning config.ScanTuning) *scan.Engine {
	opts := []scan.Option{
		scan.WithTables(scan.Tables{
			StopWords:       tuning.ExtraStopWords,
			CommonWords:     tuning.ExtraCommonWords,
			RoleWords:       tuning.ExtraRoleWords,
			AliasProneRoles: tuning.ExtraAliasProneRoles,
		}),
	}
	if tuning.CandidateCap > 0 {
		opts = append(opts, scan.WithCandidateCap(tuning.CandidateCap))
	}
	if tuning.CategoryCap > 0 {
		opts = append(opts, scan.WithCategoryCap(tuning.CategoryCap))
	}
	return scan.NewEngine(opts...)
}

func runScan(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if f.save && f.unit == "" {
		return fmt.Errorf("--save requires --unit <name>")
	}

	var prose string
	switch len(f.positional) {
	case 0:
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		prose = string(b)
	case 1:
		b, err := os.ReadFile(f.positional[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.positional[0], err)
		}
		prose = string(b)
	default:
		return fmt.Errorf("usage: canon scan [file] [--json] [--save --unit <name>]")
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	entries, err := s.ListEntries(ctx, store.ListOpts{Project: cfg.Project.Value})
	if err != nil {
		return fmt.Errorf("listing canon entries: %w", err)
	}
	canonEntries := make([]canon.Entry, 0, len(entries))
	for _, e := range entries {
		canonEntries = append(canonEntries, *e)
	}

	result := buildEngine(cfg.Scan).Scan(prose, canonEntries)

	if f.save {
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encoding scan result: %w", err)
		}
		if _, err := s.SaveScan(ctx, &store.ScanRecord{
			Project:   cfg.Project.Value,
			Unit:      f.unit,
			ScannedAt: result.ScannedAt,
			Result:    payload,
		}); err != nil {
			return fmt.Errorf("saving scan: %w", err)
		}
	}

	if f.asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printScanResult(result)
	return nil
}

func printScanResult(result scan.Result) {
	if len(result.ExistingMentions) == 0 {
		fmt.Println("Canon mentions: none")
	} else {
		fmt.Println("Canon mentions:")
		for _, m := range result.ExistingMentions {
			fmt.Printf("  %-10s %s (%d)\n", m.Category, m.Name, m.Count)
		}
	}

	printGroup := func(label string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Printf("New %s:\n", label)
		for _, n := range names {
			fmt.Printf("  %s\n", n)
		}
	}
	printGroup("characters", result.NewEntities.Characters)
	printGroup("locations", result.NewEntities.Locations)
	printGroup("systems", result.NewEntities.Systems)
	printGroup("artifacts", result.NewEntities.Artifacts)
}

func runAdd(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.positional) < 2 {
		return fmt.Errorf("usage: canon add <category> <name>")
	}

	category, err := canon.ParseCategory(f.positional[0])
	if err != nil {
		return err
	}
	name := canon.NormalizeName(strings.Join(f.positional[1:], " "))
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.AddEntry(context.Background(), &canon.Entry{
		Project:  cfg.Project.Value,
		Category: category,
		Name:     name,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Registered %s %q (id: %d)\n", category, name, id)
	return nil
}

func runList(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	opts := store.ListOpts{}
	if f.category != "" {
		category, err := canon.ParseCategory(f.category)
		if err != nil {
			return err
		}
		opts.Category = category
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	opts.Project = cfg.Project.Value
	entries, err := s.ListEntries(context.Background(), opts)
	if err != nil {
		return err
	}

	if f.asJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No canon entries registered. Use `canon add` to register one.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%4d  %-10s %s\n", e.ID, e.Category, e.Name)
	}
	return nil
}

func runRemove(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.positional) != 1 {
		return fmt.Errorf("usage: canon remove <id>")
	}
	id, err := strconv.ParseInt(f.positional[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", f.positional[0])
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteEntry(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("Removed entry %d\n", id)
	return nil
}

func runStats(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Stats(context.Background(), cfg.Project.Value)
	if err != nil {
		return err
	}

	if f.asJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Entries:         %d\n", stats.EntryCount)
	for cat, n := range stats.ByCategory {
		fmt.Printf("  %-12s %d\n", cat, n)
	}
	fmt.Printf("Persisted scans: %d\n", stats.ScanCount)
	fmt.Printf("Database size:   %d bytes\n", stats.DBSizeBytes)
	return nil
}

func runConfig(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runMCP(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := canonmcp.NewServer(canonmcp.ServerConfig{
		Store:   s,
		Version: version,
		Engine:  buildEngine(cfg.Scan),
	})

	fmt.Fprintln(os.Stderr, "canon MCP server listening on stdio")
	return server.ServeStdio(srv)
}

func printUsage() {
	fmt.Printf(`canon %s — Canon registry and consistency scanner for serial fiction

Usage:
  canon <command> [arguments]

Commands:
  scan [file]             Scan prose (file or stdin) against the canon registry
  add <category> <name>   Register a canon entry
  list                    List registered canon entries
  remove <id>             Remove a canon entry
  stats                   Show registry statistics
  config                  Show resolved configuration with value provenance
  mcp                     Serve the MCP stdio interface for editor hosts
  version                 Print version

Scan Flags:
  --json                  Emit the full scan result as JSON
  --save                  Persist the result (requires --unit)
  --unit <name>           Unit identifier for persisted scans (e.g. ch03-scene2)

Flags:
  --project <name>        Project scope (default: default, or CANON_PROJECT)
  --db <path>             Registry database path (default: ~/.canon/canon.db)
  --config <path>         Config file path (default: ~/.canon/config.yaml)
  --category <name>       Category filter for list
  -h, --help              Show this help message
  -v, --version           Print version
`, version)
}
