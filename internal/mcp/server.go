// Package mcp provides a Model Context Protocol server for the canon
// registry and scanner.
//
// It exposes canon management (add, list, remove) and prose scanning as
// MCP tools, and the registry contents and stats as MCP resources, over
// stdio transport for editor hosts.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quillside/canon/internal/canon"
	"github.com/quillside/canon/internal/scan"
	"github.com/quillside/canon/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store   store.Store
	Version string       // version string for MCP server info
	Engine  *scan.Engine // optional, defaults to scan.NewEngine()
}

// dbMu serializes all MCP handlers that touch the database.
// The mcp-go library dispatches handlers concurrently via goroutines.
// SQLite (even with WAL) supports only one writer at a time, and a scan
// persisted by one call must be visible to the next.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all canon tools and
// resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Canon",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	engine := cfg.Engine
	if engine == nil {
		engine = scan.NewEngine()
	}

	registerScanTool(s, engine, cfg.Store)
	registerAddTool(s, cfg.Store)
	registerListTool(s, cfg.Store)
	registerRemoveTool(s, cfg.Store)

	registerEntriesResource(s, cfg.Store)
	registerStatsResource(s, cfg.Store)

	return s
}

// --- Tools ---

func registerScanTool(s *server.MCPServer, engine *scan.Engine, st store.Store) {
	tool := mcp.NewTool("canon_scan",
		mcp.WithDescription("Scan a passage of prose against the canon registry. Returns mentions of registered entries (with occurrence counts) and candidate new entities grouped by category. Optionally persists the result for a named unit."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("prose",
			mcp.Required(),
			mcp.Description("The prose text to scan"),
		),
		mcp.WithString("project",
			mcp.Description("Project whose canon to scan against (default: 'default')"),
		),
		mcp.WithString("unit",
			mcp.Description("Unit identifier (e.g. 'ch03-scene2') to persist this scan under. Empty = don't persist."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		prose, err := req.RequireString("prose")
		if err != nil {
			return mcp.NewToolResultError("prose is required"), nil
		}

		project := "default"
		if p, err := req.RequireString("project"); err == nil && p != "" {
			project = p
		}

		entries, err := st.ListEntries(ctx, store.ListOpts{Project: project})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing canon entries: %v", err)), nil
		}

		canonEntries := make([]canon.Entry, 0, len(entries))
		for _, e := range entries {
			canonEntries = append(canonEntries, *e)
		}

		result := engine.Scan(prose, canonEntries)

		if unit, err := req.RequireString("unit"); err == nil && strings.TrimSpace(unit) != "" {
			payload, err := json.Marshal(result)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("encoding scan result: %v", err)), nil
			}
			_, err = st.SaveScan(ctx, &store.ScanRecord{
				Project:   project,
				Unit:      strings.TrimSpace(unit),
				ScannedAt: result.ScannedAt,
				Result:    payload,
			})
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("saving scan: %v", err)), nil
			}
		}

		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerAddTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("canon_add",
		mcp.WithDescription("Register a new canon entry (character, location, system, artifact, rule, or event). Names are normalized before storage; duplicates within a project are rejected."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Entry category"),
			mcp.Enum("character", "location", "system", "artifact", "rule", "event"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Entry name (e.g. 'Marcus Webb', 'The Sunken Library')"),
		),
		mcp.WithString("project",
			mcp.Description("Project to register the entry under (default: 'default')"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		categoryStr, err := req.RequireString("category")
		if err != nil {
			return mcp.NewToolResultError("category is required"), nil
		}
		category, err := canon.ParseCategory(categoryStr)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}
		if strings.TrimSpace(name) == "" {
			return mcp.NewToolResultError("name cannot be empty"), nil
		}

		project := "default"
		if p, err := req.RequireString("project"); err == nil && p != "" {
			project = p
		}

		entry := &canon.Entry{
			Project:  project,
			Category: category,
			Name:     canon.NormalizeName(name),
		}

		id, err := st.AddEntry(ctx, entry)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateEntry) {
				return mcp.NewToolResultError(fmt.Sprintf("%q is already registered in project %q", entry.Name, project)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("add entry error: %v", err)), nil
		}

		result := map[string]interface{}{
			"id":       id,
			"category": string(category),
			"name":     entry.Name,
			"project":  project,
			"message":  fmt.Sprintf("Registered %s %q (id: %d)", category, entry.Name, id),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerListTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("canon_list",
		mcp.WithDescription("List registered canon entries in registration order, optionally filtered by category."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("category",
			mcp.Description("Filter by category (character, location, system, artifact, rule, event). Empty = all."),
		),
		mcp.WithString("project",
			mcp.Description("Project to list (default: 'default')"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		opts := store.ListOpts{Project: "default"}

		if p, err := req.RequireString("project"); err == nil && p != "" {
			opts.Project = p
		}

		if c, err := req.RequireString("category"); err == nil && c != "" {
			category, err := canon.ParseCategory(c)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			opts.Category = category
		}

		entries, err := st.ListEntries(ctx, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list entries error: %v", err)), nil
		}

		if len(entries) == 0 {
			return mcp.NewToolResultText("No canon entries registered. Use canon_add to register one."), nil
		}

		data, _ := json.MarshalIndent(entries, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerRemoveTool(s *server.MCPServer, st store.Store) {
	tool := mcp.NewTool("canon_remove",
		mcp.WithDescription("Remove a canon entry by id."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithNumber("id", mcp.Required(),
			mcp.Description("Entry id to remove (from canon_list)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		idVal, err := req.RequireFloat("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		id := int64(idVal)

		if err := st.DeleteEntry(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("no entry with id %d", id)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("remove entry error: %v", err)), nil
		}

		result := map[string]interface{}{
			"id":      id,
			"message": fmt.Sprintf("Removed entry %d", id),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// --- Resources ---

func registerEntriesResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"canon://entries",
		"Canon Entries",
		mcp.WithResourceDescription("All registered canon entries in the default project, in registration order."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		entries, err := st.ListEntries(ctx, store.ListOpts{Project: "default"})
		if err != nil {
			return nil, fmt.Errorf("listing entries resource: %w", err)
		}

		type entryInfo struct {
			ID        int64  `json:"id"`
			Category  string `json:"category"`
			Name      string `json:"name"`
			CreatedAt string `json:"created_at"`
		}
		infos := make([]entryInfo, 0, len(entries))
		for _, e := range entries {
			infos = append(infos, entryInfo{
				ID:        e.ID,
				Category:  string(e.Category),
				Name:      e.Name,
				CreatedAt: e.CreatedAt.Format(time.RFC3339),
			})
		}

		payload := map[string]interface{}{
			"entries": infos,
			"count":   len(infos),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func registerStatsResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"canon://stats",
		"Registry Statistics",
		mcp.WithResourceDescription("Canon registry statistics: entry counts by category, persisted scans, and storage size."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("getting stats: %w", err)
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
