package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quillside/canon/internal/canon"
	"github.com/quillside/canon/internal/scan"
	"github.com/quillside/canon/internal/store"
)

// helper: create a test store with some canon entries
func setupTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()

	entries := []*canon.Entry{
		{Project: "default", Category: canon.CategoryCharacter, Name: "Marcus Webb"},
		{Project: "default", Category: canon.CategoryLocation, Name: "Sunken Library"},
		{Project: "default", Category: canon.CategoryArtifact, Name: "Ashen Blade"},
	}
	for _, e := range entries {
		if _, err := s.AddEntry(ctx, e); err != nil {
			t.Fatalf("adding test entry: %v", err)
		}
	}

	return s
}

func TestNewServer(t *testing.T) {
	s := setupTestStore(t)

	srv := NewServer(ServerConfig{Store: s})
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
}

// callTool is a helper that invokes an MCP tool by building a CallToolRequest.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]interface{}) *mcplib.CallToolResult {
	t.Helper()

	result := srv.HandleMessage(context.Background(), mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	}))

	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}

	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	callResult := &mcplib.CallToolResult{
		IsError: resp.Result.IsError,
	}
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			callResult.Content = append(callResult.Content, mcplib.NewTextContent(c.Text))
		}
	}

	return callResult
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func getTextContent(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content found")
	return ""
}

func TestScanTool(t *testing.T) {
	s := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: s})

	result := callTool(t, srv, "canon_scan", map[string]interface{}{
		"prose": "Marcus Webb descended into the Sunken Library. Marcus Webb paused. Elena Voss followed him down.",
	})
	if result.IsError {
		t.Fatalf("scan returned error: %s", getTextContent(t, result))
	}

	var scanResult scan.Result
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &scanResult); err != nil {
		t.Fatalf("parsing scan result: %v", err)
	}

	if len(scanResult.ExistingMentions) != 2 {
		t.Fatalf("expected 2 mentions, got %d", len(scanResult.ExistingMentions))
	}
	if scanResult.ExistingMentions[0].Name != "Marcus Webb" || scanResult.ExistingMentions[0].Count != 2 {
		t.Errorf("expected Marcus Webb x2 first, got %+v", scanResult.ExistingMentions[0])
	}

	found := false
	for _, name := range scanResult.NewEntities.Characters {
		if name == "Elena Voss" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Elena Voss in new characters, got %v", scanResult.NewEntities.Characters)
	}
}

func TestScanToolPersists(t *testing.T) {
	s := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: s})

	result := callTool(t, srv, "canon_scan", map[string]interface{}{
		"prose": "Marcus Webb waited by the Ashen Blade.",
		"unit":  "ch01-scene1",
	})
	if result.IsError {
		t.Fatalf("scan returned error: %s", getTextContent(t, result))
	}

	rec, err := s.LatestScan(context.Background(), "default", "ch01-scene1")
	if err != nil {
		t.Fatalf("expected persisted scan: %v", err)
	}

	var saved scan.Result
	if err := json.Unmarshal(rec.Result, &saved); err != nil {
		t.Fatalf("parsing persisted result: %v", err)
	}
	if len(saved.ExistingMentions) != 2 {
		t.Errorf("expected 2 persisted mentions, got %d", len(saved.ExistingMentions))
	}
}

func TestScanToolMissingProse(t *testing.T) {
	s := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: s})

	result := callTool(t, srv, "canon_scan", map[string]interface{}{})
	if !result.IsError {
		t.Fatal("expected error for missing prose")
	}
}

func TestAddTool(t *testing.T) {
	s := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: s})

	result := callTool(t, srv, "canon_add", map[string]interface{}{
		"category": "character",
		"name":     "The Elena Voss", // leading article should be stripped
	})
	if result.IsError {
		t.Fatalf("add returned error: %s", getTextContent(t, result))
	}

	var added map[string]interface{}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &added); err != nil {
		t.Fatalf("parsing add result: %v", err)
	}
	if added["name"] != "Elena Voss" {
		t.Errorf("expected normalized name Elena Voss, got %v", added["name"])
	}

	// Duplicate registration is rejected.
	dup := callTool(t, srv, "canon_add", map[string]interface{}{
		"category": "character",
		"name":     "elena voss",
	})
	if !dup.IsError {
		t.Fatal("expected duplicate entry error")
	}
}

func TestAddToolBadCategory(t *testing.T) {
	s := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: s})

	result := callTool(t, srv, "canon_add", map[string]interface{}{
		"category": "weapon",
		"name":     "Ashen Blade",
	})
	if !result.IsError {
		t.Fatal("expected error for unknown category")
	}
}

func TestListTool(t *testing.T) {
	s := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: s})

	result := callTool(t, srv, "canon_list", map[string]interface{}{
		"category": "character",
	})
	if result.IsError {
		t.Fatalf("list returned error: %s", getTextContent(t, result))
	}

	var entries []*canon.Entry
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &entries); err != nil {
		t.Fatalf("parsing list result: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Marcus Webb" {
		t.Errorf("expected [Marcus Webb], got %v", entries)
	}
}

func TestRemoveTool(t *testing.T) {
	s := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: s})

	result := callTool(t, srv, "canon_remove", map[string]interface{}{
		"id": float64(1),
	})
	if result.IsError {
		t.Fatalf("remove returned error: %s", getTextContent(t, result))
	}
	if !strings.Contains(getTextContent(t, result), "Removed entry 1") {
		t.Errorf("unexpected remove message: %s", getTextContent(t, result))
	}

	// Removing again reports not found.
	again := callTool(t, srv, "canon_remove", map[string]interface{}{
		"id": float64(1),
	})
	if !again.IsError {
		t.Fatal("expected error removing missing entry")
	}
}
