package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/exilecraft/poe-crafting-server/internal/poe/engine"
	"github.com/exilecraft/poe-crafting-server/internal/poe/snapshot"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	snap := &poe.Snapshot{
		Version:   "0.9.0",
		CreatedAt: "2025-08-01T10:00:00Z",
		Metadata:  poe.SnapshotMetadata{League: "Settlers"},
		Prices: poe.SnapshotPriceTables{
			Items: map[string]poe.ItemPrice{
				"chaos-orb": {
					ItemID: "chaos-orb", Name: "Chaos Orb", NormalizedName: "chaos orb",
					Category: "currency", ChaosValue: 1,
				},
			},
			Tables: map[string]poe.PriceTable{},
		},
		Mods:  map[string]poe.ModDefinition{},
		Bases: map[string]poe.BaseItemDefinition{},
		Gems:  map[string]poe.GemDefinition{},
		Tags:  map[string]poe.TagDefinition{},
		Pob:   poe.PobSection{Builds: map[string]poe.PobBuildSummary{}},
		Rules: poe.CraftingRuleSet{Rules: map[string]poe.CraftingRule{}},
	}
	if _, err := snapshot.New(dir, nil).Save(snap); err != nil {
		t.Fatalf("saving snapshot: %v", err)
	}

	dc := engine.New(dir, nil)
	if err := dc.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}

	return NewServer(dc, nil, nil)
}

func call(t *testing.T, s *Server, raw string) *Response {
	t.Helper()
	resp := s.handleRequest(context.Background(), []byte(raw))
	if resp == nil {
		t.Fatal("no response")
	}
	return resp
}

func TestHandleInitialize(t *testing.T) {
	s := testServer(t)

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	init, ok := resp.Result.(InitializeResult)
	if !ok {
		t.Fatalf("result type = %T", resp.Result)
	}
	if init.ServerInfo.Name != "poe-crafting" || init.Capabilities.Tools == nil {
		t.Errorf("init = %+v", init)
	}
}

func TestHandleParseError(t *testing.T) {
	s := testServer(t)

	resp := call(t, s, `{not json`)
	if resp.Error == nil || resp.Error.Code != ErrCodeParse {
		t.Errorf("error = %+v, want parse error", resp.Error)
	}
}

func TestHandleMethodNotFound(t *testing.T) {
	s := testServer(t)

	resp := call(t, s, `{"jsonrpc":"2.0","id":2,"method":"resources/list"}`)
	if resp.Error == nil || resp.Error.Code != ErrCodeMethodNotFound {
		t.Errorf("error = %+v, want method not found", resp.Error)
	}
}

func TestToolsListWithoutArchive(t *testing.T) {
	s := testServer(t)

	resp := call(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)
	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	list, ok := resp.Result.(ToolsListResult)
	if !ok {
		t.Fatalf("result type = %T", resp.Result)
	}
	if len(list.Tools) != 12 {
		t.Errorf("len(Tools) = %d, want 12", len(list.Tools))
	}
	for _, tool := range list.Tools {
		if tool.Name == "price_history" {
			t.Error("price_history advertised without an archive")
		}
	}
}

func TestToolsCallPriceCheck(t *testing.T) {
	s := testServer(t)

	resp := call(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"price_check","arguments":{"name":"chaos orb","quantity":3}}}`)
	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	result, ok := resp.Result.(ToolCallResult)
	if !ok {
		t.Fatalf("result type = %T", resp.Result)
	}
	if result.IsError {
		t.Fatalf("tool error: %+v", result.Content)
	}
	// Summary line first, JSON payload second.
	if len(result.Content) != 2 || result.Content[0].Type != "text" {
		t.Fatalf("content = %+v", result.Content)
	}
	if !strings.Contains(result.Content[0].Text, "chaos") {
		t.Errorf("summary = %q", result.Content[0].Text)
	}

	var payload struct {
		SnapshotVersion string  `json:"snapshotVersion"`
		TotalChaos      float64 `json:"totalChaos"`
	}
	if err := json.Unmarshal([]byte(result.Content[1].Text), &payload); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	if payload.SnapshotVersion != "0.9.0" || payload.TotalChaos != 3 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestToolsCallDomainErrorIsToolResult(t *testing.T) {
	s := testServer(t)

	resp := call(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"can_roll","arguments":{"base":"nope","mod":"nope"}}}`)
	if resp.Error != nil {
		t.Fatalf("domain failure surfaced as protocol error: %+v", resp.Error)
	}
	result, ok := resp.Result.(ToolCallResult)
	if !ok {
		t.Fatalf("result type = %T", resp.Result)
	}
	if !result.IsError {
		t.Fatal("IsError = false, want true")
	}
	if !strings.Contains(result.Content[0].Text, "search_bases") {
		t.Errorf("error text lacks remediation hint: %q", result.Content[0].Text)
	}
}

func TestToolsCallUnknownTool(t *testing.T) {
	s := testServer(t)

	resp := call(t, s, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"nope","arguments":{}}}`)
	if resp.Error == nil || resp.Error.Code != ErrCodeInternal {
		t.Errorf("error = %+v, want internal error", resp.Error)
	}
}
