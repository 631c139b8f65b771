package nvim

import (
	"testing"
)

func TestDecodeContext(t *testing.T) {
	raw := map[string]any{
		"workspaceState": map[string]any{
			"isTrusted": true,
			"openFiles": []any{
				map[string]any{
					"path":      "/home/u/proj/main.go",
					"timestamp": int64(1700000000),
					"isActive":  true,
					"cursor":    map[string]any{"line": 12, "character": 4},
				},
				map[string]any{
					"path":      "/home/u/proj/util.go",
					"timestamp": int64(1700000001),
				},
			},
		},
	}

	ctx, err := decodeContext(raw)
	if err != nil {
		t.Fatalf("decodeContext: %v", err)
	}

	ws := ctx.WorkspaceState
	if ws == nil {
		t.Fatal("workspaceState is nil")
	}
	if ws.IsTrusted == nil || !*ws.IsTrusted {
		t.Error("isTrusted not decoded")
	}
	if len(ws.OpenFiles) != 2 {
		t.Fatalf("got %d open files, want 2", len(ws.OpenFiles))
	}

	active := ws.OpenFiles[0]
	if active.Path != "/home/u/proj/main.go" {
		t.Errorf("path = %q", active.Path)
	}
	if active.Cursor == nil || active.Cursor.Line != 12 || active.Cursor.Character != 4 {
		t.Errorf("cursor = %+v", active.Cursor)
	}
	if ws.OpenFiles[1].Cursor != nil {
		t.Error("second file has unexpected cursor")
	}
}

func TestDecodeContextEmpty(t *testing.T) {
	ctx, err := decodeContext(map[string]any{})
	if err != nil {
		t.Fatalf("decodeContext: %v", err)
	}
	if ctx.WorkspaceState != nil {
		t.Errorf("workspaceState = %+v, want nil", ctx.WorkspaceState)
	}
}

func TestDecodeContextUnencodable(t *testing.T) {
	if _, err := decodeContext(func() {}); err == nil {
		t.Fatal("decodeContext accepted an unencodable value")
	}
}
