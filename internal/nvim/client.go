// Package nvim implements the editor bridge over Neovim's msgpack-RPC.
// Every bridge call runs a Lua function inside the plugin synchronously;
// the plugin side must execute inline (vim.schedule would deadlock the
// caller, which is already blocked on this round-trip).
package nvim

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/neovim/go-client/nvim"

	"github.com/ndsl6211/nvim-gemini-cli/internal/editor"
)

// Client is the Neovim-backed editor bridge. It satisfies editor.Bridge.
type Client struct {
	nvim *nvim.Nvim
}

func NewClient(v *nvim.Nvim) *Client {
	return &Client{nvim: v}
}

// NotifyReady hands the connection parameters to the plugin so it can
// expose them to agent processes it spawns.
func (c *Client) NotifyReady(port int, authToken, workspace string) error {
	return c.nvim.ExecLua(`require('gemini-cli.server').on_ready(...)`, nil, port, authToken, workspace)
}

func (c *Client) OpenDiff(path, newContent string) error {
	var result any
	if err := c.nvim.ExecLua(`return require('gemini-cli.diff').open_diff(...)`, &result, path, newContent); err != nil {
		return fmt.Errorf("open diff in nvim: %w", err)
	}
	return nil
}

func (c *Client) CloseDiff(path string) (string, error) {
	var content string
	if err := c.nvim.ExecLua(`return require('gemini-cli.diff').close_diff(...)`, &content, path); err != nil {
		return "", fmt.Errorf("close diff in nvim: %w", err)
	}
	return content, nil
}

func (c *Client) AcceptDiff(path string) (string, error) {
	var content string
	if err := c.nvim.ExecLua(`return require('gemini-cli.diff').accept_diff(...)`, &content, path); err != nil {
		return "", fmt.Errorf("accept diff in nvim: %w", err)
	}
	return content, nil
}

func (c *Client) RejectDiff(path string) error {
	var result any
	if err := c.nvim.ExecLua(`return require('gemini-cli.diff').reject_diff(...)`, &result, path); err != nil {
		return fmt.Errorf("reject diff in nvim: %w", err)
	}
	return nil
}

// decodeContext converts the loosely typed table Neovim sends into the
// context structure relayed to agents. Msgpack hands the table over as
// nested maps; a JSON round-trip maps it onto the typed fields.
func decodeContext(raw any) (*editor.IdeContext, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode context table: %w", err)
	}
	var ctx editor.IdeContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("decode context table: %w", err)
	}
	return &ctx, nil
}

// RegisterCallbacks wires the plugin's outbound notifications: context
// updates and the user's local accept/reject actions on an open diff.
func (c *Client) RegisterCallbacks(
	onContextUpdate func(*editor.IdeContext),
	onDiffAccepted func(path, content string),
	onDiffRejected func(path string),
) error {
	if err := c.nvim.RegisterHandler("gemini_context_update", func(args ...any) error {
		if len(args) < 1 {
			return nil
		}
		ctx, err := decodeContext(args[0])
		if err != nil {
			log.Printf("nvim: context update dropped: %v", err)
			return nil
		}
		onContextUpdate(ctx)
		return nil
	}); err != nil {
		return fmt.Errorf("register context handler: %w", err)
	}

	if err := c.nvim.RegisterHandler("gemini_diff_accepted", func(args ...any) error {
		if len(args) < 2 {
			log.Printf("nvim: diff_accepted with %d args, want 2", len(args))
			return nil
		}
		path, _ := args[0].(string)
		content, _ := args[1].(string)
		onDiffAccepted(path, content)
		return nil
	}); err != nil {
		return fmt.Errorf("register accept handler: %w", err)
	}

	if err := c.nvim.RegisterHandler("gemini_diff_rejected", func(args ...any) error {
		if len(args) < 1 {
			return nil
		}
		path, _ := args[0].(string)
		onDiffRejected(path)
		return nil
	}); err != nil {
		return fmt.Errorf("register reject handler: %w", err)
	}

	return nil
}
