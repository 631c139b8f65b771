// Package discovery publishes descriptor files that let an independently
// launched agent process locate this server by process identity. The
// agent resolves its own pid chain and looks for a descriptor named after
// a pid it recognizes, so descriptors are written for every process that
// may plausibly be "the editor" from the agent's point of view: the
// owning process, its parent, and any matching children.
package discovery

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo identifies the editor in a descriptor. The name must pass
// the agent's IDE allowlist; "vscodefork" is accepted by the Gemini CLI.
type ProcessInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Descriptor is the discoverable record an agent reads to reach the
// server. Descriptors are never mutated after publication.
type Descriptor struct {
	Port          int         `json:"port"`
	WorkspacePath string      `json:"workspacePath"`
	AuthToken     string      `json:"authToken"`
	IdeInfo       ProcessInfo `json:"ideInfo"`
}

// DefaultDir is where agents expect descriptors.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "gemini", "ide")
}

// Engine publishes and retracts descriptor files for one server instance.
// Not safe for concurrent use; the owning process drives it from startup
// and shutdown only.
type Engine struct {
	dir           string
	editorPattern string
	published     []string
}

// NewEngine creates an engine writing to dir. editorPattern is the
// substring matched against candidate process command lines to decide
// whether a parent or child process is the editor.
func NewEngine(dir, editorPattern string) *Engine {
	if dir == "" {
		dir = DefaultDir()
	}
	if editorPattern == "" {
		editorPattern = "nvim"
	}
	return &Engine{dir: dir, editorPattern: editorPattern}
}

// Publish writes one descriptor per matched process identity. The owner
// descriptor is the minimum viable publication: failure to write it (or
// to create the shared directory) is returned and should be fatal.
// Failures on parent/child descriptors are logged and skipped.
func (e *Engine) Publish(ownerPid, port int, token, workspacePath string) error {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return fmt.Errorf("create discovery dir: %w", err)
	}

	desc := Descriptor{
		Port:          port,
		WorkspacePath: workspacePath,
		AuthToken:     token,
		IdeInfo: ProcessInfo{
			Name:        "vscodefork",
			DisplayName: "IDE",
		},
	}
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}

	ownerPath := e.descriptorPath(ownerPid, port)
	if err := os.WriteFile(ownerPath, data, 0644); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	e.published = append(e.published, ownerPath)
	log.Printf("discovery: published %s", ownerPath)

	for _, pid := range e.relatedEditorPids(ownerPid) {
		p := e.descriptorPath(pid, port)
		if err := os.WriteFile(p, data, 0644); err != nil {
			log.Printf("discovery: secondary descriptor for pid %d: %v", pid, err)
			continue
		}
		e.published = append(e.published, p)
		log.Printf("discovery: published %s", p)
	}
	return nil
}

// Retract removes every descriptor this instance published. Removing an
// already-absent file is not an error, so Retract is idempotent.
func (e *Engine) Retract() {
	for _, p := range e.published {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("discovery: remove %s: %v", p, err)
			continue
		}
		log.Printf("discovery: retracted %s", p)
	}
	e.published = nil
}

// Published returns the paths of the descriptors currently on disk.
func (e *Engine) Published() []string {
	out := make([]string, len(e.published))
	copy(out, e.published)
	return out
}

// descriptorPath encodes (pid, port) so concurrent server instances on
// one machine never collide.
func (e *Engine) descriptorPath(pid, port int) string {
	return filepath.Join(e.dir, fmt.Sprintf("gemini-ide-server-%d-%d.json", pid, port))
}

// relatedEditorPids returns the owner's parent and children whose command
// lines match the editor pattern. Command-line matching is heuristic and
// depends on per-process metadata the platform may not expose; anything
// unreadable is skipped, degrading to owner-only publication.
func (e *Engine) relatedEditorPids(ownerPid int) []int {
	owner, err := process.NewProcess(int32(ownerPid))
	if err != nil {
		return nil
	}

	var pids []int

	if ppid, err := owner.Ppid(); err == nil && ppid > 0 && int(ppid) != ownerPid {
		if e.looksLikeEditor(ppid) {
			pids = append(pids, int(ppid))
		}
	}

	children, err := owner.Children()
	if err != nil {
		return pids
	}
	for _, child := range children {
		if e.looksLikeEditor(child.Pid) {
			pids = append(pids, int(child.Pid))
		}
	}
	return pids
}

func (e *Engine) looksLikeEditor(pid int32) bool {
	p, err := process.NewProcess(pid)
	if err != nil {
		return false
	}
	cmdline, err := p.Cmdline()
	if err != nil {
		return false
	}
	return strings.Contains(cmdline, e.editorPattern)
}

// PidAlive reports whether a process with the given pid exists.
func PidAlive(pid int) bool {
	alive, err := process.PidExists(int32(pid))
	return err == nil && alive
}
