package editor

// IdeContext is the editor state relayed to agent clients on every
// context update.
type IdeContext struct {
	WorkspaceState *WorkspaceState `json:"workspaceState,omitempty"`
}

// WorkspaceState carries workspace-level information.
type WorkspaceState struct {
	OpenFiles []File `json:"openFiles,omitempty"`
	IsTrusted *bool  `json:"isTrusted,omitempty"`
}

// File is one open file in the editor.
type File struct {
	Path         string  `json:"path"`
	Timestamp    int64   `json:"timestamp"`
	IsActive     *bool   `json:"isActive,omitempty"`
	Cursor       *Cursor `json:"cursor,omitempty"`
	SelectedText *string `json:"selectedText,omitempty"`
}

// Cursor is a 1-based position within a file.
type Cursor struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}
