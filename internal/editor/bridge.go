// Package editor defines the bridge between the server and the editor
// process that renders diff views and owns working buffer content.
package editor

// Bridge executes UI-facing operations inside the editor. Implementations
// must run each call inline and return only when the editor has finished
// the operation; the caller is blocked on the result.
type Bridge interface {
	// OpenDiff renders (or replaces) a diff view for path comparing the
	// file on disk against newContent.
	OpenDiff(path, newContent string) error

	// CloseDiff tears down the diff view for path and returns the working
	// content at the moment of closing, which may differ from the proposed
	// content if the user edited the buffer.
	CloseDiff(path string) (string, error)

	// AcceptDiff persists the working content to the file and returns the
	// content that was written.
	AcceptDiff(path string) (string, error)

	// RejectDiff discards the working content and closes the diff view.
	RejectDiff(path string) error
}
