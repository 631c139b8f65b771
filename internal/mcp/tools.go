package mcp

import (
	"errors"
	"fmt"

	"github.com/ndsl6211/nvim-gemini-cli/internal/session"
)

// registerTools builds the closed tool set. The set is fixed at startup;
// there is no open-ended registration.
func (s *Server) registerTools() {
	add := func(t Tool) {
		s.tools[t.Name] = t
		s.toolOrder = append(s.toolOrder, t.Name)
	}

	add(Tool{
		Name:        "openDiff",
		Description: "Open a diff view proposing new content for a file",
		Handler:     s.handleOpenDiff,
		ExtraProps: map[string]any{
			"newContent": map[string]string{
				"type":        "string",
				"description": "Proposed content for the file",
			},
		},
	})
	add(Tool{
		Name:        "closeDiff",
		Description: "Close the diff view and return the current working content",
		Handler:     s.handleCloseDiff,
		ExtraProps: map[string]any{
			"suppressNotification": map[string]string{
				"type":        "boolean",
				"description": "Skip the closed notification",
			},
		},
	})
	add(Tool{
		Name:        "acceptDiff",
		Description: "Accept the proposed changes and write them to the file",
		Handler:     s.handleAcceptDiff,
	})
	add(Tool{
		Name:        "rejectDiff",
		Description: "Reject the proposed changes and discard them",
		Handler:     s.handleRejectDiff,
	})
}

func (s *Server) handleOpenDiff(path string, args map[string]any) (*ToolCallResult, *RPCError) {
	newContent, ok := args["newContent"].(string)
	if !ok {
		return nil, &RPCError{Code: codeInvalidParams, Message: "newContent is required"}
	}

	if err := s.sessions.Open(path, newContent); err != nil {
		return errorResult(fmt.Sprintf("Failed to open diff: %v", err)), nil
	}
	return emptyResult(), nil
}

func (s *Server) handleCloseDiff(path string, args map[string]any) (*ToolCallResult, *RPCError) {
	suppress, _ := args["suppressNotification"].(bool)

	content, err := s.sessions.Close(path, suppress)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return errorResult(fmt.Sprintf("No diff session for %s", path)), nil
		}
		return errorResult(fmt.Sprintf("Failed to close diff: %v", err)), nil
	}
	return textResult(content), nil
}

func (s *Server) handleAcceptDiff(path string, _ map[string]any) (*ToolCallResult, *RPCError) {
	if err := s.sessions.Accept(path); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return errorResult(fmt.Sprintf("No diff session for %s", path)), nil
		}
		return errorResult(fmt.Sprintf("Failed to accept diff: %v", err)), nil
	}
	return emptyResult(), nil
}

func (s *Server) handleRejectDiff(path string, _ map[string]any) (*ToolCallResult, *RPCError) {
	if err := s.sessions.Reject(path); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return errorResult(fmt.Sprintf("No diff session for %s", path)), nil
		}
		return errorResult(fmt.Sprintf("Failed to reject diff: %v", err)), nil
	}
	return emptyResult(), nil
}
