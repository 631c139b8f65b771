package discovery

import "fmt"

// Environment variables an agent process consumes when it is spawned by
// the editor rather than discovering the server through descriptors.
const (
	EnvServerPort    = "GEMINI_CLI_IDE_SERVER_PORT"
	EnvAuthToken     = "GEMINI_CLI_IDE_AUTH_TOKEN"
	EnvWorkspacePath = "GEMINI_CLI_IDE_WORKSPACE_PATH"
)

// AgentEnv returns the environment entries to inject into a spawned
// agent process so it can reach this server without discovery.
func AgentEnv(port int, token, workspacePath string) []string {
	return []string{
		fmt.Sprintf("%s=%d", EnvServerPort, port),
		EnvAuthToken + "=" + token,
		EnvWorkspacePath + "=" + workspacePath,
	}
}
