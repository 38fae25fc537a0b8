package testing

// WithStdout registers successful responses for each pattern.
// Keys are command patterns, values are the stdout returned.
func WithStdout(client *MockClient, outputs map[string]string) {
	for pattern, out := range outputs {
		client.SetCommandResponse(pattern, CommandResponse{Stdout: []byte(out)})
	}
}

// WithFailure makes every command matching pattern exit non-zero with stderr.
func WithFailure(client *MockClient, pattern string, exitCode int, stderr string) {
	client.SetCommandResponse(pattern, CommandResponse{
		Stderr:   []byte(stderr),
		ExitCode: exitCode,
	})
}
