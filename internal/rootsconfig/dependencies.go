package rootsconfig

import "context"

// EditorLauncher opens the registry document in an interactive editor.
type EditorLauncher interface {
	Launch(executionContext context.Context, filePath string) error
}
