package ports

import "os/exec"

// EditorOpener defines the interface for opening files in an external editor
type EditorOpener interface {
	// OpenFile opens the specified file in the user's preferred editor
	OpenFile(path string) error

	// Command returns an exec.Cmd for opening a file in the editor.
	// The TUI hands it to bubbletea's ExecProcess.
	Command(path string) (*exec.Cmd, error)
}

// ChangeWatcher reports keys whose children changed outside the model.
type ChangeWatcher interface {
	Watch(key string) error
	Unwatch(key string) error
	Changes() <-chan string
	Close() error
}
