package staging

// CommandRunner abstracts remote command execution. RunCheck runs a command
// line on the target and returns its stdout split into lines; a non-zero
// exit status or transport failure is returned as an error.
type CommandRunner interface {
	RunCheck(cmd string) ([]string, error)
}

// FileTransfer abstracts file movement between the local machine and the
// target.
type FileTransfer interface {
	Put(localPath, remotePath string) error
	Get(remotePath, localDir string) error
}

// RemoteExecutor combines both capabilities. Drivers that implement it
// (like pkg/sshutil.Client) can be passed to New twice, once per role.
type RemoteExecutor interface {
	CommandRunner
	FileTransfer
}
