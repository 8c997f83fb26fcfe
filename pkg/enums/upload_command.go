package enums

// UploadCommand is the value of the `command` query parameter on the media upload endpoint.
type UploadCommand string

const (
	UploadCommandInit     UploadCommand = "INIT"
	UploadCommandAppend   UploadCommand = "APPEND"
	UploadCommandFinalize UploadCommand = "FINALIZE"
	UploadCommandStatus   UploadCommand = "STATUS"
)

// String returns the literal string for the command.
func (c UploadCommand) String() string {
	return string(c)
}

// Phase returns the lowercase phase label used in errors and metrics.
func (c UploadCommand) Phase() string {
	switch c {
	case UploadCommandInit:
		return "init"
	case UploadCommandAppend:
		return "append"
	case UploadCommandFinalize:
		return "finalize"
	case UploadCommandStatus:
		return "status"
	default:
		return "unknown"
	}
}
