/*
Package filesystem wraps the file operations the workspace performs on
artifacts (os.Open, os.Remove) with retry logic for NFS stale file handles.

The intake and output roots are commonly mounted volumes shared with other
containers. ESTALE (stale file handle) errors on such mounts are transient,
so they are retried with exponential backoff:

  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

All other errors, including fs.ErrNotExist, are returned immediately.

Retry metrics are labeled with the volume a path belongs to. Call
SetDefaultVolumeResolver once at startup:

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
	    "intake": config.IntakeDir,
	    "output": config.OutputDir,
	}))
*/
package filesystem
