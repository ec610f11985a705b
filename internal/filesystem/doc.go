/*
Package filesystem provides read access to shared directories that
tolerates transient NFS failures.

RetryFs wraps an afero.Fs and retries Stat, Open and ReadDir with
exponential backoff when they fail with ESTALE (stale file handle, errno 116
on Linux). Every other error is returned immediately, so the wrapper costs
nothing for healthy mounts.

	fs := filesystem.NewRetryFs(afero.NewOsFs(), filesystem.DefaultRetryConfig())
	entries, err := fs.ReadDir("/srv/movies")

The defaults are 3 retries starting at 50ms, doubling up to 500ms.

VolumeResolver labels the stale-handle metrics with the registered
directory a path belongs to, so metric cardinality stays bounded.
*/
package filesystem
