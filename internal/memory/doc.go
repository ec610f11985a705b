// Package memory sets the Go runtime memory limit for containerized
// deployments.
//
// GOMAXPROCS follows cgroup CPU limits automatically, GOMEMLIMIT does not.
// [ConfigureFromEnv] derives it from MEMORY_LIMIT, usually filled in through
// the Kubernetes Downward API:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// Only a quarter of the limit goes to the Go heap by default. Each stream
// runs an ffmpeg child in the same cgroup, and those encoders account for
// most of the container's memory. MEMORY_RATIO changes the share; an
// explicit GOMEMLIMIT wins over both.
package memory
