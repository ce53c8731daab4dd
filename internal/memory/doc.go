// Package memory keeps the gateway inside its container memory limit.
//
// Go does not derive GOMEMLIMIT from cgroup limits the way it derives
// GOMAXPROCS, so [ConfigureFromEnv] sets it from the Kubernetes Downward API:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// Only half of the container limit goes to the Go heap by default
// (MEMORY_RATIO=0.5). The ffmpeg children share the container and need the
// rest. An explicit GOMEMLIMIT always wins.
//
// [Monitor] samples heap usage against that limit. Above the critical mark it
// reports [Monitor.Overloaded] and the convert handler answers 503 until
// usage falls below the recover mark.
package memory
