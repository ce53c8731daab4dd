/*
Package workers sizes bounded worker pools in containerized environments.

runtime.NumCPU reports the host's CPU count, while GOMAXPROCS follows the
container's CPU limit (Go 1.19+). All helpers here are based on GOMAXPROCS:

	// Pod limited to 2 CPUs on a 64-core node
	workers.ForCPU(8)         // 2
	workers.ForConversions(0) // 1
	workers.ForConversions(6) // 6, explicit setting wins

ForConversions sizes the transcoder's process semaphore. Each ffmpeg process
is multi-threaded, so the automatic value is half the available CPUs, never
less than one and never more than DefaultConversionLimit. Operators override
it with MAX_CONCURRENT_CONVERSIONS, which the startup package resolves and
passes in.
*/
package workers
