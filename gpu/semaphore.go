package gpu

// semaphoreResource is the slab payload for the semaphore handle pool. A
// Semaphore in this engine is a named checkpoint against the shared
// Timeline rather than a native GPU semaphore object, per the documented
// timeline substitution (see upload.go and DESIGN.md).
type semaphoreResource struct {
	targetValue uint64
	signaled    bool
}
