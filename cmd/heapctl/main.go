// Command heapctl drives the heapkit allocator from the command line: it
// replays allocation traces, generates random ones, and checks or dumps the
// resulting heaps.
package main

func main() {
	execute()
}
