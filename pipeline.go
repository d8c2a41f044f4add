package quill

import "sync"

// task runs fn over data split into one contiguous chunk per worker.
// Each element is visited by exactly one goroutine.
func task[T any](workersCount int, data []T, fn func(data T)) {
	dataSize := len(data)
	if dataSize == 0 {
		return
	}
	workersCount = max(1, min(workersCount, dataSize))
	if workersCount == 1 {
		for _, d := range data {
			fn(d)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (dataSize + workersCount - 1) / workersCount
	for workerID := 0; workerID < workersCount; workerID++ {
		start, end := workerID*chunkSize, min((workerID+1)*chunkSize, dataSize)
		if start >= end {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(data[i])
			}
		}()
	}
	wg.Wait()
}
