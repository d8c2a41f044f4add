package quill

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		size    int
	}{
		{"empty", 4, 0},
		{"single worker", 1, 10},
		{"more workers than data", 8, 3},
		{"uneven chunks", 3, 10},
		{"zero workers", 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visits := make([]atomic.Int32, tt.size)
			data := make([]int, tt.size)
			for i := range data {
				data[i] = i
			}

			task(tt.workers, data, func(i int) {
				visits[i].Add(1)
			})

			for i := range visits {
				assert.Equal(t, int32(1), visits[i].Load(), "element %d", i)
			}
		})
	}
}
