package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactory_New(t *testing.T) {
	tests := []struct {
		name     string
		capacity uint64
		fpRate   float64
	}{
		{name: "sized", capacity: 128, fpRate: 0.01},
		{name: "defaults for zero values", capacity: 0, fpRate: 0},
		{name: "invalid rate", capacity: 10, fpRate: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bf := NewFactory().New(tt.capacity, tt.fpRate)
			key := []byte("health.example.com")
			assert.False(t, bf.MightContain(key))
			bf.Add(key)
			assert.True(t, bf.MightContain(key))
		})
	}
}

func TestFilter_NoFalseNegatives(t *testing.T) {
	bf := NewFactory().New(500, 0.01)
	for i := 0; i < 500; i++ {
		bf.Add([]byte(fmt.Sprintf("d%03d.example.net", i)))
	}
	for i := 0; i < 500; i++ {
		assert.True(t, bf.MightContain([]byte(fmt.Sprintf("d%03d.example.net", i))))
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		n     uint64
		p     float64
		wantM uint64
		wantK uint8
	}{
		{n: 1000, p: 0.01, wantM: 9586, wantK: 7},
		{n: 0, p: 0.01, wantM: 10, wantK: 7},
		{n: 100, p: -1, wantM: 959, wantK: 7},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d,p=%v", tt.n, tt.p), func(t *testing.T) {
			m, k := size(tt.n, tt.p)
			assert.Equal(t, tt.wantM, m)
			assert.Equal(t, tt.wantK, k)
		})
	}
}
