package etorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatusAllCombinations(t *testing.T) {
	for n := 1; n <= 6; n++ {
		for mask := 0; mask < 1<<n; mask++ {
			items := make([]*Item, n)
			ready := 0
			for i := 0; i < n; i++ {
				status := ItemStatusPending
				if mask&(1<<i) != 0 {
					status = ItemStatusReady
					ready++
				}
				items[i] = &Item{Status: status}
			}

			got := DeriveStatus(items)
			switch {
			case ready == 0:
				assert.Equal(t, StatusPending, got, "n=%d mask=%b", n, mask)
			case ready == n:
				assert.Equal(t, StatusReady, got, "n=%d mask=%b", n, mask)
			default:
				assert.Equal(t, StatusInProgress, got, "n=%d mask=%b", n, mask)
			}
		}
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusCompleted.Valid())
	assert.True(t, StatusInProgress.Valid())
	assert.False(t, Status("collected").Valid())
}
