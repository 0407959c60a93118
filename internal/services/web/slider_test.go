package web_test

import (
	"testing"

	"github.com/repodigest/repodigest/internal/services/web"
)

func TestSliderPositionToBytes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		position      int
		expectedBytes int64
	}{
		{name: "minimum position maps to one KiB", position: 0, expectedBytes: 1024},
		{name: "negative position clamps to one KiB", position: -10, expectedBytes: 1024},
		{name: "maximum position maps to 100 MiB", position: 500, expectedBytes: 102400 * 1024},
		{name: "beyond maximum clamps to 100 MiB", position: 750, expectedBytes: 102400 * 1024},
		{name: "midpoint region maps near 50 KiB", position: 243, expectedBytes: 50 * 1024},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			actualBytes := web.SliderPositionToBytes(testCase.position)
			if actualBytes != testCase.expectedBytes {
				t.Fatalf("position %d: got %d bytes, want %d", testCase.position, actualBytes, testCase.expectedBytes)
			}
		})
	}
}

func TestSliderPositionToBytesMonotonic(t *testing.T) {
	t.Parallel()

	previousBytes := web.SliderPositionToBytes(0)
	for position := 1; position <= web.SliderMaxPosition; position++ {
		currentBytes := web.SliderPositionToBytes(position)
		if currentBytes < previousBytes {
			t.Fatalf("size decreased between positions %d and %d: %d -> %d", position-1, position, previousBytes, currentBytes)
		}
		previousBytes = currentBytes
	}
}
