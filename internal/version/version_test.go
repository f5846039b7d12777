package version

import "testing"

func TestGet(t *testing.T) {
	if got := Get(); got == "" {
		t.Fatal("embedded version is empty")
	}

	old := Override
	t.Cleanup(func() { Override = old })

	Override = " 9.9.9\n"
	if got := Get(); got != "9.9.9" {
		t.Errorf("Get() = %q, want 9.9.9", got)
	}
}
