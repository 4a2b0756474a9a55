package fileproc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/treegrep/treegrep/pkg/parser"
)

func TestMapOrderedPreservesInputOrder(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var emitted []int
	MapOrdered(context.Background(), items, Options{Workers: 8},
		func(_ *parser.Parser, item int) (int, error) {
			// Finish later items faster to force reordering.
			time.Sleep(time.Duration(100-item) * time.Microsecond)
			return item * 2, nil
		},
		func(item, val int, err error) {
			if err != nil {
				t.Errorf("unexpected error for %d: %v", item, err)
			}
			if val != item*2 {
				t.Errorf("val = %d for item %d", val, item)
			}
			emitted = append(emitted, item)
		})

	if len(emitted) != len(items) {
		t.Fatalf("emitted %d results, want %d", len(emitted), len(items))
	}
	for i, item := range emitted {
		if item != i {
			t.Fatalf("emitted[%d] = %d; results out of order", i, item)
		}
	}
}

func TestMapOrderedIdenticalAcrossWorkerCounts(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	run := func(workers int) []string {
		var out []string
		MapOrdered(context.Background(), items, Options{Workers: workers},
			func(_ *parser.Parser, s string) (string, error) {
				return s + "!", nil
			},
			func(_ string, val string, err error) {
				out = append(out, val)
			})
		return out
	}

	serial := run(1)
	parallel := run(4)
	if len(serial) != len(parallel) {
		t.Fatalf("lengths differ: %d vs %d", len(serial), len(parallel))
	}
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("output differs at %d: %q vs %q", i, serial[i], parallel[i])
		}
	}
}

func TestMapOrderedErrorsDelivered(t *testing.T) {
	items := []int{0, 1, 2}
	boom := errors.New("boom")

	var errs []error
	MapOrdered(context.Background(), items, Options{Workers: 2},
		func(_ *parser.Parser, item int) (int, error) {
			if item == 1 {
				return 0, boom
			}
			return item, nil
		},
		func(item, val int, err error) {
			errs = append(errs, err)
		})

	if len(errs) != 3 {
		t.Fatalf("emitted %d results, want 3", len(errs))
	}
	if errs[0] != nil || errs[2] != nil {
		t.Error("items 0 and 2 should succeed")
	}
	if !errors.Is(errs[1], boom) {
		t.Errorf("errs[1] = %v, want boom", errs[1])
	}
}

func TestMapOrderedCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []int{0, 1, 2, 3}
	emitted := 0
	cancelled := 0
	MapOrdered(ctx, items, Options{Workers: 2},
		func(_ *parser.Parser, item int) (int, error) {
			return item, nil
		},
		func(item, val int, err error) {
			emitted++
			if errors.Is(err, context.Canceled) {
				cancelled++
			}
		})

	// Every item is emitted so the sequence stays gapless, and all were
	// no-ops.
	if emitted != len(items) {
		t.Fatalf("emitted %d, want %d", emitted, len(items))
	}
	if cancelled != len(items) {
		t.Errorf("cancelled %d, want %d", cancelled, len(items))
	}
}

func TestMapOrderedEmpty(t *testing.T) {
	MapOrdered(context.Background(), nil, Options{},
		func(_ *parser.Parser, item int) (int, error) { return item, nil },
		func(_, _ int, _ error) {
			t.Error("emit called for empty input")
		})
}

func TestProcessingErrors(t *testing.T) {
	errs := &ProcessingErrors{}
	if errs.HasErrors() {
		t.Error("fresh collection should have no errors")
	}

	errs.Add("a.go", fmt.Errorf("first"))
	errs.Add("b.go", fmt.Errorf("second"))

	if !errs.HasErrors() {
		t.Error("HasErrors() = false after Add")
	}
	if len(errs.Errors) != 2 {
		t.Errorf("len = %d, want 2", len(errs.Errors))
	}
	if errs.Errors[0].Path != "a.go" {
		t.Errorf("first error path = %q", errs.Errors[0].Path)
	}
}
