package pipeline

import (
	"context"
	"errors"
	"testing"
)

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFromSlice_Collect(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestFromSlice_Empty(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestFrom_Iterator(t *testing.T) {
	got, err := Collect(context.Background(), From(SliceIterator([]string{"a", "b"})))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestMapFilter_PreservesOrder(t *testing.T) {
	p := FromSlice([]int{5, 1, 4, 2, 3})
	doubled := Map(p, func(_ context.Context, n int) (int, error) { return n * 2, nil })
	big := Filter(doubled, func(n int) bool { return n > 4 })
	got, err := Collect(context.Background(), big)
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{10, 8, 6}) {
		t.Errorf("got %v, want [10 8 6]", got)
	}
}

func TestMap_Error(t *testing.T) {
	boom := errors.New("boom")
	p := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	got, err := Collect(context.Background(), p)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !intSliceEqual(got, []int{1}) {
		t.Errorf("expected values pulled before the error, got %v", got)
	}
}

func TestBatch(t *testing.T) {
	tests := []struct {
		name  string
		in    []int
		size  int
		sizes []int
	}{
		{"exact", []int{1, 2, 3, 4}, 2, []int{2, 2}},
		{"remainder", []int{1, 2, 3, 4, 5}, 2, []int{2, 2, 1}},
		{"empty", nil, 3, nil},
		{"zero size", []int{1, 2}, 0, []int{1, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Collect(context.Background(), Batch(FromSlice(tc.in), tc.size))
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.sizes) {
				t.Fatalf("expected %d batches, got %d", len(tc.sizes), len(got))
			}
			for i, b := range got {
				if len(b) != tc.sizes[i] {
					t.Errorf("batch %d: expected size %d, got %d", i, tc.sizes[i], len(b))
				}
			}
		})
	}
}

func TestBatch_FlatMap_RoundTrip(t *testing.T) {
	batches := Batch(FromSlice([]int{1, 2, 3, 4, 5}), 2)
	flat := FlatMap(batches, func(_ context.Context, b []int) (Iterator[int], error) {
		out := make([]int, len(b))
		for i, v := range b {
			out[i] = v * 10
		}
		return SliceIterator(out), nil
	})
	got, err := Collect(context.Background(), flat)
	if err != nil {
		t.Fatal(err)
	}
	if !intSliceEqual(got, []int{10, 20, 30, 40, 50}) {
		t.Errorf("got %v, want [10 20 30 40 50]", got)
	}
}
