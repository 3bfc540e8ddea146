package encoder

import (
	"bytes"
	"errors"
	"testing"
)

func TestAssembleOrder(t *testing.T) {
	tests := []struct {
		name   string
		layers []Layer
		want   []byte
	}{
		{
			name: "single layer single unit",
			layers: []Layer{
				{Units: [][]byte{{1, 2, 3}}},
			},
			want: []byte{1, 2, 3},
		},
		{
			name: "units keep order within a layer",
			layers: []Layer{
				{Units: [][]byte{{1}, {2, 3}, {4}}},
			},
			want: []byte{1, 2, 3, 4},
		},
		{
			name: "layers before units",
			layers: []Layer{
				{Units: [][]byte{{0, 0, 0, 1, 0x67}, {0, 0, 0, 1, 0x68}}},
				{Units: [][]byte{{0, 0, 1, 0x65, 0xff}}},
			},
			want: []byte{0, 0, 0, 1, 0x67, 0, 0, 0, 1, 0x68, 0, 0, 1, 0x65, 0xff},
		},
		{
			name: "empty units are transparent",
			layers: []Layer{
				{Units: [][]byte{{}, {9}, {}}},
			},
			want: []byte{9},
		},
	}
	a := NewAssembler(64)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := a.Assemble(&Result{Layers: test.layers})
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, test.want) {
				t.Errorf("got % x, want % x", got, test.want)
			}
		})
	}
}

func TestAssembleEmpty(t *testing.T) {
	a := NewAssembler(16)
	for _, res := range []*Result{
		{},
		{Layers: []Layer{}},
		{Layers: []Layer{{Units: [][]byte{{}, {}}}}},
	} {
		got, err := a.Assemble(res)
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("want no payload, got %d bytes", len(got))
		}
	}
}

func TestAssembleTooLarge(t *testing.T) {
	a := NewAssembler(4)
	_, err := a.Assemble(&Result{Layers: []Layer{
		{Units: [][]byte{{1, 2, 3}, {4, 5}}},
	}})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
	// the assembler must stay usable for the next frame
	got, err := a.Assemble(&Result{Layers: []Layer{{Units: [][]byte{{7, 8}}}}})
	if err != nil || !bytes.Equal(got, []byte{7, 8}) {
		t.Errorf("assembler unusable after overflow: %v % x", err, got)
	}
}

func TestAssembleReusesBuffer(t *testing.T) {
	a := NewAssembler(32)
	first, err := a.Assemble(&Result{Layers: []Layer{{Units: [][]byte{{1, 2, 3, 4}}}}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Assemble(&Result{Layers: []Layer{{Units: [][]byte{{5, 6}}}}})
	if err != nil {
		t.Fatal(err)
	}
	if &first[0] != &second[0] {
		t.Error("assembler allocated a new buffer between frames")
	}
	if !bytes.Equal(second, []byte{5, 6}) {
		t.Errorf("second frame corrupted: % x", second)
	}
}
