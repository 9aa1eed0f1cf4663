package domain

import (
	"slices"
	"testing"
)

func TestArrayMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{name: "forward", from: 0, to: 2, want: []string{"b", "c", "a", "d"}},
		{name: "backward", from: 3, to: 1, want: []string{"a", "d", "b", "c"}},
		{name: "self", from: 2, to: 2, want: []string{"a", "b", "c", "d"}},
		{name: "out_of_range", from: 0, to: 9, want: []string{"a", "b", "c", "d"}},
		{name: "negative", from: -1, to: 0, want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := []string{"a", "b", "c", "d"}
			got := ArrayMove(in, tt.from, tt.to)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("ArrayMove(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
			if !slices.Equal(in, []string{"a", "b", "c", "d"}) {
				t.Fatalf("input was mutated: %v", in)
			}
		})
	}
}

func TestMoveBefore(t *testing.T) {
	tests := []struct {
		name         string
		from, target int
		want         []string
	}{
		{name: "from_above", from: 0, target: 2, want: []string{"b", "a", "c", "d"}},
		{name: "from_below", from: 3, target: 1, want: []string{"a", "d", "b", "c"}},
		{name: "onto_first", from: 2, target: 0, want: []string{"c", "a", "b", "d"}},
		{name: "already_before", from: 1, target: 2, want: []string{"a", "b", "c", "d"}},
		{name: "self", from: 1, target: 1, want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MoveBefore([]string{"a", "b", "c", "d"}, tt.from, tt.target)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("MoveBefore(%d, %d) = %v, want %v", tt.from, tt.target, got, tt.want)
			}
		})
	}
}
