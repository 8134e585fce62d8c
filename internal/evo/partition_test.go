package evo

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPartitionGroups(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want [][]int
	}{
		{"even split", 6, 3, [][]int{{0, 1, 2}, {3, 4, 5}}},
		{"back-filled last group", 10, 4, [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}, {6, 7, 8, 9}}},
		{"smaller than group", 3, 5, [][]int{{0, 1, 2}}},
		{"exactly one group", 5, 5, [][]int{{0, 1, 2, 3, 4}}},
		{"empty", 0, 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PartitionGroups(seq(tt.n), tt.size)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("PartitionGroups(%d, %d) = %v, want %v", tt.n, tt.size, got, tt.want)
			}
		})
	}
}

func TestScrambleGroupsPreservesSizesAndMembers(t *testing.T) {
	groups := PartitionGroups(seq(20), 5)
	rng := rand.New(rand.NewSource(9))
	scrambled := ScrambleGroups(rng, groups, 0.6)

	if len(scrambled) != len(groups) {
		t.Fatalf("group count changed: %d -> %d", len(groups), len(scrambled))
	}
	var all []int
	for i := range scrambled {
		if len(scrambled[i]) != len(groups[i]) {
			t.Fatalf("group %d size changed: %d -> %d", i, len(groups[i]), len(scrambled[i]))
		}
		all = append(all, scrambled[i]...)
	}
	sort.Ints(all)
	if !reflect.DeepEqual(all, seq(20)) {
		t.Fatalf("members changed: %v", all)
	}
	if reflect.DeepEqual(scrambled, groups) {
		t.Fatal("expected some members to move")
	}
	if !reflect.DeepEqual(groups[0], []int{0, 1, 2, 3, 4}) {
		t.Fatal("scramble modified its input")
	}
}

func TestScrambleGroupsZeroPercentIsIdentity(t *testing.T) {
	groups := PartitionGroups(seq(9), 3)
	got := ScrambleGroups(rand.New(rand.NewSource(1)), groups, 0)
	if !reflect.DeepEqual(got, groups) {
		t.Fatalf("got %v, want %v", got, groups)
	}
}

func TestScrambleSingleGroupKeepsMembers(t *testing.T) {
	groups := [][]int{{0, 1, 2, 3}}
	got := ScrambleGroups(rand.New(rand.NewSource(4)), groups, 1)
	members := append([]int(nil), got[0]...)
	sort.Ints(members)
	if !reflect.DeepEqual(members, []int{0, 1, 2, 3}) {
		t.Fatalf("single group trades changed members: %v", got)
	}
}

func TestScrambleBackFilledGroupsCanRepeatMember(t *testing.T) {
	groups := PartitionGroups(seq(7), 5)
	want := map[int]int{}
	for _, g := range groups {
		for _, v := range g {
			want[v]++
		}
	}

	repeated := 0
	for seed := int64(0); seed < 200; seed++ {
		got := ScrambleGroups(rand.New(rand.NewSource(seed)), groups, 0.4)
		counts := map[int]int{}
		for _, g := range got {
			seen := map[int]bool{}
			for _, v := range g {
				counts[v]++
				if seen[v] {
					repeated++
				}
				seen[v] = true
			}
		}
		if !reflect.DeepEqual(counts, want) {
			t.Fatalf("seed %d: member counts %v, want %v", seed, counts, want)
		}
	}
	if repeated == 0 {
		t.Fatal("expected trades to place a back-filled member twice in one group")
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	for i := 0; i < 50; i++ {
		got := SampleWithoutReplacement(rng, seq(10), 4)
		if len(got) != 4 {
			t.Fatalf("len = %d, want 4", len(got))
		}
		if !sort.IntsAreSorted(got) {
			t.Fatalf("sample lost input order: %v", got)
		}
		for j := 1; j < len(got); j++ {
			if got[j] == got[j-1] {
				t.Fatalf("duplicate member in %v", got)
			}
		}
	}
	if got := SampleWithoutReplacement(rng, seq(3), 5); len(got) != 3 {
		t.Fatalf("oversized sample len = %d", len(got))
	}
}

func TestSplitTerciles(t *testing.T) {
	tests := []struct {
		n    int
		want [3]int
	}{
		{9, [3]int{3, 3, 3}},
		{7, [3]int{3, 2, 2}},
		{8, [3]int{3, 3, 2}},
		{2, [3]int{1, 1, 0}},
		{0, [3]int{0, 0, 0}},
	}
	for _, tt := range tests {
		tiers := SplitTerciles(seq(tt.n))
		got := [3]int{len(tiers[0]), len(tiers[1]), len(tiers[2])}
		if got != tt.want {
			t.Fatalf("SplitTerciles(%d) sizes = %v, want %v", tt.n, got, tt.want)
		}
		if tt.n > 0 && tiers[0][0] != 0 {
			t.Fatalf("first tier should start with the lowest item")
		}
	}
}
