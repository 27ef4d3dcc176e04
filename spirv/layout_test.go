package spirv

import (
	"math/rand"
	"testing"
)

func TestAlignUp(t *testing.T) {
	cases := []struct {
		v, align, want uint64
	}{
		{12, 3, 12},
		{10, 3, 12},
		{0, 256, 0},
		{16, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{17, 1, 17},
		{17, 0, 17},
	}
	for _, c := range cases {
		if got := AlignUp(c.v, c.align); got != c.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", c.v, c.align, got, c.want)
		}
	}
}

func globalsMembers() []Member {
	return []Member{
		{Index: 0, Name: "color", Offset: 0, Size: 16, Count: 1},
		{Index: 1, Name: "intensity", Offset: 16, Size: 4, Count: 1},
	}
}

func TestLayoutFieldsPromotesEachField(t *testing.T) {
	fields := LayoutFields(globalsMembers(), UniformBuffer, 256)

	if f := fields["color"]; f.Offset != 0 || f.Size != 16 {
		t.Errorf("color = %+v, want offset 0 size 16", f)
	}
	if f := fields["intensity"]; f.Offset != 256 || f.Size != 4 || f.DeclaredOffset != 16 {
		t.Errorf("intensity = %+v, want offset 256 size 4 declared 16", f)
	}
	if size := Extent(fields); size != 260 {
		t.Errorf("Extent = %d, want 260", size)
	}
}

func TestLayoutFieldsAlignmentOfOneIsIdentity(t *testing.T) {
	members := []Member{
		{Index: 0, Name: "a", Offset: 0, Size: 4},
		{Index: 1, Name: "b", Offset: 4, Size: 4},
		{Index: 2, Name: "c", Offset: 16, Size: 16},
		{Index: 3, Name: "d", Offset: 32, Size: 64},
	}
	fields := LayoutFields(members, UniformBuffer, 1)
	for _, m := range members {
		if fields[m.Name].Offset != m.Offset {
			t.Errorf("%s offset = %d, want declared %d", m.Name, fields[m.Name].Offset, m.Offset)
		}
	}
}

func TestLayoutFieldsDoNotOverlap(t *testing.T) {
	members := []Member{
		{Index: 0, Name: "x", Offset: 0, Size: 4},
		{Index: 1, Name: "y", Offset: 4, Size: 4},
		{Index: 2, Name: "z", Offset: 8, Size: 4},
	}
	fields := LayoutFields(members, UniformBuffer, 256)
	want := map[string]uint64{"x": 0, "y": 256, "z": 512}
	for name, off := range want {
		if fields[name].Offset != off {
			t.Errorf("%s offset = %d, want %d", name, fields[name].Offset, off)
		}
	}
	if Extent(fields) != 516 {
		t.Errorf("Extent = %d, want 516", Extent(fields))
	}
}

func TestLayoutFieldsOffsetsAreAligned(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, align := range []uint64{1, 4, 16, 64, 256} {
		for run := 0; run < 50; run++ {
			var members []Member
			var off uint64
			n := 1 + rng.Intn(8)
			for i := 0; i < n; i++ {
				size := uint64(4 * (1 + rng.Intn(16)))
				members = append(members, Member{Index: uint32(i), Name: string(rune('a' + i)), Offset: off, Size: size})
				off += size
			}
			fields := LayoutFields(members, UniformBuffer, align)
			for _, m := range members {
				f := fields[m.Name]
				if f.Offset%align != 0 {
					t.Fatalf("align %d: %s offset %d not aligned", align, m.Name, f.Offset)
				}
				if f.Offset < m.Offset {
					t.Fatalf("align %d: %s offset %d below declared %d", align, m.Name, f.Offset, m.Offset)
				}
			}
		}
	}
}

func TestSortedFieldNames(t *testing.T) {
	fields := LayoutFields(globalsMembers(), UniformBuffer, 16)
	names := SortedFieldNames(fields)
	if len(names) != 2 || names[0] != "color" || names[1] != "intensity" {
		t.Errorf("SortedFieldNames = %v", names)
	}
}
