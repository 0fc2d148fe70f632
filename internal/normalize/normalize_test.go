package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fragment struct {
	count *int
}

func (f *fragment) TotalCount() *int {
	if f == nil {
		return nil
	}
	return f.count
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestExtractCount(t *testing.T) {
	var nilFragment *fragment

	tests := []struct {
		name string
		node Counted
		want int
	}{
		{"nil interface", nil, 0},
		{"typed nil pointer", nilFragment, 0},
		{"missing count", &fragment{}, 0},
		{"zero", &fragment{count: intPtr(0)}, 0},
		{"present", &fragment{count: intPtr(1569)}, 1569},
		{"negative clamps", &fragment{count: intPtr(-4)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCount(tt.node))
		})
	}
}

func TestDedupeNonEmpty(t *testing.T) {
	t.Run("trims and keeps first-seen order", func(t *testing.T) {
		got := DedupeNonEmpty([]string{" 10.0.0.1 ", "", "10.0.0.2", "10.0.0.1", "   ", "10.0.0.3", "10.0.0.2"})
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, got)
	})

	t.Run("empty input yields empty non-nil slice", func(t *testing.T) {
		got := DedupeNonEmpty(nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := [][]string{
			nil,
			{"a", "a", "a"},
			{" b", "b ", "c", "", "a"},
			{"x\t", "\ty", "x"},
		}
		for _, in := range inputs {
			once := DedupeNonEmpty(in)
			assert.Equal(t, once, DedupeNonEmpty(once))
		}
	})
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "", FirstNonEmpty(nil))
	assert.Equal(t, "", FirstNonEmpty([]string{"", "  "}))
	assert.Equal(t, "12 Main St", FirstNonEmpty([]string{" ", " 12 Main St ", "9 Elm Ave"}))
}

func TestStrings(t *testing.T) {
	got := Strings([]*string{strPtr("a"), nil, strPtr(" b ")})
	assert.Equal(t, []string{"a", "", " b "}, got)
	assert.Empty(t, Strings(nil))
}

func TestNumericID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1001", "1001"},
		{" 1001 ", "1001"},
		{"1001.0", "1001"},
		{"1e3", "1000"},
		{"1.001E3", "1001"},
		{"-0", "0"},
		{"12.5", "12.5"},
		{"1e300", "1e300"},
		{"9007199254740993", "9007199254740993"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NumericID(tc.in), tc.in)
	}
}
