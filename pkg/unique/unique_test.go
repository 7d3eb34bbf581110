package unique

import (
	"reflect"
	"testing"
)

func TestSlice(t *testing.T) {
	testCases := []struct {
		in  []string
		out []string
	}{
		{
			in:  []string{"a"},
			out: []string{"a"},
		},
		{
			in:  []string{"b", "a"},
			out: []string{"b", "a"},
		},
		{
			in:  []string{"b", "a", "b"},
			out: []string{"b", "a"},
		},
		{
			in:  []string{"c", "c", "c"},
			out: []string{"c"},
		},
		{
			in:  []string{},
			out: []string{},
		},
	}
	for i, testCase := range testCases {
		if expected, actual := testCase.out, Slice(testCase.in); !reflect.DeepEqual(actual, expected) {
			t.Errorf("[i=%v] Expected result=%+v but actual=%+v", i, expected, actual)
		}
	}
}

func TestSorted(t *testing.T) {
	testCases := []struct {
		in  []int
		out []int
	}{
		{
			in:  []int{14, 0},
			out: []int{0, 14},
		},
		{
			in:  []int{14, 0, 14, -1},
			out: []int{-1, 0, 14},
		},
		{
			in:  []int{6, 6, 6},
			out: []int{6},
		},
	}
	for i, testCase := range testCases {
		if expected, actual := testCase.out, Sorted(testCase.in); !reflect.DeepEqual(actual, expected) {
			t.Errorf("[i=%v] Expected result=%+v but actual=%+v", i, expected, actual)
		}
	}
}
