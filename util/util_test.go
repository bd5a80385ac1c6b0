package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"
)

func TestTransformSlice(t *testing.T) {
	got := TransformSlice([]int{1, 2, 3}, func(i int) string { return string(rune('a' + i - 1)) })
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestCanonicalMapIter(t *testing.T) {
	var keys []string
	for k := range CanonicalMapIter(map[string]int{"b": 2, "c": 3, "a": 1}) {
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestGetDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"2021-03-04T05:06:07Z", "2021-03-04 05:06:07", true},
		{"2021-03-04 05:06:07", "2021-03-04 05:06:07", true},
		{"2021-03-04", "2021-03-04 00:00:00", true},
		{"hello", "", false},
		{"21-03-04", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := GetDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFlattenObject(t *testing.T) {
	tests := []struct {
		name string
		in   yaml.MapSlice
		want yaml.MapSlice
	}{
		{
			name: "nested objects",
			in: yaml.MapSlice{
				{Key: "name", Value: "x"},
				{Key: "tags", Value: []any{"a", "b"}},
				{Key: "address", Value: yaml.MapSlice{
					{Key: "city", Value: "Leeds"},
					{Key: "geo", Value: yaml.MapSlice{{Key: "lat", Value: 53.8}}},
				}},
				{Key: "created", Value: "2020-01-02"},
				{Key: "missing", Value: nil},
			},
			want: yaml.MapSlice{
				{Key: "name", Value: "x"},
				{Key: "address_city", Value: "Leeds"},
				{Key: "address_geo_lat", Value: 53.8},
				{Key: "created", Value: "2020-01-02 00:00:00"},
				{Key: "missing", Value: nil},
			},
		},
		{
			name: "keeps record order",
			in: yaml.MapSlice{
				{Key: "zeta", Value: 1},
				{Key: "alpha", Value: 2},
				{Key: "mid", Value: yaml.MapSlice{{Key: "y", Value: 3}, {Key: "b", Value: 4}}},
			},
			want: yaml.MapSlice{
				{Key: "zeta", Value: 1},
				{Key: "alpha", Value: 2},
				{Key: "mid_y", Value: 3},
				{Key: "mid_b", Value: 4},
			},
		},
		{
			name: "plain nested map is sorted",
			in: yaml.MapSlice{
				{Key: "geo", Value: map[string]any{"lon": -1.5, "lat": 53.8}},
			},
			want: yaml.MapSlice{
				{Key: "geo_lat", Value: 53.8},
				{Key: "geo_lon", Value: -1.5},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenObject(tt.in))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLogLevel("Debug").String())
	assert.Equal(t, "WARN", ParseLogLevel("warn").String())
	assert.Equal(t, "INFO", ParseLogLevel("verbose").String())
}
