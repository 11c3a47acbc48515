package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunks(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 15}, {15, 30}, {30, 31}}, Chunks(31, 15))
	assert.Equal(t, [][2]int{{0, 3}}, Chunks(3, 15))
	assert.Nil(t, Chunks(0, 15))
	assert.Nil(t, Chunks(10, 0))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "Română", TruncateString("Română", 6))
	assert.Equal(t, "Rom...", TruncateString("Română", 3))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \t\n"))
	assert.False(t, IsBlank(" a "))
}

func TestTrimTrailingSpace(t *testing.T) {
	assert.Equal(t, "a\nb\nc", TrimTrailingSpace("a  \nb\t\nc "))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", ParseLevel(" DEBUG ").String())
	assert.Equal(t, "info", ParseLevel("unknown").String())
}
