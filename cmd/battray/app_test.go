package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppCommands(t *testing.T) {
	app := newApp()
	require.NotNil(t, app.Action, "default action starts the agent")

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	for _, want := range []string{"monitor", "status", "install", "uninstall", "config", "log"} {
		assert.Contains(t, names, want)
	}
}

func TestDesktopEntry(t *testing.T) {
	entry := desktopEntry("/home/user/.local/bin/battray")

	assert.True(t, strings.HasPrefix(entry, "[Desktop Entry]\n"))
	assert.Contains(t, entry, "Exec=/home/user/.local/bin/battray\n")
	assert.Contains(t, entry, "Type=Application\n")
	assert.Contains(t, entry, "Categories=System;Monitor;\n")
}

func TestTailLines(t *testing.T) {
	text := "one\ntwo\nthree\nfour\n"

	assert.Equal(t, []string{"three", "four"}, tailLines(text, 2))
	assert.Equal(t, []string{"one", "two", "three", "four"}, tailLines(text, 10))
	assert.Equal(t, []string{"one", "two", "three", "four"}, tailLines(text, 0))
	assert.Nil(t, tailLines("", 5))
}
