// Package editor launches the user's preferred terminal editor.
package editor
