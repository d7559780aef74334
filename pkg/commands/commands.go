// Package commands parses the '#' prefixed commands typed into the chat.
package commands

import (
	"strings"
	"unicode"
)

// Prefix starts every command.
const Prefix = "#"

// Kind identifies a chat command.
type Kind int

const (
	Unknown Kind = iota
	Save
	Name
	Menu
	Delete
	New
	Help
	Chats
	Role
	Temp
	Exit
)

// Spec describes a command for parsing and help output.
type Spec struct {
	Kind        Kind
	Name        string
	Usage       string
	Description string
}

var table = []Spec{
	{Save, "#save", "#save", "Saves the current conversation."},
	{Name, "#name", "#name <text>", "Assigns/changes the name of the current chat (Ex: #name my_project)."},
	{Menu, "#menu", "#menu", "Opens the application's main menu."},
	{Delete, "#delete", "#delete", "Deletes the current chat (if saved) and starts a new one."},
	{New, "#new", "#new", "Starts a new conversation (after a warning if unsaved)."},
	{Help, "#help", "#help", "Shows this list of commands."},
	{Chats, "#chats", "#chats", "Opens the chat history menu (with search)."},
	{Role, "#role", "#role <text>", "Sets the assistant's role/context (Ex: #role You are a pirate)."},
	{Temp, "#temp", "#temp <0.0-1.0>", "Adjusts the temperature (creativity) [0.0 - 1.0] (Ex: #temp 0.8)."},
	{Exit, "#exit", "#exit", "Closes the application."},
}

var byName = func() map[string]Spec {
	m := make(map[string]Spec, len(table))
	for _, s := range table {
		m[s.Name] = s
	}
	return m
}()

// All returns every command in help order.
func All() []Spec {
	return append([]Spec(nil), table...)
}

// Lookup returns the spec for a kind.
func Lookup(k Kind) (Spec, bool) {
	for _, s := range table {
		if s.Kind == k {
			return s, true
		}
	}
	return Spec{}, false
}

func (k Kind) String() string {
	if s, ok := Lookup(k); ok {
		return s.Name
	}
	return "unknown"
}

// Command is a parsed command line.
type Command struct {
	Kind Kind
	// Args is the trimmed text after the command word.
	Args string
}

// Parse recognizes a command in input. Command words are case-insensitive.
// Input that merely starts with '#' but names no command is not a command,
// so it can be sent to the model as a regular message.
func Parse(input string) (Command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, Prefix) {
		return Command{}, false
	}

	word, args := input, ""
	if i := strings.IndexFunc(input, unicode.IsSpace); i >= 0 {
		word, args = input[:i], input[i:]
	}

	spec, ok := byName[strings.ToLower(word)]
	if !ok {
		return Command{}, false
	}
	return Command{Kind: spec.Kind, Args: strings.TrimSpace(args)}, true
}
