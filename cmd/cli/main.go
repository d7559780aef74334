// Command gemini-helper is a console chat client for Google Gemini that
// keeps conversations as plain text files.
//
// Usage:
//
//	export GEMINI_API_KEY="your-api-key"
//	go run ./cmd/cli
//
// Chat commands:
//
//	#save, #name <text>, #new, #delete, #role <text>, #temp <0.0-1.0>,
//	#menu, #chats, #help, #exit
//	<message> - Send a message to the model
package main

import (
	"os"
)

func main() {
	c := &cli{}
	err := newRootCmd(c).Execute()
	c.close()
	if err != nil {
		os.Exit(1)
	}
}
