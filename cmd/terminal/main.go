package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pitwars/pitwars/tui"
)

func main() {
	addr := flag.String("addr", "localhost:3000", "server host:port")
	roomID := flag.String("room", "", "room to spectate")
	flag.Parse()

	if *roomID == "" {
		fmt.Fprintln(os.Stderr, "usage: terminal -room <roomId> [-addr host:port]")
		os.Exit(2)
	}

	feed, err := tui.Connect(*addr, *roomID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer feed.Close()

	p := tea.NewProgram(tui.NewModel(*roomID), tea.WithAltScreen())
	go feed.Run(p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ui: %v\n", err)
		os.Exit(1)
	}
}
