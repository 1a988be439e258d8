package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/collabtext/otrelay/application"
	"github.com/collabtext/otrelay/client"
)

// simclient is a terminal-driven stand-in for a browser editor widget,
// wired against the real client.Driver and client.Session so the wire
// protocol and OT convergence can be exercised end to end without a
// browser.
var (
	addr       = flag.String("addr", "ws://localhost:8080/ws", "relay websocket address")
	documentID = flag.String("doc", "scratch", "document id to join")
	name       = flag.String("name", "", "display name (defaults to a generated id)")
)

func main() {
	flag.Parse()

	userID := *name
	if userID == "" {
		userID = uuid.NewString()
	}

	driver := client.NewDriver(userID)
	driver.SetDocument(*documentID)

	session := client.NewSession(driver, *addr, userID, log.New(os.Stderr, "[simclient] ", log.LstdFlags))
	go session.Run()

	fmt.Println("connected as", userID, "- type text and press enter to append it; ctrl-d to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		before := driver.Content()
		after := before + line
		op, ok := driver.LocalEdit(after, len([]rune(after)))
		if !ok {
			continue
		}
		if err := session.SendOperation(application.OperationMsg{Operation: op}); err != nil {
			log.Printf("send failed: %v", err)
		}
		fmt.Println(driver.Content())
	}
	session.Close()
}
