// Command-line protocol client for poking at a running server by hand.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeCreateRoom   = 101
	MsgTypeJoinRoom     = 102
	MsgTypeLeaveRoom    = 103
	MsgTypeListRooms    = 104
	MsgTypeStartGame    = 105
	MsgTypeGetState     = 106
	MsgTypeMove         = 201
	MsgTypeKill         = 202
	MsgTypeCompleteTask = 203
	MsgTypeReportBody   = 204
	MsgTypeCallMeeting  = 205
	MsgTypeCastVote     = 206
	MsgTypeSabotage     = 207
)

// send frames and sends one message.
func send(c *websocket.Conn, msgID uint16, payload interface{}) error {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return err
		}
	}
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	host := flag.String("host", "localhost:8080", "server address")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	log.Println("Commands: create <name> | join <code> <name> | list | start | state |")
	log.Println("          move <x> <y> | kill <id> | task | report <x> <y> | meeting |")
	log.Println("          vote [id] | sabotage <kind> | leave | quit")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			closeConn(c, done)
			return
		case line, ok := <-lines:
			if !ok {
				closeConn(c, done)
				return
			}
			if !dispatch(c, strings.Fields(strings.TrimSpace(line))) {
				closeConn(c, done)
				return
			}
		}
	}
}

// dispatch sends one command; returns false on quit.
func dispatch(c *websocket.Conn, args []string) bool {
	if len(args) == 0 {
		return true
	}

	var err error
	switch args[0] {
	case "quit":
		return false
	case "create":
		if len(args) < 2 {
			log.Println("usage: create <name>")
			return true
		}
		err = send(c, MsgTypeCreateRoom, map[string]string{"name": args[1]})
	case "join":
		if len(args) < 3 {
			log.Println("usage: join <code> <name>")
			return true
		}
		err = send(c, MsgTypeJoinRoom, map[string]string{"code": args[1], "name": args[2]})
	case "list":
		err = send(c, MsgTypeListRooms, nil)
	case "start":
		err = send(c, MsgTypeStartGame, nil)
	case "state":
		err = send(c, MsgTypeGetState, nil)
	case "move":
		x, y, ok := parseCoords(args)
		if !ok {
			log.Println("usage: move <x> <y>")
			return true
		}
		err = send(c, MsgTypeMove, map[string]float64{"x": x, "y": y})
	case "kill":
		if len(args) < 2 {
			log.Println("usage: kill <id>")
			return true
		}
		err = send(c, MsgTypeKill, map[string]string{"targetId": args[1]})
	case "task":
		err = send(c, MsgTypeCompleteTask, nil)
	case "report":
		x, y, ok := parseCoords(args)
		if !ok {
			log.Println("usage: report <x> <y>")
			return true
		}
		err = send(c, MsgTypeReportBody, map[string]float64{"x": x, "y": y})
	case "meeting":
		err = send(c, MsgTypeCallMeeting, nil)
	case "vote":
		if len(args) > 1 {
			err = send(c, MsgTypeCastVote, map[string]string{"targetId": args[1]})
		} else {
			err = send(c, MsgTypeCastVote, map[string]interface{}{"targetId": nil})
		}
	case "sabotage":
		if len(args) < 2 {
			log.Println("usage: sabotage <kind>")
			return true
		}
		err = send(c, MsgTypeSabotage, map[string]string{"kind": args[1]})
	case "leave":
		err = send(c, MsgTypeLeaveRoom, nil)
	default:
		log.Printf("Unknown command %q", args[0])
		return true
	}

	if err != nil {
		log.Println("Write error:", err)
		return false
	}
	log.Printf("-> SENT: %s", args[0])
	return true
}

func parseCoords(args []string) (float64, float64, bool) {
	if len(args) < 3 {
		return 0, 0, false
	}
	x, errX := strconv.ParseFloat(args[1], 64)
	y, errY := strconv.ParseFloat(args[2], 64)
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}

func closeConn(c *websocket.Conn, done chan struct{}) {
	log.Println("Closing connection.")
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("Write close error:", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
