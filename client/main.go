// Command client is an interactive terminal client for the bingo server.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/network"
)

const usage = `commands:
  create [name]        create a room
  join <code> [name]   join a room
  call <1-25>          call a number
  leave                leave the current room
  resume <player-id>   take over a player on this connection
  count                show the number of open rooms
  quit`

// seat is the player this client currently acts for.
type seat struct {
	mu       sync.Mutex
	roomCode string
	playerID string
}

func (s *seat) set(code, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomCode, s.playerID = code, id
}

func (s *seat) get() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCode, s.playerID
}

func send(c *websocket.Conn, msgID uint16, v any) error {
	var data []byte
	if v != nil {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server host:port")
	flag.Parse()

	if err := logger.Init("info", "console"); err != nil {
		panic(err)
	}
	defer logger.Sync()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	logger.Log.Infof("Connecting to %s", u.String())
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	var current seat
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				logger.Log.Infof("Read error: %v", err)
				return
			}
			packet, err := network.DecodePacket(message)
			if err != nil {
				logger.Log.Warnf("Invalid packet: %v", err)
				continue
			}
			switch packet.MsgID {
			case network.MsgTypeJoinRoom, network.MsgTypeResume:
				var joined network.JoinedMessage
				if json.Unmarshal(packet.Data, &joined) == nil {
					current.set(joined.RoomCode, joined.PlayerID)
				}
			case network.MsgTypeWinner, network.MsgTypeDraw, network.MsgTypeOpponentLeft:
				current.set("", "")
			}
			logger.Log.Infof("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	logger.Log.Info(usage)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			logger.Log.Info("Interrupt received, closing connection.")
			c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleCommand(c, &current, strings.Fields(text)); quit {
				return
			}
		}
	}
}

func handleCommand(c *websocket.Conn, current *seat, fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	code, playerID := current.get()

	var err error
	switch fields[0] {
	case "create":
		err = send(c, network.MsgTypeCreateRoom, network.CreateRoomRequest{PlayerName: arg(1)})
	case "join":
		err = send(c, network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomCode: arg(1), PlayerName: arg(2)})
	case "call":
		n, convErr := strconv.Atoi(arg(1))
		if convErr != nil {
			logger.Log.Warnf("call needs a number: %v", convErr)
			return false
		}
		err = send(c, network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: code, PlayerID: playerID, Number: n})
	case "leave":
		err = send(c, network.MsgTypeLeaveRoom, network.LeaveRoomRequest{RoomCode: code, PlayerID: playerID})
	case "resume":
		err = send(c, network.MsgTypeResume, network.ResumeRequest{PlayerID: arg(1)})
	case "count":
		err = send(c, network.MsgTypeRoomCount, nil)
	case "quit":
		return true
	default:
		logger.Log.Info(usage)
		return false
	}
	if err != nil {
		logger.Log.Errorf("Write error: %v", err)
		return true
	}
	return false
}
