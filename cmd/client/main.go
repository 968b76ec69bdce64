package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"github.com/hilthontt/roomsync/pkg/sdk"
	"go.uber.org/zap"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "roomsync server base URL")
	chatID := flag.String("chat", "general", "chat to open")
	name := flag.String("name", "", "display name")
	participant := flag.String("participant", "", "participant id (random when empty)")
	logPath := flag.String("log", "", "write agent logs to this file")
	flag.Parse()

	if *participant == "" {
		*participant = uuid.NewString()
	}
	if *name == "" {
		*name = *participant
	}

	// the terminal belongs to the TUI, so logs only go to a file
	logger := zap.NewNop()
	if *logPath != "" {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{*logPath}
		cfg.ErrorOutputPaths = []string{*logPath}
		logger = zap.Must(cfg.Build())
	}
	defer logger.Sync()

	wsURL, err := websocketURL(*server)
	if err != nil {
		fmt.Println("invalid server URL:", err)
		os.Exit(1)
	}

	events := make(chan tea.Msg, 100)
	emit := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}

	agent := sdk.NewAgent(sdk.NewWebSocketTransport(wsURL, *participant), sdk.Options{
		ParticipantID: *participant,
		BackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		},
		Logger:        logger,
		OnStateChange: func(s sdk.State) { emit(stateChangedMsg{state: s}) },
		OnRejoinFailure: func(room string, err error) {
			emit(roomLostMsg{room: room, err: err})
		},
	})
	defer agent.Close()

	session := sdk.NewChatSession(agent, sdk.NewHistoryClient(*server), *chatID, sdk.ChatOptions{
		SenderName: *name,
		OnMessage:  func(m protocol.Message) { emit(messageReceivedMsg{message: m}) },
	})
	defer session.Close()

	if _, err := tea.NewProgram(newModel(session, *chatID, *participant, events), tea.WithAltScreen()).Run(); err != nil {
		fmt.Println("Error running program:", err)
		os.Exit(1)
	}
}

func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/ws"
	return u.String(), nil
}
