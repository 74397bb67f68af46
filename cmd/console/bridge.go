package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/dialogue-engine/pkg/capability"
)

// lineMsg asks the UI to show a line. The engine waits until ack is closed.
type lineMsg struct {
	line capability.Line
	ack  chan struct{}
}

// choiceMsg opens the choice modal. The picked Dest is sent on reply.
type choiceMsg struct {
	choices []capability.Choice
	reply   chan int
}

// runDoneMsg reports the end of the run.
type runDoneMsg struct {
	err error
}

// bridge is the Displayer and Selector handed to the engine. It runs on the
// engine goroutine and blocks on the UI answering through the message.
// Closing done releases every wait once the UI is gone.
type bridge struct {
	send func(tea.Msg)
	done chan struct{}
}

func newBridge() *bridge {
	return &bridge{done: make(chan struct{})}
}

var (
	_ capability.Displayer = (*bridge)(nil)
	_ capability.Selector  = (*bridge)(nil)
)

func (b *bridge) ShowText(ctx context.Context, line capability.Line) error {
	ack := make(chan struct{})
	b.send(lineMsg{line: line, ack: ack})
	select {
	case <-ack:
		return nil
	case <-b.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *bridge) Select(ctx context.Context, choices []capability.Choice) (int, error) {
	reply := make(chan int, 1)
	b.send(choiceMsg{choices: choices, reply: reply})
	select {
	case dest := <-reply:
		return dest, nil
	case <-b.done:
		return 0, context.Canceled
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
