package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"solace/pkg/controller"
)

// runChat is a line-oriented REPL against the controller.
func runChat(ctx context.Context, ctrl *controller.Controller, userID string, in io.Reader, out io.Writer) error {
	conv, err := ctrl.StartConversation(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Conversation %s started. Type /gate to inspect the exercise gate, /quit to leave.\n", conv.ID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/gate":
			status, err := ctrl.GateStatus(ctx, conv.ID)
			if err != nil {
				return err
			}
			if status.AllConditionsMet {
				fmt.Fprintln(out, "gate: open")
				continue
			}
			fmt.Fprintf(out, "gate: closed (%s)\n", strings.Join(status.FailedConditions, "; "))
			continue
		}

		resp, err := ctrl.GenerateResponse(ctx, conv.ID, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n", resp.Content)
		for i, ex := range resp.SuggestedExercises {
			fmt.Fprintf(out, "  %d. %s (~%d min)\n", i+1, ex.Title, ex.EstimatedMinutes)
		}
		fmt.Fprintf(out, "[%s]\n\n", resp.NewState)
	}
}
