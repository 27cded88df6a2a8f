package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/action"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// StateActions returns the built-in actions used by play. They edit state in place.
//
//	set_flag {flag}         sets flag to true
//	set      {key, value}   sets key to value
//	give     {key, amount}  adds amount to a numeric key
//	pay      {amount}       takes amount from "gold"
func StateActions(state domain.GameState) *action.Registry {
	reg := action.NewRegistry()
	reg.Register("set_flag", action.Typed(func(_ context.Context, args struct{ Flag string }) error {
		if args.Flag == "" {
			return errors.New("flag is required")
		}
		state[args.Flag] = true
		return nil
	}))
	reg.Register("set", action.Typed(func(_ context.Context, args struct {
		Key   string
		Value any
	}) error {
		if args.Key == "" {
			return errors.New("key is required")
		}
		state[args.Key] = args.Value
		return nil
	}))
	reg.Register("give", action.Typed(func(_ context.Context, args struct {
		Key    string
		Amount float64
	}) error {
		return add(state, args.Key, args.Amount)
	}))
	reg.Register("pay", action.Typed(func(_ context.Context, args struct{ Amount float64 }) error {
		return add(state, "gold", -args.Amount)
	}))
	return reg
}

func add(state domain.GameState, key string, amount float64) error {
	if key == "" {
		return errors.New("key is required")
	}
	var cur float64
	switch v := state[key].(type) {
	case nil:
	case int:
		cur = float64(v)
	case int64:
		cur = float64(v)
	case float64:
		cur = v
	default:
		return fmt.Errorf("%s is not a number: %v", key, v)
	}
	state[key] = cur + amount
	return nil
}

// ParseState parses key=value pairs. Values that look like booleans or numbers are typed.
func ParseState(pairs []string) (domain.GameState, error) {
	state := make(domain.GameState, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid state %q, expected key=value", p)
		}
		raw = strings.TrimSpace(raw)
		if b, err := strconv.ParseBool(raw); err == nil {
			state[key] = b
		} else if n, err := strconv.ParseFloat(raw, 64); err == nil {
			state[key] = n
		} else {
			state[key] = raw
		}
	}
	return state, nil
}

// Play walks the session tree from the root. When the first available option is a line it is
// spoken and the walk continues from it; otherwise the player picks a choice by number, or
// quits with "q". Every step visits the node, so actions run against state.
func Play(ctx context.Context, s *arbor.Session, state domain.GameState, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	cur := s.Tree.Root()
	if err := speak(s, cur, out); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		options, err := s.Options(ctx, cur, state)
		if err != nil {
			return err
		}
		if len(options) == 0 {
			printSystemMessage(out, "The end.")
			return nil
		}

		next := options[0]
		if next.Data.Type() == domain.NodeTypeChoice {
			choice, quit, err := choose(reader, out, options)
			if err != nil || quit {
				return err
			}
			next = choice
		} else if err := speak(s, next.Handle, out); err != nil {
			return err
		}

		if err := s.Visit(ctx, next.Handle); err != nil {
			printSystemMessage(out, "Action failed: %v", err)
		}
		cur = next.Handle
	}
}

func speak(s *arbor.Session, h tree.Handle, out io.Writer) error {
	d, err := s.Tree.Data(h)
	if err != nil || d == nil {
		return err
	}
	if d.Speaker != "" {
		fmt.Fprintf(out, "%s: %s\n", d.Speaker, d.DisplayText())
		return nil
	}
	fmt.Fprintln(out, d.DisplayText())
	return nil
}

func choose(reader *bufio.Reader, out io.Writer, options []arbor.Branch) (arbor.Branch, bool, error) {
	for i, o := range options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, o.Data.DisplayText())
	}
	for {
		fmt.Fprint(out, "> ")
		text, err := reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if err != nil && text == "" {
			if errors.Is(err, io.EOF) {
				return arbor.Branch{}, true, nil
			}
			return arbor.Branch{}, false, err
		}
		if text == "q" || text == "quit" || text == "exit" {
			return arbor.Branch{}, true, nil
		}
		n, convErr := strconv.Atoi(text)
		if convErr == nil && n >= 1 && n <= len(options) {
			return options[n-1], false, nil
		}
		printSystemMessage(out, "Pick 1-%d, or q to quit.", len(options))
		if err != nil {
			return arbor.Branch{}, true, nil
		}
	}
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(out io.Writer, format string, args ...any) {
	fmt.Fprintf(out, ">>> %s\n", fmt.Sprintf(format, args...))
}
