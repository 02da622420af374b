package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/example/room-scheduler/internal/logging"
)

const prompt = "> "

// Run reads commands from in until "exit", end of input or cancellation of ctx.
// Every command runs with a logger carrying a fresh command_id.
func (d *Dispatcher) Run(ctx context.Context, in io.Reader) error {
	if d.interactive {
		d.printf("%s\n", d.styles.Heading("roomctl: room reservation shell"))
		d.printf("%s", helpText)
	}

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if d.interactive {
			d.printf("%s", prompt)
		}
		if !scanner.Scan() {
			break
		}

		// Handled errors were already printed.
		exit, _ := d.Execute(d.commandContext(ctx), scanner.Text())
		if exit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("shell: read input: %w", err)
	}
	if d.interactive {
		d.println()
	}
	return nil
}

func (d *Dispatcher) commandContext(ctx context.Context) context.Context {
	logger := d.commandLogger(ctx).With("command_id", uuid.NewString())
	return logging.ContextWithLogger(ctx, logger)
}
