// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package activation

import (
	"context"

	"github.com/lodestar-ide/lodestar/internal/plugin"
)

// ArgumentProcessor converts one kind of command argument into its
// plugin-facing form. Processors form a fixed, enumerable set; the first
// whose CanHandle returns true wins.
type ArgumentProcessor interface {
	CanHandle(arg any) bool
	Process(arg any) any
}

// CommandOwner resolves the plugin that declared a command contribution.
type CommandOwner func(commandID string) (plugin.ID, bool)

// CommandInterceptor gates command execution on the owning plugin's
// activation. It resolves as soon as either the activation completes or the
// plugin registers a handler, so a plugin that declares a command but never
// installs a handler cannot deadlock callers: the activation promise itself
// bounds the wait.
type CommandInterceptor struct {
	dispatcher *Dispatcher
	handlers   HandlerRegistry
	owner      CommandOwner
	processors []ArgumentProcessor
}

// NewCommandInterceptor creates an interceptor. processors may be nil.
func NewCommandInterceptor(d *Dispatcher, handlers HandlerRegistry, owner CommandOwner, processors ...ArgumentProcessor) *CommandInterceptor {
	return &CommandInterceptor{
		dispatcher: d,
		handlers:   handlers,
		owner:      owner,
		processors: processors,
	}
}

// WillExecute runs before a command executes: arguments pass through the
// processor set, then the owning plugin (if any) is activated. Returns the
// processed arguments.
func (i *CommandInterceptor) WillExecute(ctx context.Context, commandID string, args []any) ([]any, error) {
	processed := make([]any, len(args))
	for n, arg := range args {
		processed[n] = i.process(arg)
	}

	if _, ok := i.owner(commandID); !ok {
		return processed, nil
	}
	if i.handlers.HasHandler(commandID) {
		return processed, nil
	}

	activated := make(chan error, 1)
	go func() {
		activated <- i.dispatcher.ActivateByCommand(ctx, commandID)
	}()

	// Race activation against handler registration; whichever resolves
	// first unblocks the command.
	select {
	case err := <-activated:
		if err != nil {
			return processed, err
		}
	case <-i.handlers.HandlerReady(commandID):
	case <-ctx.Done():
		return processed, ctx.Err()
	}
	return processed, nil
}

func (i *CommandInterceptor) process(arg any) any {
	for _, p := range i.processors {
		if p.CanHandle(arg) {
			return p.Process(arg)
		}
	}
	return arg
}
