// Package handlers adapts the typed command handlers to the command
// bus, which dispatches on the dynamic command type.
package handlers

import (
	"context"
	"fmt"

	"phrasely-backend/application/commands"
	"phrasely-backend/application/commands/bus"
)

// SubmitParaphraseAdapter exposes SubmitParaphraseHandler on the bus
type SubmitParaphraseAdapter struct {
	handler *commands.SubmitParaphraseHandler
}

// NewSubmitParaphraseAdapter creates a bus adapter
func NewSubmitParaphraseAdapter(handler *commands.SubmitParaphraseHandler) *SubmitParaphraseAdapter {
	return &SubmitParaphraseAdapter{handler: handler}
}

// Handle implements bus.CommandHandler
func (a *SubmitParaphraseAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	typed, ok := cmd.(commands.SubmitParaphraseCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}
	_, err := a.handler.Handle(ctx, typed)
	return err
}

// ReplaceWordAdapter exposes ReplaceWordHandler on the bus
type ReplaceWordAdapter struct {
	handler *commands.ReplaceWordHandler
}

// NewReplaceWordAdapter creates a bus adapter
func NewReplaceWordAdapter(handler *commands.ReplaceWordHandler) *ReplaceWordAdapter {
	return &ReplaceWordAdapter{handler: handler}
}

// Handle implements bus.CommandHandler
func (a *ReplaceWordAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	typed, ok := cmd.(commands.ReplaceWordCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}
	return a.handler.Handle(ctx, typed)
}

// ReplaceSentenceAdapter exposes ReplaceSentenceHandler on the bus
type ReplaceSentenceAdapter struct {
	handler *commands.ReplaceSentenceHandler
}

// NewReplaceSentenceAdapter creates a bus adapter
func NewReplaceSentenceAdapter(handler *commands.ReplaceSentenceHandler) *ReplaceSentenceAdapter {
	return &ReplaceSentenceAdapter{handler: handler}
}

// Handle implements bus.CommandHandler
func (a *ReplaceSentenceAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	typed, ok := cmd.(commands.ReplaceSentenceCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}
	return a.handler.Handle(ctx, typed)
}

// UndoReplacementAdapter exposes UndoReplacementHandler on the bus
type UndoReplacementAdapter struct {
	handler *commands.UndoReplacementHandler
}

// NewUndoReplacementAdapter creates a bus adapter
func NewUndoReplacementAdapter(handler *commands.UndoReplacementHandler) *UndoReplacementAdapter {
	return &UndoReplacementAdapter{handler: handler}
}

// Handle implements bus.CommandHandler
func (a *UndoReplacementAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	typed, ok := cmd.(commands.UndoReplacementCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}
	return a.handler.Handle(ctx, typed)
}

// ReconnectSocketAdapter exposes ReconnectSocketHandler on the bus
type ReconnectSocketAdapter struct {
	handler *commands.ReconnectSocketHandler
}

// NewReconnectSocketAdapter creates a bus adapter
func NewReconnectSocketAdapter(handler *commands.ReconnectSocketHandler) *ReconnectSocketAdapter {
	return &ReconnectSocketAdapter{handler: handler}
}

// Handle implements bus.CommandHandler
func (a *ReconnectSocketAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	typed, ok := cmd.(commands.ReconnectSocketCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}
	return a.handler.Handle(ctx, typed)
}

// RegisterAll wires every command adapter onto the bus, each wrapped
// in the shared middleware pipeline.
func RegisterAll(
	b *bus.CommandBus,
	pipeline *bus.Pipeline,
	submit *commands.SubmitParaphraseHandler,
	replaceWord *commands.ReplaceWordHandler,
	replaceSentence *commands.ReplaceSentenceHandler,
	undo *commands.UndoReplacementHandler,
	reconnect *commands.ReconnectSocketHandler,
) error {
	wrap := func(h bus.CommandHandler) bus.CommandHandler {
		if pipeline == nil {
			return h
		}
		return pipeline.Execute(h)
	}

	if err := b.Register(commands.SubmitParaphraseCommand{}, wrap(NewSubmitParaphraseAdapter(submit))); err != nil {
		return err
	}
	if err := b.Register(commands.ReplaceWordCommand{}, wrap(NewReplaceWordAdapter(replaceWord))); err != nil {
		return err
	}
	if err := b.Register(commands.ReplaceSentenceCommand{}, wrap(NewReplaceSentenceAdapter(replaceSentence))); err != nil {
		return err
	}
	if err := b.Register(commands.UndoReplacementCommand{}, wrap(NewUndoReplacementAdapter(undo))); err != nil {
		return err
	}
	return b.Register(commands.ReconnectSocketCommand{}, wrap(NewReconnectSocketAdapter(reconnect)))
}
