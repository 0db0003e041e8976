package commands

import "context"

// Handler answers chat commands.
type Handler interface {
	Handle(ctx context.Context, req Request) Reply
}
