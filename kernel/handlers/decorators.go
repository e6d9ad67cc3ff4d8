package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/shortlink-org/kernel-client/kernel/message"
	"github.com/shortlink-org/kernel-client/logger"
)

// Recover keeps a panicking callback from taking down its subscription.
func Recover(fn func(message.Event), log logger.Logger) func(message.Event) {
	if fn == nil {
		return nil
	}

	if log == nil {
		log = logger.Nop()
	}

	return func(evt message.Event) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("event handler panicked",
					"kind", evt.Kind.String(),
					"token", evt.CommandToken(),
					"panic", fmt.Sprint(r),
				)
			}
		}()

		fn(evt)
	}
}

// WithTimeout bounds every Handle call of logic by d.
func WithTimeout[T any](logic EventHandler[T], d time.Duration) EventHandler[T] {
	if logic == nil || d <= 0 {
		return logic
	}

	return HandlerFunc[T](func(ctx context.Context, evt T) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		return logic.Handle(ctx, evt)
	})
}
