package audit

import "context"

// FanOut appends each event to every underlying store; the first error wins.
type FanOut []Store

func (f FanOut) Append(ctx context.Context, event Event) error {
	for _, store := range f {
		if store == nil {
			continue
		}
		if err := store.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
