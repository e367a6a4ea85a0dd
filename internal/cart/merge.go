package cart

import (
	"context"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

type MergeResult struct {
	Result
	Pushed  int `json:"pushed"`
	Pending int `json:"pending"`
}

// MergeGuestCart pushes the session's local-only lines to the backend cart after
// sign-in, one add_item per line, then resyncs. Lines that fail stay local and the
// session is left degraded so the next read retries them.
func (m *Manager) MergeGuestCart(ctx context.Context, sess models.Session) MergeResult {
	if !sess.Authenticated {
		return MergeResult{Result: Result{
			Success: false,
			Cart:    m.localCart(ctx, sess),
			Error:   ErrNotAuthenticated.Error(),
			Mode:    StateGuestLocal,
		}}
	}

	from := m.State(ctx, sess)
	pushed, pending, err := m.pushPending(ctx, sess)
	if pending > 0 || err != nil {
		state := m.advance(ctx, sess, from, outcomeFailure, err)
		return MergeResult{
			Result:  Result{Success: false, Cart: m.localCart(ctx, sess), Error: "some items could not be added to your account cart", Mode: state},
			Pushed:  pushed,
			Pending: pending,
		}
	}
	cart, state := m.getCart(ctx, sess, pushed > 0)
	return MergeResult{Result: Result{Success: true, Cart: cart, Mode: state}, Pushed: pushed}
}
