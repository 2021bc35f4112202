// Package shutdown ties process signals to context cancellation and runs
// cleanup hooks once on the way out.
//
//	h := shutdown.NewHandler(5 * time.Second)
//	ctx := h.Context(context.Background())
//	h.OnShutdown(func(ctx context.Context) error { return client.Close(ctx) })
//	defer h.Shutdown()
package shutdown
