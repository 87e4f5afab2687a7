// Package shutdown coordinates console termination.
//
// A Handler runs named hooks once, newest first, when SIGINT or SIGTERM
// arrives, when Trigger is called (the console's "exit") or when the
// waiting context ends:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown("history", saveHistory)
//	go func() { runConsole(); h.Trigger() }()
//	err := h.Wait(ctx)
package shutdown
