// Command detabase reads and writes items of a Base from the shell.
//
//	detabase put -base users -key alex '{"age": 30}'
//	detabase update -base users alex '{"age": {"$increment": 1}, "tags": {"$append": "new"}}'
//	detabase fetch -base users -query '{"age?gte": 18}' -all
//	detabase purge -base sessions -query '{"expired": true}'
//
// The project key and host default to DETA_PROJECT_KEY and DETA_BASE_HOST.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string, stdout io.Writer) error
}

var commands = []command{
	{"put", "store an item, overwriting any existing one", runPut},
	{"insert", "store an item only if its key is unused", runInsert},
	{"get", "print the item stored under a key", runGet},
	{"delete", "remove the item stored under a key", runDelete},
	{"update", "apply set/increment/append/prepend/trim updates", runUpdate},
	{"fetch", "print items matching a query", runFetch},
	{"purge", "delete every item matching a query", runPurge},
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		usage(stderr)
		return 2
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, cmd := range commands {
		if cmd.name != args[0] {
			continue
		}
		if err := cmd.run(ctx, args[1:], stdout); err != nil {
			fmt.Fprintf(stderr, "detabase %s: %v\n", cmd.name, err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stderr, "detabase: unknown command %q\n", args[0])
	usage(stderr)
	return 2
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: detabase <command> [flags] [args]")
	fmt.Fprintln(w)
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
}
