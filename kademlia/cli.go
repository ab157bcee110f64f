package kademlia

// cli.go: the interactive command prompt. Line-based,
// whitespace-delimited tokens. This is peripheral glue over the node
// façade — it owns no node lifecycle of its own.

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// CLI is a thin REPL over a running Node.
type CLI struct {
	node *Node
	in   io.Reader
	out  io.Writer
	quit func()
}

// NewCLI builds a CLI over node. quit is invoked when "close" is issued;
// a nil quit is replaced with a no-op.
func NewCLI(node *Node, in io.Reader, out io.Writer, quit func()) *CLI {
	if quit == nil {
		quit = func() {}
	}
	return &CLI{node: node, in: in, out: out, quit: quit}
}

// RunLine executes one command line. Recognized commands:
//
//	ping <ip:port>
//	store <key> <value>
//	get <key>
//	delete <key>
//	find <hex_id>
//	close
//
// Unknown commands print a warning. "close" sets the shutdown signal and
// returns io.EOF.
func (c *CLI) RunLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "ping":
		return c.runPing(args)
	case "store":
		return c.runStore(args)
	case "get":
		return c.runGet(args)
	case "delete":
		return c.runDelete(args)
	case "find":
		return c.runFind(args)
	case "close":
		c.quit()
		return io.EOF
	default:
		fmt.Fprintf(c.out, "WARN unknown command %q\n", cmd)
		return nil
	}
}

func (c *CLI) runPing(args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "ERR usage: ping <ip:port>")
		return nil
	}
	if c.node.Ping(args[0]) {
		fmt.Fprintln(c.out, "PONG")
	} else {
		fmt.Fprintln(c.out, "ERR no response")
	}
	return nil
}

func (c *CLI) runStore(args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "ERR usage: store <key> <value>")
		return nil
	}
	key := args[0]
	value := strings.Join(args[1:], " ")
	if err := c.node.Store(key, value); err != nil {
		fmt.Fprintf(c.out, "ERR %v\n", err)
		return nil
	}
	fmt.Fprintln(c.out, "OK")
	return nil
}

func (c *CLI) runGet(args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "ERR usage: get <key>")
		return nil
	}
	value, ok, err := c.node.FindValue(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "ERR %v\n", err)
		return nil
	}
	if !ok {
		fmt.Fprintln(c.out, "NOTFOUND")
		return nil
	}
	fmt.Fprintln(c.out, value)
	return nil
}

func (c *CLI) runDelete(args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "ERR usage: delete <key>")
		return nil
	}
	if err := c.node.storage.Remove(args[0]); err != nil {
		fmt.Fprintf(c.out, "ERR %v\n", err)
		return nil
	}
	fmt.Fprintln(c.out, "OK")
	return nil
}

func (c *CLI) runFind(args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "ERR usage: find <hex_id>")
		return nil
	}
	if len(args[0]) != IDLength*2 {
		fmt.Fprintln(c.out, "ERR invalid id")
		return nil
	}
	target := NewID(args[0])
	result := c.node.lookup(target, "", false)
	for _, contact := range result.closest {
		fmt.Fprintln(c.out, contact.String())
	}
	return nil
}

// Run starts a REPL on c.in, printing nothing but command output, until
// EOF or "close".
func (c *CLI) Run() error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if err := c.RunLine(scanner.Text()); err == io.EOF {
			return nil
		}
	}
	return scanner.Err()
}
