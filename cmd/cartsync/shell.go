// cmd/cartsync/shell.go
package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"storefront/internal/application/cartsync"
	cartdom "storefront/internal/domain/cart"
)

const helpText = `commands:
  add <productId> <name> <price> [size|-] [color|-] [qty]
  rm <key>
  qty <key> <n>
  clear
  login <userId> [token]
  logout
  ls
  retry
  flush
  quit`

type shell struct {
	provider *cartsync.Provider
	session  *cartsync.Session
	out      io.Writer
}

// run reads commands until quit or EOF.
func (s *shell) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if quit := s.exec(strings.Fields(line)); quit {
			return nil
		}
	}
}

func (s *shell) exec(args []string) (quit bool) {
	switch args[0] {
	case "add":
		s.add(args[1:])
	case "rm":
		if len(args) != 2 {
			s.usage("rm <key>")
			return false
		}
		s.provider.RemoveItem(args[1])
	case "qty":
		if len(args) != 3 {
			s.usage("qty <key> <n>")
			return false
		}
		n, err := cast.ToIntE(args[2])
		if err != nil {
			fmt.Fprintf(s.out, "invalid qty %q\n", args[2])
			return false
		}
		s.provider.UpdateQty(args[1], n)
	case "clear":
		s.provider.ClearCart()
	case "login":
		if len(args) < 2 || len(args) > 3 {
			s.usage("login <userId> [token]")
			return false
		}
		token := ""
		if len(args) == 3 {
			token = args[2]
		}
		if err := s.session.SignIn(args[1], token); err != nil {
			fmt.Fprintln(s.out, err)
		}
	case "logout":
		s.session.SignOut()
	case "ls":
		s.list()
	case "retry":
		s.provider.RetrySync()
	case "flush":
		if err := s.provider.Flush(); err != nil {
			fmt.Fprintf(s.out, "sync failed: %v\n", err)
		}
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(s.out, "unknown command %q (try help)\n", args[0])
	}
	return false
}

func (s *shell) add(args []string) {
	if len(args) < 3 {
		s.usage("add <productId> <name> <price> [size|-] [color|-] [qty]")
		return
	}
	price, err := decimal.NewFromString(args[2])
	if err != nil {
		fmt.Fprintf(s.out, "invalid price %q\n", args[2])
		return
	}

	sel := cartdom.Selection{}
	if len(args) > 3 {
		sel.Size = optional(args[3])
	}
	if len(args) > 4 {
		sel.Color = optional(args[4])
	}
	if len(args) > 5 {
		sel.Qty = cast.ToInt(args[5])
	}

	p := cartdom.Product{ID: args[0], Name: args[1], Price: price}
	if err := s.provider.AddItem(p, sel); err != nil {
		fmt.Fprintln(s.out, err)
	}
}

func (s *shell) list() {
	for _, it := range s.provider.Items() {
		fmt.Fprintf(s.out, "%-32s %3d x %8s = %8s  %s\n",
			it.Key, it.Qty, it.Price.StringFixed(2), it.LineTotal().StringFixed(2), it.Name)
	}
	fmt.Fprintln(s.out, s.provider.String())
	if err := s.provider.LastSyncError(); err != nil {
		fmt.Fprintf(s.out, "last sync failed: %v (type retry)\n", err)
	}
}

func (s *shell) usage(u string) {
	fmt.Fprintln(s.out, "usage:", u)
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" || v == "-" {
		return nil
	}
	return &v
}
