// Command grocer is a CLI client for the grocer customer API.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/and161185/grocer/internal/convert"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

var errUsage = errors.New("usage")

const usageText = `grocer CLI
Usage:
  grocer [-addr URL] <cmd> [args]

Commands:
  version
  signup   -first <name> -last <name> -email <addr> -contact <number> [-p <password>]
  login    -contact <number> [-p <password>]          (saves token)
  logout
  whoami
  rename   -first <name> [-last <name>]
  passwd                                               (prompts for old and new password)
  sessions                                             (lists logins of the account)
  address  add -flat <flat/building> -locality <l> -city <c> -pincode <pin>
  address  list
  address  rm -id <address id>
`

// env carries process streams so commands can be driven from tests.
type env struct {
	addr   string
	out    io.Writer
	errOut io.Writer
	in     *bufio.Reader // nil reads passwords from the terminal
	now    func() time.Time
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	e := env{addr: *addr, out: os.Stdout, errOut: os.Stderr, in: stdinReader(), now: time.Now}
	if err := run(ctx, e, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run dispatches one subcommand.
func run(ctx context.Context, e env, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "version":
		fmt.Fprintf(e.out, "grocer %s (%s)\n", version, buildDate)
		return nil
	case "signup":
		return cmdSignup(ctx, e, rest)
	case "login":
		return cmdLogin(ctx, e, rest)
	case "logout":
		return cmdLogout(ctx, e)
	case "whoami":
		return withSession(e, func(c *client) error {
			out, err := c.customer(ctx)
			if err != nil {
				return err
			}
			return printJSON(e.out, out)
		})
	case "rename":
		return cmdRename(ctx, e, rest)
	case "passwd":
		return cmdPasswd(ctx, e)
	case "sessions":
		return withSession(e, func(c *client) error {
			out, err := c.sessions(ctx)
			if err != nil {
				return err
			}
			return printJSON(e.out, out.Sessions)
		})
	case "address":
		return cmdAddress(ctx, e, rest)
	default:
		return errUsage
	}
}

func cmdSignup(ctx context.Context, e env, args []string) error {
	set := flag.NewFlagSet("signup", flag.ContinueOnError)
	set.SetOutput(e.errOut)
	first := set.String("first", "", "first name")
	last := set.String("last", "", "last name")
	email := set.String("email", "", "email address")
	contact := set.String("contact", "", "contact number")
	pw := set.String("p", "", "password (prompted when empty)")
	if err := set.Parse(args); err != nil {
		return err
	}
	if *contact == "" {
		return errors.New("need -contact")
	}
	if *pw == "" {
		var err error
		if *pw, err = promptPassword(e.errOut, e.in, "Password"); err != nil {
			return err
		}
	}

	out, err := newClient(e.addr, "").signup(ctx, convert.SignupRequest{
		FirstName:     *first,
		LastName:      *last,
		EmailAddress:  *email,
		ContactNumber: *contact,
		Password:      *pw,
	})
	if err != nil {
		return err
	}
	return printJSON(e.out, out)
}

func cmdLogin(ctx context.Context, e env, args []string) error {
	set := flag.NewFlagSet("login", flag.ContinueOnError)
	set.SetOutput(e.errOut)
	contact := set.String("contact", "", "contact number")
	pw := set.String("p", "", "password (prompted when empty)")
	if err := set.Parse(args); err != nil {
		return err
	}
	if *contact == "" {
		return errors.New("need -contact")
	}
	if *pw == "" {
		var err error
		if *pw, err = promptPassword(e.errOut, e.in, "Password"); err != nil {
			return err
		}
	}

	tok, out, err := newClient(e.addr, "").login(ctx, *contact, *pw)
	if err != nil {
		return err
	}
	if err := saveToken(tokenFile{AccessToken: tok, CustomerID: out.ID, ExpiresAt: out.ExpiresAt}); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "signed in as %s %s (session until %s)\n",
		out.FirstName, out.LastName, out.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func cmdLogout(ctx context.Context, e env) error {
	err := withSession(e, func(c *client) error {
		out, err := c.logout(ctx)
		if err != nil {
			return err
		}
		return printJSON(e.out, out)
	})
	// a rejected token is useless either way
	if cerr := clearToken(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func cmdRename(ctx context.Context, e env, args []string) error {
	set := flag.NewFlagSet("rename", flag.ContinueOnError)
	set.SetOutput(e.errOut)
	first := set.String("first", "", "first name")
	last := set.String("last", "", "last name")
	if err := set.Parse(args); err != nil {
		return err
	}
	return withSession(e, func(c *client) error {
		out, err := c.updateCustomer(ctx, *first, *last)
		if err != nil {
			return err
		}
		return printJSON(e.out, out)
	})
}

func cmdPasswd(ctx context.Context, e env) error {
	return withSession(e, func(c *client) error {
		oldPw, err := promptPassword(e.errOut, e.in, "Current password")
		if err != nil {
			return err
		}
		newPw, err := promptPassword(e.errOut, e.in, "New password")
		if err != nil {
			return err
		}
		again, err := promptPassword(e.errOut, e.in, "Repeat new password")
		if err != nil {
			return err
		}
		if newPw != again {
			return errors.New("passwords do not match")
		}
		out, err := c.changePassword(ctx, oldPw, newPw)
		if err != nil {
			return err
		}
		// every session was revoked by the change
		_ = clearToken()
		fmt.Fprintln(e.errOut, "password changed, please login again")
		return printJSON(e.out, out)
	})
}

func cmdAddress(ctx context.Context, e env, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		set := flag.NewFlagSet("address add", flag.ContinueOnError)
		set.SetOutput(e.errOut)
		flat := set.String("flat", "", "flat / building name")
		locality := set.String("locality", "", "locality")
		city := set.String("city", "", "city")
		pincode := set.String("pincode", "", "6 digit pincode")
		if err := set.Parse(rest); err != nil {
			return err
		}
		return withSession(e, func(c *client) error {
			out, err := c.saveAddress(ctx, convert.SaveAddressRequest{
				FlatBuildingName: *flat,
				Locality:         *locality,
				City:             *city,
				Pincode:          *pincode,
			})
			if err != nil {
				return err
			}
			return printJSON(e.out, out)
		})
	case "list":
		return withSession(e, func(c *client) error {
			out, err := c.listAddresses(ctx)
			if err != nil {
				return err
			}
			return printJSON(e.out, out.Addresses)
		})
	case "rm":
		set := flag.NewFlagSet("address rm", flag.ContinueOnError)
		set.SetOutput(e.errOut)
		id := set.String("id", "", "address id")
		if err := set.Parse(rest); err != nil {
			return err
		}
		if *id == "" {
			return errors.New("need -id")
		}
		return withSession(e, func(c *client) error {
			out, err := c.deleteAddress(ctx, *id)
			if err != nil {
				return err
			}
			return printJSON(e.out, out)
		})
	default:
		return errUsage
	}
}

// withSession runs fn with a client carrying the stored token.
func withSession(e env, fn func(c *client) error) error {
	tf, err := loadToken(e.now())
	if err != nil {
		return err
	}
	return fn(newClient(e.addr, tf.AccessToken))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
