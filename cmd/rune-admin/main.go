// ABOUTME: Admin CLI for rune backend management over REST
// ABOUTME: Commands for identity, realms, accounts, and runes

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/runeforge/rune-console/internal/api"
)

const banner = `
 _ __ _   _ _ __   ___        __ _  __| |_ __ ___ (_)_ __
| '__| | | | '_ \ / _ \_____ / _' |/ _' | '_ ' _ \| | '_ \
| |  | |_| | | | |  __/_____| (_| | (_| | | | | | | | | | |
|_|   \__,_|_| |_|\___|      \__,_|\__,_|_| |_| |_|_|_| |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	client := api.New(cfg.Backend.URL, nil).WithToken(cfg.Backend.Token)
	if cfg.Backend.Realm != "" {
		client = client.WithRealm(cfg.Backend.Realm)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {
	case "me":
		err = cmdMe(ctx, client)
	case "realms":
		err = cmdRealms(ctx, client, args)
	case "accounts":
		err = cmdAccounts(ctx, client, args)
	case "runes":
		err = cmdRunes(ctx, client, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: rune-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  me                          Show your identity and realm roles")
	fmt.Println("  realms                      List accessible realms")
	fmt.Println("  realms create <name>        Create a realm")
	fmt.Println("  accounts                    List accounts (realm-scoped)")
	fmt.Println("  runes                       List runes (realm-scoped)")
	fmt.Println("  runes show <id>             Show one rune")
	fmt.Println("  runes create <title>        Create a rune")
	fmt.Println("  runes move <id> <state>     Transition a rune")
	fmt.Println("  runes delete <id>           Delete a rune")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  RUNE_BACKEND_URL   Backend base URL")
	fmt.Println("  RUNE_TOKEN         Personal access token (required)")
	fmt.Println("  RUNE_REALM         Realm id for realm-scoped commands")
	fmt.Println("  RUNE_ADMIN_CONFIG  Config file path (default: ~/.config/rune-console/admin.toml)")
}

func cmdMe(ctx context.Context, client *api.Client) error {
	id, err := client.Me(ctx)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("%s", id.DisplayName)
	fmt.Printf(" (%s, %s)\n", id.PrincipalID, id.Status)

	if len(id.RealmRoles) == 0 {
		fmt.Println("No realm memberships.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REALM\tROLE")
	for realm, role := range id.RealmRoles {
		fmt.Fprintf(w, "%s\t%s\n", realm, role)
	}
	return w.Flush()
}

func cmdRealms(ctx context.Context, client *api.Client, args []string) error {
	if len(args) > 0 && args[0] == "create" {
		if len(args) < 2 {
			return fmt.Errorf("usage: rune-admin realms create <name>")
		}
		realm, err := client.CreateRealm(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		color.Green("Created realm %s (%s)\n", realm.Name, realm.ID)
		return nil
	}

	realms, err := client.ListRealms(ctx)
	if err != nil {
		return err
	}
	if len(realms) == 0 {
		fmt.Println("No realms.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tCREATED")
	for _, r := range realms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Role, r.CreatedAt.Format(time.DateOnly))
	}
	return w.Flush()
}

func cmdAccounts(ctx context.Context, client *api.Client, args []string) error {
	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tDISPLAY NAME\tSTATUS")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Username, a.DisplayName, a.Status)
	}
	return w.Flush()
}

func cmdRunes(ctx context.Context, client *api.Client, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		return cmdRunesList(ctx, client)
	}

	switch args[0] {
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: rune-admin runes show <id>")
		}
		return cmdRunesShow(ctx, client, args[1])
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: rune-admin runes create <title>")
		}
		rn, err := client.CreateRune(ctx, api.CreateRuneRequest{Title: strings.Join(args[1:], " ")})
		if err != nil {
			return err
		}
		color.Green("Created rune %s (%s)\n", rn.Title, rn.ID)
		return nil
	case "move":
		if len(args) < 3 {
			return fmt.Errorf("usage: rune-admin runes move <id> <state>")
		}
		rn, err := client.TransitionRune(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		color.Green("Rune %s is now %s\n", rn.ID, rn.State)
		return nil
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: rune-admin runes delete <id>")
		}
		if err := client.DeleteRune(ctx, args[1]); err != nil {
			return err
		}
		color.Green("Deleted rune %s\n", args[1])
		return nil
	default:
		return fmt.Errorf("unknown runes subcommand: %s", args[0])
	}
}

func cmdRunesList(ctx context.Context, client *api.Client) error {
	runes, err := client.ListRunes(ctx, api.RuneFilter{})
	if err != nil {
		return err
	}
	if len(runes) == 0 {
		fmt.Println("No runes.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATE\tSEVERITY\tASSIGNEE\tUPDATED")
	for _, r := range runes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Title, stateColor(r.State), r.Severity, r.Assignee,
			r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func cmdRunesShow(ctx context.Context, client *api.Client, id string) error {
	rn, err := client.GetRune(ctx, id)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Println(rn.Title)
	fmt.Printf("id:       %s\n", rn.ID)
	fmt.Printf("state:    %s\n", stateColor(rn.State))
	fmt.Printf("severity: %s\n", rn.Severity)
	if rn.Assignee != "" {
		fmt.Printf("assignee: %s\n", rn.Assignee)
	}
	fmt.Printf("created:  %s\n", rn.CreatedAt.Format(time.RFC3339))
	fmt.Printf("updated:  %s\n", rn.UpdatedAt.Format(time.RFC3339))
	if rn.Description != "" {
		fmt.Println()
		fmt.Println(rn.Description)
	}
	return nil
}

func stateColor(state string) string {
	switch state {
	case api.RuneStateOpen:
		return color.CyanString(state)
	case api.RuneStateTriaged:
		return color.BlueString(state)
	case api.RuneStateWorking:
		return color.YellowString(state)
	case api.RuneStateResolved:
		return color.GreenString(state)
	case api.RuneStateClosed:
		return color.HiBlackString(state)
	default:
		return state
	}
}
