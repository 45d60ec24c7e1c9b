package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/lcsync/internal/challenge"
	"github.com/hpungsan/lcsync/internal/errors"
	"github.com/hpungsan/lcsync/internal/host"
	"github.com/hpungsan/lcsync/internal/record"
)

// stdout is where command output goes; tests swap it.
var stdout io.Writer = os.Stdout

// newCLIApp creates the CLI application with all commands.
// svc may be nil when only help or version is requested.
func newCLIApp(svc *services) *cli.App {
	app := &cli.App{
		Name:    "lcsync",
		Usage:   "Spaced-repetition sync agent",
		Version: Version,
		Commands: []*cli.Command{
			infoCmd(svc),
			completeCmd(svc),
			deleteCmd(svc),
			checkCmd(svc),
			showCmd(svc),
			forgetCmd(svc),
			solveCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// infoCmd creates the info command.
func infoCmd(svc *services) *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show the active user and their records",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "refresh", Aliases: []string{"r"}, Usage: "Reload the table from the remote service"},
		},
		Action: func(c *cli.Context) error {
			resp := svc.dispatcher.GetUserInfo(c.Context, c.Bool("refresh"))
			return outputResponse(resp)
		},
	}
}

// completeCmd creates the complete command.
func completeCmd(svc *services) *cli.Command {
	return &cli.Command{
		Name:  "complete",
		Usage: "Record a completed problem",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Required: true, Usage: "Problem slug"},
			&cli.StringFlag{Name: "difficulty", Aliases: []string{"d"}, Required: true, Usage: "Easy|Medium|Hard"},
			&cli.StringFlag{Name: "repeat", Required: true, Usage: "Next review date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "link", Usage: "Problem URL (defaults to the problem page)"},
			&cli.StringFlag{Name: "completed", Usage: "Completion time, RFC 3339 (defaults to now)"},
		},
		Action: func(c *cli.Context) error {
			rec, err := parseRecordFlags(c, time.Now())
			if err != nil {
				return outputError(err)
			}

			if _, err := svc.session.Ensure(c.Context, false); err != nil {
				return outputError(err)
			}
			if err := svc.session.RecordCompletion(c.Context, rec); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"success": true, "id": rec.ID})
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(svc *services) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a problem's completion record",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return outputError(errors.NewInvalidRequest("problem id is required"))
			}
			if resp := svc.dispatcher.GetUserInfo(c.Context, false); resp.Error != nil {
				return outputResponse(resp)
			}
			return outputResponse(svc.dispatcher.DeleteRow(c.Context, id))
		},
	}
}

// checkCmd creates the check command.
func checkCmd(svc *services) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Report whether a problem was completed in the last 24 hours",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if resp := svc.dispatcher.GetUserInfo(c.Context, false); resp.Error != nil {
				return outputResponse(resp)
			}
			return outputResponse(svc.dispatcher.CheckCompletedLastDay(c.Args().First()))
		},
	}
}

// showCmd creates the show command.
func showCmd(svc *services) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the review schedule as a table",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "offline", Usage: "Read the last stored snapshot instead of the remote table"},
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "User whose snapshot to read (offline only)"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("offline") {
				resp := svc.dispatcher.GetUserInfo(c.Context, false)
				if resp.Error != nil {
					return outputResponse(resp)
				}
				return printSchedule(resp.Username, resp.Records)
			}

			username, err := offlineUsername(c, svc)
			if err != nil {
				return outputError(err)
			}
			info, err := svc.session.Offline(c.Context, username)
			if err != nil {
				return outputError(err)
			}
			return printSchedule(info.Username, info.Records)
		},
	}
}

// forgetCmd creates the forget command.
func forgetCmd(svc *services) *cli.Command {
	return &cli.Command{
		Name:  "forget",
		Usage: "Delete the stored offline snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "User whose snapshot to delete"},
		},
		Action: func(c *cli.Context) error {
			username, err := offlineUsername(c, svc)
			if err != nil {
				return outputError(err)
			}
			if err := svc.session.Forget(c.Context, username); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"success": true, "username": username})
		},
	}
}

// solveCmd creates the solve command.
func solveCmd() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "Print the response to a challenge string",
		ArgsUsage: "<challenge>",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintln(stdout, challenge.SolveString(strings.Join(c.Args().Slice(), " ")))
			return err
		},
	}
}

// Helper functions

// parseRecordFlags builds a Record from the complete command's flags.
func parseRecordFlags(c *cli.Context, now time.Time) (record.Record, error) {
	rec := record.Record{
		ID:   strings.TrimSpace(c.String("id")),
		Link: c.String("link"),
	}
	if rec.Link == "" {
		rec.Link = "https://leetcode.com/problems/" + rec.ID + "/"
	}

	var err error
	if rec.Difficulty, err = record.ParseDifficulty(c.String("difficulty")); err != nil {
		return rec, errors.NewInvalidRequest(err.Error())
	}
	if rec.RepeatDate, err = record.ParseDate(c.String("repeat")); err != nil {
		return rec, errors.NewInvalidRequest(fmt.Sprintf("--repeat: %v", err))
	}
	rec.LastCompletionDate = record.NewDate(now)
	if s := c.String("completed"); s != "" {
		if rec.LastCompletionDate, err = record.ParseDate(s); err != nil {
			return rec, errors.NewInvalidRequest(fmt.Sprintf("--completed: %v", err))
		}
	}
	if err := rec.Validate(); err != nil {
		return rec, errors.NewInvalidRequest(err.Error())
	}
	return rec, nil
}

// printSchedule writes records as an aligned table.
func printSchedule(username string, recs []record.Record) error {
	if username == "" {
		_, err := fmt.Fprintln(stdout, "no active user")
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "REPEAT\tDIFFICULTY\tID\tLAST COMPLETED\n")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.RepeatDate.Format("2006-01-02"), r.Difficulty, r.ID,
			r.LastCompletionDate.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// offlineUsername returns --username, falling back to the configured source.
func offlineUsername(c *cli.Context, svc *services) (string, error) {
	if username := c.String("username"); username != "" {
		return username, nil
	}
	name, _, err := svc.usernames.Username(c.Context)
	return name, err
}

// outputResponse prints resp, or fails with its attached error.
func outputResponse(resp host.Response) error {
	if e := resp.Failure(); e != nil {
		return cli.Exit(fmt.Sprintf("[%s] %s", e.Code, e.Message), 1)
	}
	return outputJSON(resp)
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
