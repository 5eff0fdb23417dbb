// Command taskdash is the TaskDash CLI client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/GoCodeAlone/taskdash/internal/version"
	"github.com/GoCodeAlone/taskdash/session"
)

const defaultServer = "http://localhost:8080"

func main() {
	var (
		serverURL = flag.String("server", defaultServer, "taskdash server URL")
		token     = flag.String("token", os.Getenv("TASKDASH_TOKEN"), "auth token")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL:    strings.TrimRight(*serverURL, "/"),
		Token:      *token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		err = cmdVersion(rest)
	case "hashpw":
		err = cmdHashPassword(rest)
	case "status":
		err = cli.cmdStatus(rest)
	case "login":
		err = cli.cmdLogin(rest)
	case "tasks":
		err = cli.cmdTasks(rest)
	case "task":
		err = cli.cmdTask(rest)
	case "analytics":
		err = cli.cmdAnalytics(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `taskdash - TaskDash CLI

Usage:
  taskdash [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:8080)
  --token   <token>  auth token (or $TASKDASH_TOKEN)

Commands:
  version                      print version
  hashpw <password>            print a bcrypt hash for config password_hash
  status                       show server status
  login <user> <password>      obtain an auth token
  tasks [query...]             list tasks (key=value: status priority type q sort dir)
  task create <title>          create a task
  task show <id>               show one task with tracked time
  task delete <id>             delete an Open task
  task request-approval <id>   submit a task for review
  task approve <id>            approve a pending task
  task reopen <id>             reopen a closed task
  task timer <start|stop> <id> control a task's timer
  analytics                    show the analytics report
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Printf("taskdash %s (commit %s, built %s)\n",
		version.Version, version.Commit, version.BuildDate)
	return nil
}

// --- hashpw ---

func cmdHashPassword(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: taskdash hashpw <password>")
	}
	hash, err := session.HashPassword(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// get performs a GET and decodes JSON into v.
func (c *Client) get(path string, v any) error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// post performs a POST and decodes JSON response into v (may be nil).
func (c *Client) post(path string, body io.Reader, v any) error {
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if v != nil && resp.ContentLength != 0 {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

// del performs a DELETE.
func (c *Client) del(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

// --- status ---

func (c *Client) cmdStatus(_ []string) error {
	var result map[string]string
	if err := c.get("/api/status", &result); err != nil {
		return err
	}
	fmt.Printf("status:  %s\n", result["status"])
	fmt.Printf("version: %s\n", result["version"])
	return nil
}

// --- login ---

func (c *Client) cmdLogin(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: taskdash login <user> <password>")
	}
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, args[0], args[1])
	var result map[string]string
	if err := c.post("/api/auth/login", strings.NewReader(body), &result); err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", result["username"], result["role"])
	fmt.Printf("export TASKDASH_TOKEN=%s\n", result["token"])
	return nil
}

// --- tasks ---

func (c *Client) cmdTasks(args []string) error {
	params := url.Values{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", arg)
		}
		params.Set(k, v)
	}
	path := "/api/tasks"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var tasks []map[string]any
	if err := c.get(path, &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	fmt.Printf("%-36s %-30s %-16s %-10s\n", "ID", "TITLE", "STATUS", "PRIORITY")
	fmt.Println(strings.Repeat("-", 96))
	for _, t := range tasks {
		fmt.Printf("%-36s %-30s %-16s %-10s\n",
			strVal(t["id"]),
			truncate(strVal(t["title"]), 29),
			strVal(t["status"]),
			strVal(t["priority"]),
		)
	}
	return nil
}

// --- task subcommands ---

func (c *Client) cmdTask(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: taskdash task <create|show|delete|request-approval|approve|reopen|timer> ...")
		os.Exit(1)
	}
	sub := args[0]
	rest := args[1:]
	switch sub {
	case "create":
		if len(rest) < 1 {
			return fmt.Errorf("usage: taskdash task create <title>")
		}
		title := strings.Join(rest, " ")
		body := fmt.Sprintf(`{"title":%q,"description":%q,"type":"Task","status":"Open","priority":"Medium"}`, title, title)
		var result map[string]any
		if err := c.post("/api/tasks", strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("created task %s\n", strVal(result["id"]))
	case "show":
		if len(rest) != 1 {
			return fmt.Errorf("usage: taskdash task show <id>")
		}
		return c.showTask(rest[0])
	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("usage: taskdash task delete <id>")
		}
		if err := c.del("/api/tasks/" + rest[0]); err != nil {
			return err
		}
		fmt.Printf("deleted task %s\n", rest[0])
	case "request-approval", "approve", "reopen":
		if len(rest) != 1 {
			return fmt.Errorf("usage: taskdash task %s <id>", sub)
		}
		var result map[string]any
		if err := c.post("/api/tasks/"+rest[0]+"/"+sub, nil, &result); err != nil {
			return err
		}
		fmt.Printf("task %s is now %s\n", rest[0], strVal(result["status"]))
	case "timer":
		if len(rest) != 2 {
			return fmt.Errorf("usage: taskdash task timer <start|stop> <id>")
		}
		action, id := rest[0], rest[1]
		if action != "start" && action != "stop" {
			return fmt.Errorf("unknown timer action: %s", action)
		}
		if err := c.post("/api/tasks/"+id+"/timer/"+action, nil, nil); err != nil {
			return err
		}
		fmt.Printf("timer %s requested for task %s\n", action, id)
	default:
		return fmt.Errorf("unknown task subcommand: %s", sub)
	}
	return nil
}

func (c *Client) showTask(id string) error {
	var t map[string]any
	if err := c.get("/api/tasks/"+id, &t); err != nil {
		return err
	}
	var elapsed map[string]any
	if err := c.get("/api/tasks/"+id+"/time", &elapsed); err != nil {
		return err
	}

	fmt.Printf("id:          %s\n", strVal(t["id"]))
	fmt.Printf("title:       %s\n", strVal(t["title"]))
	fmt.Printf("type:        %s\n", strVal(t["type"]))
	fmt.Printf("status:      %s\n", strVal(t["status"]))
	fmt.Printf("priority:    %s\n", strVal(t["priority"]))
	if v := strVal(t["assignee"]); v != "" {
		fmt.Printf("assignee:    %s\n", v)
	}
	if v := strVal(t["dueDate"]); v != "" {
		fmt.Printf("due:         %s\n", v)
	}
	fmt.Printf("time spent:  %s (running: %s)\n", strVal(elapsed["formatted"]), strVal(elapsed["running"]))
	return nil
}

// --- analytics ---

func (c *Client) cmdAnalytics(_ []string) error {
	var report struct {
		Daily []struct {
			Day        string `json:"day"`
			Tasks      int    `json:"tasks"`
			Concurrent int    `json:"concurrent"`
		} `json:"daily"`
		StatusDist []struct {
			Name  string `json:"name"`
			Value int    `json:"value"`
		} `json:"statusDist"`
		PriorityDist []struct {
			Name  string `json:"name"`
			Value int    `json:"value"`
		} `json:"priorityDist"`
	}
	if err := c.get("/api/analytics", &report); err != nil {
		return err
	}

	fmt.Println("weekly activity:")
	for _, d := range report.Daily {
		fmt.Printf("  %-4s completed=%d active=%d\n", d.Day, d.Tasks, d.Concurrent)
	}
	fmt.Println("status:")
	for _, c := range report.StatusDist {
		fmt.Printf("  %-18s %d\n", c.Name, c.Value)
	}
	fmt.Println("priority:")
	for _, c := range report.PriorityDist {
		fmt.Printf("  %-18s %d\n", c.Name, c.Value)
	}
	return nil
}

// --- helpers ---

func strVal(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
